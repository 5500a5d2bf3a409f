package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/authguard/internal/signin/categorize"
	"github.com/vietddude/authguard/internal/signin/classify"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [message...]",
	Short: "Classify a raw wallet error message",
	Args:  cobra.MinimumNArgs(1),
	Run:   runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}

func runClassify(cmd *cobra.Command, args []string) {
	msg := strings.Join(args, " ")
	cls := classify.Analyze(msg)
	appErr := categorize.New().Categorize(msg)

	correlationID := cls.CorrelationID
	if correlationID == "" {
		correlationID = "-"
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintf(w, "KIND\t%s\n", cls.Kind)
	_, _ = fmt.Fprintf(w, "CORRELATION\t%s\n", correlationID)
	_, _ = fmt.Fprintf(w, "CORRUPTION\t%t\n", classify.IsSessionCorruption(msg))
	_, _ = fmt.Fprintf(w, "CATEGORY\t%s\n", appErr.Type)
	_, _ = fmt.Fprintf(w, "MESSAGE\t%s\n", appErr.UserFriendlyMessage)
	_ = w.Flush()
}
