package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/authguard/internal/control"
	"github.com/vietddude/authguard/internal/signin/cleanup"
)

var (
	correlationID string
	preventive    bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Purge wallet session keys from the configured store",
	Long: `Purge wallet session keys from the configured store.

With --correlation-id only keys of that session are removed. With --preventive only
keys known to go stale are removed. Otherwise every wallet connection key is removed.`,
	Args: cobra.NoArgs,
	Run:  runCleanup,
}

func init() {
	cleanupCmd.Flags().StringVar(&correlationID, "correlation-id", "", "session topic to purge")
	cleanupCmd.Flags().BoolVar(&preventive, "preventive", false, "only purge known-problematic keys")
	cleanupCmd.MarkFlagsMutuallyExclusive("correlation-id", "preventive")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) {
	cfg := loadConfig(cmd)
	ctx := context.Background()

	store, closeStore, err := control.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = closeStore()
	}()

	cleaner := cleanup.NewCleaner(store, cleanup.NewMutex(nil), cfg.Cleanup.Patterns, nil)

	var (
		stage   string
		deleted int
	)
	switch {
	case correlationID != "":
		stage = cleanup.StageCorrelated
		deleted, err = cleaner.PurgeCorrelated(ctx, correlationID)
	case preventive:
		stage = cleanup.StagePreventive
		deleted, err = cleaner.Preventive(ctx)
	default:
		stage = cleanup.StageConnection
		deleted, err = cleaner.PurgeConnection(ctx)
	}
	if err != nil {
		slog.Error("Cleanup failed", "stage", stage, "deleted", deleted, "error", err)
		os.Exit(1)
	}

	fmt.Printf("Removed %d keys (%s)\n", deleted, stage)
}
