package main

import "github.com/vietddude/authguard/internal/cli"

func main() {
	cli.Execute()
}
