package main

import (
	"fmt"
	"io"
	"os"

	"github.com/harrison/jargrep/internal/cmd"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes jargrep and returns the process exit code: 0 on success, 1
// on any error (usage, configuration, or an internal stack imbalance).
func run(args []string, stdout, stderr io.Writer) int {
	rootCmd := cmd.NewRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
