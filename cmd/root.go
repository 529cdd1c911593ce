package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool
	vcsKind    string
)

var rootCmd = &cobra.Command{
	Use:     "assetwatch",
	Short:   "assetwatch - watches a CryEngine-style asset tree and keeps its cross-file references consistent",
	Version: "v0.1.0",
	Long:    "assetwatch - watches a CryEngine-style asset tree and keeps its cross-file references consistent",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "assetwatch: %s\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults to the built-in asset profile)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&vcsKind, "vcs", "none", "version-control checkout hook to run before editing a file (none, p4)")
}
