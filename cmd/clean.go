package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/atomicobject/assetwatch/pkg/cleaner"
	"github.com/spf13/cobra"
)

var (
	cleanExtensions []string
	cleanOpts       cleaner.Options
)

var cleanCmd = &cobra.Command{
	Use:   "clean <root>",
	Short: "Normalize whitespace, path casing, and path separators across text asset files",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := args[0]
		cfg := loadConfig()
		extensions := cleanExtensions
		if len(extensions) == 0 {
			extensions = cfg.ContainerExtensions()
		}

		writer := newWriter()
		summary, err := cleaner.Run(context.Background(), root, extensions, cleanOpts, writer)
		if err != nil {
			log.Fatalf("assetwatch: clean failed: %v", err)
		}

		fmt.Printf("modified %d files, %d unchanged\n", summary.Modified, summary.Unchanged)
		for _, e := range summary.Errors {
			fmt.Printf("  error: %s\n", e)
		}
	},
}

func init() {
	cleanCmd.Flags().StringSliceVar(&cleanExtensions, "ext", nil, "extensions to clean (defaults to the configured container extensions)")
	cleanCmd.Flags().BoolVar(&cleanOpts.StripBOM, "strip-bom", true, "strip anything before the first '<' (byte-order mark, stray header bytes) from XML-family files")
	cleanCmd.Flags().BoolVar(&cleanOpts.NormalizePaths, "normalize-paths", true, "rewrite backslash path separators to forward slashes in path attributes")
	cleanCmd.Flags().BoolVar(&cleanOpts.ResolveRedundantPaths, "resolve-paths", true, "collapse redundant . and .. segments in path attributes")
	cleanCmd.Flags().BoolVar(&cleanOpts.Lowercase, "lowercase", false, "lowercase path attribute values")
	cleanCmd.Flags().BoolVar(&cleanOpts.TrimWhitespace, "trim-whitespace", true, "trim trailing whitespace from each line")
	rootCmd.AddCommand(cleanCmd)
}
