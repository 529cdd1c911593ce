package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/atomicobject/assetwatch/pkg/builder"
	"github.com/atomicobject/assetwatch/pkg/refindex"
	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex <root>",
	Short: "Build the Reference Index once and report its size, without watching",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := args[0]
		cfg := loadConfig()
		sink := loggingSink()
		writer := newWriter()

		idx := refindex.New(root, cfg, writer, sink)
		parsed, err := builder.Build(context.Background(), root, cfg, sink)
		if err != nil {
			log.Fatalf("assetwatch: index build failed: %v", err)
		}
		idx.Rebuild(parsed)

		stats := idx.Stats()
		fmt.Printf("containers: %d\nreferences: %d\n", stats.Containers, stats.References)
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
