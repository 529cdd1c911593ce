package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/atomicobject/assetwatch/pkg/packer"
	"github.com/spf13/cobra"
)

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive.zip> <output-dir>",
	Short: "Extract a zip produced by pack, writing each file through the Atomic Writer",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		archive, outputDir := args[0], args[1]
		writer := newWriter()
		count, err := packer.Unpack(context.Background(), archive, outputDir, writer)
		if err != nil {
			log.Fatalf("assetwatch: unpack failed: %v", err)
		}
		fmt.Printf("extracted %d files into %s\n", count, outputDir)
	},
}

func init() {
	rootCmd.AddCommand(unpackCmd)
}
