package cmd

import (
	"fmt"
	"log"

	"github.com/atomicobject/assetwatch/pkg/packer"
	"github.com/spf13/cobra"
)

var packExtensions []string

var packCmd = &cobra.Command{
	Use:   "pack <root> <output.zip>",
	Short: "Archive matching files under root into a zip, preserving relative paths",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		root, output := args[0], args[1]
		count, err := packer.Pack(root, output, packExtensions, func(current, total int) {
			if debug {
				log.Printf("packing %d/%d", current, total)
			}
		})
		if err != nil {
			log.Fatalf("assetwatch: pack failed: %v", err)
		}
		fmt.Printf("packed %d files into %s\n", count, output)
	},
}

func init() {
	packCmd.Flags().StringSliceVar(&packExtensions, "ext", nil, "extensions to include (defaults to every file)")
	rootCmd.AddCommand(packCmd)
}
