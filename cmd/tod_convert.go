package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/atomicobject/assetwatch/pkg/tod"
	"github.com/spf13/cobra"
)

var todConvertCmd = &cobra.Command{
	Use:   "tod-convert <legacy-xml>",
	Short: "Convert a legacy time-of-day XML file into an environment preset and a CE5 time-of-day preset",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		input := args[0]
		result, err := tod.Convert(input)
		if err != nil {
			log.Fatalf("assetwatch: time-of-day conversion failed: %v", err)
		}

		if err := os.WriteFile(result.EnvPath, result.EnvXML, 0o644); err != nil {
			log.Fatalf("assetwatch: failed to write %s: %v", result.EnvPath, err)
		}
		if err := os.WriteFile(result.PresetPath, result.PresetXML, 0o644); err != nil {
			log.Fatalf("assetwatch: failed to write %s: %v", result.PresetPath, err)
		}

		fmt.Printf("wrote %s\n", result.EnvPath)
		fmt.Printf("wrote %s\n", result.PresetPath)
	},
}

func init() {
	rootCmd.AddCommand(todConvertCmd)
}
