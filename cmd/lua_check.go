package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/atomicobject/assetwatch/pkg/luacheck"
	"github.com/spf13/cobra"
)

var (
	luaCompilerPath  string
	luaFormatterPath string
	luaFormat        bool
)

var luaCheckCmd = &cobra.Command{
	Use:   "lua-check <root>",
	Short: "Run syntax diagnostics (and optionally formatting) over every .lua file under root",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := args[0]
		sink := loggingSink()
		tk := luacheck.Toolkit{CompilerPath: luaCompilerPath, FormatterPath: luaFormatterPath}

		results, err := tk.RunDiagnostics(context.Background(), root, sink)
		if err != nil {
			log.Fatalf("assetwatch: lua diagnostics failed: %v", err)
		}

		failures := 0
		for _, r := range results {
			if r.Status == luacheck.StatusSyntaxError {
				failures++
				fmt.Printf("FAIL %s: %s\n", r.RelativePath, r.Message)
			}
		}
		fmt.Printf("%d files checked, %d syntax errors\n", len(results), failures)

		if luaFormat {
			summary, err := tk.RunFormatting(context.Background(), root, nil, sink)
			if err != nil {
				log.Fatalf("assetwatch: lua formatting failed: %v", err)
			}
			fmt.Println(summary)
		}
	},
}

func init() {
	luaCheckCmd.Flags().StringVar(&luaCompilerPath, "compiler", "luac", "path to the Lua compiler used for syntax checking")
	luaCheckCmd.Flags().StringVar(&luaFormatterPath, "formatter", "stylua", "path to the Lua formatter")
	luaCheckCmd.Flags().BoolVar(&luaFormat, "format", false, "also run the formatter over matched files")
	rootCmd.AddCommand(luaCheckCmd)
}
