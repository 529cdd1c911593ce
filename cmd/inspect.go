package cmd

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/atomicobject/assetwatch/pkg/builder"
	"github.com/atomicobject/assetwatch/pkg/refindex"
	"github.com/atotto/clipboard"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
)

var (
	inspectCopy bool
	inspectOpen bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <root>",
	Short: "Fuzzy-pick a container file and print the references it holds",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := args[0]
		cfg := loadConfig()
		sink := loggingSink()
		writer := newWriter()

		idx := refindex.New(root, cfg, writer, sink)
		parsed, err := builder.Build(context.Background(), root, cfg, sink)
		if err != nil {
			log.Fatalf("assetwatch: failed to build index: %v", err)
		}
		idx.Rebuild(parsed)

		snapshot := idx.Snapshot()
		paths := make([]string, 0, len(snapshot.Forward))
		for container := range snapshot.Forward {
			paths = append(paths, container)
		}
		sort.Strings(paths)
		if len(paths) == 0 {
			fmt.Println("no container files found under", root)
			return
		}

		index, err := fuzzyfinder.Find(paths, func(i int) string { return paths[i] })
		if err != nil {
			log.Fatalf("assetwatch: picker cancelled: %v", err)
		}
		picked := paths[index]

		refs := idx.References(picked)
		sort.Strings(refs)

		output := strings.Join(refs, "\n")
		fmt.Printf("%s references %d path(s):\n%s\n", picked, len(refs), output)

		if inspectCopy {
			if err := clipboard.WriteAll(output); err != nil {
				log.Printf("assetwatch: failed to copy to clipboard: %v", err)
			}
		}
		if inspectOpen {
			if err := open.Run(picked); err != nil {
				log.Printf("assetwatch: failed to open %s: %v", picked, err)
			}
		}
	},
}

func init() {
	inspectCmd.Flags().BoolVar(&inspectCopy, "copy", false, "copy the reference list to the system clipboard")
	inspectCmd.Flags().BoolVar(&inspectOpen, "open", false, "open the picked file in the OS default application")
	rootCmd.AddCommand(inspectCmd)
}
