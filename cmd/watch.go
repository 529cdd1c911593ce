package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/atomicobject/assetwatch/pkg/builder"
	"github.com/atomicobject/assetwatch/pkg/refindex"
	"github.com/atomicobject/assetwatch/pkg/watcher"
	"github.com/spf13/cobra"
)

var (
	watchDryRun             bool
	watchMatchAnyTextureExt bool
	watchAllowExtChange     bool
	watchAllowDirChange     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <root>",
	Short: "Build the Reference Index and watch root for changes until interrupted",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := args[0]
		cfg := loadConfig()
		clone := *cfg
		if cmd.Flags().Changed("dry-run") {
			clone.DryRun = watchDryRun
		}
		if cmd.Flags().Changed("match-any-texture-ext") {
			clone.MatchAnyTextureExtension = watchMatchAnyTextureExt
		}
		if cmd.Flags().Changed("allow-ext-change") {
			clone.AllowExtChange = watchAllowExtChange
		}
		if cmd.Flags().Changed("allow-dir-change") {
			clone.AllowDirChange = watchAllowDirChange
		}
		cfg = &clone
		sink := loggingSink()
		writer := newWriter()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		idx := refindex.New(root, cfg, writer, sink)

		parsed, err := builder.Build(ctx, root, cfg, sink)
		if err != nil {
			log.Fatalf("assetwatch: initial index build failed: %v", err)
		}
		idx.Rebuild(parsed)

		svc := watcher.NewService(root, cfg, idx, sink, nil)
		if err := svc.Start(ctx); err != nil {
			log.Fatalf("assetwatch: watcher failed to start: %v", err)
		}

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop

		svc.Stop()
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchDryRun, "dry-run", false, "log writes the core would make without touching the filesystem")
	watchCmd.Flags().BoolVar(&watchMatchAnyTextureExt, "match-any-texture-ext", true, "treat any texture extension as an alias when resolving a reference")
	watchCmd.Flags().BoolVar(&watchAllowExtChange, "allow-ext-change", true, "expand rename reference-key candidates across texture/mtl aliases; when false, only the exact original extension is patched")
	watchCmd.Flags().BoolVar(&watchAllowDirChange, "allow-dir-change", true, "rewrite references when a directory is renamed; when false, directory renames are ignored")
	rootCmd.AddCommand(watchCmd)
}
