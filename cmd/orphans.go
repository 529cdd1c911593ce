package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/atomicobject/assetwatch/pkg/finder"
	"github.com/atomicobject/assetwatch/pkg/report"
	"github.com/spf13/cobra"
)

var orphansReportPath string

var orphansCmd = &cobra.Command{
	Use:   "orphans <root>",
	Short: "Scan root for orphaned assets and dangling references",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		root := args[0]
		cfg := loadConfig()
		sink := loggingSink()

		started := time.Now()
		result, err := finder.Scan(context.Background(), root, cfg, sink)
		if err != nil {
			log.Fatalf("assetwatch: scan failed: %v", err)
		}
		finished := time.Now()

		fmt.Printf("scanned %d containers, %d assets\n", result.TotalScanned, result.TotalAssets)
		fmt.Printf("orphaned assets: %d\n", len(result.Orphans))
		for _, f := range result.Orphans {
			fmt.Printf("  %s\n", f.Path)
		}
		fmt.Printf("missing references: %d\n", len(result.Missing))
		for _, f := range result.Missing {
			fmt.Printf("  %s (referenced by %v)\n", f.Path, f.Containers)
		}

		if orphansReportPath != "" {
			recordFinderScans(root, orphansReportPath, result, started, finished)
		}
	},
}

func recordFinderScans(root, dbPath string, result finder.Result, started, finished time.Time) {
	store, err := report.Open(dbPath)
	if err != nil {
		log.Printf("assetwatch: could not open report store %s: %v", dbPath, err)
		return
	}
	defer store.Close()

	ctx := context.Background()
	summary := fmt.Sprintf("%d orphaned, %d missing", len(result.Orphans), len(result.Missing))
	if _, err := store.RecordScan(ctx, report.KindOrphan, root, "", summary, started, finished, result.Orphans); err != nil {
		log.Printf("assetwatch: failed to record orphan scan: %v", err)
	}
	if _, err := store.RecordScan(ctx, report.KindMissing, root, "", summary, started, finished, result.Missing); err != nil {
		log.Printf("assetwatch: failed to record missing-reference scan: %v", err)
	}
}

func init() {
	orphansCmd.Flags().StringVar(&orphansReportPath, "report", "", "optional path to a sqlite report database to record this scan in")
	rootCmd.AddCommand(orphansCmd)
}
