package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/atomicobject/assetwatch/pkg/dupfind"
	"github.com/atomicobject/assetwatch/pkg/report"
	"github.com/spf13/cobra"
)

var (
	duplicatesDryRun     bool
	duplicatesReportPath string
	duplicatesHistory    bool
	duplicatesSince      string
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates <reference> <target>",
	Short: "Delete files under target that are byte-identical to a file at the same relative path under reference",
	Args:  cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if duplicatesHistory {
			printDuplicateHistory()
			return
		}
		if len(args) != 2 {
			log.Fatal("assetwatch: duplicates requires <reference> <target> unless --history is set")
		}
		ref, target := args[0], args[1]
		cfg := loadConfig()
		if duplicatesDryRun {
			clone := *cfg
			clone.DryRun = true
			cfg = &clone
		}
		sink := loggingSink()

		started := time.Now()
		result, err := dupfind.Scan(context.Background(), ref, target, cfg, sink)
		if err != nil {
			log.Fatalf("assetwatch: duplicate scan failed: %v", err)
		}
		finished := time.Now()

		if duplicatesSince != "" {
			result.Deleted = diffAgainstPriorScan(result.Deleted, duplicatesSince)
		}

		fmt.Printf("removed %d duplicate files (%d bytes), pruned %d empty directories\n",
			len(result.Deleted), result.BytesSaved, result.RemovedDirs)

		if duplicatesReportPath != "" {
			store, err := report.Open(duplicatesReportPath)
			if err != nil {
				log.Printf("assetwatch: could not open report store %s: %v", duplicatesReportPath, err)
				return
			}
			defer store.Close()

			summary := fmt.Sprintf("%d removed, %d bytes saved", len(result.Deleted), result.BytesSaved)
			if _, err := store.RecordScan(context.Background(), report.KindDuplicate, ref, target, summary, started, finished, result.Deleted); err != nil {
				log.Printf("assetwatch: failed to record duplicate scan: %v", err)
			}
		}
	},
}

// diffAgainstPriorScan drops findings already reported as removed in
// sinceScanID, so a re-run only surfaces duplicates discovered since that
// scan. It still performs the full hash comparison in Scan; it narrows the
// report, it does not skip re-hashing.
func diffAgainstPriorScan(findings []report.Finding, sinceScanID string) []report.Finding {
	if duplicatesReportPath == "" {
		log.Fatal("assetwatch: --since requires --report to locate the prior scan")
	}
	store, err := report.Open(duplicatesReportPath)
	if err != nil {
		log.Fatalf("assetwatch: could not open report store %s: %v", duplicatesReportPath, err)
	}
	defer store.Close()

	prior, err := store.Findings(context.Background(), sinceScanID)
	if err != nil {
		log.Fatalf("assetwatch: could not load scan %s: %v", sinceScanID, err)
	}
	seen := make(map[string]bool, len(prior))
	for _, f := range prior {
		seen[f.Path] = true
	}

	out := findings[:0]
	for _, f := range findings {
		if !seen[f.Path] {
			out = append(out, f)
		}
	}
	return out
}

func printDuplicateHistory() {
	if duplicatesReportPath == "" {
		log.Fatal("assetwatch: --history requires --report")
	}
	store, err := report.Open(duplicatesReportPath)
	if err != nil {
		log.Fatalf("assetwatch: could not open report store %s: %v", duplicatesReportPath, err)
	}
	defer store.Close()

	scans, err := store.ListScans(context.Background(), report.KindDuplicate)
	if err != nil {
		log.Fatalf("assetwatch: could not list scans: %v", err)
	}
	for _, s := range scans {
		fmt.Printf("%s  %s -> %s  %s  (%s)\n", s.ID, s.Root, s.Target, s.Summary, s.StartedAt.Format(time.RFC3339))
	}
}

func init() {
	duplicatesCmd.Flags().BoolVar(&duplicatesDryRun, "dry-run", false, "report duplicates without deleting them")
	duplicatesCmd.Flags().StringVar(&duplicatesReportPath, "report", "", "path to a sqlite report database to record this scan in (required for --history/--since)")
	duplicatesCmd.Flags().BoolVar(&duplicatesHistory, "history", false, "list past duplicate scans recorded in --report instead of scanning")
	duplicatesCmd.Flags().StringVar(&duplicatesSince, "since", "", "only report duplicates not already recorded as removed in this scan ID")
	rootCmd.AddCommand(duplicatesCmd)
}
