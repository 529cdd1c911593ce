package cmd

import (
	"context"
	"log"

	"github.com/atomicobject/assetwatch/pkg/builder"
	"github.com/atomicobject/assetwatch/pkg/mcp"
	"github.com/atomicobject/assetwatch/pkg/refindex"
	"github.com/atomicobject/assetwatch/pkg/watcher"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

var mcpRoot string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing the Reference Index as read-only tools",
	Long: `Run a Model Context Protocol (MCP) server that exposes assetwatch's Reference
Index over stdin/stdout, for use with MCP clients like Claude Desktop or Cursor.

It exposes three tools:
- assetwatch_status: report index size and the watched root
- assetwatch_find_references: list every container that references an asset
- assetwatch_find_containers: list every reference a container file holds

Example MCP client configuration:
{
  "mcpServers": {
    "assetwatch": {
      "command": "/path/to/assetwatch",
      "args": ["mcp", "--root", "/path/to/project"]
    }
  }
}`,
	Run: func(cmd *cobra.Command, args []string) {
		if mcpRoot == "" {
			log.Fatal("assetwatch: --root is required")
		}
		cfg := loadConfig()
		sink := loggingSink()
		writer := newWriter()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		idx := refindex.New(mcpRoot, cfg, writer, sink)
		parsed, err := builder.Build(ctx, mcpRoot, cfg, sink)
		if err != nil {
			log.Fatalf("assetwatch: failed to build index: %v", err)
		}
		idx.Rebuild(parsed)

		svc := watcher.NewService(mcpRoot, cfg, idx, sink, nil)
		if err := svc.Start(ctx); err != nil {
			log.Fatalf("assetwatch: watcher failed to start: %v", err)
		}
		defer svc.Stop()

		s := server.NewMCPServer(
			"assetwatch",
			rootCmd.Version,
			server.WithToolCapabilities(false),
		)

		if err := mcp.RegisterAll(s, mcp.Config{Index: idx, Root: mcpRoot, Version: rootCmd.Version}); err != nil {
			log.Fatalf("assetwatch: failed to register MCP tools: %v", err)
		}

		if err := server.ServeStdio(s); err != nil {
			log.Fatalf("assetwatch: MCP server error: %v", err)
		}
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpRoot, "root", "", "project root to index and watch")
	rootCmd.AddCommand(mcpCmd)
}
