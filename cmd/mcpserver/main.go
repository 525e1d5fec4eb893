// MCP Employee Database Server - A Model Context Protocol server for an
// employee SQLite database
//
// This application exposes SQL query, schema and table listing tools over
// the Model Context Protocol. It supports both stdio and HTTP transports for
// integration with various MCP clients, and subcommands for managing
// employee records directly.
//
// Usage:
//
//	mcpserver [flags] <database>
//	mcpserver employees list|get|create|update|delete [flags]
//	mcpserver departments list [flags]
//
// Flags:
//
//	--transport string: Transport type (stdio|http) (default "stdio")
//	--port int: HTTP port (default 8080)
//	--policy string: Query policy (permissive|readonly) (default "permissive")
//	--request-timeout duration: Per-request deadline, 0 for none (default 0)
package main

import (
	"os"

	"github.com/BearHuddleston/employee-mcp-server/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
