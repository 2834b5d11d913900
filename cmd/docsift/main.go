package main

import (
	"fmt"
	"os"

	"github.com/sifthq/docsift/internal/cli"
	"github.com/sifthq/docsift/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "docsift",
		Short: "Docsift CLI - Document retrieval over embedded chunks",
		Long: `Docsift CLI provides commands to query and manage the retrieval server.

Environment variables:
  DOCSIFT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.QueryCmd())
	rootCmd.AddCommand(client.AnswerCmd())
	rootCmd.AddCommand(client.RebuildCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.ChunksCmd())
	rootCmd.AddCommand(client.StatusCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
