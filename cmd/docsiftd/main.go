package main

import (
	"fmt"
	"os"

	"github.com/sifthq/docsift/internal/cli"
	"github.com/sifthq/docsift/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "docsiftd",
		Short: "Docsift daemon and CLI",
		Long:  "Docsift daemon for running the retrieval server and maintaining its index",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.RebuildCmd())
	rootCmd.AddCommand(admin.SyncCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
