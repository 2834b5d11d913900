package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// RebuildRequest represents the rebuild API request.
type RebuildRequest struct {
	SourceDir string `json:"source_dir,omitempty"`
}

// RebuildResponse represents the rebuild API response.
type RebuildResponse struct {
	FilesIngested  int `json:"files_ingested"`
	FilesSkipped   int `json:"files_skipped"`
	ChunksAdded    int `json:"chunks_added"`
	ChunksRejected int `json:"chunks_rejected"`
	Errors         []struct {
		File   string `json:"file"`
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors,omitempty"`
}

// RebuildCmd creates the rebuild command.
func RebuildCmd() *cobra.Command {
	var sourceDir string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the index from source files",
		Long:  "Asks the server to rebuild its index and chunk store from the source directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runRebuild(cmd, sourceDir, outputJSON)
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source-dir", "", "Override the server's source directory")

	return cmd
}

func runRebuild(cmd *cobra.Command, sourceDir string, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/rebuild", RebuildRequest{SourceDir: sourceDir})
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}

	var report RebuildResponse
	if err := json.Unmarshal(resp.Data, &report); err != nil {
		return fmt.Errorf("failed to parse rebuild report: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Ingested %d files (%d skipped), %d chunks (%d rejected)\n",
		report.FilesIngested, report.FilesSkipped, report.ChunksAdded, report.ChunksRejected)
	for _, e := range report.Errors {
		fmt.Printf("  %s: %s (%s)\n", e.File, e.Detail, e.Code)
	}

	return nil
}
