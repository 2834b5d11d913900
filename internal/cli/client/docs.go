package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DocumentItem represents one catalog entry.
type DocumentItem struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	ObjectKey  string `json:"object_key,omitempty"`
	SizeBytes  int64  `json:"size_bytes"`
	ChunkCount int    `json:"chunk_count"`
	SyncedAt   string `json:"synced_at,omitempty"`
}

// DocumentListResponse represents the documents API response.
type DocumentListResponse struct {
	Items []DocumentItem `json:"items"`
}

// DocsCmd creates the docs command.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List cataloged documents",
		Long:  "Lists the documents known to the server's catalog.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDocs(cmd, outputJSON)
		},
	}

	return cmd
}

func runDocs(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/documents")
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	var list DocumentListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse documents: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(list.Items) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	for _, doc := range list.Items {
		fmt.Printf("%s  %d chunks  %d bytes", doc.Source, doc.ChunkCount, doc.SizeBytes)
		if doc.SyncedAt != "" {
			fmt.Printf("  synced %s", doc.SyncedAt)
		}
		fmt.Println()
	}

	return nil
}

// ChunkItem represents one stored chunk.
type ChunkItem struct {
	Text       string `json:"text"`
	Source     string `json:"source"`
	ChunkIndex int    `json:"chunk_index"`
	FileType   string `json:"file_type"`
	Header     string `json:"header"`
}

// ChunkListResponse represents the chunks API response.
type ChunkListResponse struct {
	Chunks []ChunkItem `json:"chunks"`
	Count  int         `json:"count"`
}

// ChunksCmd creates the chunks command.
func ChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "List stored chunks",
		Long:  "Lists every chunk held in the server's store.",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runChunks(cmd, outputJSON)
		},
	}

	return cmd
}

func runChunks(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/chunks")
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	var list ChunkListResponse
	if err := json.Unmarshal(resp.Data, &list); err != nil {
		return fmt.Errorf("failed to parse chunks: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(list, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("%d chunks:\n", list.Count)
	for _, chunk := range list.Chunks {
		text := chunk.Text
		if len(text) > 80 {
			text = text[:77] + "..."
		}
		fmt.Printf("  %s [%d]  %s\n", chunk.Source, chunk.ChunkIndex, text)
	}

	return nil
}
