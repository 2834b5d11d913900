package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// QueryRequest represents the query API request.
type QueryRequest struct {
	Query  string `json:"query"`
	K      int    `json:"k,omitempty"`
	Rerank bool   `json:"rerank,omitempty"`
}

// QueryResult represents one retrieved chunk.
type QueryResult struct {
	Text       string  `json:"text"`
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	FileType   string  `json:"file_type"`
	Header     string  `json:"header"`
	Score      float32 `json:"score"`
}

// QueryResponse represents the query API response.
type QueryResponse struct {
	Results []QueryResult `json:"results"`
	Count   int           `json:"count"`
}

// QueryCmd creates the query command.
func QueryCmd() *cobra.Command {
	var (
		limit  int
		rerank bool
	)

	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Search the indexed documents",
		Long:  "Retrieves the chunks most similar to the query text.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runQuery(cmd, args[0], limit, rerank, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Maximum number of results")
	cmd.Flags().BoolVar(&rerank, "rerank", false, "Rerank results with the cross-encoder")

	return cmd
}

func runQuery(cmd *cobra.Command, query string, limit int, rerank, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	req := QueryRequest{
		Query:  query,
		K:      limit,
		Rerank: rerank,
	}

	resp, err := api.Post("/query", req)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var queryResp QueryResponse
	if err := json.Unmarshal(resp.Data, &queryResp); err != nil {
		return fmt.Errorf("failed to parse query results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(queryResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	printResults(queryResp.Results)
	return nil
}

func printResults(results []QueryResult) {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, result := range results {
		fmt.Printf("%d. %s [%d] (%.4f)\n", i+1, result.Source, result.ChunkIndex, result.Score)
		if result.Header != "" {
			fmt.Printf("   Header: %s\n", result.Header)
		}
		text := result.Text
		if len(text) > 200 {
			text = text[:197] + "..."
		}
		fmt.Printf("   %s\n", text)
		if i < len(results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}
}
