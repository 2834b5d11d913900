package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// AnswerResponse represents the answer API response.
type AnswerResponse struct {
	Answer  string        `json:"answer"`
	Results []QueryResult `json:"results"`
}

// AnswerCmd creates the answer command.
func AnswerCmd() *cobra.Command {
	var (
		limit  int
		rerank bool
	)

	cmd := &cobra.Command{
		Use:   "answer <question>",
		Short: "Answer a question from the indexed documents",
		Long:  "Retrieves relevant chunks and generates an answer grounded in them.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runAnswer(cmd, args[0], limit, rerank, outputJSON)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of chunks to ground the answer on")
	cmd.Flags().BoolVar(&rerank, "rerank", false, "Rerank results with the cross-encoder")

	return cmd
}

func runAnswer(cmd *cobra.Command, question string, limit int, rerank, outputJSON bool) error {
	api, err := NewAPIClient(cmd)
	if err != nil {
		return err
	}

	req := QueryRequest{
		Query:  question,
		K:      limit,
		Rerank: rerank,
	}

	resp, err := api.Post("/answer", req)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	var answerResp AnswerResponse
	if err := json.Unmarshal(resp.Data, &answerResp); err != nil {
		return fmt.Errorf("failed to parse answer: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(answerResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Println(answerResp.Answer)
	if len(answerResp.Results) > 0 {
		fmt.Printf("\n%s\nSources:\n", strings.Repeat("-", 40))
		for _, result := range answerResp.Results {
			fmt.Printf("  %s [%d] (%.4f)\n", result.Source, result.ChunkIndex, result.Score)
		}
	}

	return nil
}
