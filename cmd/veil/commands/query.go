package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/veil-ai/veil/internal/pipeline"
)

var queryVerbose bool

// QueryCmd answers a question against the pseudonymized corpus.
var QueryCmd = &cobra.Command{
	Use:   "query <question>",
	Short: "Answer a question against the pseudonymized corpus",
	Long: `Rewrite the question with canonical tokens, retrieve matching
documents, generate an answer from the pseudonymized prompt and restore
real values in the final text.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	QueryCmd.Flags().StringVar(&configPath, "config", "veil.yaml", "Path to veil config file")
	QueryCmd.Flags().BoolVarP(&queryVerbose, "verbose", "v", false, "Show the rewritten query, retrieved chunks and raw answer")
}

func runQuery(cmd *cobra.Command, args []string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	question := strings.Join(args, " ")

	q := pipeline.NewQuerier(a.strategy, a.storage, a.generator, a.cfg.Query.TopK, a.logger)
	ans, err := q.Ask(cmd.Context(), question)
	if err != nil {
		return err
	}

	if queryVerbose {
		fmt.Printf("search query: %s\n", ans.RewrittenQuery)
		for _, hit := range ans.Retrieved {
			fmt.Printf("retrieved %s (score %.3f)\n", hit.ID, hit.Score)
		}
		fmt.Printf("raw answer: %s\n\n", ans.RawAnswer)
	}
	fmt.Println(ans.Final)
	return nil
}
