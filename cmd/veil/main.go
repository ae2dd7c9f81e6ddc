package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veil-ai/veil/cmd/veil/commands"
)

var rootCmd = &cobra.Command{
	Use:   "veil",
	Short: "veil - consistent PII pseudonymization for RAG pipelines",
	Long: `veil keeps PII out of vector stores and LLM prompts while keeping
retrieval quality intact: detected values are replaced with stable
<Type_N> tokens from a session registry, and restored in final answers.

Available commands:
  ingest   - Pseudonymize documents and store them
  query    - Answer a question against the pseudonymized corpus
  compare  - Run the three consistency strategies side by side
  registry - Inspect the persisted token registry

Examples:
  veil ingest --config veil.yaml tickets/*.txt
  veil query --config veil.yaml "What was the issue reported by Hans Mueller?"
  veil compare
  veil registry dump --config veil.yaml`,
}

func init() {
	rootCmd.AddCommand(commands.IngestCmd)
	rootCmd.AddCommand(commands.QueryCmd)
	rootCmd.AddCommand(commands.CompareCmd)
	rootCmd.AddCommand(commands.RegistryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
