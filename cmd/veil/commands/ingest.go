package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/veil-ai/veil/internal/pipeline"
)

// IngestCmd pseudonymizes documents and stores them.
var IngestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Pseudonymize documents and store them",
	Long: `Detect PII in each file, register the entities in the session
registry, rewrite the text with canonical tokens and store it.

Each file becomes one document; the document ID is the file name without
its extension.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	IngestCmd.Flags().StringVar(&configPath, "config", "veil.yaml", "Path to veil config file")
}

func runIngest(cmd *cobra.Command, args []string) error {
	a, err := buildApp(configPath)
	if err != nil {
		return err
	}
	defer a.close()

	docs := make([]pipeline.Document, 0, len(args))
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		base := filepath.Base(path)
		docs = append(docs, pipeline.Document{
			ID:   strings.TrimSuffix(base, filepath.Ext(base)),
			Text: string(data),
		})
	}

	ing := pipeline.NewIngestor(a.detector, a.strategy, a.storage, a.logger)
	result := ing.IngestAll(cmd.Context(), docs)

	for _, doc := range result.Documents {
		fmt.Printf("ingested %s (%d tokens)\n", doc.ID, len(doc.Mapping))
	}
	for id, err := range result.Failed {
		fmt.Fprintf(os.Stderr, "failed %s: %v\n", id, err)
	}

	if a.persistent != nil {
		if err := a.persistent.Flush(); err != nil {
			return errors.Wrap(err, "registry persistence")
		}
	}
	if len(result.Failed) > 0 {
		return errors.Newf("%d of %d documents failed", len(result.Failed), len(docs))
	}
	return nil
}
