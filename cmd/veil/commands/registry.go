package commands

import (
	"fmt"
	"sort"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/veil-ai/veil/internal/config"
	"github.com/veil-ai/veil/internal/logging"
	"github.com/veil-ai/veil/internal/registry"
)

// RegistryCmd inspects the persisted token registry.
var RegistryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the persisted token registry",
}

var registryDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every token assignment for the configured session",
	RunE:  runRegistryDump,
}

func init() {
	RegistryCmd.AddCommand(registryDumpCmd)
	registryDumpCmd.Flags().StringVar(&configPath, "config", "veil.yaml", "Path to veil config file")
}

func runRegistryDump(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "load config")
	}
	if cfg.Registry.Path == "" {
		return errors.New("registry.path is not configured; nothing persisted to dump")
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.JSON)
	p, err := registry.OpenSQLite(cfg.Registry.Path, cfg.Registry.Session, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	snapshot := p.Snapshot()
	values := make([]string, 0, len(snapshot))
	for value := range snapshot {
		values = append(values, value)
	}
	sort.Slice(values, func(i, j int) bool {
		return snapshot[values[i]] < snapshot[values[j]]
	})

	fmt.Printf("session %s: %d entries\n", cfg.Registry.Session, len(snapshot))
	for _, value := range values {
		fmt.Printf("  %-25s = %q\n", snapshot[value], value)
	}
	return nil
}
