package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/stevemurr/slotdb/config"
	"github.com/stevemurr/slotdb/docdb"
	"github.com/stevemurr/slotdb/internal/logging"
)

// app holds the global flags and the collection opened from them.
type app struct {
	configPath string
	backend    string
	dataDir    string
	ref        string
	idField    string
	path       string
	verbose    bool

	db    *docdb.Collection
	close func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "slotctl",
		Short: "Inspect and edit a slotdb document from the command line",
		Long: `slotctl opens the document stored under one slot key and runs a single
operation against the collection selected by --path (e.g. users/admins).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.close != nil {
				return a.close()
			}
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "Path to a YAML config file")
	f.StringVar(&a.backend, "backend", "", "Store backend (json, sqlite, memory, s3)")
	f.StringVar(&a.dataDir, "data-dir", "", "Data directory for json/sqlite backends")
	f.StringVar(&a.ref, "ref", "", "Slot key holding the document")
	f.StringVar(&a.idField, "id-field", "", "Identifier field (_id or _key)")
	f.StringVar(&a.path, "path", "", "Collection path, segments separated by '/'")
	f.BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newTreeCmd(a),
		newInsertCmd(a),
		newFindCmd(a),
		newUpdateCmd(a),
		newRemoveCmd(a),
		newWatchCmd(a),
	)
	return root
}

// open loads configuration, applies flag overrides and opens the collection.
func (a *app) open(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.ref != "" {
		cfg.Ref = a.ref
	}
	if a.idField != "" {
		cfg.IDField = a.idField
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, _ := cfg.Level()
	if a.verbose {
		level = slog.LevelDebug
	}
	logger := logging.New(level)
	slog.SetDefault(logger)

	slot, err := cfg.OpenSlot(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to create store (backend=%s): %w", cfg.Backend, err)
	}
	if c, ok := slot.(io.Closer); ok {
		a.close = c.Close
	}
	a.db = docdb.Open(cmd.Context(), slot, cfg.Ref,
		docdb.WithIdentifierField(cfg.IdentifierField()),
		docdb.WithLogger(logger),
	).At(a.path)
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseObject(s string) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return m, nil
}
