// Package rules implements the rules subcommand: inspection of the persisted
// rule database without running the engine.
package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	enginerules "github.com/clambin/homehub/internal/rules"
	"github.com/clambin/homehub/internal/store"
)

var (
	Cmd = cobra.Command{
		Use:   "rules",
		Short: "inspect the rule database",
	}

	listCmd = cobra.Command{
		Use:   "list",
		Short: "list all stored rules",
		RunE: func(_ *cobra.Command, _ []string) error {
			return list(os.Stdout, viper.GetString("store.path"))
		},
	}
)

func init() {
	Cmd.AddCommand(&listCmd)
}

type Encoder interface {
	Encode(any) error
}

func list(w io.Writer, path string) error {
	db, err := store.Open(path, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer func() { _ = db.Close() }()

	stored, err := db.LoadAll()
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encode(encoder, stored)
}

func encode(e Encoder, stored []enginerules.Rule) error {
	type entry struct {
		ID      enginerules.RuleID `json:"id"`
		Name    string             `json:"name"`
		Enabled bool               `json:"enabled"`
		Actions int                `json:"actions"`
	}
	report := make([]entry, 0, len(stored))
	for _, rule := range stored {
		report = append(report, entry{ID: rule.ID, Name: rule.Name, Enabled: rule.Enabled, Actions: len(rule.Actions)})
	}
	return e.Encode(report)
}
