// Package store persists rules in a local bbolt database so they survive
// restarts.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"go.etcd.io/bbolt"

	"github.com/clambin/homehub/internal/rules"
)

var rulesBucket = []byte("rules")

// Store is a rule store backed by a single bbolt file. Rules are stored as
// JSON documents keyed by rule id.
type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open rule store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rulesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create rules bucket: %w", err)
	}
	logger.Debug("rule store opened", slog.String("path", path))
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the rule, replacing any previous version with the same id.
func (s *Store) Save(rule rules.Rule) error {
	body, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("encode rule %q: %w", rule.ID, err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(rulesBucket).Put([]byte(rule.ID), body)
	})
}

// Delete removes the rule. Deleting a rule that is not stored is a no-op.
func (s *Store) Delete(id rules.RuleID) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(rulesBucket).Delete([]byte(id))
	})
}

// LoadAll returns all stored rules. Rules that no longer decode are skipped
// and logged, so one corrupt record does not block startup.
func (s *Store) LoadAll() ([]rules.Rule, error) {
	var stored []rules.Rule
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(rulesBucket).ForEach(func(k, v []byte) error {
			var rule rules.Rule
			if err := json.Unmarshal(v, &rule); err != nil {
				s.logger.Error("skipping corrupt rule record", slog.String("rule", string(k)), slog.Any("err", err))
				return nil
			}
			stored = append(stored, rule)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	return stored, nil
}
