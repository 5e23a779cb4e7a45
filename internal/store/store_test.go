package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clambin/homehub/internal/rules"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.db")
	s, err := Open(path, discardLogger)
	require.NoError(t, err)

	rule := rules.Rule{
		ID:   "r1",
		Name: "cooling",
		StateEvaluator: rules.StateEvaluator{
			StateDescriptor: rules.StateDescriptor{
				DeviceID: "thermostat", StateTypeID: "temperature", Value: 20.0, Operator: rules.OperatorGreaterOrEqual,
			},
		},
		TimeDescriptor: rules.TimeDescriptor{CalendarItems: []rules.CalendarItem{
			{StartTime: rules.NewTimeOfDay(10, 0), Duration: time.Hour, Repeating: rules.RepeatingOption{Mode: rules.RepeatingModeDaily}},
		}},
		Actions: []rules.RuleAction{{
			ActionTypeID: "set-power",
			DeviceID:     "switch",
			Params:       []rules.RuleActionParam{{ParamTypeID: "power", Value: true}},
		}},
		Enabled: true,
	}
	require.NoError(t, s.Save(rule))
	require.NoError(t, s.Save(rules.Rule{ID: "r2", Name: "other", Actions: rule.Actions}))
	require.NoError(t, s.Close())

	// reopen and verify the rules survived
	s, err = Open(path, discardLogger)
	require.NoError(t, err)

	stored, err := s.LoadAll()
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, rule, stored[0])
	assert.Equal(t, rules.RuleID("r2"), stored[1].ID)

	require.NoError(t, s.Delete("r2"))
	require.NoError(t, s.Delete("r2"), "deleting a removed rule is a no-op")

	stored, err = s.LoadAll()
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, rules.RuleID("r1"), stored[0].ID)

	require.NoError(t, s.Close())
}

func TestStore_OpenError(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "rules.db"), discardLogger)
	assert.Error(t, err)
}
