package engine

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/clambin/homehub/internal/rules"
)

func TestEngine_Collect(t *testing.T) {
	e := New(testRegistry(t), nil, &fakeExecutor{}, nil, nil, discardLogger)

	require.NoError(t, e.AddRule(rules.Rule{ID: "r1", Actions: []rules.RuleAction{powerAction(true)}, Enabled: true}))
	require.NoError(t, e.AddRule(rules.Rule{ID: "r2", Actions: []rules.RuleAction{powerAction(true)}}))
	e.EvaluateTime(time.Date(2025, time.September, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, testutil.CollectAndCompare(e, strings.NewReader(`
# HELP homehub_engine_evaluations_total Number of rule evaluation passes
# TYPE homehub_engine_evaluations_total counter
homehub_engine_evaluations_total{trigger="time"} 1

# HELP homehub_engine_rules Number of configured rules
# TYPE homehub_engine_rules gauge
homehub_engine_rules 2

# HELP homehub_engine_rules_active Number of currently active rules
# TYPE homehub_engine_rules_active gauge
homehub_engine_rules_active 0

# HELP homehub_engine_rules_enabled Number of enabled rules
# TYPE homehub_engine_rules_enabled gauge
homehub_engine_rules_enabled 1
`),
		"homehub_engine_rules", "homehub_engine_rules_active", "homehub_engine_rules_enabled", "homehub_engine_evaluations_total",
	))
}
