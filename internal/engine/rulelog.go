package engine

import (
	"log/slog"

	"github.com/clambin/homehub/internal/rules"
)

// RuleLog receives audit events for rule executions and state changes.
type RuleLog interface {
	RuleEnabledChanged(rule rules.Rule, enabled bool)
	RuleActionsExecuted(rule rules.Rule)
	RuleExitActionsExecuted(rule rules.Rule)
}

// SLogRuleLog writes audit events to a structured logger.
type SLogRuleLog struct {
	Logger *slog.Logger
}

func (l SLogRuleLog) RuleEnabledChanged(rule rules.Rule, enabled bool) {
	l.Logger.Info("rule enabled changed",
		slog.String("rule", string(rule.ID)), slog.String("name", rule.Name), slog.Bool("enabled", enabled))
}

func (l SLogRuleLog) RuleActionsExecuted(rule rules.Rule) {
	l.Logger.Info("rule actions executed",
		slog.String("rule", string(rule.ID)), slog.String("name", rule.Name), slog.Int("actions", len(rule.Actions)))
}

func (l SLogRuleLog) RuleExitActionsExecuted(rule rules.Rule) {
	l.Logger.Info("rule exit actions executed",
		slog.String("rule", string(rule.ID)), slog.String("name", rule.Name), slog.Int("actions", len(rule.ExitActions)))
}
