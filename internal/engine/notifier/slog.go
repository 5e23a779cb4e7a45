package notifier

import (
	"log/slog"

	"github.com/clambin/homehub/internal/rules"
)

type SLogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = &SLogNotifier{}

func (s SLogNotifier) Notify(event Event, rule rules.Rule) {
	s.Logger.Info(buildMessage(event, rule),
		slog.String("rule", string(rule.ID)),
		slog.String("name", rule.Name),
	)
}
