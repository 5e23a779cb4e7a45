package notifier

import (
	"github.com/slack-go/slack"

	"github.com/clambin/homehub/internal/rules"
)

// SlackSender sends a message to a Slack channel.
type SlackSender interface {
	Send(channel string, attachments []slack.Attachment) error
}

type SlackNotifier struct {
	Bot     SlackSender
	Channel string
}

var _ Notifier = &SlackNotifier{}

func (s SlackNotifier) Notify(event Event, rule rules.Rule) {
	_ = s.Bot.Send(s.Channel, []slack.Attachment{{
		Color: "good",
		Title: rule.Name + ": " + buildMessage(event, rule),
		Text:  string(rule.ID),
	}})
}
