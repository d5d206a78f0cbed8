// Package notify posts go-live and integrity events to Slack. It is
// ported from the teacher's alert notifier — same noop-when-unconfigured
// shape, adapted to post plain status messages instead of block-kit alert
// cards.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	goslack "github.com/slack-go/slack"
)

// Notifier posts messages to a single configured Slack channel.
type Notifier struct {
	client  *goslack.Client
	channel string
	logger  *slog.Logger
}

// New creates a Notifier. If botToken is empty, the notifier is a noop
// (logging only) so local development never needs a live Slack workspace.
func New(botToken, channel string, logger *slog.Logger) *Notifier {
	var client *goslack.Client
	if botToken != "" {
		client = goslack.New(botToken)
	}
	return &Notifier{client: client, channel: channel, logger: logger}
}

// IsEnabled reports whether the notifier has a usable Slack client.
func (n *Notifier) IsEnabled() bool {
	return n.client != nil && n.channel != ""
}

// PostFailFastReset announces a go-live fail-fast reset for a user.
func (n *Notifier) PostFailFastReset(ctx context.Context, userID, reason string) error {
	return n.post(ctx, fmt.Sprintf(":red_circle: fail-fast reset for user %s: %s", userID, reason))
}

// PostReadyForLive announces a user reaching READY_FOR_LIVE.
func (n *Notifier) PostReadyForLive(ctx context.Context, userID string) error {
	return n.post(ctx, fmt.Sprintf(":large_green_circle: user %s is READY_FOR_LIVE", userID))
}

// PostIntegrityViolation announces a rejected cross-user access attempt.
func (n *Notifier) PostIntegrityViolation(ctx context.Context, detail string) error {
	return n.post(ctx, fmt.Sprintf(":warning: integrity violation: %s", detail))
}

func (n *Notifier) post(ctx context.Context, text string) error {
	if !n.IsEnabled() {
		n.logger.Debug("slack notifier disabled, skipping post", "text", text)
		return nil
	}

	_, _, err := n.client.PostMessageContext(ctx, n.channel, goslack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	return nil
}
