package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/slack-go/slack"

	"safeclaw/internal/session"
)

// DefaultChannel is used when no channel is configured.
const DefaultChannel = "#general"

// SendTimeout bounds a single Slack post.
var SendTimeout = 10 * time.Second

// Poster is the part of the Slack API the manager needs.
type Poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Manager forwards session changes to a Slack channel. It is a change sink
// for the watcher and never blocks it.
type Manager struct {
	client    Poster
	channelID string
	prefix    string
	logger    *slog.Logger

	wg sync.WaitGroup
}

// NewManager returns nil when notifications are disabled or no bot token is
// available. A nil *Manager is a valid no-op sink.
func NewManager(logger *slog.Logger, enabled bool, token, channel, prefix string) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if !enabled {
		return nil
	}
	if token == "" {
		logger.Warn("SLACK_BOT_USER_TOKEN not set, slack notifications disabled")
		return nil
	}
	return NewManagerWithPoster(logger, slack.New(token), channel, prefix)
}

// NewManagerWithPoster wires an existing Slack client.
func NewManagerWithPoster(logger *slog.Logger, client Poster, channel, prefix string) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Manager{client: client, channelID: channel, prefix: prefix, logger: logger}
}

// Publish posts the change in the background.
func (m *Manager) Publish(change session.Change) {
	if m == nil {
		return
	}
	msg := Message(m.prefix, change)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), SendTimeout)
		defer cancel()

		if _, _, err := m.client.PostMessageContext(ctx, m.channelID, slack.MsgOptionText(msg, false)); err != nil {
			m.logger.Warn("Failed to send Slack notification", "name", change.Name, "error", err)
		}
	}()
}

// Wait blocks until in-flight posts finish.
func (m *Manager) Wait() {
	if m == nil {
		return
	}
	m.wg.Wait()
}

// Message renders the notification text for a change.
func Message(prefix string, change session.Change) string {
	return fmt.Sprintf("session %s %s", session.DisplayName(prefix, change.Name), change.Action)
}
