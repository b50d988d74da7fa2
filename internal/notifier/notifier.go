package notifier

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Notifier delivers a text message to the configured recipients.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// NotifyError reports the recipients a message could not be delivered to.
type NotifyError struct {
	Failed map[string]error // chat id -> last error
	Total  int
}

func (e *NotifyError) Error() string {
	ids := make([]string, 0, len(e.Failed))
	for id := range e.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s: %v", id, e.Failed[id]))
	}
	return fmt.Sprintf("delivery failed for %d of %d chats: %s", len(e.Failed), e.Total, strings.Join(parts, "; "))
}

// LogNotifier writes messages to the log instead of a chat. Used when Telegram is not
// configured and by the analyze command.
type LogNotifier struct {
	logger zerolog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "notifier").Logger()}
}

func (n *LogNotifier) Send(_ context.Context, text string) error {
	n.logger.Info().Str("channel", "log").Msg(text)
	return nil
}
