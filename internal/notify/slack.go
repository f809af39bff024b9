// Package notify tells the HR team about issues raised through chat.
package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/hrdesk/internal/domain"
)

// SlackAPI abstracts the subset of the Slack client used by SlackNotifier.
// This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackNotifier posts raised issues to an HR channel.
type SlackNotifier struct {
	api       SlackAPI
	channelID string
}

func NewSlackNotifier(api SlackAPI, channelID string) *SlackNotifier {
	return &SlackNotifier{api: api, channelID: channelID}
}

// NewSlackNotifierFromToken builds a notifier on a bot token client.
func NewSlackNotifierFromToken(botToken, channelID string) *SlackNotifier {
	return NewSlackNotifier(slacklib.New(botToken), channelID)
}

// IssueRaised posts issue to the HR channel.
func (n *SlackNotifier) IssueRaised(ctx context.Context, issue *domain.Issue) error {
	_, _, err := n.api.PostMessageContext(ctx, n.channelID,
		slacklib.MsgOptionText(IssueSummary(issue), false),
		slacklib.MsgOptionBlocks(BuildIssueBlocks(issue)...),
	)
	if err != nil {
		return fmt.Errorf("notify.SlackNotifier.IssueRaised: %w", err)
	}
	return nil
}
