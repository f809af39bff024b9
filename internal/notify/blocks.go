package notify

import (
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/hrdesk/internal/domain"
)

// IssueSummary is the plain-text fallback of an issue notification.
func IssueSummary(issue *domain.Issue) string {
	return fmt.Sprintf("New HR issue from %s: %s", issue.EmployeeName, issue.Title)
}

// BuildIssueBlocks builds Slack Block Kit blocks for a raised issue.
func BuildIssueBlocks(issue *domain.Issue) []slacklib.Block {
	header := slacklib.NewHeaderBlock(
		slacklib.NewTextBlockObject(slacklib.PlainTextType, "New HR issue: "+issue.Title, false, false),
	)

	fields := []*slacklib.TextBlockObject{
		slacklib.NewTextBlockObject(slacklib.MarkdownType, fmt.Sprintf("*Employee:*\n%s (`%s`)", issue.EmployeeName, issue.EmployeeID), false, false),
		slacklib.NewTextBlockObject(slacklib.MarkdownType, fmt.Sprintf("*Priority:*\n%s", issue.Priority), false, false),
		slacklib.NewTextBlockObject(slacklib.MarkdownType, fmt.Sprintf("*Category:*\n%s", issue.Category), false, false),
		slacklib.NewTextBlockObject(slacklib.MarkdownType, fmt.Sprintf("*Issue:*\n`%s`", issue.ID), false, false),
	}
	details := slacklib.NewSectionBlock(nil, fields, nil)

	description := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, issue.Description, false, false),
		nil,
		nil,
	)

	return []slacklib.Block{header, details, description}
}
