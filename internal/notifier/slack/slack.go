package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"

	"clubsync/internal/metrics"
	"clubsync/internal/notifier"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// Implement the Notifier interface
func (s *Notifier) SendMatchStartedNotification(summary *notifier.MatchSummary, dryRun bool) error {
	msg := s.formatMatchStarted(summary)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendFinalScoreNotification(summary *notifier.MatchSummary, dryRun bool) error {
	msg := s.formatFinalScore(summary)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendStreamLiveNotification(summary *notifier.MatchSummary, sessionID string, dryRun bool) error {
	msg := s.formatStreamLive(summary, sessionID)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// formatMatchStarted creates the Slack message for a match kicking off using Block Kit.
func (s *Notifier) formatMatchStarted(summary *notifier.MatchSummary) slack.Message {
	blocks := make([]slack.Block, 0)

	// Header - The Header block itself provides bolding. No asterisks needed.
	headerText := slack.NewTextBlockObject("plain_text", "⚽ Match kicked off! ⚽", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("%s vs %s", summary.Team1Name, summary.Team2Name)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatFinalScore creates the Slack message for a finished match.
func (s *Notifier) formatFinalScore(summary *notifier.MatchSummary) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏁 Full time! 🏁", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	scoreText := fmt.Sprintf("%s %d - %d %s",
		summary.Team1Name,
		summary.Team1Goals,
		summary.Team2Goals,
		summary.Team2Name,
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", scoreText, true, false), nil, nil))

	var resultText string
	switch {
	case summary.Team1Goals > summary.Team2Goals:
		resultText = fmt.Sprintf("🏆 %s takes the win!", summary.Team1Name)
	case summary.Team2Goals > summary.Team1Goals:
		resultText = fmt.Sprintf("🏆 %s takes the win!", summary.Team2Name)
	default:
		resultText = "🤝 It ends in a draw."
	}
	blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", resultText, true, false)))

	return slack.NewBlockMessage(blocks...)
}

// formatStreamLive creates the Slack message for a broadcast going live.
func (s *Notifier) formatStreamLive(summary *notifier.MatchSummary, sessionID string) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "📺 Live stream started! 📺", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("%s vs %s is streaming now.", summary.Team1Name, summary.Team2Name)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", fmt.Sprintf("Session: %s", sessionID), true, false)))

	return slack.NewBlockMessage(blocks...)
}
