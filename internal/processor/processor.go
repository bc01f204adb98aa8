package processor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"clubsync/internal/inngest"
	"clubsync/internal/livestore"
	"clubsync/internal/match"
	"clubsync/internal/metrics"
	"clubsync/internal/notifier"
	"clubsync/internal/pubsub"
)

// New creates a new Processor.
func New(store Store, notifier Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient, inngest inngest.InngestClient) *Processor {
	return &Processor{
		store:    store,
		pubsub:   pubsub,
		notifier: notifier,
		metrics:  metrics,
		inngest:  inngest,
	}
}

// RecordMatchStarted persists the initial live match row and announces the
// kickoff. Called once when a session transitions out of NOT_STARTED.
func (p *Processor) RecordMatchStarted(session *match.Session, dryRun bool) error {
	log.Info("Recording match start", "matchID", session.MatchID)
	if !dryRun {
		err := p.store.CreateLiveMatch(livestore.LiveMatch{
			ID:        session.MatchID,
			Team1ID:   session.Team1ID,
			Team2ID:   session.Team2ID,
			Team1Name: session.Team1Name,
			Team2Name: session.Team2Name,
			Status:    "live",
		})
		if err != nil {
			log.Error("Failed to create live match", "error", err, "matchID", session.MatchID)
			return err
		}
	}
	return p.notifier.SendMatchStartedNotification(p.summarize(session), dryRun)
}

// ArchiveMatch makes a finished session durable. Per-player stat writes and
// the score write run concurrently; the event log follows; the match row is
// marked ended exactly once, after every other write has settled. A failed
// write leaves the row un-ended so the archive can be retried.
func (p *Processor) ArchiveMatch(session *match.Session, dryRun bool) error {
	startTime := time.Now()
	matchID := session.MatchID
	log.Info("Archiving match", "matchID", matchID)

	if session.Status() != match.StatusEnded {
		return fmt.Errorf("match %s is not ended, refusing to archive", matchID)
	}
	if dryRun {
		log.Info("[Dry Run] Would archive match", "matchID", matchID)
		return nil
	}

	stats := session.Stats()
	team1Goals, team2Goals := session.Score()

	var wg sync.WaitGroup
	errCh := make(chan error, len(stats)+1)

	for playerID, stat := range stats {
		wg.Add(1)
		go func(playerID string, stat match.PlayerStat) {
			defer wg.Done()
			err := p.store.UpdateLivePlayerStats(matchID, playerID, livestore.PartialStats{
				IsPlaying:       stat.IsPlaying,
				TimePlayed:      stat.TimePlayed,
				Goals:           stat.Goals,
				Assists:         stat.Assists,
				PassesCompleted: stat.PassesCompleted,
				GoalsSaved:      stat.GoalsSaved,
				GoalsAllowed:    stat.GoalsAllowed,
			})
			if err != nil {
				errCh <- fmt.Errorf("player stats for %s: %w", playerID, err)
			}
		}(playerID, stat)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := p.store.UpdateLiveMatchScore(matchID, team1Goals, team2Goals); err != nil {
			errCh <- fmt.Errorf("match score: %w", err)
		}
	}()

	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}

	events := session.Events()
	for _, ev := range events {
		err := p.store.CreateMatchEvent(livestore.MatchEventRecord{
			ID:          ev.ID,
			MatchID:     matchID,
			PlayerID:    ev.PlayerID,
			EventType:   string(ev.Type),
			Minute:      ev.Minute,
			TeamID:      ev.TeamID,
			Description: ev.Description,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", ev.ID, err))
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		log.Error("Failed to archive match, leaving it un-ended for retry", "error", err, "matchID", matchID)
		return err
	}

	if err := p.store.EndLiveMatch(matchID); err != nil {
		log.Error("Failed to mark live match as ended", "error", err, "matchID", matchID)
		return err
	}

	if err := p.pubsub.SendMessage(pubsub.EventMatchArchived, pubsub.MatchArchivedPayload{
		MatchID:    matchID,
		Team1ID:    session.Team1ID,
		Team2ID:    session.Team2ID,
		Team1Goals: team1Goals,
		Team2Goals: team2Goals,
		Events:     len(events),
	}); err != nil {
		log.Error("Failed to publish match archived event", "error", err, "matchID", matchID)
	}

	if p.inngest != nil {
		p.inngest.SendEvent("live/match.ended", map[string]any{
			"matchId":    matchID,
			"team1Goals": team1Goals,
			"team2Goals": team2Goals,
		})
	}

	if err := p.notifier.SendFinalScoreNotification(p.summarize(session), dryRun); err != nil {
		log.Error("Failed to send final score notification", "error", err, "matchID", matchID)
	}

	duration := time.Since(startTime)
	p.metrics.ObserveArchiveDuration(duration.Seconds())
	log.Info("Finished archiving match", "matchID", matchID, "durationMs", duration.Milliseconds())
	return nil
}

// RecordStreamStarted announces a broadcast session going live. The relay
// reports lifecycle by match id; the notification summary is looked up from
// the live match row.
func (p *Processor) RecordStreamStarted(matchID, sessionID string, dryRun bool) {
	if !dryRun {
		err := p.pubsub.SendMessage(pubsub.EventStreamStarted, pubsub.StreamLifecyclePayload{
			SessionID: sessionID,
			MatchID:   matchID,
		})
		if err != nil {
			log.Error("Failed to publish stream started event", "error", err, "sessionID", sessionID)
		}
	}
	if err := p.notifier.SendStreamLiveNotification(p.summarizeMatch(matchID), sessionID, dryRun); err != nil {
		log.Error("Failed to send stream live notification", "error", err, "sessionID", sessionID)
	}
}

// RecordStreamStopped announces the end of a broadcast session.
func (p *Processor) RecordStreamStopped(matchID, sessionID string, dryRun bool) {
	if dryRun {
		return
	}
	err := p.pubsub.SendMessage(pubsub.EventStreamStopped, pubsub.StreamLifecyclePayload{
		SessionID: sessionID,
		MatchID:   matchID,
	})
	if err != nil {
		log.Error("Failed to publish stream stopped event", "error", err, "sessionID", sessionID)
	}
}

func (p *Processor) summarize(session *match.Session) *notifier.MatchSummary {
	team1Goals, team2Goals := session.Score()
	return &notifier.MatchSummary{
		MatchID:    session.MatchID,
		Team1Name:  session.Team1Name,
		Team2Name:  session.Team2Name,
		Team1Goals: team1Goals,
		Team2Goals: team2Goals,
		Minute:     session.Timer() / 60,
	}
}

// summarizeMatch builds a summary from the persisted live match row. Falls
// back to a bare match id when the row is missing.
func (p *Processor) summarizeMatch(matchID string) *notifier.MatchSummary {
	m, err := p.store.GetLiveMatch(matchID)
	if err != nil || m == nil {
		if err != nil {
			log.Error("Failed to load live match for summary", "error", err, "matchID", matchID)
		}
		return &notifier.MatchSummary{MatchID: matchID}
	}
	return &notifier.MatchSummary{
		MatchID:    m.ID,
		Team1Name:  m.Team1Name,
		Team2Name:  m.Team2Name,
		Team1Goals: m.Team1Goals,
		Team2Goals: m.Team2Goals,
	}
}
