package http

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"clubsync/internal/livestore"
	"clubsync/internal/match"
	"clubsync/internal/pubsub"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

func (s *Server) ClearStoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("matchID")
		if matchID != "" {
			log.Info("Received request to clear a specific match", "matchID", matchID)
			s.LiveStore.ClearMatch(matchID)
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "Cleared match %s from store!", matchID)
			log.Info("Successfully cleared match from store", "matchID", matchID)
		} else {
			log.Info("Received request to clear entire store")
			s.LiveStore.Clear()
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "Store cleared!")
			log.Info("Store cleared successfully")
		}
	}
}

func (s *Server) ListMembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.ClubStore.GetAllPlayers()
		if err != nil {
			http.Error(w, "Failed to get players", http.StatusInternalServerError)
			log.Error("Failed to get players from store", "error", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(players); err != nil {
			log.Error("Failed to write response", "error", err)
		}
	}
}

func (s *Server) TeamRosterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := r.URL.Query().Get("teamID")
		if teamID == "" {
			http.Error(w, "teamID is required", http.StatusBadRequest)
			return
		}
		roster, err := s.ClubStore.GetTeamRoster(teamID)
		if err != nil {
			http.Error(w, "Failed to get roster", http.StatusInternalServerError)
			log.Error("Failed to get team roster", "error", err, "teamID", teamID)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(roster); err != nil {
			log.Error("Failed to encode roster to JSON", "error", err)
		}
	}
}

func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matches, err := s.LiveStore.GetLiveMatches()
		if err != nil {
			http.Error(w, "Failed to get matches", http.StatusInternalServerError)
			log.Error("Failed to get matches from store", "error", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(matches); err != nil {
			log.Error("Failed to encode matches to JSON", "error", err)
		}
	}
}

func (s *Server) GetMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("matchID")
		if matchID == "" {
			http.Error(w, "matchID is required", http.StatusBadRequest)
			return
		}
		m, err := s.LiveStore.GetLiveMatch(matchID)
		if err != nil {
			http.Error(w, "Failed to get match", http.StatusInternalServerError)
			log.Error("Failed to get match from store", "error", err, "matchID", matchID)
			return
		}
		if m == nil {
			http.Error(w, "Match not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(m); err != nil {
			log.Error("Failed to encode match to JSON", "error", err)
		}
	}
}

func (s *Server) ListMatchEventsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("matchID")
		if matchID == "" {
			http.Error(w, "matchID is required", http.StatusBadRequest)
			return
		}
		events, err := s.LiveStore.GetMatchEvents(matchID)
		if err != nil {
			http.Error(w, "Failed to get match events", http.StatusInternalServerError)
			log.Error("Failed to get match events from store", "error", err, "matchID", matchID)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(events); err != nil {
			log.Error("Failed to encode events to JSON", "error", err)
		}
	}
}

func (s *Server) ListMatchStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		matchID := r.URL.Query().Get("matchID")
		if matchID == "" {
			http.Error(w, "matchID is required", http.StatusBadRequest)
			return
		}
		stats, err := s.LiveStore.GetMatchPlayerStats(matchID)
		if err != nil {
			http.Error(w, "Failed to get match stats", http.StatusInternalServerError)
			log.Error("Failed to get match stats from store", "error", err, "matchID", matchID)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Error("Failed to encode stats to JSON", "error", err)
		}
	}
}

func (s *Server) CreateLiveMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m livestore.LiveMatch
		if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if m.ID == "" {
			http.Error(w, "id is required", http.StatusBadRequest)
			return
		}
		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Would create live match", "matchID", m.ID)
			w.Write([]byte("OK"))
			return
		}
		if err := s.LiveStore.CreateLiveMatch(m); err != nil {
			http.Error(w, "Failed to create live match", http.StatusInternalServerError)
			log.Error("Failed to create live match", "error", err, "matchID", m.ID)
			return
		}
		w.Write([]byte("OK"))
	}
}

func (s *Server) UpdatePlayerStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			MatchID  string                 `json:"match_id"`
			PlayerID string                 `json:"player_id"`
			Stats    livestore.PartialStats `json:"stats"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if payload.MatchID == "" || payload.PlayerID == "" {
			http.Error(w, "match_id and player_id are required", http.StatusBadRequest)
			return
		}
		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Would update player stats", "matchID", payload.MatchID, "playerID", payload.PlayerID)
			w.Write([]byte("OK"))
			return
		}
		if err := s.LiveStore.UpdateLivePlayerStats(payload.MatchID, payload.PlayerID, payload.Stats); err != nil {
			http.Error(w, "Failed to update player stats", http.StatusInternalServerError)
			log.Error("Failed to update player stats", "error", err, "matchID", payload.MatchID, "playerID", payload.PlayerID)
			return
		}
		w.Write([]byte("OK"))
	}
}

func (s *Server) UpdateScoreHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			MatchID    string `json:"match_id"`
			Team1Goals int    `json:"team1_goals"`
			Team2Goals int    `json:"team2_goals"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if payload.MatchID == "" {
			http.Error(w, "match_id is required", http.StatusBadRequest)
			return
		}
		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Would update score", "matchID", payload.MatchID)
			w.Write([]byte("OK"))
			return
		}
		if err := s.LiveStore.UpdateLiveMatchScore(payload.MatchID, payload.Team1Goals, payload.Team2Goals); err != nil {
			http.Error(w, "Failed to update score", http.StatusInternalServerError)
			log.Error("Failed to update score", "error", err, "matchID", payload.MatchID)
			return
		}
		w.Write([]byte("OK"))
	}
}

func (s *Server) CreateMatchEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e livestore.MatchEventRecord
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if e.MatchID == "" || e.EventType == "" {
			http.Error(w, "match_id and event_type are required", http.StatusBadRequest)
			return
		}
		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Would create match event", "matchID", e.MatchID, "type", e.EventType)
			w.Write([]byte("OK"))
			return
		}
		if err := s.LiveStore.CreateMatchEvent(e); err != nil {
			http.Error(w, "Failed to create match event", http.StatusInternalServerError)
			log.Error("Failed to create match event", "error", err, "matchID", e.MatchID)
			return
		}
		w.Write([]byte("OK"))
	}
}

func (s *Server) EndMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload struct {
			MatchID string `json:"match_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if payload.MatchID == "" {
			http.Error(w, "match_id is required", http.StatusBadRequest)
			return
		}
		if isDryRunFromContext(r) {
			log.Info("[Dry Run] Would end match", "matchID", payload.MatchID)
			w.Write([]byte("OK"))
			return
		}
		if err := s.LiveStore.EndLiveMatch(payload.MatchID); err != nil {
			http.Error(w, "Failed to end match", http.StatusInternalServerError)
			log.Error("Failed to end match", "error", err, "matchID", payload.MatchID)
			return
		}
		w.Write([]byte("OK"))
	}
}

// StartMatchHandler records a kickoff from an operator-posted session
// snapshot: the live match row is created and the start notification sent.
func (s *Server) StartMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap match.Snapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if snap.MatchID == "" {
			http.Error(w, "match_id is required", http.StatusBadRequest)
			return
		}
		session := match.Restore(snap)
		if err := s.Processor.RecordMatchStarted(session, isDryRunFromContext(r)); err != nil {
			http.Error(w, "Failed to record match start", http.StatusInternalServerError)
			log.Error("Failed to record match start", "error", err, "matchID", snap.MatchID)
			return
		}
		w.Write([]byte("OK"))
	}
}

// ArchiveMatchHandler archives a finished match from an operator-posted
// session snapshot. Snapshots of matches that have not ended are rejected.
func (s *Server) ArchiveMatchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap match.Snapshot
		if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if snap.MatchID == "" {
			http.Error(w, "match_id is required", http.StatusBadRequest)
			return
		}
		if snap.Status != match.StatusEnded {
			http.Error(w, "match is not ended", http.StatusConflict)
			return
		}
		session := match.Restore(snap)
		if err := s.Processor.ArchiveMatch(session, isDryRunFromContext(r)); err != nil {
			http.Error(w, "Failed to archive match", http.StatusInternalServerError)
			log.Error("Failed to archive match", "error", err, "matchID", snap.MatchID)
			return
		}
		w.Write([]byte("OK"))
	}
}

// SignalingConfigHandler serves the ICE and handshake settings streaming
// clients should use.
func (s *Server) SignalingConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := struct {
			STUNServers             []string `json:"stun_servers"`
			HandshakeTimeoutSeconds int      `json:"handshake_timeout_seconds"`
		}{
			STUNServers:             s.Cfg.Signaling.STUNServers,
			HandshakeTimeoutSeconds: s.Cfg.Signaling.HandshakeTimeoutSeconds,
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Error("Failed to encode signaling config", "error", err)
		}
	}
}

// MatchArchivedPushHandler acknowledges pubsub push deliveries for archived
// matches. The push body wraps a base64-encoded MessagePack payload.
func (s *Server) MatchArchivedPushHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bodyBytes, err := io.ReadAll(r.Body)
		if err != nil {
			log.Error("Failed to read request body", "error", err)
			http.Error(w, "Failed to read request body", http.StatusInternalServerError)
			return
		}
		log.Debug("Received match archived message", "body", string(bodyBytes))
		// Define a small struct to decode the incoming JSON's `data` field
		var pubsubMsg struct {
			Subscription string `json:"subscription"`
			Message      struct {
				Data string `json:"data"` // base64-encoded message payload
			} `json:"message"`
		}

		// Parse the outer JSON to get `data`
		if err := json.Unmarshal(bodyBytes, &pubsubMsg); err != nil {
			log.Error("Failed to unmarshal wrapper JSON", "error", err)
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		// Decode base64 to raw MessagePack bytes
		rawData, err := base64.StdEncoding.DecodeString(pubsubMsg.Message.Data)
		if err != nil {
			log.Error("Failed to decode base64 data", "error", err)
			http.Error(w, "Invalid base64 data", http.StatusBadRequest)
			return
		}
		archived := pubsub.MatchArchivedPayload{}
		if err := s.pubsub.ProcessMessage(rawData, &archived); err != nil {
			http.Error(w, "Invalid message payload", http.StatusBadRequest)
			return
		}
		log.Info("Match archived",
			"matchID", archived.MatchID,
			"team1Goals", archived.Team1Goals,
			"team2Goals", archived.Team2Goals,
			"events", archived.Events,
		)
		w.Write([]byte("OK"))
	}
}
