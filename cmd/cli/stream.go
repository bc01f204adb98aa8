package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/spf13/cobra"

	"clubsync/internal/hub"
	"clubsync/internal/match"
	"clubsync/internal/metrics"
	"clubsync/internal/signaling"
)

func init() {
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(tuneInCmd)
}

var streamCmd = &cobra.Command{
	Use:   "stream [matchID]",
	Short: "Broadcast a test pattern stream for a match",
	Long: `Starts a broadcast session for the given match using a generated
sample source instead of a capture device. Prints the assigned session id
so viewers can tune in. The stream shuts itself down when the match
channel announces the end of the match.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStream(cmd.Context(), args[0])
	},
}

var tuneInCmd = &cobra.Command{
	Use:   "tune-in [sessionID]",
	Short: "Join a live stream as a viewer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTuneIn(cmd.Context(), args[0])
	},
}

// connectRelay dials the relay hub and keeps the read loop running until the
// returned context is cancelled.
func connectRelay(ctx context.Context, clientID string) (*hub.Conn, context.Context, context.CancelFunc, error) {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)

	wsURL := "ws" + strings.TrimPrefix(host, "http") + "/ws"
	conn, err := hub.Dial(ctx, wsURL, clientID)
	if err != nil {
		cancel()
		return nil, nil, nil, fmt.Errorf("failed to dial relay: %w", err)
	}
	go func() {
		if err := conn.Run(ctx); err != nil {
			log.Error("relay connection closed", "error", err)
		}
		cancel()
	}()
	return conn, ctx, cancel, nil
}

type signalingSettings struct {
	STUNServers             []string `json:"stun_servers"`
	HandshakeTimeoutSeconds int      `json:"handshake_timeout_seconds"`
}

// fetchSignalingSettings loads the server's ICE and handshake configuration.
// A failed fetch is not fatal: the built-in defaults still work.
func fetchSignalingSettings() (signalingSettings, bool) {
	var s signalingSettings
	if err := fetchJSON("/signaling/config", &s); err != nil {
		log.Warn("Failed to fetch signaling config, using defaults", "error", err)
		return signalingSettings{}, false
	}
	return s, true
}

func runStream(ctx context.Context, matchID string) error {
	clientID := "broadcaster-" + uuid.NewString()
	conn, ctx, cancel, err := connectRelay(ctx, clientID)
	if err != nil {
		return err
	}
	defer cancel()
	defer conn.Close()

	var opts []signaling.BroadcasterOption
	if s, ok := fetchSignalingSettings(); ok {
		opts = append(opts, signaling.WithBroadcasterICEServers(signaling.ICEServers(s.STUNServers)))
		if s.HandshakeTimeoutSeconds > 0 {
			opts = append(opts, signaling.WithBroadcasterTimeout(time.Duration(s.HandshakeTimeoutSeconds)*time.Second))
		}
	}
	broadcaster := signaling.NewBroadcaster(conn, clientID, signaling.NewSampleSource(), metrics.NewService(), opts...)
	session, err := broadcaster.Start(ctx, matchID)
	if err != nil {
		return err
	}
	defer broadcaster.Stop()

	// Follow the match channel so the stream is torn down when the match
	// ends, even without an operator Ctrl-C.
	room := hub.MatchRoom(matchID)
	if err := conn.Join(room); err != nil {
		return err
	}
	endSub := conn.Subscribe(room, func(env hub.Envelope) {
		if env.Type == string(match.AnnounceEnd) {
			fmt.Println("Match ended, stopping stream.")
			broadcaster.StopForMatch(matchID)
			cancel()
		}
	})
	defer conn.Unsubscribe(endSub)

	fmt.Printf("Streaming match %s, session %s. Ctrl-C to stop.\n", matchID, session.ID)
	<-ctx.Done()
	return nil
}

func runTuneIn(ctx context.Context, sessionID string) error {
	clientID := "viewer-" + uuid.NewString()
	conn, ctx, cancel, err := connectRelay(ctx, clientID)
	if err != nil {
		return err
	}
	defer cancel()
	defer conn.Close()

	opts := []signaling.ViewerOption{
		signaling.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
			fmt.Printf("Receiving %s track (%s)\n", track.Kind(), track.Codec().MimeType)
		}),
	}
	if s, ok := fetchSignalingSettings(); ok {
		opts = append(opts, signaling.WithViewerICEServers(signaling.ICEServers(s.STUNServers)))
		if s.HandshakeTimeoutSeconds > 0 {
			opts = append(opts, signaling.WithViewerTimeout(time.Duration(s.HandshakeTimeoutSeconds)*time.Second))
		}
	}
	viewer := signaling.NewViewer(conn, clientID, metrics.NewService(), opts...)
	if err := viewer.Watch(ctx, sessionID); err != nil {
		return err
	}
	defer viewer.Leave()

	fmt.Printf("Tuned in to session %s. Ctrl-C to leave.\n", sessionID)
	<-ctx.Done()
	return nil
}
