package config

// Config holds all configuration for the application.
type Config struct {
	DBName        string
	MigrationsDir string
	Port          string
	Slack         SlackConfig
	Turso         TursoConfig
	Inngest       InngestConfig
	ProjectID     string
	Signaling     SignalingConfig
}
type SlackConfig struct {
	Token         string
	ChannelID     string
	SigningSecret string
}
type TursoConfig struct {
	PrimaryURL string
	AuthToken  string
}
type InngestConfig struct {
	SigningKey string
	EventKey   string
	AppID      string
}

// SignalingConfig tunes the WebRTC signaling layer.
type SignalingConfig struct {
	// STUNServers are the ICE servers handed to every peer connection.
	STUNServers []string
	// HandshakeTimeoutSeconds bounds how long a viewer waits for an
	// active broadcaster before giving up.
	HandshakeTimeoutSeconds int
}
