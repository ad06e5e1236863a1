package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envVarListenAddr      = "SIGNAL_LISTEN_ADDR"
	envVarMode            = "SIGNAL_MODE"
	envVarLogFormat       = "SIGNAL_LOG_FORMAT"
	envVarLogLevel        = "SIGNAL_LOG_LEVEL"
	envVarShutdownTimeout = "SIGNAL_SHUTDOWN_TIMEOUT"

	// WebSocket signaling hardening.
	envVarWSIdleTimeout                 = "SIGNAL_WS_IDLE_TIMEOUT"
	envVarWSPingInterval                = "SIGNAL_WS_PING_INTERVAL"
	envVarSendQueueSize                 = "SIGNAL_SEND_QUEUE_SIZE"
	envVarMaxSignalingMessageBytes      = "MAX_SIGNALING_MESSAGE_BYTES"
	envVarMaxSignalingMessagesPerSecond = "MAX_SIGNALING_MESSAGES_PER_SECOND"
	envVarAllowedOrigins                = "SIGNAL_ALLOWED_ORIGINS"

	// ICE server config vended to clients.
	envVarSTUNURLs          = "SIGNAL_STUN_URLS"
	envVarTURNURLs          = "SIGNAL_TURN_URLS"
	envVarTURNRESTSecret    = "SIGNAL_TURN_REST_SECRET"
	envVarTURNCredentialTTL = "SIGNAL_TURN_CREDENTIAL_TTL"

	// Chunked upload ingestion.
	envVarUploadListenAddr    = "UPLOAD_LISTEN_ADDR"
	envVarUploadDir           = "UPLOAD_DIR"
	envVarUploadMaxChunkBytes = "UPLOAD_MAX_CHUNK_BYTES"
	envVarUploadMaxRetries    = "UPLOAD_MAX_RETRIES"
	envVarUploadAllowedOrigin = "UPLOAD_ALLOWED_ORIGIN"

	DefaultListenAddr            = "127.0.0.1:8000"
	DefaultShutdownTimeout       = 15 * time.Second
	DefaultMode             Mode = ModeDev

	DefaultWSIdleTimeout                 = 60 * time.Second
	DefaultWSPingInterval                = 20 * time.Second
	DefaultSendQueueSize                 = 256
	DefaultMaxSignalingMessageBytes      = int64(64 * 1024)
	DefaultMaxSignalingMessagesPerSecond = 50
	DefaultAllowedOrigins                = "*"

	DefaultSTUNURLs          = "stun:stun.l.google.com:19302"
	DefaultTURNCredentialTTL = time.Hour

	DefaultUploadListenAddr    = "127.0.0.1:5000"
	DefaultUploadDir           = "uploads"
	DefaultUploadMaxChunkBytes = int64(8 << 20)
	DefaultUploadMaxRetries    = 3
	DefaultUploadAllowedOrigin = "http://localhost:3000"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

type Config struct {
	ListenAddr      string
	Mode            Mode
	LogFormat       LogFormat
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// WebSocket signaling hardening.
	WSIdleTimeout                 time.Duration
	WSPingInterval                time.Duration
	SendQueueSize                 int
	MaxSignalingMessageBytes      int64
	MaxSignalingMessagesPerSecond int
	AllowedOrigins                []string

	// ICE server config vended to clients.
	STUNURLs          []string
	TURNURLs          []string
	TURNRESTSecret    string
	TURNCredentialTTL time.Duration

	// Chunked upload ingestion.
	UploadListenAddr    string
	UploadDir           string
	UploadMaxChunkBytes int64
	UploadMaxRetries    int
	UploadAllowedOrigin string
}

// Load reads configuration from the environment with a small flag overlay.
// Flags take precedence over env vars; env vars take precedence over defaults.
func Load(args []string) (Config, error) {
	return load(os.LookupEnv, args)
}

func load(lookup func(string) (string, bool), args []string) (Config, error) {
	envMode, _ := lookup(envVarMode)
	modeDefault := string(DefaultMode)
	if envMode != "" {
		modeDefault = envMode
	}

	logFormatDefault := envOrDefault(lookup, envVarLogFormat, defaultLogFormatForMode(modeDefault))
	logLevelDefault := envOrDefault(lookup, envVarLogLevel, defaultLogLevelForMode(modeDefault))

	shutdownTimeout, err := envDurationOrDefault(lookup, envVarShutdownTimeout, DefaultShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	wsIdleTimeout, err := envDurationOrDefault(lookup, envVarWSIdleTimeout, DefaultWSIdleTimeout)
	if err != nil {
		return Config{}, err
	}
	wsPingInterval, err := envDurationOrDefault(lookup, envVarWSPingInterval, DefaultWSPingInterval)
	if err != nil {
		return Config{}, err
	}
	sendQueueSize, err := envIntOrDefault(lookup, envVarSendQueueSize, DefaultSendQueueSize)
	if err != nil {
		return Config{}, err
	}
	maxMessageBytes, err := envIntOrDefault(lookup, envVarMaxSignalingMessageBytes, int(DefaultMaxSignalingMessageBytes))
	if err != nil {
		return Config{}, err
	}
	maxMessagesPerSecond, err := envIntOrDefault(lookup, envVarMaxSignalingMessagesPerSecond, DefaultMaxSignalingMessagesPerSecond)
	if err != nil {
		return Config{}, err
	}
	uploadMaxChunkBytes, err := envIntOrDefault(lookup, envVarUploadMaxChunkBytes, int(DefaultUploadMaxChunkBytes))
	if err != nil {
		return Config{}, err
	}
	uploadMaxRetries, err := envIntOrDefault(lookup, envVarUploadMaxRetries, DefaultUploadMaxRetries)
	if err != nil {
		return Config{}, err
	}
	turnCredentialTTL, err := envDurationOrDefault(lookup, envVarTURNCredentialTTL, DefaultTURNCredentialTTL)
	if err != nil {
		return Config{}, err
	}

	fs := flag.NewFlagSet("signal-server", flag.ContinueOnError)
	listenAddr := fs.String("listen-addr", envOrDefault(lookup, envVarListenAddr, DefaultListenAddr), "TCP address for the signaling HTTP/WebSocket server")
	modeStr := fs.String("mode", modeDefault, "run mode: dev or prod")
	logFormatStr := fs.String("log-format", logFormatDefault, "log format: text or json")
	logLevelStr := fs.String("log-level", logLevelDefault, "log level: debug, info, warn, error")
	uploadListenAddr := fs.String("upload-listen-addr", envOrDefault(lookup, envVarUploadListenAddr, DefaultUploadListenAddr), "TCP address for the upload ingestion server")
	uploadDir := fs.String("upload-dir", envOrDefault(lookup, envVarUploadDir, DefaultUploadDir), "directory for uploaded files and in-flight chunks")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	mode, err := parseMode(*modeStr)
	if err != nil {
		return Config{}, err
	}
	logFormat, err := parseLogFormat(*logFormatStr)
	if err != nil {
		return Config{}, err
	}
	logLevel, err := parseLogLevel(*logLevelStr)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:      *listenAddr,
		Mode:            mode,
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		ShutdownTimeout: shutdownTimeout,

		WSIdleTimeout:                 wsIdleTimeout,
		WSPingInterval:                wsPingInterval,
		SendQueueSize:                 sendQueueSize,
		MaxSignalingMessageBytes:      int64(maxMessageBytes),
		MaxSignalingMessagesPerSecond: maxMessagesPerSecond,
		AllowedOrigins:                splitList(envOrDefault(lookup, envVarAllowedOrigins, DefaultAllowedOrigins)),

		STUNURLs:          splitList(envOrDefault(lookup, envVarSTUNURLs, DefaultSTUNURLs)),
		TURNURLs:          splitList(envOrDefault(lookup, envVarTURNURLs, "")),
		TURNRESTSecret:    envOrDefault(lookup, envVarTURNRESTSecret, ""),
		TURNCredentialTTL: turnCredentialTTL,

		UploadListenAddr:    *uploadListenAddr,
		UploadDir:           *uploadDir,
		UploadMaxChunkBytes: int64(uploadMaxChunkBytes),
		UploadMaxRetries:    uploadMaxRetries,
		UploadAllowedOrigin: envOrDefault(lookup, envVarUploadAllowedOrigin, DefaultUploadAllowedOrigin),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address must not be empty")
	}
	if c.WSPingInterval >= c.WSIdleTimeout {
		return fmt.Errorf("%s (%s) must be shorter than %s (%s)", envVarWSPingInterval, c.WSPingInterval, envVarWSIdleTimeout, c.WSIdleTimeout)
	}
	if c.SendQueueSize <= 0 {
		return fmt.Errorf("%s must be positive", envVarSendQueueSize)
	}
	if c.MaxSignalingMessageBytes <= 0 {
		return fmt.Errorf("%s must be positive", envVarMaxSignalingMessageBytes)
	}
	if c.MaxSignalingMessagesPerSecond <= 0 {
		return fmt.Errorf("%s must be positive", envVarMaxSignalingMessagesPerSecond)
	}
	if c.UploadMaxChunkBytes <= 0 {
		return fmt.Errorf("%s must be positive", envVarUploadMaxChunkBytes)
	}
	if c.UploadMaxRetries <= 0 {
		return fmt.Errorf("%s must be positive", envVarUploadMaxRetries)
	}
	if len(c.TURNURLs) > 0 && c.TURNRESTSecret == "" {
		return fmt.Errorf("%s is required when %s is set", envVarTURNRESTSecret, envVarTURNURLs)
	}
	if c.TURNCredentialTTL <= 0 {
		return fmt.Errorf("%s must be positive", envVarTURNCredentialTTL)
	}
	return nil
}

// NewLogger builds the process-wide slog logger from the configured format
// and level.
func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return slog.New(handler), nil
}

// splitList parses a comma-separated env value, dropping empty elements.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOrDefault(lookup func(string) (string, bool), key, fallback string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(lookup func(string) (string, bool), key string, fallback int) (int, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDurationOrDefault(lookup func(string) (string, bool), key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

func defaultLogFormatForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return string(LogFormatJSON)
	default:
		return string(LogFormatText)
	}
}

func defaultLogLevelForMode(mode string) string {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case string(ModeProd), "production":
		return "info"
	default:
		return "debug"
	}
}

func parseMode(raw string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(ModeDev), "development":
		return ModeDev, nil
	case string(ModeProd), "production":
		return ModeProd, nil
	default:
		return "", fmt.Errorf("invalid mode %q (expected dev or prod)", raw)
	}
}

func parseLogFormat(raw string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(LogFormatText):
		return LogFormatText, nil
	case string(LogFormatJSON):
		return LogFormatJSON, nil
	default:
		return "", fmt.Errorf("invalid log format %q (expected text or json)", raw)
	}
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (expected debug, info, warn, error)", raw)
	}
}
