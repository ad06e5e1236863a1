package config

import (
	"log/slog"
	"testing"
	"time"
)

func lookupMap(m map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func TestDefaultsDev(t *testing.T) {
	cfg, err := load(func(string) (string, bool) { return "", false }, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeDev {
		t.Fatalf("mode=%q, want %q", cfg.Mode, ModeDev)
	}
	if cfg.LogFormat != LogFormatText {
		t.Fatalf("logFormat=%q, want %q", cfg.LogFormat, LogFormatText)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Fatalf("logLevel=%v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("ListenAddr=%q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.WSIdleTimeout != DefaultWSIdleTimeout {
		t.Fatalf("WSIdleTimeout=%v, want %v", cfg.WSIdleTimeout, DefaultWSIdleTimeout)
	}
	if cfg.WSPingInterval != DefaultWSPingInterval {
		t.Fatalf("WSPingInterval=%v, want %v", cfg.WSPingInterval, DefaultWSPingInterval)
	}
	if cfg.SendQueueSize != DefaultSendQueueSize {
		t.Fatalf("SendQueueSize=%d, want %d", cfg.SendQueueSize, DefaultSendQueueSize)
	}
	if cfg.MaxSignalingMessageBytes != DefaultMaxSignalingMessageBytes {
		t.Fatalf("MaxSignalingMessageBytes=%d, want %d", cfg.MaxSignalingMessageBytes, DefaultMaxSignalingMessageBytes)
	}
	if cfg.MaxSignalingMessagesPerSecond != DefaultMaxSignalingMessagesPerSecond {
		t.Fatalf("MaxSignalingMessagesPerSecond=%d, want %d", cfg.MaxSignalingMessagesPerSecond, DefaultMaxSignalingMessagesPerSecond)
	}
	if cfg.UploadListenAddr != DefaultUploadListenAddr {
		t.Fatalf("UploadListenAddr=%q, want %q", cfg.UploadListenAddr, DefaultUploadListenAddr)
	}
	if cfg.UploadDir != DefaultUploadDir {
		t.Fatalf("UploadDir=%q, want %q", cfg.UploadDir, DefaultUploadDir)
	}
	if cfg.UploadMaxRetries != DefaultUploadMaxRetries {
		t.Fatalf("UploadMaxRetries=%d, want %d", cfg.UploadMaxRetries, DefaultUploadMaxRetries)
	}
	if cfg.UploadAllowedOrigin != DefaultUploadAllowedOrigin {
		t.Fatalf("UploadAllowedOrigin=%q, want %q", cfg.UploadAllowedOrigin, DefaultUploadAllowedOrigin)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Fatalf("AllowedOrigins=%v, want [*]", cfg.AllowedOrigins)
	}
	if len(cfg.STUNURLs) != 1 || cfg.STUNURLs[0] != DefaultSTUNURLs {
		t.Fatalf("STUNURLs=%v, want [%s]", cfg.STUNURLs, DefaultSTUNURLs)
	}
	if len(cfg.TURNURLs) != 0 {
		t.Fatalf("TURNURLs=%v, want empty", cfg.TURNURLs)
	}
	if cfg.TURNCredentialTTL != DefaultTURNCredentialTTL {
		t.Fatalf("TURNCredentialTTL=%v, want %v", cfg.TURNCredentialTTL, DefaultTURNCredentialTTL)
	}
}

func TestAllowedOriginsList(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envVarAllowedOrigins: "http://localhost:3000, https://app.example ,",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := []string{"http://localhost:3000", "https://app.example"}
	if len(cfg.AllowedOrigins) != len(want) {
		t.Fatalf("AllowedOrigins=%v, want %v", cfg.AllowedOrigins, want)
	}
	for i := range want {
		if cfg.AllowedOrigins[i] != want[i] {
			t.Fatalf("AllowedOrigins=%v, want %v", cfg.AllowedOrigins, want)
		}
	}
}

func TestTURNURLsRequireSecret(t *testing.T) {
	_, err := load(lookupMap(map[string]string{
		envVarTURNURLs: "turn:turn.example:3478",
	}), nil)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}

	cfg, err := load(lookupMap(map[string]string{
		envVarTURNURLs:       "turn:turn.example:3478",
		envVarTURNRESTSecret: "s3cret",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.TURNURLs) != 1 || cfg.TURNRESTSecret != "s3cret" {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestDefaultsProdWhenModeFlagSet(t *testing.T) {
	cfg, err := load(func(string) (string, bool) { return "", false }, []string{"--mode", "prod"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Mode != ModeProd {
		t.Fatalf("mode=%q, want %q", cfg.Mode, ModeProd)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Fatalf("logFormat=%q, want %q", cfg.LogFormat, LogFormatJSON)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Fatalf("logLevel=%v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
}

func TestLogFormatExplicitOverride(t *testing.T) {
	cfg, err := load(func(string) (string, bool) { return "", false }, []string{"--mode", "prod", "--log-format", "text"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogFormat != LogFormatText {
		t.Fatalf("logFormat=%q, want %q", cfg.LogFormat, LogFormatText)
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envVarListenAddr:                    "0.0.0.0:9000",
		envVarWSIdleTimeout:                 "90s",
		envVarWSPingInterval:                "30s",
		envVarMaxSignalingMessageBytes:      "1024",
		envVarMaxSignalingMessagesPerSecond: "10",
		envVarUploadDir:                     "/tmp/ingest",
		envVarUploadMaxRetries:              "5",
	}), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9000" {
		t.Fatalf("ListenAddr=%q, want 0.0.0.0:9000", cfg.ListenAddr)
	}
	if cfg.WSIdleTimeout != 90*time.Second {
		t.Fatalf("WSIdleTimeout=%v, want 90s", cfg.WSIdleTimeout)
	}
	if cfg.WSPingInterval != 30*time.Second {
		t.Fatalf("WSPingInterval=%v, want 30s", cfg.WSPingInterval)
	}
	if cfg.MaxSignalingMessageBytes != 1024 {
		t.Fatalf("MaxSignalingMessageBytes=%d, want 1024", cfg.MaxSignalingMessageBytes)
	}
	if cfg.MaxSignalingMessagesPerSecond != 10 {
		t.Fatalf("MaxSignalingMessagesPerSecond=%d, want 10", cfg.MaxSignalingMessagesPerSecond)
	}
	if cfg.UploadDir != "/tmp/ingest" {
		t.Fatalf("UploadDir=%q, want /tmp/ingest", cfg.UploadDir)
	}
	if cfg.UploadMaxRetries != 5 {
		t.Fatalf("UploadMaxRetries=%d, want 5", cfg.UploadMaxRetries)
	}
}

func TestFlagOverridesEnv(t *testing.T) {
	cfg, err := load(lookupMap(map[string]string{
		envVarListenAddr: "0.0.0.0:9000",
	}), []string{"--listen-addr", "127.0.0.1:7000"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7000" {
		t.Fatalf("ListenAddr=%q, want 127.0.0.1:7000", cfg.ListenAddr)
	}
}

func TestPingIntervalMustBeBelowIdleTimeout(t *testing.T) {
	_, err := load(lookupMap(map[string]string{
		envVarWSIdleTimeout:  "10s",
		envVarWSPingInterval: "10s",
	}), nil)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestInvalidDuration(t *testing.T) {
	_, err := load(lookupMap(map[string]string{
		envVarWSIdleTimeout: "soon",
	}), nil)
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := load(func(string) (string, bool) { return "", false }, []string{"--log-level", "verbose"})
	if err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	if _, err := NewLogger(Config{LogFormat: "yaml"}); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
