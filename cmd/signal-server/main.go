package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/Akashh18/Webrtc/internal/config"
	"github.com/Akashh18/Webrtc/internal/httpserver"
	"github.com/Akashh18/Webrtc/internal/metrics"
	"github.com/Akashh18/Webrtc/internal/signaling"
	"github.com/Akashh18/Webrtc/internal/turnrest"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	logger.Info("starting signal-server",
		"listen_addr", cfg.ListenAddr,
		"mode", cfg.Mode,
		"ws_idle_timeout", cfg.WSIdleTimeout,
		"ws_ping_interval", cfg.WSPingInterval,
		"send_queue_size", cfg.SendQueueSize,
		"max_signaling_message_bytes", cfg.MaxSignalingMessageBytes,
		"max_signaling_messages_per_second", cfg.MaxSignalingMessagesPerSecond,
	)

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		os.Exit(1)
	}

	commit, built := resolveBuildInfo(buildCommit, buildTime)
	srv := httpserver.New(cfg.ListenAddr, logger, httpserver.BuildInfo{Commit: commit, BuildTime: built})

	m := metrics.New()
	coord := signaling.NewCoordinator(logger, m)
	ws := signaling.NewWSServer(cfg, logger, coord, m)
	srv.Mux().Handle("GET /ws", ws)

	var vendor *turnrest.Vendor
	if len(cfg.TURNURLs) > 0 {
		vendor, err = turnrest.NewVendor(cfg.TURNRESTSecret, cfg.TURNCredentialTTL, "signal")
		if err != nil {
			logger.Error("failed to configure turn credentials", "err", err)
			os.Exit(2)
		}
	}
	srv.Mux().Handle("GET /ice-servers", signaling.NewICEServersHandler(cfg.STUNURLs, cfg.TURNURLs, vendor, logger))

	// Expose internal counters in Prometheus' text format.
	srv.Mux().Handle("GET /metrics", metrics.PrometheusHandler(m))

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server exited after shutdown", "err", err)
		os.Exit(1)
	}
}

func resolveBuildInfo(commit, buildTime string) (string, string) {
	// Prefer ldflags-injected values (production builds) but fall back to the Go
	// build info when available (useful for `go run` / dev builds).
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if buildTime == "" {
					buildTime = s.Value
				}
			}
		}
	}

	return commit, buildTime
}
