package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Relay/internal/adapters/http"
	"github.com/dkeye/Relay/internal/adapters/rtc"
	"github.com/dkeye/Relay/internal/app"
	"github.com/dkeye/Relay/internal/app/sfu"
	"github.com/dkeye/Relay/internal/config"
)

func parseLevel(raw string, fallback zerolog.Level) zerolog.Level {
	lvl, err := zerolog.ParseLevel(raw)
	if err != nil || raw == "" {
		return fallback
	}
	return lvl
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "release" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.LogLevel, zerolog.InfoLevel))

	policy := app.CodecPolicy{
		ForcedCodec: cfg.Policy.ForcedCodec,
		MinBitrate:  cfg.Policy.MinBitrate,
		MaxBitrate:  cfg.Policy.MaxBitrate,
	}
	if err := policy.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid codec policy")
	}
	bounds := policy.BitrateBoundsFor(policy.Kind())
	if bounds.Constant() {
		log.Warn().
			Uint64("bitrate_bps", bounds.Max).
			Msg("constant bitrate: min == max, estimator feedback is ignored")
	}

	engine, err := rtc.NewEngine(rtc.Config{
		ICEServers:      cfg.ICEServers,
		IncludeLoopback: cfg.IncludeLoopback,
		VideoCodecs:     cfg.VideoCodecs,
		Bounds:          bounds,
		LogLevel:        parseLevel(cfg.EngineLogLevel, zerolog.WarnLevel),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init media engine")
	}
	if policy.PreferenceFor(policy.Kind(), engine.Capabilities(policy.Kind())).Empty() {
		log.Fatal().Str("codec", policy.ForcedCodec).Msg("forced codec is not in the capability table")
	}

	reg := app.NewRegistry()
	negotiator := app.NewNegotiator(context.Background(), engine, reg, app.NegotiatorConfig{
		GatherTimeout: cfg.GatherTimeout,
		Session: app.SessionConfig{
			IdleTimeout:  cfg.IdleTimeout,
			CloseGrace:   cfg.CloseGrace,
			REMBInterval: cfg.REMBInterval,
			Relay: sfu.RelayConfig{
				Buffer:      cfg.RelayBuffer,
				SendTimeout: cfg.SendTimeout,
			},
		},
	})

	r := router.SetupRouter(ctx, cfg, negotiator, policy)
	addr := cfg.Addr()

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("codec", policy.ForcedCodec).Msg("Relay server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := reg.CloseAll(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("sessions not drained")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Time("at", time.Now()).Msg("Server exited gracefully")
}
