// The asp binary runs the association set provider: a syncer mirroring the
// contract's deposit set and an HTTP surface serving inclusion proofs from it
// and from the operator-curated associated set.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/SunsetLabs-Game/zylith-asp/api"
	"github.com/SunsetLabs-Game/zylith-asp/merkle"
	"github.com/SunsetLabs-Game/zylith-asp/syncer"
)

func main() {
	_ = godotenv.Load()

	var cfg syncer.Config
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("LOG_PRETTY") != "" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	depositTree := merkle.New(merkle.TreeDepth)
	associatedTree := merkle.New(merkle.TreeDepth)

	store := syncer.NewStateStore(cfg.StateFile)
	provider := syncer.NewRPCClient(cfg.RPCURL)

	sync, err := syncer.New(cfg, provider, depositTree, store, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("create syncer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sync.Run(ctx)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: api.New(depositTree, associatedTree, logger).Routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("server shutdown")
		}
	}()

	logger.Info().Int("port", cfg.Port).Msg("ASP server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
