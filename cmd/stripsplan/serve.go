package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rogersf/strips-engine/internal/guard"
	"github.com/rogersf/strips-engine/internal/ipc"
	"github.com/rogersf/strips-engine/internal/planner"
	"github.com/rogersf/strips-engine/internal/store"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.ListenAddr = listen
			}
			return a.runServe(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default: config listen_addr)")
	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	db, err := store.NewDB(a.cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions := planner.NewSessionManager(a.cfg.MaxSessions, a.cfg.MaxExpansions, a.logger)
	g := guard.NewGuard(sessions, guard.GuardConfig{
		MaxSessions:        a.cfg.MaxSessions,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
	})
	handler := &ipc.Handler{
		Planner:  a.newService(db),
		Sessions: sessions,
		Guard:    g,
		Logger:   a.logger,
	}
	srv := ipc.NewServer(handler, a.cfg.ListenAddr)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		a.logger.Info("stripsplan listening", "url", ipc.FormatListenURL(a.cfg.ListenAddr), "db", a.cfg.DBPath)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-egCtx.Done():
				return nil
			case <-ticker.C:
				if n := g.Prune(); n > 0 {
					a.logger.Debug("pruned rate buckets", "count", n)
				}
				if n := sessions.Prune(a.cfg.SessionIdle()); n > 0 {
					a.logger.Info("expired idle sessions", "count", n, "open", sessions.Count())
				}
			}
		}
	})
	eg.Go(func() error {
		<-egCtx.Done()
		a.logger.Info("shutting down")
		closed := sessions.CloseAll()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		a.logger.Info("server stopped", "sessions_closed", closed)
		return nil
	})
	return eg.Wait()
}
