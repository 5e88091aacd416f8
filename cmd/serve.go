package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/config"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/domain"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/fetch"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/httpapi"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/logging"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/notify"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/session"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/store/sqlite"
	"github.com/pierrelecouillard-ui/ffe-pre-engage/internal/watcher"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local API and the polling engine",
	Long: `Run the HTTP API the UI talks to. The polling engine is controlled
through the API (POST /api/watcher/start and /api/watcher/stop); pass
--watch to start polling immediately.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "start the polling engine immediately")
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.NewLogger(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	st, err := sqlite.New(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cookies := session.NewCookies()
	fetcher := fetch.NewHTTPFetcher(cfg.HTTPTimeout, cfg.UserAgent, cookies)

	var sinks notify.Multi
	if wh := notify.NewWebhook(cfg.WebhookURL); wh != nil {
		sinks = append(sinks, wh)
	}
	notifyFn := func(a domain.Alert) {
		logger.Info("alert",
			zap.Int64("target_id", a.TargetID),
			zap.String("label", a.Label),
			zap.String("url", a.URL),
			zap.String("kind", string(a.Kind)),
		)
		if len(sinks) == 0 {
			return
		}
		sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sinks.Send(sendCtx, a); err != nil {
			logger.Warn("alert_delivery_error", zap.Error(err))
		}
	}

	engine := watcher.New(logger, st, fetcher, notifyFn, watcher.Config{})
	if serveWatch {
		engine.Start()
	}

	api := httpapi.NewServer(logger, st, engine, cookies, fetcher)
	srv := &http.Server{Addr: cfg.Addr, Handler: api.Router()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api_listen", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		engine.Stop()
		return err
	case <-sig:
	}

	logger.Info("shutting_down")
	engine.Stop()

	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
