package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fleetwatch/internal/alerts"
	"fleetwatch/internal/bridge"
	"fleetwatch/internal/config"
	"fleetwatch/internal/events"
	"fleetwatch/internal/feed"
	"fleetwatch/internal/gateway"
	"fleetwatch/internal/handlers"
	"fleetwatch/internal/kvstore"
	"fleetwatch/internal/middleware"
	"fleetwatch/internal/monitor"
	"fleetwatch/internal/notify"
	"fleetwatch/internal/poller"
	"fleetwatch/internal/stream"
	"fleetwatch/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log.Printf("[Server] fleetwatch %s starting", version.String())

	store, err := kvstore.Open(cfg.Server.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	tracker := monitor.NewDailyTracker(store, monitor.LoadLocation(cfg.Usage.Timezone))
	engine := alerts.NewEngine(cfg.Usage.ContextCap)

	client := gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.Token)
	client.SetCallTimeout(cfg.Gateway.CallTimeout)
	defer client.Close()

	bus := events.NewBus()
	bridge.New(bus).Attach(client)

	broker := stream.NewBroker()
	detach := broker.Attach(bus)
	defer detach()

	dispatcher := notify.NewDispatcher(cfg.Notify.Targets, notify.ShoutrrrSender{})
	dispatcher.Start()
	log.Printf("[Notify] %d notification target(s) configured", len(dispatcher.Targets()))
	defer dispatcher.Stop()

	poll := poller.New(client, tracker, engine, cfg.Usage.Pricing, cfg.Gateway.PollInterval)
	poll.OnUpdate(func(v poller.View) {
		dispatcher.Observe(v.Alerts)
	})

	ingestor := feed.NewIngestor(&feed.HTTPSource{URL: cfg.StreamURL()}, feed.Options{
		ReconnectDelay: cfg.Feed.ReconnectDelay,
		Capacity:       cfg.Feed.Capacity,
	})
	defer ingestor.Stop()

	api := &handlers.API{
		Views:      poll,
		Dismissals: alerts.NewDismissals(),
		Feed:       ingestor,
		Stream:     &stream.Handler{Broker: broker},
		Streams:    broker,
		Notifier:   dispatcher,
		Version:    version.String(),
	}
	mux := http.NewServeMux()
	api.Register(mux)

	var handler http.Handler = mux
	if cfg.Server.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, time.Minute)
		defer limiter.Stop()
		handler = limiter.Limit(handler)
	}
	handler = middleware.CORS(cfg.Server.CORSOrigins)(handler)
	handler = middleware.Logging(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[Server] Listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	go poll.Run(ctx)
	ingestor.Connect()

	select {
	case <-ctx.Done():
		log.Printf("[Server] Shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ingestor.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	log.Printf("[Server] Stopped")
	return nil
}
