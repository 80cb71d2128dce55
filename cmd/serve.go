package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/salestax/internal/api"
	"github.com/sells-group/salestax/internal/model"
	"github.com/sells-group/salestax/internal/order"
	"github.com/sells-group/salestax/internal/schedule"
	"github.com/sells-group/salestax/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tax quote and order API (SIGHUP reloads the schedule)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initQuoteEnv(ctx, true)
		if err != nil {
			return err
		}
		defer env.Close()

		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go watchReload(ctx, hup, env.Store, cfg.Schedule.Path, env.Policy, env.Holder)

		svc := order.NewService(env.Store, env.Calculator, order.WithConcurrency(cfg.Orders.ImportConcurrency))
		handler := api.NewRouter(env.Calculator, svc, env.Holder, api.Options{
			CORSOrigins:    cfg.Server.CORSOrigins,
			MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
			RequestTimeout: time.Duration(cfg.Server.RequestTimeoutMS) * time.Millisecond,
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSecs)*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				zap.L().Error("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// watchReload rebuilds the schedule on every signal until ctx ends. A failed
// rebuild keeps serving the previous schedule.
func watchReload(ctx context.Context, sig <-chan os.Signal, st store.Store, path string, policy model.Policy, holder *schedule.Holder) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			zap.L().Info("reloading schedule")
			if err := reloadSchedule(ctx, st, path, policy, holder); err != nil {
				zap.L().Error("schedule reload failed, keeping previous schedule", zap.Error(err))
			}
		}
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
