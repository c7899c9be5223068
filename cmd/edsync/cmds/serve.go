package cmds

import (
	"context"
	"edsync/internal/api"
	"edsync/internal/app"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func ServeCmd() *cobra.Command {
	var port int
	var warm bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if port == 0 {
				port = cfg.Port
			}
			if port == 0 {
				port = 8080
			}
			ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stopSignals()

			a, err := app.New(ctx, cfg, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if warm {
				// Publish what is cached and refresh every site in the background.
				for _, site := range cfg.Sites {
					if err := a.Dispatcher.Go(ctx, fetchCommand(site.ID, false)); err != nil {
						log.WithError(err).WithField("siteID", site.ID).Warn("warm-up dispatch failed")
					}
				}
			}

			h := api.NewHandler(a.Store, a.Dispatcher, cfg, a.Registry, promhttp.HandlerFor(a.Gatherer, promhttp.HandlerOpts{}))
			stop, done := api.RunServerInterruptible(port, h)
			select {
			case <-ctx.Done():
				log.Info("shutting down")
				stop <- struct{}{}
				return <-done
			case err := <-done:
				return err
			}
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config, else 8080)")
	cmd.Flags().BoolVar(&warm, "warm", true, "refresh every configured site on start")
	return cmd
}
