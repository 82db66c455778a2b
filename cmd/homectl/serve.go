package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/homectl/internal/devserver"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var (
		port     int
		host     string
		simulate time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference fragment service",
		Long: `Run an in-memory fragment service with a few seeded devices.

It serves device state, partial updates, modal fragments, person
deletion, a websocket state feed at /ws and Prometheus metrics at
/metrics.

Examples:
  homectl serve
  homectl serve --port=9090
  homectl serve --simulate=5s`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := devserver.New(devserver.Options{
				Logger:     newLogger(cfg, cmd.ErrOrStderr()),
				ListingURL: cfg.Listing.URL,
			})
			success(cmd.OutOrStdout(), "Serving at http://%s", cfg.ServerAddress())

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(ctx, cfg.ServerAddress())
			})
			if simulate > 0 {
				g.Go(func() error {
					return srv.Simulate(ctx, simulate)
				})
			}
			return g.Wait()
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from homectl.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from homectl.json)")
	cmd.Flags().DurationVar(&simulate, "simulate", 0, "Flip a device's status at this interval")

	return cmd
}
