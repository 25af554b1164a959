package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/railtopo/internal/server"
)

// serveCommand creates the serve command, which exposes the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion pipeline over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.Config.Server
			if addr == "" {
				addr = cfg.Addr
			}

			runner, err := c.newRunner(ctx)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(runner, server.Options{
				MaxBodyBytes:   cfg.MaxBodyBytes,
				AllowedOrigins: cfg.AllowedOrigins,
				Logger:         c.Logger,
			})
			printInfo("Listening on %s", StyleHighlight.Render(addr))
			c.Logger.Info("server starting", "addr", addr, "cache", c.Config.Cache.Backend)
			if err := server.ListenAndServe(ctx, addr, srv, cfg.ReadTimeoutDuration(), cfg.ShutdownTimeoutDuration()); err != nil {
				return err
			}
			c.Logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
