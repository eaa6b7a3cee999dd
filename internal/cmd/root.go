package cmd

import (
	"fmt"
	"net"

	"github.com/niels/minihttpd/internal/routes"
	"github.com/niels/minihttpd/pkg/config"
	"github.com/niels/minihttpd/pkg/logging"
	"github.com/niels/minihttpd/pkg/request"
	"github.com/niels/minihttpd/pkg/router"
	"github.com/niels/minihttpd/pkg/server"
	"github.com/niels/minihttpd/pkg/tracker"
	"github.com/niels/minihttpd/pkg/version"
	"github.com/spf13/cobra"
)

// ListenFunc acquires the listening socket for an address
type ListenFunc func(address string) (net.Listener, error)

var (
	configPath  string
	address     string
	debug       bool
	verbose     bool
	showVersion bool
	cfg         *config.Config
)

// NewRootCmd creates the root command for minihttpd
func NewRootCmd() *cobra.Command {
	return NewRootCmdWithListener(nil)
}

// NewRootCmdWithListener creates the root command with a custom listen function.
// This is primarily used for testing; nil binds a TCP socket.
func NewRootCmdWithListener(listen ListenFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   version.AppName,
		Short: version.Description,
		Long: fmt.Sprintf(`%s - %s

Serves one request per connection and closes it. Routes are matched in
registration order against path templates such as /users/{user_id}.
`, version.AppName, version.Description),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				cfg = config.LoadOrDefault(configPath)
			} else {
				cfg = config.Default()
			}

			logging.InitGlobalLogger(debug, cfg)
			logging.Debug("Initializing minihttpd")

			if configPath != "" {
				logging.InfoWith("Configuration loaded", map[string]interface{}{
					"path": configPath,
				})
			}

			if address != "" {
				cfg.Server.Address = address
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionInfo())
				return nil
			}

			r := router.New()
			if err := routes.Register(r); err != nil {
				return err
			}
			logging.InfoWith("Routes registered", map[string]interface{}{
				"get":  r.Routes(request.MethodGet),
				"post": r.Routes(request.MethodPost),
			})

			opts := []server.Option{
				server.WithChunkSize(cfg.Server.ChunkSize),
				server.WithReadTimeout(cfg.Server.ReadTimeoutDuration()),
				server.WithMaxConnections(cfg.Server.MaxConnections),
			}
			if verbose {
				opts = append(opts, server.WithTracker(tracker.NewConsoleTracker().WithWriter(cmd.OutOrStdout())))
			}
			srv := server.New(r, opts...)

			var err error
			if listen == nil {
				err = srv.ListenAndServe(cfg.Server.Address)
			} else {
				var ln net.Listener
				ln, err = listen(cfg.Server.Address)
				if err != nil {
					err = fmt.Errorf("%w %s: %w", server.ErrBind, cfg.Server.Address, err)
				} else {
					err = srv.Serve(ln)
				}
			}
			if err != nil {
				logging.ErrorWith("Server stopped", map[string]interface{}{
					"error": err,
				})
				return err
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&address, "address", "a", "", "Address to listen on (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug mode")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "", false, "Print one line per connection")
	rootCmd.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version information")

	return rootCmd
}
