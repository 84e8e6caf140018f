package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/skycastd/skycast/internal/auth"
	"github.com/skycastd/skycast/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the skycast API server",
		Long:  "Start the HTTP server that dashboards and display devices authenticate against.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	// Set up logger
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	// 1. Open the store
	st, err := openStore()
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "path", resolveDataDir())

	// 2. Wire the auth services. The pending-secret cache is process-scoped:
	// a restart loses unacknowledged plaintexts and the only recovery is
	// regenerating the key.
	pending := auth.NewPendingSecretCache()
	verifier := auth.NewVerifier(st, logger)
	keys := auth.NewKeys(st, pending, logger)
	resolver := auth.NewResolver(verifier, keys, logger)

	// 3. Warn on first run with no admin account
	users, err := st.ListUsers(context.Background())
	if err != nil {
		logger.Warn("failed to list users", "error", err)
	}
	if !hasAdminAccount(users) {
		logger.Warn("no admin account found - run: skycast user create --admin")
	}

	// 4. Build and start the HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Host = host
	srvCfg.Port = port
	if origins := viper.GetStringSlice("server.cors_origins"); len(origins) > 0 {
		srvCfg.CORSOrigins = origins
	}

	srv := server.New(srvCfg, st, resolver, verifier, keys, logger)

	fmt.Printf("→ skycast\n")
	fmt.Printf("→ Listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Health: http://%s:%d/healthz\n", host, port)
	fmt.Println()

	return srv.ListenAndServe()
}
