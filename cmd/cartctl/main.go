package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"grocery-storefront/internal/backend"
	"grocery-storefront/internal/cartstore"
	"grocery-storefront/internal/config"
	"grocery-storefront/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backendURL   string
	accessToken  string
	refreshToken string
	timeout      time.Duration
	verbose      bool

	logger *zap.Logger
)

// rootCmd drives a cart store and a search controller against the backend
// from the terminal.
var rootCmd = &cobra.Command{
	Use:           "cartctl",
	Short:         "Inspect and edit a storefront cart from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		applyEnvDefaults()
		level := "warn"
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New("cartctl", level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Store backend base URL (default from BACKEND_URL)")
	rootCmd.PersistentFlags().StringVar(&accessToken, "token", "", "Access token (default from STOREFRONT_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&refreshToken, "refresh", "", "Refresh token (default from STOREFRONT_REFRESH)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-request timeout (default from REQUEST_TIMEOUT_SECONDS)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(cartCmd)
	rootCmd.AddCommand(searchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// applyEnvDefaults fills flags left unset from the environment and .env.
func applyEnvDefaults() {
	cfg := config.FromEnv()
	if backendURL == "" {
		backendURL = cfg.BackendURL
	}
	if timeout <= 0 {
		timeout = cfg.RequestTimeout
	}
	if accessToken == "" {
		accessToken = os.Getenv("STOREFRONT_TOKEN")
	}
	if refreshToken == "" {
		refreshToken = os.Getenv("STOREFRONT_REFRESH")
	}
}

// newClient builds an authenticated backend client from the global flags.
func newClient() (*backend.Client, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("an access token is required (--token or STOREFRONT_TOKEN)")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	source := backend.NewTokenSource(backendURL, backend.Tokens{Access: accessToken, Refresh: refreshToken},
		&http.Client{Timeout: timeout}, logger)
	return backend.New(backendURL, &http.Client{
		Timeout:   timeout,
		Transport: &backend.AuthTransport{Source: source},
	}, logger), nil
}

func newStore() (*cartstore.Store, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	store := cartstore.New(client, cartstore.WithLogger(logger.Named("cart")))
	store.Subscribe(func(st cartstore.State) {
		logger.Debug("cart state", zap.Bool("loading", st.Loading), zap.String("error", st.Error))
	})
	return store, nil
}
