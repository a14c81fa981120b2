package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/goauthentik/authentik-sub006/pkg/console"
	"github.com/goauthentik/authentik-sub006/pkg/executor"
	"github.com/goauthentik/authentik-sub006/pkg/options"
	"github.com/goauthentik/authentik-sub006/pkg/softtoken"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	var (
		baseURL   = envOr("AUTHENTIK_URL", "http://localhost:9000")
		flow      = envOr("AUTHENTIK_FLOW", "default-authentication-flow")
		query     = envOr("AUTHENTIK_QUERY", "")
		debug     bool
		softAuthn bool
	)

	root := &cobra.Command{
		Use:   "akflow",
		Short: "Run an authentication flow from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			lvl := new(slog.LevelVar)
			if debug {
				lvl.Set(slog.LevelDebug)
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: lvl,
			}))

			hc := &http.Client{Timeout: 30 * time.Second}
			opts := []options.Option{
				options.WithLogger(logger),
				options.WithHTTPClient(hc),
			}
			if softAuthn {
				token := softtoken.New(baseURL, options.WithLogger(logger))
				opts = append(opts, options.WithAuthenticator(token))
			}

			surface := console.New(cmd.InOrStdin(), cmd.OutOrStdout(), opts...)
			e := executor.New(executor.Config{
				URL:   baseURL,
				Flow:  flow,
				Query: query,
			}, surface, opts...)

			return e.Run(cmd.Context())
		},
	}

	root.Flags().StringVar(&baseURL, "url", baseURL, "Base server URL (env AUTHENTIK_URL)")
	root.Flags().StringVar(&flow, "flow", flow, "Flow slug to execute (env AUTHENTIK_FLOW)")
	root.Flags().StringVar(&query, "query", query, "Query string forwarded to the flow, without leading ? (env AUTHENTIK_QUERY)")
	root.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	root.Flags().BoolVar(&softAuthn, "soft-webauthn", false, "Answer WebAuthn stages with an in-process software token")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
