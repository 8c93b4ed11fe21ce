package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"jobapply-backend/internal/auth"
	"jobapply-backend/internal/shared/config"
)

const callbackPath = "/api/v1/auth/google/callback"

func newConnectCmd() *cobra.Command {
	var (
		port    int
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Authorize Gmail drafts and sends for the CLI",
		Long: `Runs the Google OAuth flow on a loopback address and stores the token
under GMAIL_TOKEN_DIR. The OAuth client must allow the redirect URI
http://127.0.0.1:<port>` + callbackPath + `.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return connect(ctx, cmd, config.Load(), port, timeout)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8085, "Loopback port for the OAuth callback")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for authorization")
	return cmd
}

func connect(ctx context.Context, cmd *cobra.Command, cfg config.Config, port int, timeout time.Duration) error {
	if cfg.GoogleClientID == "" || cfg.GoogleClientSecret == "" {
		return errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required")
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return fmt.Errorf("listen for oauth callback: %w", err)
	}
	base := "http://" + ln.Addr().String()

	tokens := &notifyingStore{TokenStore: auth.NewFileTokenStore(cfg.GmailTokenDir), saved: make(chan struct{}, 1)}
	oauthCfg := auth.GmailOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, base+callbackPath)
	svc := auth.NewGoogleService(oauthCfg, tokens, onlyCLI, "", nil)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	svc.RegisterRoutes(engine.Group("/api/v1"))
	srv := &http.Server{Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser to authorize Gmail:\n\n  %s/api/v1/auth/google/start?session=%s\n\n", base, cliTokenKey)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case <-tokens.saved:
		fmt.Fprintln(cmd.OutOrStdout(), "Gmail connected.")
		return nil
	case <-waitCtx.Done():
		return fmt.Errorf("waiting for authorization: %w", waitCtx.Err())
	}
}

func onlyCLI(_ context.Context, sessionID string) error {
	if sessionID != cliTokenKey {
		return errors.New("unknown session")
	}
	return nil
}

// notifyingStore signals once a token has been saved.
type notifyingStore struct {
	auth.TokenStore
	saved chan struct{}
}

func (s *notifyingStore) Save(ctx context.Context, key string, tok *oauth2.Token) error {
	if err := s.TokenStore.Save(ctx, key, tok); err != nil {
		return err
	}
	select {
	case s.saved <- struct{}{}:
	default:
	}
	return nil
}
