package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	sharedauth "jobapply-backend/internal/shared/auth"
	"jobapply-backend/internal/shared/server/respond"
	"jobapply-backend/internal/shared/telemetry"
)

// GmailScope grants draft and send access to the user's mailbox.
const GmailScope = "https://mail.google.com/"

// GmailOAuthConfig returns the OAuth client configuration for the Gmail send capability.
func GmailOAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{GmailScope},
		Endpoint:     google.Endpoint,
	}
}

// SessionChecker reports whether a session exists.
type SessionChecker func(ctx context.Context, sessionID string) error

// GoogleService runs the browser OAuth exchange and binds the resulting token
// to an application session.
type GoogleService struct {
	oauthConfig *oauth2.Config
	tokens      TokenStore
	checkSess   SessionChecker
	uiRedirect  string
	states      *sharedauth.Signer
	stateTTL    time.Duration
	used        *nonceCache
}

// NewGoogleService builds a GoogleService. The OAuth state is a signed token
// so any instance sharing the signer secret can finish the exchange. A nil
// signer gets a random per-process secret.
func NewGoogleService(cfg *oauth2.Config, tokens TokenStore, checkSession SessionChecker, uiRedirect string, states *sharedauth.Signer) *GoogleService {
	if states == nil {
		states = randomSigner()
	}
	return &GoogleService{
		oauthConfig: cfg,
		tokens:      tokens,
		checkSess:   checkSession,
		uiRedirect:  uiRedirect,
		states:      states,
		stateTTL:    10 * time.Minute,
		used:        newNonceCache(),
	}
}

// Configured reports whether client credentials are present.
func (s *GoogleService) Configured() bool {
	return s != nil && s.oauthConfig != nil &&
		s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

// RegisterRoutes attaches Google auth routes.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/google/start", s.start)
	rg.GET("/auth/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.Configured() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}
	sessionID := strings.TrimSpace(c.Query("session"))
	if sessionID == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "session is required", nil)
		return
	}
	if s.checkSess != nil {
		if err := s.checkSess(c.Request.Context(), sessionID); err != nil {
			respond.Error(c, http.StatusNotFound, "session_not_found", "session not found", nil)
			return
		}
	}

	state, err := s.states.Sign(sharedauth.StateClaims{Sub: sessionID, Nonce: uuid.NewString()}, s.stateTTL)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start authorization", nil)
		return
	}

	authURL := s.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	c.Redirect(http.StatusFound, authURL)
}

func (s *GoogleService) callback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		respond.Error(c, http.StatusBadRequest, "auth_denied", "authorization was not granted", map[string]string{"reason": errParam})
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	claims, err := s.states.Verify(state)
	if err != nil || !s.used.claim(claims.Nonce, time.Unix(claims.Exp, 0)) {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}
	sessionID := claims.Sub

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}
	if err := s.tokens.Save(ctx, sessionID, token); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to store token", nil)
		return
	}
	telemetry.Info("auth.gmail_connected", map[string]any{"session_id": sessionID})

	if s.uiRedirect == "" {
		respond.OK(c, gin.H{"sessionId": sessionID, "gmail": "connected"})
		return
	}
	redirectURL, err := appendQuery(s.uiRedirect, map[string]string{"session": sessionID, "gmail": "connected"})
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to redirect", nil)
		return
	}
	c.Redirect(http.StatusFound, redirectURL)
}

// nonceCache makes states single-use within one process.
type nonceCache struct {
	items map[string]time.Time
	mu    sync.Mutex
}

func newNonceCache() *nonceCache {
	return &nonceCache{items: make(map[string]time.Time)}
}

// claim records nonce and reports whether it was unused.
func (n *nonceCache) claim(nonce string, exp time.Time) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := time.Now()
	for k, v := range n.items {
		if now.After(v) {
			delete(n.items, k)
		}
	}
	if _, seen := n.items[nonce]; seen {
		return false
	}
	n.items[nonce] = exp
	return true
}

func randomSigner() *sharedauth.Signer {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(fmt.Sprintf("auth: read random state secret: %v", err))
	}
	signer, _ := sharedauth.NewSigner(hex.EncodeToString(b[:]))
	return signer
}

func appendQuery(rawURL string, params map[string]string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
