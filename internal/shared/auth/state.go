package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// StateClaims is the payload of a signed OAuth state parameter.
type StateClaims struct {
	Sub   string `json:"sub"`
	Nonce string `json:"nonce"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
}

var (
	ErrMissingSecret = errors.New("state secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Signer issues and verifies HS256 JWTs carrying StateClaims.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner returns a Signer keyed by secret.
func NewSigner(secret string) (*Signer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Sign encodes claims. Iat defaults to now and Exp to now+ttl.
func (s *Signer) Sign(claims StateClaims, ttl time.Duration) (string, error) {
	if claims.Sub == "" {
		return "", errors.New("sub is required")
	}
	now := s.now().UTC()
	if claims.Iat == 0 {
		claims.Iat = now.Unix()
	}
	if claims.Exp == 0 {
		claims.Exp = now.Add(ttl).Unix()
	}

	headerJSON, err := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	if err != nil {
		return "", err
	}
	payloadJSON, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	signingInput := base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(payloadJSON)
	return signingInput + "." + s.sign(signingInput), nil
}

// Verify checks the signature and expiry and returns the claims.
func (s *Signer) Verify(token string) (StateClaims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return StateClaims{}, ErrInvalidToken
	}

	signingInput := parts[0] + "." + parts[1]
	if !hmac.Equal([]byte(parts[2]), []byte(s.sign(signingInput))) {
		return StateClaims{}, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return StateClaims{}, ErrInvalidToken
	}
	var claims StateClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return StateClaims{}, ErrInvalidToken
	}
	if claims.Sub == "" || claims.Nonce == "" {
		return StateClaims{}, ErrInvalidToken
	}
	if claims.Exp > 0 && s.now().UTC().Unix() > claims.Exp {
		return StateClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (s *Signer) sign(input string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(input))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
