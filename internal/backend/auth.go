package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// ErrNoRefreshToken is returned when a refresh is needed but the session was
// started without a refresh token.
var ErrNoRefreshToken = errors.New("no refresh token")

const refreshPath = "/api/auth/token/refresh/"

// Tokens is the access/refresh pair issued by the backend auth endpoints.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// TokenSource holds a session's tokens and refreshes the access token when it
// is about to expire or the backend rejects it.
type TokenSource struct {
	mu      sync.Mutex
	tokens  Tokens
	baseURL string
	http    *http.Client
	group   singleflight.Group
	skew    time.Duration
	now     func() time.Time
	logger  *zap.Logger
}

// NewTokenSource builds a TokenSource. httpClient must not route through an
// AuthTransport backed by the same source.
func NewTokenSource(baseURL string, tokens Tokens, httpClient *http.Client, logger *zap.Logger) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenSource{
		tokens:  tokens,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		skew:    30 * time.Second,
		now:     time.Now,
		logger:  logger,
	}
}

// Tokens returns the current pair.
func (s *TokenSource) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// Token returns an access token, refreshing first when the current one is a
// JWT expiring within the skew window.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()

	if tokens.Refresh != "" && s.expiresSoon(tokens.Access) {
		return s.Refresh(ctx)
	}
	return tokens.Access, nil
}

// Refresh exchanges the refresh token for a new access token. Concurrent
// callers share a single backend round trip.
func (s *TokenSource) Refresh(ctx context.Context) (string, error) {
	v, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *TokenSource) refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	refresh := s.tokens.Refresh
	s.mu.Unlock()
	if refresh == "" {
		return "", ErrNoRefreshToken
	}

	raw, err := json.Marshal(map[string]string{"refresh": refresh})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+refreshPath, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", &TransportError{Op: "refresh token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		s.logger.Warn("token refresh rejected", zap.Int("status", resp.StatusCode))
		return "", decodeAPIError(resp.StatusCode, body)
	}

	var out Tokens
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: "decode refresh", Err: err}
	}
	if out.Access == "" {
		return "", errors.New("refresh response carried no access token")
	}

	s.mu.Lock()
	s.tokens.Access = out.Access
	if out.Refresh != "" {
		s.tokens.Refresh = out.Refresh
	}
	s.mu.Unlock()

	s.logger.Debug("access token refreshed")
	return out.Access, nil
}

// expiresSoon reports whether a JWT access token's exp claim falls inside the
// skew window. Opaque tokens never expire from the client's point of view.
func (s *TokenSource) expiresSoon(access string) bool {
	if access == "" {
		return true
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return false
	}
	var exp int64
	switch v := claims["exp"].(type) {
	case float64:
		exp = int64(v)
	case json.Number:
		exp, _ = v.Int64()
	default:
		return false
	}
	return !s.now().Add(s.skew).Before(time.Unix(exp, 0))
}

// AuthTransport attaches the bearer token to every request and, on a 401,
// refreshes once and replays the request.
type AuthTransport struct {
	Base   http.RoundTripper
	Source *TokenSource
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.Token(req.Context())
	if err != nil {
		return nil, err
	}
	resp, err := t.base().RoundTrip(withBearer(req, token))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	fresh, err := t.Source.Refresh(req.Context())
	if err != nil {
		return resp, nil
	}
	resp.Body.Close()

	retry := withBearer(req, fresh)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.base().RoundTrip(retry)
}

func (t *AuthTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

func withBearer(req *http.Request, token string) *http.Request {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return out
}
