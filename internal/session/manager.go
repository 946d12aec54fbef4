package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"grocery-storefront/internal/backend"
	"grocery-storefront/internal/cartstore"
	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/search"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrMissingToken is returned by Start when no access token is given.
	ErrMissingToken = errors.New("access token is required")
	// ErrUnauthorized means the backend rejected the session's credentials
	// during the initial cart load.
	ErrUnauthorized = errors.New("backend rejected credentials")
)

// Recorder stores committed search terms for suggestions.
type Recorder interface {
	Record(ctx context.Context, term string) error
}

// Session is one signed-in storefront user: a backend client with its own
// credentials, a cart store, a search controller and the listing it feeds.
type Session struct {
	ID      string
	Tokens  *backend.TokenSource
	Backend *backend.Client
	Cart    *cartstore.Store
	Search  *search.Controller
	Listing *Listing

	createdAt time.Time
	lastSeen  atomic.Int64
}

func (s *Session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

type Config struct {
	BackendURL     string
	RequestTimeout time.Duration
	SearchDebounce time.Duration
	SearchPageSize int
	DiscardStale   bool
	IdleTimeout    time.Duration
}

type Manager struct {
	cfg       Config
	recorder  Recorder
	logger    *zap.Logger
	transport http.RoundTripper
	clock     search.Clock
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

type Option func(*Manager)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRecorder makes every committed search term count toward suggestions.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithTransport sets the base transport under each session's AuthTransport.
func WithTransport(rt http.RoundTripper) Option {
	return func(m *Manager) { m.transport = rt }
}

// WithSearchClock sets the clock behind every session's search debounce.
func WithSearchClock(c search.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

func WithNow(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(cfg Config, opts ...Option) *Manager {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.SearchDebounce <= 0 {
		cfg.SearchDebounce = search.DefaultDebounce
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Minute
	}
	m := &Manager{
		cfg:      cfg,
		logger:   zap.NewNop(),
		clock:    search.SystemClock,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start opens a session for tokens and loads the user's cart. A 401 or 403
// on that first load fails the session; any other error is left on the cart
// store's banner.
func (m *Manager) Start(ctx context.Context, tokens backend.Tokens) (*Session, error) {
	if tokens.Access == "" {
		return nil, ErrMissingToken
	}
	id := uuid.NewString()
	logger := m.logger.With(zap.String("session_id", id))

	source := backend.NewTokenSource(m.cfg.BackendURL, tokens,
		&http.Client{Timeout: m.cfg.RequestTimeout, Transport: m.transport}, logger)
	client := backend.New(m.cfg.BackendURL, &http.Client{
		Timeout:   m.cfg.RequestTimeout,
		Transport: &backend.AuthTransport{Base: m.transport, Source: source},
	}, logger)

	listing := &Listing{}
	sess := &Session{
		ID:      id,
		Tokens:  source,
		Backend: client,
		Cart: cartstore.New(client,
			cartstore.WithLogger(logger.Named("cart")),
			cartstore.WithStaleGuard(m.cfg.DiscardStale)),
		Listing:   listing,
		createdAt: m.now(),
	}
	sess.Search = search.NewController(client, func(r search.Result) { listing.Offer(r) },
		search.WithDelay(m.cfg.SearchDebounce),
		search.WithClock(m.clock),
		search.WithLogger(logger.Named("search")),
		search.WithFetchTimeout(m.cfg.RequestTimeout),
		search.WithPageSize(m.cfg.SearchPageSize),
		search.WithCommitHook(m.recordTerm),
	)
	sess.touch(m.now())

	if _, err := sess.Cart.RefreshCart(ctx); err != nil {
		var apiErr *backend.APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden) {
			sess.Search.Close()
			logger.Info("session rejected", zap.Int("status", apiErr.Status))
			return nil, ErrUnauthorized
		}
		logger.Warn("initial cart load failed", zap.Error(err))
	}
	sess.Search.Refresh(ctx)

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()
	logger.Info("session started")
	return sess, nil
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	sess, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	sess.touch(m.now())
	return sess, nil
}

func (m *Manager) End(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	sess.Search.Close()
	m.logger.Info("session ended", zap.String("session_id", id))
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep ends every session idle for longer than the idle timeout and
// returns how many were ended.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)
	var expired []*Session

	m.mu.Lock()
	for id, sess := range m.sessions {
		if sess.LastSeen().Before(cutoff) {
			expired = append(expired, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range expired {
		sess.Search.Close()
		m.logger.Info("session expired",
			zap.String("session_id", sess.ID),
			zap.Time("last_seen", sess.LastSeen()),
			zap.Duration("age", sess.LastSeen().Sub(sess.CreatedAt())))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is cancelled, then ends the rest.
func (m *Manager) Run(ctx context.Context) {
	interval := m.cfg.IdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.closeAll()
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("idle sweep", zap.Int("expired", n), zap.Int("live", m.Len()))
			}
		}
	}
}

func (m *Manager) closeAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, sess := range sessions {
		sess.Search.Close()
	}
}

func (m *Manager) recordTerm(term string) {
	if m.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.recorder.Record(ctx, term); err != nil {
		if errors.Is(err, domain.ErrInvalidTerm) {
			m.logger.Debug("term not recorded", zap.String("term", term), zap.Error(err))
			return
		}
		m.logger.Warn("record search term failed", zap.String("term", term), zap.Error(err))
	}
}
