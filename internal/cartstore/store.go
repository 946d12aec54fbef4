package cartstore

import (
	"context"
	"errors"
	"sync"

	"grocery-storefront/internal/domain"

	"go.uber.org/zap"
)

var (
	// ErrInvalidQuantity is returned by AddToCart for quantities below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	errEmptySnapshot = errors.New("backend returned no cart")
)

// CartService is the remote cart API. Every call returns the full snapshot.
type CartService interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddLine(ctx context.Context, productID int64, quantity int) (*domain.Cart, error)
	UpdateLine(ctx context.Context, lineID int64, quantity int) (*domain.Cart, error)
	DeleteLine(ctx context.Context, lineID int64) (*domain.Cart, error)
	ClearCart(ctx context.Context) (*domain.Cart, error)
}

// Store is the single source of truth for what is in a user's cart. It never
// patches the cart locally: a successful call replaces it with the snapshot
// the backend returned.
type Store struct {
	svc        CartService
	logger     *zap.Logger
	staleGuard bool

	mu        sync.Mutex
	state     State
	inflight  int
	issued    uint64
	applied   uint64
	observers map[int]func(State)
	nextObs   int
}

type Option func(*Store)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStaleGuard makes the store drop snapshots from operations dispatched
// before the most recently applied one. Without it the last response to
// arrive wins.
func WithStaleGuard(enabled bool) Option {
	return func(s *Store) {
		s.staleGuard = enabled
	}
}

func New(svc CartService, opts ...Option) *Store {
	s := &Store{
		svc:       svc,
		logger:    zap.NewNop(),
		observers: make(map[int]func(State)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a copy of the current state. The cart pointer is shared and
// must be treated as read-only.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called after every state transition and
// returns a function that removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *Store) AddToCart(ctx context.Context, product domain.Product, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	return s.run(ctx, "add", true, func(ctx context.Context) (*domain.Cart, error) {
		return s.svc.AddLine(ctx, product.ID, quantity)
	})
}

// UpdateCartItem forwards newQuantity as-is. Callers must use RemoveFromCart
// instead of sending 0, and revert any optimistic display value on error.
func (s *Store) UpdateCartItem(ctx context.Context, lineID int64, newQuantity int) (*domain.Cart, error) {
	return s.run(ctx, "update", false, func(ctx context.Context) (*domain.Cart, error) {
		return s.svc.UpdateLine(ctx, lineID, newQuantity)
	})
}

// RemoveFromCart does not check that lineID is in the current snapshot; the
// backend's answer is applied verbatim.
func (s *Store) RemoveFromCart(ctx context.Context, lineID int64) (*domain.Cart, error) {
	return s.run(ctx, "remove", false, func(ctx context.Context) (*domain.Cart, error) {
		return s.svc.DeleteLine(ctx, lineID)
	})
}

func (s *Store) ClearCart(ctx context.Context) (*domain.Cart, error) {
	return s.run(ctx, "clear", false, s.svc.ClearCart)
}

func (s *Store) RefreshCart(ctx context.Context) (*domain.Cart, error) {
	return s.run(ctx, "refresh", false, s.svc.GetCart)
}

func (s *Store) CartSummary() domain.CartSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return summarize(s.state.Cart)
}

func (s *Store) OpenCart() {
	s.dispatch(panelToggled{open: true})
}

func (s *Store) CloseCart() {
	s.dispatch(panelToggled{open: false})
}

// DismissError clears the banner message.
func (s *Store) DismissError() {
	s.dispatch(errorDismissed{})
}

func (s *Store) dispatch(a action) {
	s.mu.Lock()
	s.state = reduce(s.state, a)
	snapshot := s.state
	observers := s.observersLocked()
	s.mu.Unlock()
	notify(observers, snapshot)
}

func (s *Store) run(ctx context.Context, op string, openOnSuccess bool, call func(context.Context) (*domain.Cart, error)) (*domain.Cart, error) {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	s.inflight++
	s.state = reduce(s.state, opStarted{})
	s.state.Loading = true
	snapshot := s.state
	observers := s.observersLocked()
	s.mu.Unlock()
	notify(observers, snapshot)

	cart, err := call(ctx)
	if err == nil && cart == nil {
		err = errEmptySnapshot
	}

	s.mu.Lock()
	s.inflight--
	switch {
	case err != nil:
		s.state = reduce(s.state, opFailed{message: domain.UserMessage(err)})
		s.logger.Warn("cart operation failed", zap.String("op", op), zap.Uint64("seq", seq), zap.Error(err))
	case s.staleGuard && seq < s.applied:
		s.logger.Info("dropping stale cart snapshot",
			zap.String("op", op), zap.Uint64("seq", seq), zap.Uint64("applied", s.applied))
	default:
		s.applied = seq
		s.state = reduce(s.state, snapshotReceived{cart: cart, open: openOnSuccess})
		s.logger.Debug("cart snapshot applied",
			zap.String("op", op), zap.Uint64("seq", seq),
			zap.Int("total_items", cart.TotalItems), zap.Int("total_quantity", cart.TotalQuantity))
	}
	s.state.Loading = s.inflight > 0
	snapshot = s.state
	observers = s.observersLocked()
	s.mu.Unlock()
	notify(observers, snapshot)

	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *Store) observersLocked() []func(State) {
	if len(s.observers) == 0 {
		return nil
	}
	out := make([]func(State), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []func(State), st State) {
	for _, fn := range observers {
		fn(st)
	}
}
