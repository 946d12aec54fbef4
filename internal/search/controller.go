package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"grocery-storefront/internal/domain"

	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a typed term is dispatched.
const DefaultDebounce = 300 * time.Millisecond

// ErrClosed is returned in the Result of any dispatch attempted after Close.
var ErrClosed = errors.New("search controller closed")

// Fetcher is the product listing API.
type Fetcher interface {
	ListProducts(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error)
	SearchProducts(ctx context.Context, q domain.ProductQuery) (*domain.ProductPage, error)
}

// Result is delivered to the ResultSink after every dispatch. Generation
// increases with each dispatch, so sinks can ignore late answers.
type Result struct {
	Generation uint64
	Query      domain.ProductQuery
	SearchMode bool
	Page       *domain.ProductPage
	Err        error
}

type ResultSink func(Result)

type Filters struct {
	Category string `json:"category,omitempty"`
	InStock  *bool  `json:"in_stock,omitempty"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type State struct {
	RawTerm       string  `json:"raw_term"`
	CommittedTerm string  `json:"committed_term"`
	IsPending     bool    `json:"is_pending"`
	SearchMode    bool    `json:"search_mode"`
	Filters       Filters `json:"filters"`
}

// Controller turns keystrokes into one product query per pause in typing.
// It does not report fetch errors itself; those go to the sink.
type Controller struct {
	fetcher   Fetcher
	sink      ResultSink
	debouncer *Debouncer
	logger    *zap.Logger
	timeout   time.Duration
	onCommit  func(term string)
	pageSize  int

	mu        sync.Mutex
	state     State
	gen       uint64
	closed    bool
	observers []func(State)
}

type Option func(*controllerConfig)

type controllerConfig struct {
	delay    time.Duration
	clock    Clock
	logger   *zap.Logger
	timeout  time.Duration
	onCommit func(string)
	pageSize int
	filters  *Filters
}

func WithDelay(d time.Duration) Option {
	return func(c *controllerConfig) { c.delay = d }
}

func WithClock(clock Clock) Option {
	return func(c *controllerConfig) { c.clock = clock }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *controllerConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFetchTimeout bounds debounced dispatches, which have no caller context.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *controllerConfig) { c.timeout = d }
}

// WithCommitHook is called with every committed non-blank term.
func WithCommitHook(fn func(term string)) Option {
	return func(c *controllerConfig) { c.onCommit = fn }
}

func WithPageSize(n int) Option {
	return func(c *controllerConfig) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithFilters sets the starting filters without dispatching a query.
func WithFilters(f Filters) Option {
	return func(c *controllerConfig) { c.filters = &f }
}

func NewController(fetcher Fetcher, sink ResultSink, opts ...Option) *Controller {
	cfg := controllerConfig{
		delay:    DefaultDebounce,
		clock:    SystemClock,
		logger:   zap.NewNop(),
		timeout:  15 * time.Second,
		pageSize: 20,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if sink == nil {
		sink = func(Result) {}
	}
	filters := Filters{Page: 1, PageSize: cfg.pageSize}
	if cfg.filters != nil {
		filters.Category = strings.TrimSpace(cfg.filters.Category)
		filters.InStock = cfg.filters.InStock
		if cfg.filters.Page > 1 {
			filters.Page = cfg.filters.Page
		}
	}
	return &Controller{
		fetcher:   fetcher,
		sink:      sink,
		debouncer: NewDebouncer(cfg.delay, cfg.clock),
		logger:    cfg.logger,
		timeout:   cfg.timeout,
		onCommit:  cfg.onCommit,
		pageSize:  cfg.pageSize,
		state:     State{Filters: filters},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to be called after every state change.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

// OnInputChange records text immediately and (re)arms the debounce timer.
func (c *Controller) OnInputChange(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.state.RawTerm = text
	c.state.IsPending = true
	c.debouncer.Trigger(c.commitTyped)
	c.publishLocked()
}

func (c *Controller) commitTyped() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	term := c.commitLocked(c.state.RawTerm)
	gen, q, mode := c.nextDispatchLocked()
	c.publishLocked()

	c.hook(term)

	ctx, cancel := c.dispatchContext(context.Background())
	defer cancel()
	c.fetch(ctx, gen, q, mode)
}

// AcceptSuggestion commits term at once, bypassing the debounce window.
func (c *Controller) AcceptSuggestion(ctx context.Context, term string) Result {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{Err: ErrClosed}
	}
	c.debouncer.Cancel()
	c.state.RawTerm = term
	committed := c.commitLocked(term)
	gen, q, mode := c.nextDispatchLocked()
	c.publishLocked()

	c.hook(committed)
	return c.fetch(ctx, gen, q, mode)
}

// ClearFilters resets term, category, stock status and pagination in one
// state change and reloads the unfiltered listing.
func (c *Controller) ClearFilters(ctx context.Context) Result {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{Err: ErrClosed}
	}
	c.debouncer.Cancel()
	c.state = State{Filters: Filters{Page: 1, PageSize: c.pageSize}}
	gen, q, mode := c.nextDispatchLocked()
	c.publishLocked()
	return c.fetch(ctx, gen, q, mode)
}

func (c *Controller) SetCategory(ctx context.Context, category string) Result {
	return c.update(ctx, func(f *Filters) {
		f.Category = strings.TrimSpace(category)
		f.Page = 1
	})
}

func (c *Controller) SetInStock(ctx context.Context, inStock *bool) Result {
	return c.update(ctx, func(f *Filters) {
		f.InStock = inStock
		f.Page = 1
	})
}

func (c *Controller) SetPage(ctx context.Context, page int) Result {
	if page < 1 {
		page = 1
	}
	return c.update(ctx, func(f *Filters) { f.Page = page })
}

// Refresh re-runs the current query.
func (c *Controller) Refresh(ctx context.Context) Result {
	return c.update(ctx, func(*Filters) {})
}

// UpdateFilters applies several filter changes as one state change and one
// dispatch. mutate runs under the controller lock and must not call back
// into c.
func (c *Controller) UpdateFilters(ctx context.Context, mutate func(*Filters)) Result {
	return c.update(ctx, func(f *Filters) {
		mutate(f)
		if f.Page < 1 {
			f.Page = 1
		}
	})
}

// Close cancels any pending debounced dispatch and makes later dispatches
// return ErrClosed. In-flight fetches are left to finish.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.debouncer.Cancel()
	c.mu.Unlock()
}

func (c *Controller) update(ctx context.Context, mutate func(*Filters)) Result {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Result{Err: ErrClosed}
	}
	mutate(&c.state.Filters)
	gen, q, mode := c.nextDispatchLocked()
	c.publishLocked()
	return c.fetch(ctx, gen, q, mode)
}

// commitLocked makes term the committed term. A changed or blank term goes
// back to the first page.
func (c *Controller) commitLocked(term string) string {
	if term != c.state.CommittedTerm || strings.TrimSpace(term) == "" {
		c.state.Filters.Page = 1
	}
	c.state.CommittedTerm = term
	c.state.SearchMode = strings.TrimSpace(term) != ""
	return term
}

func (c *Controller) nextDispatchLocked() (uint64, domain.ProductQuery, bool) {
	c.gen++
	c.state.IsPending = true
	f := c.state.Filters
	q := domain.ProductQuery{
		Term:     strings.TrimSpace(c.state.CommittedTerm),
		Category: f.Category,
		InStock:  f.InStock,
		Page:     f.Page,
		PageSize: f.PageSize,
	}
	return c.gen, q, c.state.SearchMode
}

// publishLocked notifies observers and releases c.mu.
func (c *Controller) publishLocked() {
	st := c.state
	observers := append([]func(State){}, c.observers...)
	c.mu.Unlock()
	for _, fn := range observers {
		fn(st)
	}
}

func (c *Controller) hook(term string) {
	if c.onCommit != nil && strings.TrimSpace(term) != "" {
		c.onCommit(term)
	}
}

func (c *Controller) dispatchContext(parent context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(parent, c.timeout)
	}
	return context.WithCancel(parent)
}

func (c *Controller) fetch(ctx context.Context, gen uint64, q domain.ProductQuery, searchMode bool) Result {
	var (
		page *domain.ProductPage
		err  error
	)
	if searchMode {
		page, err = c.fetcher.SearchProducts(ctx, q)
	} else {
		page, err = c.fetcher.ListProducts(ctx, q)
	}
	if err != nil {
		c.logger.Debug("product fetch failed",
			zap.Uint64("generation", gen), zap.Bool("search", searchMode), zap.Error(err))
	}

	res := Result{Generation: gen, Query: q, SearchMode: searchMode, Page: page, Err: err}
	c.sink(res)

	c.mu.Lock()
	if c.gen == gen && !c.debouncer.Pending() {
		c.state.IsPending = false
		c.publishLocked()
	} else {
		c.mu.Unlock()
	}
	return res
}
