package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"grocery-storefront/internal/domain"
	"grocery-storefront/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// fakeStore is a minimal remote backend holding one cart.
type fakeStore struct {
	mu        sync.Mutex
	cart      domain.Cart
	failWith  int
	updates   []string
	searchQ   []string
	deleteHit int
}

func newFakeStore() *fakeStore {
	return &fakeStore{cart: domain.Cart{
		ID: 1, User: 9, IsActive: true, TotalItems: 1, TotalQuantity: 2,
		Items: []domain.CartLine{{ID: 5, Quantity: 2, Product: domain.Product{ID: 42, Name: "Basmati Rice", Unit: "kg"}}},
	}}
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/cart/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failWith != 0 && r.Method != http.MethodGet {
			w.WriteHeader(f.failWith)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "Only 3 left in stock."})
			return
		}
		switch {
		case r.Method == http.MethodGet:
		case r.Method == http.MethodPost && r.URL.Path == "/api/cart/items/":
			var body struct {
				ProductID int64 `json:"product_id"`
				Quantity  int   `json:"quantity"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.cart.Items = append(f.cart.Items, domain.CartLine{ID: 6, Quantity: body.Quantity, Product: domain.Product{ID: body.ProductID}})
			f.cart.TotalItems = len(f.cart.Items)
			f.cart.TotalQuantity += body.Quantity
		case r.Method == http.MethodPut:
			var body struct {
				Quantity int `json:"quantity"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			f.updates = append(f.updates, r.URL.Path)
			f.cart.Items[0].Quantity = body.Quantity
			f.cart.TotalQuantity = body.Quantity
		case r.Method == http.MethodDelete && r.URL.Path == "/api/cart/clear/":
			f.cart.Items = nil
			f.cart.TotalItems, f.cart.TotalQuantity = 0, 0
		case r.Method == http.MethodDelete:
			f.deleteHit++
		}
		_ = json.NewEncoder(w).Encode(f.cart)
	})
	mux.HandleFunc("/api/products/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(domain.ProductPage{Count: 1, Results: []domain.Product{{ID: 42, Name: "Basmati Rice"}}})
	})
	mux.HandleFunc("/api/products/search/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.searchQ = append(f.searchQ, r.URL.RawQuery)
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(domain.ProductPage{Count: 0, Results: []domain.Product{}})
	})
	mux.HandleFunc("/api/categories/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]domain.Category{{ID: 1, Name: "Grains", Slug: "grains"}})
	})
	return mux
}

type stubSuggestions struct {
	prefix string
	limit  int
	err    error
}

func (s *stubSuggestions) Suggest(_ context.Context, prefix string, limit int) ([]domain.SearchTerm, error) {
	s.prefix, s.limit = prefix, limit
	if s.err != nil {
		return nil, s.err
	}
	return []domain.SearchTerm{{Term: "basmati rice", Hits: 4}}, nil
}

type testEnv struct {
	router   *gin.Engine
	store    *fakeStore
	sessions *session.Manager
}

func newTestEnv(t *testing.T, suggestions SuggestionService) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := newFakeStore()
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)

	sessions := session.NewManager(session.Config{
		BackendURL:     srv.URL,
		RequestTimeout: 2 * time.Second,
		SearchDebounce: 5 * time.Millisecond,
		DiscardStale:   true,
	})
	router, err := buildRouter(zap.NewNop(), nil, Deps{Sessions: sessions, Suggestions: suggestions}, []string{"http://localhost:3000"})
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return &testEnv{router: router, store: store, sessions: sessions}
}

func (e *testEnv) do(method, path, sessionID, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionID != "" {
		req.Header.Set(sessionHeader, sessionID)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) startSession(t *testing.T) string {
	t.Helper()
	rec := e.do(http.MethodPost, "/api/sessions", "", `{"access":"tok"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	t.Cleanup(func() { _ = e.sessions.End(resp.SessionID) })
	return resp.SessionID
}

func decodeCartState(t *testing.T, rec *httptest.ResponseRecorder) cartStateBody {
	t.Helper()
	var st cartStateBody
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode cart state: %v body=%s", err, rec.Body.String())
	}
	return st
}

type cartStateBody struct {
	Cart    *domain.Cart `json:"cart"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error"`
	IsOpen  bool         `json:"is_open"`
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.do(http.MethodGet, "/readyz", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without db, got %d", rec.Code)
	}
}

func TestBuildRouter_RequiresSessions(t *testing.T) {
	if _, err := buildRouter(zap.NewNop(), nil, Deps{}, nil); err == nil {
		t.Fatalf("expected error without session manager")
	}
}

func TestSessionMiddleware_MissingAndUnknown(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodGet, "/api/cart", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rec.Code)
	}
	rec = env.do(http.MethodGet, "/api/cart", "does-not-exist", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown session, got %d", rec.Code)
	}
}

func TestSessionMiddleware_Cookie(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	req := httptest.NewRequest(http.MethodGet, "/api/cart/summary", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: id})
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var summary domain.CartSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary != (domain.CartSummary{TotalItems: 1, TotalQuantity: 2, ItemCount: 1}) {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestStartSession_RequiresAccess(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/sessions", "", `{"refresh":"r"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartSession_LoadsCart(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodGet, "/api/cart", id, "")
	st := decodeCartState(t, rec)
	if st.Cart == nil || st.Cart.TotalQuantity != 2 || st.IsOpen {
		t.Fatalf("unexpected cart state %+v", st)
	}
}

func TestAddLine_OpensPanel(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodPost, "/api/cart/lines", id, `{"product_id":77,"quantity":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	st := decodeCartState(t, rec)
	if !st.IsOpen || st.Cart.TotalQuantity != 5 || len(st.Cart.Items) != 2 {
		t.Fatalf("unexpected cart state %+v", st)
	}
}

func TestAddLine_RejectsZeroQuantity(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodPost, "/api/cart/lines", id, `{"product_id":77,"quantity":0}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestUpdateLine_BackendRejectionKeepsCart(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)
	env.store.mu.Lock()
	env.store.failWith = http.StatusBadRequest
	env.store.mu.Unlock()

	rec := env.do(http.MethodPatch, "/api/cart/lines/5", id, `{"quantity":9}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 passthrough, got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Error string        `json:"error"`
		Cart  cartStateBody `json:"cart"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Only 3 left in stock." || body.Cart.Error != body.Error {
		t.Fatalf("unexpected error body %+v", body)
	}
	if body.Cart.Cart == nil || body.Cart.Cart.TotalQuantity != 2 {
		t.Fatalf("expected previous cart kept, got %+v", body.Cart.Cart)
	}

	rec = env.do(http.MethodDelete, "/api/cart/error", id, "")
	if st := decodeCartState(t, rec); st.Error != "" {
		t.Fatalf("expected error dismissed, got %q", st.Error)
	}
}

func TestDecrementLine_StopsAtOne(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodPost, "/api/cart/lines/5/decrement", id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = env.do(http.MethodPost, "/api/cart/lines/5/decrement", id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	st := decodeCartState(t, rec)
	if st.Cart.Items[0].Quantity != 1 {
		t.Fatalf("expected quantity 1, got %d", st.Cart.Items[0].Quantity)
	}

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	if len(env.store.updates) != 1 {
		t.Fatalf("expected a single update call, got %v", env.store.updates)
	}
}

func TestIncrementLine_UnknownLine(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodPost, "/api/cart/lines/999/increment", id, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = env.do(http.MethodPost, "/api/cart/lines/abc/increment", id, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestRemoveLine_NoLocalCheck(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	for i := 0; i < 2; i++ {
		rec := env.do(http.MethodDelete, "/api/cart/lines/999", id, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	if env.store.deleteHit != 2 {
		t.Fatalf("expected two backend deletes, got %d", env.store.deleteHit)
	}
}

func TestClearCart_AndPanel(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodDelete, "/api/cart/lines", id, "")
	st := decodeCartState(t, rec)
	if st.Cart == nil || len(st.Cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %+v", st.Cart)
	}

	if st := decodeCartState(t, env.do(http.MethodPost, "/api/cart/open", id, "")); !st.IsOpen {
		t.Fatalf("expected open panel")
	}
	if st := decodeCartState(t, env.do(http.MethodPost, "/api/cart/close", id, "")); st.IsOpen {
		t.Fatalf("expected closed panel")
	}
}

func TestAcceptSuggestion_SearchesImmediately(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodPost, "/api/search/suggestions/accept", id, `{"term":"basmati"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	var resp struct {
		State   map[string]interface{} `json:"state"`
		Listing session.View           `json:"listing"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.State["committed_term"] != "basmati" || !resp.Listing.SearchMode {
		t.Fatalf("unexpected search response %s", rec.Body.String())
	}

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	if len(env.store.searchQ) != 1 || !strings.Contains(env.store.searchQ[0], "q=basmati") {
		t.Fatalf("unexpected search calls %v", env.store.searchQ)
	}
}

func TestSetSearchTerm_Debounced(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodPut, "/api/search/term", id, `{"term":"rice"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		sess, err := env.sessions.Get(id)
		if err != nil {
			t.Fatalf("get session: %v", err)
		}
		st := sess.Search.State()
		if st.CommittedTerm == "rice" && !st.IsPending {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("search never settled: %+v", st)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestUpdateAndClearFilters(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodPatch, "/api/search/filters", id, `{"category":"grains","in_stock":true,"page":3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}
	sess, _ := env.sessions.Get(id)
	f := sess.Search.State().Filters
	if f.Category != "grains" || f.InStock == nil || !*f.InStock || f.Page != 3 {
		t.Fatalf("unexpected filters %+v", f)
	}

	rec = env.do(http.MethodPatch, "/api/search/filters", id, `{"in_stock":null}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	f = sess.Search.State().Filters
	if f.InStock != nil || f.Page != 1 || f.Category != "grains" {
		t.Fatalf("unexpected filters after clearing stock %+v", f)
	}

	rec = env.do(http.MethodPatch, "/api/search/filters", id, `{"in_stock":"yes"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = env.do(http.MethodDelete, "/api/search/filters", id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if f := sess.Search.State().Filters; f.Category != "" || f.InStock != nil || f.Page != 1 {
		t.Fatalf("expected cleared filters, got %+v", f)
	}
}

func TestListSuggestions(t *testing.T) {
	sugg := &stubSuggestions{}
	env := newTestEnv(t, sugg)
	id := env.startSession(t)

	rec := env.do(http.MethodGet, "/api/search/suggestions?q=bas&limit=5", id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if sugg.prefix != "bas" || sugg.limit != 5 {
		t.Fatalf("unexpected suggest call prefix=%q limit=%d", sugg.prefix, sugg.limit)
	}
	if !strings.Contains(rec.Body.String(), `"term":"basmati rice"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}

	rec = env.do(http.MethodGet, "/api/search/suggestions?limit=-1", id, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	sugg.err = errors.New("db down")
	rec = env.do(http.MethodGet, "/api/search/suggestions?q=x", id, "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestListCategories(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodGet, "/api/categories", id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"slug":"grains"`) {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestEndSession(t *testing.T) {
	env := newTestEnv(t, nil)
	id := env.startSession(t)

	rec := env.do(http.MethodDelete, "/api/sessions/current", id, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	rec = env.do(http.MethodGet, "/api/cart", id, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}
