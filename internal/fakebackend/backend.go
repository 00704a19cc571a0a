// Package fakebackend runs an in-process imitation of the academy REST
// backend for tests: token issuance, the auth endpoints, generic collection
// CRUD and the attendance extras. Every request is recorded.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const prefix = "/api"

// Call is one recorded request. Path excludes the /api prefix and keeps the
// query string.
type Call struct {
	Method string
	Path   string
	Body   string
}

type account struct {
	ID        int
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Joined    time.Time
	LastLogin *time.Time
}

type failure struct {
	status int
	times  int // <= 0 means always
}

type Backend struct {
	server *httptest.Server
	secret []byte

	mu          sync.Mutex
	accounts    map[string]*account // username -> account
	access      map[string]string   // access token -> username
	refresh     map[string]string   // refresh token -> username
	collections map[string]map[string]map[string]any
	calls       []Call
	failures    map[string]*failure // "METHOD path" -> injected failure
	refreshGate chan struct{}
	nextUserID  int
}

// New starts a backend and stops it when the test ends.
func New(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		secret:      []byte("fake-backend-secret"),
		accounts:    make(map[string]*account),
		access:      make(map[string]string),
		refresh:     make(map[string]string),
		collections: make(map[string]map[string]map[string]any),
		failures:    make(map[string]*failure),
		nextUserID:  1,
	}
	b.server = httptest.NewServer(b.router())
	t.Cleanup(b.server.Close)
	return b
}

// URL is the base URL clients are configured with (".../api").
func (b *Backend) URL() string {
	return b.server.URL + prefix
}

func (b *Backend) Close() {
	b.server.Close()
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record, b.inject)

	r.Route(prefix, func(r chi.Router) {
		r.Post("/auth/register/", b.handleRegister)
		r.Post("/auth/login/", b.handleLogin)
		r.Post("/auth/refresh/", b.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(b.requireAuth)
			r.Post("/auth/logout/", b.handleLogout)
			r.Get("/auth/me/", b.handleMe)
			r.Patch("/auth/me/update/", b.handleUpdateMe)
			r.Post("/auth/me/change-password/", b.handleChangePassword)
			r.Get("/auth/menus/", b.handleList("menus"))

			r.Get("/matriculas/vigentes/", b.handleVigentes)
			r.Get("/matriculas/con_deuda/", b.handleConDeuda)
			r.Get("/matriculas/{id}/estado_cuenta/", b.handleEstadoCuenta)
			r.Post("/asistencias/batch/", b.handleBatch)

			r.Get("/{collection}/", b.handleCollectionList)
			r.Post("/{collection}/", b.handleCreate)
			r.Get("/{collection}/{id}/", b.handleGet)
			r.Patch("/{collection}/{id}/", b.handlePatch)
			r.Delete("/{collection}/{id}/", b.handleDelete)
		})
	})
	return r
}

// Middleware

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		b.mu.Lock()
		b.calls = append(b.calls, Call{
			Method: r.Method,
			Path:   strings.TrimPrefix(r.URL.RequestURI(), prefix),
			Body:   string(body),
		})
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + strings.TrimPrefix(r.URL.Path, prefix)
		b.mu.Lock()
		f, ok := b.failures[key]
		if ok && f.times > 0 {
			f.times--
			if f.times == 0 {
				delete(b.failures, key)
			}
		}
		b.mu.Unlock()
		if ok {
			writeJSON(w, f.status, map[string]string{"detail": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		b.mu.Lock()
		username, ok := b.access[raw]
		b.mu.Unlock()
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Given token not valid for any token type", "code": "token_not_valid"})
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), username)))
	})
}

// Test controls

// Fail makes METHOD path answer status. times <= 0 fails every call.
func (b *Backend) Fail(method, path string, status, times int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures[method+" "+path] = &failure{status: status, times: times}
}

// Calls returns a copy of the recorded requests.
func (b *Backend) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// Count counts recorded calls for METHOD path (query string ignored).
func (b *Backend) Count(method, path string) int {
	n := 0
	for _, c := range b.Calls() {
		p, _, _ := strings.Cut(c.Path, "?")
		if c.Method == method && p == path {
			n++
		}
	}
	return n
}

func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = nil
}

// ExpireAccessTokens invalidates every issued access token, as if they had
// all reached their expiry.
func (b *Backend) ExpireAccessTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.access = make(map[string]string)
}

// RevokeRefreshTokens invalidates every issued refresh token.
func (b *Backend) RevokeRefreshTokens() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refresh = make(map[string]string)
}

// HoldRefresh makes /auth/refresh/ wait until the returned release func is
// called.
func (b *Backend) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	b.mu.Lock()
	b.refreshGate = gate
	b.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			b.refreshGate = nil
			b.mu.Unlock()
			close(gate)
		})
	}
}

// AddUser creates an account directly.
func (b *Backend) AddUser(username, email, password string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addAccount(username, email, password, "", "").ID
}

// IssueTokens logs username in without an HTTP call.
func (b *Backend) IssueTokens(username string) (access, refresh string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issue(username)
}

// Seed stores items in collection, keyed by their "id". Items without one
// get a uuid.
func (b *Backend) Seed(collection string, items ...map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range items {
		b.put(collection, item)
	}
}

// Items returns the stored items of collection sorted by id.
func (b *Backend) Items(collection string) []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sorted(collection, nil)
}

// Item returns one stored item or nil.
func (b *Backend) Item(collection, id string) map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if item, ok := b.collections[collection][id]; ok {
		return clone(item)
	}
	return nil
}

// Internals (callers hold b.mu)

func (b *Backend) addAccount(username, email, password, first, last string) *account {
	acc := &account{
		ID:        b.nextUserID,
		Username:  username,
		Email:     email,
		Password:  password,
		FirstName: first,
		LastName:  last,
		Joined:    time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	b.nextUserID++
	b.accounts[username] = acc
	return acc
}

func (b *Backend) issue(username string) (string, string) {
	acc := b.accounts[username]
	id := 0
	if acc != nil {
		id = acc.ID
		now := time.Now().UTC()
		acc.LastLogin = &now
	}
	access := b.sign("access", id, 5*time.Minute)
	refresh := b.sign("refresh", id, 24*time.Hour)
	b.access[access] = username
	b.refresh[refresh] = username
	return access, refresh
}

func (b *Backend) sign(kind string, userID int, ttl time.Duration) string {
	claims := jwt.MapClaims{
		"token_type": kind,
		"user_id":    userID,
		"jti":        uuid.New().String(),
		"exp":        time.Now().Add(ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		panic(fmt.Sprintf("fakebackend: sign token: %v", err))
	}
	return signed
}

func (b *Backend) put(collection string, item map[string]any) map[string]any {
	item = clone(item)
	id := fmt.Sprint(item["id"])
	if item["id"] == nil || id == "" {
		id = uuid.New().String()
		item["id"] = id
	}
	if b.collections[collection] == nil {
		b.collections[collection] = make(map[string]map[string]any)
	}
	b.collections[collection][id] = item
	return clone(item)
}

// sorted lists a collection keeping items matching every filter.
func (b *Backend) sorted(collection string, filters map[string]string) []map[string]any {
	out := make([]map[string]any, 0)
	for _, item := range b.collections[collection] {
		if matches(item, filters) {
			out = append(out, clone(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]["id"]) < fmt.Sprint(out[j]["id"])
	})
	return out
}

func matches(item map[string]any, filters map[string]string) bool {
	for k, v := range filters {
		if fmt.Sprint(item[k]) != v {
			return false
		}
	}
	return true
}

func clone(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
