package handler_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/msomdec/cool-todo/internal/handler"
	"github.com/msomdec/cool-todo/internal/repository/sqlite"
	"github.com/msomdec/cool-todo/internal/service"
	"github.com/msomdec/cool-todo/internal/session"
	"github.com/msomdec/cool-todo/internal/tasklist"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

// captureMailer records reset links instead of sending them.
type captureMailer struct {
	mu    sync.Mutex
	links map[string]string
}

func (m *captureMailer) SendPasswordReset(_ context.Context, email, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.links == nil {
		m.links = make(map[string]string)
	}
	m.links[email] = link
	return nil
}

func (m *captureMailer) token(t *testing.T, email string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	link, ok := m.links[email]
	if !ok {
		t.Fatalf("no reset mail sent to %s", email)
	}
	return link[strings.LastIndex(link, "/")+1:]
}

type testApp struct {
	srv    *httptest.Server
	mailer *captureMailer
	views  *tasklist.Registry
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithLimiter(t, service.NewTokenBucket(100, 100))
}

func newTestAppWithLimiter(t *testing.T, limiter *service.TokenBucket) *testApp {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	mailer := &captureMailer{}
	auth := service.NewAuthService(db.Accounts(), db.Users(), db.Sessions(), db.PasswordResets(), mailer, service.AuthOptions{
		JWTSecret:  testJWTSecret,
		BcryptCost: 4,
		BaseURL:    "http://localhost:8080",
	})
	tasks := service.NewTaskStore(db.Tasks())
	views := tasklist.NewRegistry(tasks)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Deps{
		Auth:     auth,
		Accounts: service.NewAccountService(auth, db.Users()),
		Tasks:    tasks,
		Views:    views,
		Gate:     session.NewGate(auth),
		Limiter:  limiter,
		DB:       db.SqlDB,
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &testApp{srv: srv, mailer: mailer, views: views}
}

// newClient returns a client with its own cookie jar that does not follow
// redirects.
func (a *testApp) newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("create cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// do sends a request and returns the status and the whole body.
func (a *testApp) do(t *testing.T, client *http.Client, method, path string, body any, datastarRequest bool) (*http.Response, string) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if datastarRequest {
		req.Header.Set("Datastar-Request", "true")
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(b)
}

// action posts a datastar action carrying signals.
func (a *testApp) action(t *testing.T, client *http.Client, method, path string, signals any) string {
	t.Helper()
	if signals == nil {
		signals = map[string]any{}
	}
	resp, body := a.do(t, client, method, path, signals, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s %s: expected 200, got %d: %s", method, path, resp.StatusCode, body)
	}
	return body
}

func formSignals(name string, values map[string]string) map[string]any {
	return map[string]any{name: map[string]any{"values": values}}
}

// register creates an account through the JSON API, leaving client signed in.
func (a *testApp) register(t *testing.T, client *http.Client, email, username string) {
	t.Helper()
	resp, body := a.do(t, client, http.MethodPost, "/api/auth/register", map[string]string{
		"fullName":        "Ada Lovelace",
		"email":           email,
		"username":        username,
		"password":        "Secret1!",
		"confirmPassword": "Secret1!",
	}, false)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", resp.StatusCode, body)
	}
}

func hasAuthCookie(resp *http.Response) bool {
	for _, c := range resp.Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			return true
		}
	}
	return false
}

func assertContains(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q, got:\n%s", want, body)
		}
	}
}

// readUntil reads stream lines until one contains want.
func readUntil(t *testing.T, r *bufio.Reader, want string) {
	t.Helper()
	for {
		line, err := r.ReadString('\n')
		if strings.Contains(line, want) {
			return
		}
		if err != nil {
			t.Fatalf("stream ended before %q: %v", want, err)
		}
	}
}
