package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"gorm.io/gorm"

	"github.com/devfolio/devfolio-server/internal/app"
	"github.com/devfolio/devfolio-server/internal/config"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type testServer struct {
	URL    string
	Client *http.Client
	DB     *gorm.DB
}

// newTestServer boots the fully wired application against a per-test sqlite
// database and an in-process redis, and serves it over httptest.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.Config{
		Profile:          "test",
		HTTPAddr:         "127.0.0.1:0",
		DatabaseDSN:      "file:" + t.Name() + "?mode=memory&cache=shared",
		RedisAddr:        mr.Addr(),
		JWTIssuer:        "devfolio-test",
		JWTSecret:        "abcdefghijklmnopqrstuvwxyz123456",
		RefreshPepper:    "pepper-pepper-pepper-pepper-1234",
		AccessTokenTTL:   30 * time.Minute,
		RefreshTokenTTL:  14 * 24 * time.Hour,
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
		ReapInterval:     time.Hour,
		SearchCacheTTL:   30 * time.Second,
		ShutdownTimeout:  time.Second,
	}

	a, err := app.Build(context.Background(), cfg, slog.Default(), nil)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	if err := app.Migrate(a.DB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	srv := httptest.NewServer(a.Server.Handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testServer{
		URL:    srv.URL,
		Client: &http.Client{Jar: jar, CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }},
		DB:     a.DB,
	}
}

// doJSON performs one request with the server's cookie jar and decodes the
// response envelope. Cookies set by the response are also returned raw so a
// test can replay stale credentials later.
func (ts *testServer) doJSON(t *testing.T, method, path string, body any, headers map[string]string) (int, envelope, []*http.Cookie) {
	t.Helper()

	var rd *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rd = bytes.NewReader(payload)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := ts.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return resp.StatusCode, env, resp.Cookies()
}

// doBare sends a request without the shared jar so tests control exactly
// which cookies travel.
func (ts *testServer) doBare(t *testing.T, method, path string, headers map[string]string, cookies []*http.Cookie) (int, envelope) {
	t.Helper()

	req, err := http.NewRequest(method, ts.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return resp.StatusCode, env
}

func cookieNamed(cookies []*http.Cookie, name string) *http.Cookie {
	for _, c := range cookies {
		if c.Name == name {
			return c
		}
	}
	return nil
}
