package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/devfolio/devfolio-server/internal/security"
)

type authData struct {
	TokenID string `json:"token_id"`
	User    struct {
		ID      uint   `json:"id"`
		LoginID string `json:"login_id"`
	} `json:"user"`
}

func decodeAuthData(t *testing.T, env envelope) authData {
	t.Helper()
	var data authData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode auth payload: %v", err)
	}
	return data
}

func signupAndLogin(t *testing.T, ts *testServer, loginID, password string) (authData, []*http.Cookie) {
	t.Helper()
	status, _, _ := ts.doJSON(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"login_id": loginID,
		"password": password,
		"email":    loginID + "@example.com",
		"nickname": "Tester",
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", status)
	}

	status, env, cookies := ts.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"login_id": loginID,
		"password": password,
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", status)
	}
	return decodeAuthData(t, env), cookies
}

func TestTokenRotationLifecycle(t *testing.T) {
	ts := newTestServer(t)
	first, cookies := signupAndLogin(t, ts, "rotation-user", "hunter22hunter22")

	rt1 := cookieNamed(cookies, security.RefreshTokenCookie)
	if rt1 == nil || rt1.Value == "" {
		t.Fatal("login must set the refresh cookie")
	}

	status, env, _ := ts.doJSON(t, http.MethodGet, "/api/me", nil, nil)
	if status != http.StatusOK || !env.Success {
		t.Fatalf("/api/me with session cookie: expected 200, got %d", status)
	}

	status, env, cookies = ts.doJSON(t, http.MethodPost, "/api/auth/refresh", nil, map[string]string{
		security.TokenIDHeader: first.TokenID,
	})
	if status != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d", status)
	}
	second := decodeAuthData(t, env)
	if second.TokenID == first.TokenID {
		t.Fatal("rotation must issue a fresh token id")
	}
	rt2 := cookieNamed(cookies, security.RefreshTokenCookie)
	if rt2 == nil || rt2.Value == rt1.Value {
		t.Fatal("rotation must issue a fresh refresh secret")
	}

	// The consumed credential is dead even with the correct secret.
	status, env = ts.doBare(t, http.MethodPost, "/api/auth/refresh",
		map[string]string{security.TokenIDHeader: first.TokenID},
		[]*http.Cookie{{Name: security.RefreshTokenCookie, Value: rt1.Value}})
	if status != http.StatusUnauthorized {
		t.Fatalf("replayed refresh: expected 401, got %d", status)
	}
	if env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("replayed refresh: expected UNAUTHORIZED, got %+v", env.Error)
	}

	// The rotated credential still works.
	status, env, cookies = ts.doJSON(t, http.MethodPost, "/api/auth/refresh", nil, map[string]string{
		security.TokenIDHeader: second.TokenID,
	})
	if status != http.StatusOK {
		t.Fatalf("rotated refresh: expected 200, got %d", status)
	}
	third := decodeAuthData(t, env)
	rt3 := cookieNamed(cookies, security.RefreshTokenCookie)

	status, _, _ = ts.doJSON(t, http.MethodPost, "/api/auth/logout", nil, map[string]string{
		security.TokenIDHeader: third.TokenID,
	})
	if status != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", status)
	}

	status, _ = ts.doBare(t, http.MethodPost, "/api/auth/refresh",
		map[string]string{security.TokenIDHeader: third.TokenID},
		[]*http.Cookie{{Name: security.RefreshTokenCookie, Value: rt3.Value}})
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", status)
	}
}

func TestForgedRefreshSecretBurnsCredential(t *testing.T) {
	ts := newTestServer(t)
	first, cookies := signupAndLogin(t, ts, "burned-user", "hunter22hunter22")
	rt1 := cookieNamed(cookies, security.RefreshTokenCookie)

	status, _ := ts.doBare(t, http.MethodPost, "/api/auth/refresh",
		map[string]string{security.TokenIDHeader: first.TokenID},
		[]*http.Cookie{{Name: security.RefreshTokenCookie, Value: "not-the-secret"}})
	if status != http.StatusUnauthorized {
		t.Fatalf("forged refresh: expected 401, got %d", status)
	}

	// Presenting the wrong secret consumed the row, so the real secret is
	// dead too.
	status, _ = ts.doBare(t, http.MethodPost, "/api/auth/refresh",
		map[string]string{security.TokenIDHeader: first.TokenID},
		[]*http.Cookie{{Name: security.RefreshTokenCookie, Value: rt1.Value}})
	if status != http.StatusUnauthorized {
		t.Fatalf("refresh after burn: expected 401, got %d", status)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	ts := newTestServer(t)
	signupAndLogin(t, ts, "real-user", "hunter22hunter22")

	wrongPass, envA := ts.loginAttempt(t, "real-user", "wrong-password-1")
	unknown, envB := ts.loginAttempt(t, "no-such-user", "wrong-password-1")

	if wrongPass != http.StatusUnauthorized || unknown != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPass, unknown)
	}
	if envA.Error == nil || envB.Error == nil {
		t.Fatal("both failures must carry an error envelope")
	}
	if envA.Error.Code != envB.Error.Code || envA.Error.Message != envB.Error.Message {
		t.Fatalf("failure envelopes must match: %+v vs %+v", envA.Error, envB.Error)
	}
}

func (ts *testServer) loginAttempt(t *testing.T, loginID, password string) (int, envelope) {
	t.Helper()
	status, env, _ := ts.doJSON(t, http.MethodPost, "/api/auth/login", map[string]string{
		"login_id": loginID,
		"password": password,
	}, nil)
	return status, env
}

func TestSignupDuplicateLoginID(t *testing.T) {
	ts := newTestServer(t)
	signupAndLogin(t, ts, "dupe-user", "hunter22hunter22")

	status, env, _ := ts.doJSON(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"login_id": "dupe-user",
		"password": "hunter22hunter22",
		"email":    "other@example.com",
		"nickname": "Other",
	}, nil)
	if status != http.StatusConflict {
		t.Fatalf("duplicate signup: expected 409, got %d", status)
	}
	if env.Error == nil || env.Error.Code != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %+v", env.Error)
	}
}
