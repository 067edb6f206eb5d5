package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ltphongssvn/autoloan-auth/internal/auth/service"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store/drivers/sqlite"
	"github.com/ltphongssvn/autoloan-auth/pkg/cryptox"
	"github.com/ltphongssvn/autoloan-auth/pkg/httpx"
	"github.com/ltphongssvn/autoloan-auth/pkg/jwtx"
	"github.com/stretchr/testify/require"

	"io"
	"log/slog"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "autoloan-auth-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestServer(t *testing.T) (*httptest.Server, *service.AuthService) {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	signer, err := jwtx.NewSignerHS256([]byte(testSecret))
	require.NoError(t, err)
	verifier, err := jwtx.NewVerifierHS256([]byte(testSecret), "autoloan-auth")
	require.NoError(t, err)

	mfa := &service.MFAService{Store: st, Issuer: "autoloan-auth"}
	auth := &service.AuthService{
		Store:       st,
		Revocations: st.Revocations(),
		Signer:      signer,
		Verifier:    verifier,
		MFA:         mfa,
		Notifier:    &service.LogNotifier{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))},
		Issuer:      "autoloan-auth",
		AccessTTL:   time.Hour,
	}

	router := NewRouter(
		verifier,
		st.Revocations(),
		httpx.NewRateWindowTracker(httpx.DefaultRateWindowLimit),
		"test",
		st,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	router.AuthService = auth
	router.MFAService = mfa
	router.ApplyRoutes()

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return srv, auth
}

// postJSON sends a request with a distinct forwarded-for address so the
// burst limiter never couples unrelated test requests.
func postJSON(t *testing.T, srv *httptest.Server, path, clientIP string, body any, token string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Forwarded-For", clientIP)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func getJSON(t *testing.T, srv *httptest.Server, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

func TestSignupLoginMe(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp := postJSON(t, srv, "/v1/auth/signup", "10.0.0.1", map[string]string{
		"email":     "alice@example.com",
		"full_name": "Alice Smith",
		"password":  "correct horse battery",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	require.Equal(t, "Bearer", body["token_type"])

	t.Run("me returns the profile", func(t *testing.T) {
		resp := getJSON(t, srv, "/v1/me", token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		me := decodeBody(t, resp)
		require.Equal(t, "alice@example.com", me["email"])
		require.Equal(t, "CUSTOMER", me["role"])
		require.Equal(t, false, me["mfa_enabled"])
	})

	t.Run("me without a token is rejected", func(t *testing.T) {
		resp := getJSON(t, srv, "/v1/me", "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("login issues a token", func(t *testing.T) {
		resp := postJSON(t, srv, "/v1/auth/login", "10.0.0.2", map[string]string{
			"email":    "alice@example.com",
			"password": "correct horse battery",
		}, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := decodeBody(t, resp)
		require.NotEmpty(t, body["access_token"])
	})

	t.Run("wrong password is a 401", func(t *testing.T) {
		resp := postJSON(t, srv, "/v1/auth/login", "10.0.0.3", map[string]string{
			"email":    "alice@example.com",
			"password": "nope",
		}, "")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		body := decodeBody(t, resp)
		require.Equal(t, "invalid_credentials", body["error"])
	})
}

func TestLogoutRevokesAccess(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp := postJSON(t, srv, "/v1/auth/signup", "10.0.1.1", map[string]string{
		"email":    "bob@example.com",
		"password": "a long enough password",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	token, _ := decodeBody(t, resp)["access_token"].(string)

	// Token works before logout.
	meResp := getJSON(t, srv, "/v1/me", token)
	require.Equal(t, http.StatusOK, meResp.StatusCode)
	meResp.Body.Close()

	logoutResp := postJSON(t, srv, "/v1/auth/logout", "10.0.1.1", nil, token)
	require.Equal(t, http.StatusNoContent, logoutResp.StatusCode)
	logoutResp.Body.Close()

	// Same token is now refused everywhere.
	meResp = getJSON(t, srv, "/v1/me", token)
	require.Equal(t, http.StatusUnauthorized, meResp.StatusCode)
	meResp.Body.Close()

	t.Run("but refresh still accepts it", func(t *testing.T) {
		resp := postJSON(t, srv, "/v1/auth/refresh", "10.0.1.2", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		fresh, _ := decodeBody(t, resp)["access_token"].(string)
		require.NotEmpty(t, fresh)
		require.NotEqual(t, token, fresh)

		meResp := getJSON(t, srv, "/v1/me", fresh)
		require.Equal(t, http.StatusOK, meResp.StatusCode)
		meResp.Body.Close()
	})
}

func TestAccountLockoutOverHTTP(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp := postJSON(t, srv, "/v1/auth/signup", "10.0.2.1", map[string]string{
		"email":    "carol@example.com",
		"password": "the real password",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// Five failures from distinct client addresses (the burst limiter
	// would otherwise trip before the lockout does).
	for i := 0; i < 5; i++ {
		resp := postJSON(t, srv, "/v1/auth/login", fmt.Sprintf("10.0.2.%d", 10+i), map[string]string{
			"email":    "carol@example.com",
			"password": "wrong",
		}, "")
		if i < 4 {
			require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		} else {
			require.Equal(t, http.StatusLocked, resp.StatusCode)
		}
		resp.Body.Close()
	}

	// Correct password while locked still yields 423.
	lockedResp := postJSON(t, srv, "/v1/auth/login", "10.0.2.20", map[string]string{
		"email":    "carol@example.com",
		"password": "the real password",
	}, "")
	require.Equal(t, http.StatusLocked, lockedResp.StatusCode)

	body := decodeBody(t, lockedResp)
	require.Equal(t, "account_locked", body["error"])
}

func TestScopeDenial(t *testing.T) {
	t.Parallel()

	srv, auth := newTestServer(t)

	// A token signed with the right secret but without profile:read.
	claims := jwtx.NewAccessClaims("someone", "x@y.com", "CUSTOMER",
		[]string{"application:read"}, time.Hour, "autoloan-auth", time.Now())
	token, err := auth.Signer.Sign(claims)
	require.NoError(t, err)

	resp := getJSON(t, srv, "/v1/me", token)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	body := decodeBody(t, resp)
	require.Equal(t, "insufficient_scope", body["error"])
}

func TestRateWindowHeaders(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp := getJSON(t, srv, "/livez", "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, "60", resp.Header.Get("X-RateLimit-Limit"))
	require.Equal(t, "59", resp.Header.Get("X-RateLimit-Remaining"))
	require.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
}

func TestRecoveryEnumerationSafety(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	resp := postJSON(t, srv, "/v1/auth/signup", "10.0.3.1", map[string]string{
		"email":    "dave@example.com",
		"password": "some password here",
	}, "")
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	known := postJSON(t, srv, "/v1/auth/password/forgot", "10.0.3.2",
		map[string]string{"email": "dave@example.com"}, "")
	unknown := postJSON(t, srv, "/v1/auth/password/forgot", "10.0.3.3",
		map[string]string{"email": "ghost@example.com"}, "")

	require.Equal(t, http.StatusOK, known.StatusCode)
	require.Equal(t, http.StatusOK, unknown.StatusCode)

	knownBody := decodeBody(t, known)
	unknownBody := decodeBody(t, unknown)
	require.Equal(t, knownBody["message"], unknownBody["message"])

	t.Run("bad reset token is a 404", func(t *testing.T) {
		resp := postJSON(t, srv, "/v1/auth/password/reset", "10.0.3.4", map[string]string{
			"token":    "bogus",
			"password": "new password",
		}, "")
		require.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp.Body.Close()
	})
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	live := getJSON(t, srv, "/livez", "")
	require.Equal(t, http.StatusOK, live.StatusCode)
	require.Equal(t, "ok", decodeBody(t, live)["status"])

	ready := getJSON(t, srv, "/readyz", "")
	require.Equal(t, http.StatusOK, ready.StatusCode)
	require.Equal(t, "ok", decodeBody(t, ready)["status"])
}
