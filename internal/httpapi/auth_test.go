package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/gorilla/websocket"
)

func signToken(t *testing.T, secret string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "tester",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func authGet(h http.Handler, path, token string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestAuth_RequiresBearerWhenSecretSet(t *testing.T) {
	SetAuthSecret("top-secret")
	defer SetAuthSecret("")
	r := NewMux(newMockService())

	if code := authGet(r, "/v1/models", ""); code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", code)
	}
	if code := authGet(r, "/v1/models", "garbage"); code != http.StatusUnauthorized {
		t.Fatalf("malformed token: %d", code)
	}
	wrong := signToken(t, "other-secret", jwt.SigningMethodHS256, time.Now().Add(time.Hour))
	if code := authGet(r, "/v1/models", wrong); code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: %d", code)
	}
	expired := signToken(t, "top-secret", jwt.SigningMethodHS256, time.Now().Add(-time.Hour))
	if code := authGet(r, "/v1/models", expired); code != http.StatusUnauthorized {
		t.Fatalf("expired token: %d", code)
	}
	hs512 := signToken(t, "top-secret", jwt.SigningMethodHS512, time.Now().Add(time.Hour))
	if code := authGet(r, "/v1/models", hs512); code != http.StatusUnauthorized {
		t.Fatalf("unexpected alg accepted: %d", code)
	}
	good := signToken(t, "top-secret", jwt.SigningMethodHS256, time.Now().Add(time.Hour))
	if code := authGet(r, "/v1/models", good); code != http.StatusOK {
		t.Fatalf("valid token: %d", code)
	}
}

func TestAuth_OpenRoutes(t *testing.T) {
	SetAuthSecret("top-secret")
	defer SetAuthSecret("")
	r := NewMux(newMockService())
	for _, p := range []string{"/v1", "/v1/health", "/healthz", "/readyz"} {
		if code := authGet(r, p, ""); code != http.StatusOK {
			t.Fatalf("%s: %d", p, code)
		}
	}
}

func TestAuth_DisabledByDefault(t *testing.T) {
	SetAuthSecret("")
	if code := authGet(NewMux(newMockService()), "/v1/models", ""); code != http.StatusOK {
		t.Fatalf("status=%d", code)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := bearerToken(req); ok {
		t.Fatal("expected no token")
	}
	req.Header.Set("Authorization", "bearer  abc ")
	if tok, ok := bearerToken(req); !ok || tok != "abc" {
		t.Fatalf("got %q %v", tok, ok)
	}
	req.Header.Set("Authorization", "Basic abc")
	if _, ok := bearerToken(req); ok {
		t.Fatal("basic auth accepted as bearer")
	}
}

func TestAuth_WebSocketQueryToken(t *testing.T) {
	SetAuthSecret("top-secret")
	defer SetAuthSecret("")
	srv := httptest.NewServer(NewMux(newMockService().withLoadedModel("opt")))
	defer srv.Close()
	base := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/models/opt/chat/ws"

	if _, resp, err := websocket.DefaultDialer.Dial(base, nil); err == nil || resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("upgrade without token: err=%v resp=%v", err, resp)
	}
	good := signToken(t, "top-secret", jwt.SigningMethodHS256, time.Now().Add(time.Hour))
	conn, _, err := websocket.DefaultDialer.Dial(base+"?access_token="+good, nil)
	if err != nil {
		t.Fatalf("upgrade with query token: %v", err)
	}
	_ = conn.Close()

	// the query form is only honoured on websocket upgrades
	if code := authGet(NewMux(newMockService()), "/v1/models?access_token="+good, ""); code != http.StatusUnauthorized {
		t.Fatalf("plain request with query token: %d", code)
	}
}
