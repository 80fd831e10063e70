package httpapi

import (
	"bytes"
	"net/http"
	"testing"
)

// The request counter is labeled with the chi route pattern, not the raw path.
func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := NewMux(newMockService())
	if w := doJSON(t, r, http.MethodGet, "/v1/models/some-model", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	body := scrape(t)
	if !bytes.Contains(body, []byte(`path="/v1/models/{name}"`)) {
		t.Fatalf("expected route pattern label; got: %q", preview(body))
	}
	if bytes.Contains(body, []byte(`path="/v1/models/some-model"`)) {
		t.Fatal("raw path leaked into metric labels")
	}
}
