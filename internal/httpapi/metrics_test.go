package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) []byte {
	t.Helper()
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	return rr.Body.Bytes()
}

func preview(b []byte) string {
	if len(b) > 400 {
		b = b[:400]
	}
	return string(b)
}

func TestMetricsMiddleware_EmitsRequestCounters(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	rr := httptest.NewRecorder()
	MetricsMiddleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/test", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	body := scrape(t)
	if !bytes.Contains(body, []byte("frequency_http_requests_total")) {
		t.Fatalf("expected frequency_http_requests_total in metrics; got: %q", preview(body))
	}
}

func TestMetricsEndpoint_CountsStreamedTokens(t *testing.T) {
	r := NewMux(newMockService().withLoadedModel("opt"))
	w := doJSON(t, r, http.MethodPost, "/v1/models/opt/chat", `{"query":"one two","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("chat: %d", w.Code)
	}
	w = doJSON(t, r, http.MethodGet, "/metrics", "")
	if !bytes.Contains(w.Body.Bytes(), []byte(`frequency_http_streamed_tokens_total{transport="ndjson"}`)) {
		t.Fatalf("streamed token counter missing: %q", preview(w.Body.Bytes()))
	}
}
