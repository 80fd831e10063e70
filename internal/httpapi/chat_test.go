package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"frequency/internal/manager"
	"frequency/pkg/types"
)

func readLines(t *testing.T, body *bytes.Buffer) []types.ChatStreamLine {
	t.Helper()
	var out []types.ChatStreamLine
	sc := bufio.NewScanner(body)
	for sc.Scan() {
		var l types.ChatStreamLine
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("bad ndjson line %q: %v", sc.Text(), err)
		}
		out = append(out, l)
	}
	return out
}

func TestChat_JSON(t *testing.T) {
	svc := newMockService().withLoadedModel("opt")
	body := `{"query":"hello there","history":[{"query":"hi","response":"hey"}],"adapters":["lora"],"temperature":0.5}`
	w := doJSON(t, NewMux(svc), http.MethodPost, "/v1/models/opt/chat", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("content-type=%q", ct)
	}
	var res types.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.HasPrefix(res.ID, "chatcmpl-") {
		t.Fatalf("id=%q", res.ID)
	}
	if res.Text != "hello there" || res.Adapter != "lora" || res.FinishReason != "stop" {
		t.Fatalf("unexpected response: %+v", res)
	}
	if len(res.History) != 2 || res.History[1].Query != "hello there" {
		t.Fatalf("history not extended: %+v", res.History)
	}
	if res.Usage.TotalTokens != 4 {
		t.Fatalf("usage=%+v", res.Usage)
	}
	if svc.lastGen.Params.Temperature != 0.5 || svc.lastGen.Model != "opt" {
		t.Fatalf("request not forwarded: %+v", svc.lastGen)
	}
}

func TestChat_Errors(t *testing.T) {
	r := NewMux(newMockService().withLoadedModel("opt"))
	cases := []struct {
		path, body string
		code       int
	}{
		{"/v1/models/opt/chat", `{"query":"  "}`, http.StatusBadRequest},
		{"/v1/models/nope/chat", `{"query":"hi"}`, http.StatusConflict},
		{"/v1/models/opt/chat", `{"query":"hi","adapters":["a","b"]}`, http.StatusBadRequest},
		{"/v1/models/opt/chat", `{"query":"hi","stream":true,"adapters":["a","b"]}`, http.StatusBadRequest},
	}
	for _, c := range cases {
		w := doJSON(t, r, http.MethodPost, c.path, c.body)
		if w.Code != c.code {
			t.Fatalf("%s %s: got %d want %d", c.path, c.body, w.Code, c.code)
		}
		if e := decodeError(t, w); e.Code != c.code || e.Error == "" {
			t.Fatalf("error body: %+v", e)
		}
	}
}

func TestChat_StreamNDJSON(t *testing.T) {
	r := NewMux(newMockService().withLoadedModel("opt"))
	w := doJSON(t, r, http.MethodPost, "/v1/models/opt/chat", `{"query":"a b c","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("content-type=%q", ct)
	}
	lines := readLines(t, w.Body)
	if len(lines) != 4 {
		t.Fatalf("expected 3 tokens and a done line, got %d: %+v", len(lines), lines)
	}
	for i, want := range []string{"a", "b", "c"} {
		if lines[i].Token != want || lines[i].Done {
			t.Fatalf("line %d = %+v", i, lines[i])
		}
		if lines[i].ID != lines[0].ID {
			t.Fatal("ids differ across one stream")
		}
	}
	last := lines[3]
	if !last.Done || last.Text != "a b c" || last.Usage == nil || len(last.History) != 1 {
		t.Fatalf("done line: %+v", last)
	}
}

func TestChat_StreamErrorMidway(t *testing.T) {
	svc := newMockService().withLoadedModel("opt")
	svc.genErr = errors.New("decoder exploded")
	svc.genErrAfter = 1
	w := doJSON(t, NewMux(svc), http.MethodPost, "/v1/models/opt/chat", `{"query":"a b c","stream":true}`)
	if w.Code != http.StatusOK {
		t.Fatalf("headers were already sent; status=%d", w.Code)
	}
	lines := readLines(t, w.Body)
	if len(lines) != 2 || lines[0].Token != "a" {
		t.Fatalf("lines: %+v", lines)
	}
	if lines[1].Error != "decoder exploded" || lines[1].Code != http.StatusInternalServerError {
		t.Fatalf("error line: %+v", lines[1])
	}
}

func TestChat_StreamErrorBeforeFirstToken(t *testing.T) {
	svc := newMockService().withLoadedModel("opt")
	svc.genErr = manager.ErrAdapterNotAttached("opt", "lora")
	w := doJSON(t, NewMux(svc), http.MethodPost, "/v1/models/opt/chat", `{"query":"a b","stream":true}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if e := decodeError(t, w); e.Code != http.StatusNotFound {
		t.Fatalf("error body: %+v", e)
	}
}

func TestChat_DebugLogsStreamLines(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(newBufferLogger(&buf))
	defer func() { zlog = nil }()

	req := httptest.NewRequest(http.MethodPost, "/v1/models/opt/chat?log=debug", strings.NewReader(`{"query":"hi","stream":true}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	NewMux(newMockService().withLoadedModel("opt")).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	out := buf.String()
	if !strings.Contains(out, "chat start") || !strings.Contains(out, "chat end") || !strings.Contains(out, "chat> ") {
		t.Fatalf("log output: %q", out)
	}
}

func TestChat_CanceledRequestLogsEnd(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(newBufferLogger(&buf))
	defer func() { zlog = nil }()

	for _, body := range []string{`{"query":"hi"}`, `{"query":"hi","stream":true}`} {
		buf.Reset()
		svc := newMockService().withLoadedModel("opt")
		svc.genErr = context.Canceled
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		req := httptest.NewRequest(http.MethodPost, "/v1/models/opt/chat?log=info", strings.NewReader(body)).WithContext(ctx)
		req.Header.Set("Content-Type", "application/json")
		NewMux(svc).ServeHTTP(httptest.NewRecorder(), req)

		out := buf.String()
		if !strings.Contains(out, "chat end") || !strings.Contains(out, `"status":499`) {
			t.Fatalf("%s: log output %q", body, out)
		}
	}
}
