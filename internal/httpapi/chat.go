package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"frequency/internal/manager"
	"frequency/pkg/types"
)

// statusClientClosed is logged for chats abandoned by the client or cut by shutdown.
const statusClientClosed = 499

func newChatID() string { return "chatcmpl-" + uuid.NewString() }

// chat godoc
// @Summary      Chat with a loaded model
// @Description  Runs one chat turn. With "stream": true the response is NDJSON: one {"token"} line per piece, then a {"done": true} line with the full result.
// @Tags         models
// @Accept       json
// @Produce      json
// @Produce      application/x-ndjson
// @Param        name  path      string             true  "model name"
// @Param        body  body      types.ChatRequest  true  "chat request"
// @Success      200   {object}  types.ChatResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      409   {object}  types.ErrorResponse
// @Router       /v1/models/{name}/chat [post]
func (h *handlers) chat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSONError(w, http.StatusBadRequest, "query is required")
		return
	}
	model := chi.URLParam(r, "name")
	greq := manager.NewGenerateRequest(model, req)
	id := newChatID()
	lvl := requestLogLevel(r)
	start := time.Now()
	logStart(r, lvl, model)

	// Join server base context with request context so shutdown cancels work too.
	ctx, cancel := chatContext(r)
	defer cancel()

	if !req.Stream {
		res, err := h.svc.Generate(ctx, greq, nil)
		if err != nil {
			if isCanceled(r, err) {
				logEnd(r, lvl, statusClientClosed, start, err)
				return
			}
			status := writeServiceError(w, err)
			logEnd(r, lvl, status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, chatResponse(id, res))
		logEnd(r, lvl, http.StatusOK, start, nil)
		return
	}

	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	// Optional logging of NDJSON lines
	out := io.Writer(w)
	if lvl >= LevelDebug {
		out = io.MultiWriter(w, &loggingLineWriter{requestID: middleware.GetReqID(r.Context())})
	}
	enc := json.NewEncoder(out)
	started := false
	begin := func() {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			w.WriteHeader(http.StatusOK)
			started = true
		}
	}
	res, err := h.svc.Generate(ctx, greq, func(tok string) error {
		begin()
		if err := enc.Encode(types.ChatStreamLine{ID: id, Token: tok}); err != nil {
			return err
		}
		streamedTokensTotal.WithLabelValues("ndjson").Inc()
		if flush != nil {
			flush()
		}
		return nil
	})
	if err != nil {
		if isCanceled(r, err) {
			logEnd(r, lvl, statusClientClosed, start, err)
			return
		}
		status := statusForError(err)
		if !started {
			writeJSONError(w, status, err.Error())
		} else {
			_ = enc.Encode(types.ChatStreamLine{ID: id, Error: err.Error(), Code: status})
		}
		logEnd(r, lvl, status, start, err)
		return
	}
	begin()
	_ = enc.Encode(doneLine(id, res))
	if flush != nil {
		flush()
	}
	logEnd(r, lvl, http.StatusOK, start, nil)
}

func chatResponse(id string, res manager.GenerateResult) types.ChatResponse {
	return types.ChatResponse{
		ID:           id,
		Text:         res.Text,
		History:      res.History,
		Adapter:      res.Adapter,
		FinishReason: res.FinishReason,
		Usage:        res.Usage,
	}
}

func doneLine(id string, res manager.GenerateResult) types.ChatStreamLine {
	usage := res.Usage
	return types.ChatStreamLine{
		ID:           id,
		Done:         true,
		Text:         res.Text,
		History:      res.History,
		Adapter:      res.Adapter,
		FinishReason: res.FinishReason,
		Usage:        &usage,
	}
}
