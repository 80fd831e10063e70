package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"frequency/internal/manager"
	"frequency/pkg/types"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin allows same-origin requests, and any configured CORS origin.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if corsEnabled {
		for _, o := range orDefault(corsAllowedOrigins, []string{"*"}) {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
	}
	return strings.HasSuffix(strings.ToLower(origin), "://"+strings.ToLower(r.Host))
}

// chatWS godoc
// @Summary      Chat over a websocket
// @Description  Each client message is a ChatRequest. The server answers with one ChatStreamLine per token and a final line with done set.
// @Tags         models
// @Param        name  path  string  true  "model name"
// @Router       /v1/models/{name}/chat/ws [get]
func (h *handlers) chatWS(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "name")
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger().Debug().Err(err).Str("model", model).Msg("websocket upgrade")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxBodyBytes)

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	for {
		var req types.ChatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger().Debug().Err(err).Str("model", model).Msg("websocket read")
			}
			return
		}
		id := newChatID()
		send := func(line types.ChatStreamLine) error {
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			return conn.WriteJSON(line)
		}
		if strings.TrimSpace(req.Query) == "" {
			if err := send(types.ChatStreamLine{ID: id, Error: "query is required", Code: http.StatusBadRequest}); err != nil {
				return
			}
			continue
		}
		res, err := h.svc.Generate(ctx, manager.NewGenerateRequest(model, req), func(tok string) error {
			if err := send(types.ChatStreamLine{ID: id, Token: tok}); err != nil {
				return err
			}
			streamedTokensTotal.WithLabelValues("websocket").Inc()
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if err := send(types.ChatStreamLine{ID: id, Error: err.Error(), Code: statusForError(err)}); err != nil {
				return
			}
			continue
		}
		if err := send(doneLine(id, res)); err != nil {
			return
		}
	}
}
