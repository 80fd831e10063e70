package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"frequency/internal/manager"
	"frequency/pkg/types"
)

var _ Service = (*manager.Manager)(nil)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Ready() bool
	Status() types.StatusResponse
	AvailableModels() ([]types.AvailableModel, error)

	RegisterModel(ctx context.Context, name, repo, typ string, cuda bool) (types.Model, error)
	FindModel(ctx context.Context, name string) (types.Model, error)
	ListModels(ctx context.Context) ([]types.Model, error)
	DeleteModel(ctx context.Context, name string) error

	LoadAdapter(ctx context.Context, a types.Adapter) (types.Adapter, error)
	DetachAdapter(ctx context.Context, model, adapter string) error
	FindAdapter(ctx context.Context, name string) (types.Adapter, error)
	ListAdapters(ctx context.Context) ([]types.Adapter, error)
	DeleteAdapter(ctx context.Context, name string) error

	Generate(ctx context.Context, req manager.GenerateRequest, onToken func(string) error) (manager.GenerateResult, error)
}

type handlers struct {
	svc Service
}

// NewMux builds the HTTP router for svc.
func NewMux(svc Service) http.Handler {
	h := &handlers{svc: svc}
	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: orDefault(corsAllowedOrigins, []string{"*"}),
			AllowedMethods: orDefault(corsAllowedMethods, []string{"GET", "POST", "DELETE", "OPTIONS"}),
			AllowedHeaders: orDefault(corsAllowedHeaders, []string{"Accept", "Authorization", "Content-Type", "X-Log-Level"}),
			MaxAge:         300,
		}))
	}
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, types.GatewayResponse{Message: "frequency gateway"})
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("loading"))
	})
	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	MountSwagger(r)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/", h.info)
		r.Get("/health", h.health)

		r.Group(func(r chi.Router) {
			r.Use(requireBearer)
			r.Get("/status", h.status)

			r.Get("/models", h.listModels)
			r.Post("/models", h.loadModel)
			r.Get("/models/available", h.availableModels)
			r.Get("/models/{name}", h.getModel)
			r.Delete("/models/{name}", h.deleteModel)
			r.Post("/models/{name}/chat", h.chat)
			r.Get("/models/{name}/chat/ws", h.chatWS)
			r.Delete("/models/{name}/adapters/{adapter}", h.detachAdapter)

			r.Get("/adapters", h.listAdapters)
			r.Post("/adapters", h.loadAdapter)
			r.Get("/adapters/{name}", h.getAdapter)
			r.Delete("/adapters/{name}", h.deleteAdapter)
		})
	})
	return r
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

// decodeJSON enforces the JSON content type and body limit, then decodes into v.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		// Oversized bodies are reported as 400 too, without size details.
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// info godoc
// @Summary      API info
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.InfoResponse
// @Router       /v1 [get]
func (h *handlers) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.InfoResponse{Version: version})
}

// health godoc
// @Summary      Health check
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.HealthResponse
// @Router       /v1/health [get]
func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.HealthResponse{Status: "ok"})
}

// status godoc
// @Summary      Manager status
// @Tags         meta
// @Produce      json
// @Success      200  {object}  types.StatusResponse
// @Router       /v1/status [get]
func (h *handlers) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// listModels godoc
// @Summary      List registered models
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.ModelsResponse
// @Router       /v1/models [get]
func (h *handlers) listModels(w http.ResponseWriter, r *http.Request) {
	models, err := h.svc.ListModels(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if models == nil {
		models = []types.Model{}
	}
	writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
}

// availableModels godoc
// @Summary      List model files under the models directory
// @Tags         models
// @Produce      json
// @Success      200  {object}  types.AvailableModelsResponse
// @Router       /v1/models/available [get]
func (h *handlers) availableModels(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.AvailableModels()
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []types.AvailableModel{}
	}
	writeJSON(w, http.StatusOK, types.AvailableModelsResponse{Models: list})
}

// loadModel godoc
// @Summary      Load a model
// @Description  Resolves the repo, loads weights and records the model. Reloading a name replaces it.
// @Tags         models
// @Accept       json
// @Produce      json
// @Param        body  body      types.LoadModelRequest  true  "model"
// @Success      200   {object}  types.Model
// @Failure      400   {object}  types.ErrorResponse
// @Failure      503   {object}  types.ErrorResponse
// @Router       /v1/models [post]
func (h *handlers) loadModel(w http.ResponseWriter, r *http.Request) {
	var req types.LoadModelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	if strings.TrimSpace(req.HFRepo) == "" {
		writeJSONError(w, http.StatusBadRequest, "hf_repo is required")
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	rec, err := h.svc.RegisterModel(ctx, req.Name, req.HFRepo, req.Type, req.CUDA)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// getModel godoc
// @Summary      Get a model
// @Tags         models
// @Produce      json
// @Param        name  path      string  true  "model name"
// @Success      200   {object}  types.Model
// @Failure      404   {object}  types.ErrorResponse
// @Router       /v1/models/{name} [get]
func (h *handlers) getModel(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.FindModel(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// deleteModel godoc
// @Summary      Delete a model
// @Description  Evicts the loaded weights and removes the record. Adapter records are kept.
// @Tags         models
// @Param        name  path  string  true  "model name"
// @Success      204
// @Failure      404   {object}  types.ErrorResponse
// @Router       /v1/models/{name} [delete]
func (h *handlers) deleteModel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteModel(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// detachAdapter godoc
// @Summary      Detach an adapter from a loaded model
// @Tags         adapters
// @Param        name     path  string  true  "model name"
// @Param        adapter  path  string  true  "adapter name"
// @Success      204
// @Failure      404  {object}  types.ErrorResponse
// @Failure      409  {object}  types.ErrorResponse
// @Router       /v1/models/{name}/adapters/{adapter} [delete]
func (h *handlers) detachAdapter(w http.ResponseWriter, r *http.Request) {
	err := h.svc.DetachAdapter(r.Context(), chi.URLParam(r, "name"), chi.URLParam(r, "adapter"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listAdapters godoc
// @Summary      List adapters
// @Tags         adapters
// @Produce      json
// @Success      200  {object}  types.AdaptersResponse
// @Router       /v1/adapters [get]
func (h *handlers) listAdapters(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListAdapters(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if list == nil {
		list = []types.Adapter{}
	}
	writeJSON(w, http.StatusOK, types.AdaptersResponse{Adapters: list})
}

// loadAdapter godoc
// @Summary      Load an adapter
// @Description  Records the adapter and attaches it to the loaded model it names.
// @Tags         adapters
// @Accept       json
// @Produce      json
// @Param        body  body      types.Adapter  true  "adapter"
// @Success      200   {object}  types.Adapter
// @Failure      400   {object}  types.ErrorResponse
// @Failure      409   {object}  types.ErrorResponse
// @Router       /v1/adapters [post]
func (h *handlers) loadAdapter(w http.ResponseWriter, r *http.Request) {
	var req types.Adapter
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	rec, err := h.svc.LoadAdapter(ctx, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// getAdapter godoc
// @Summary      Get an adapter
// @Tags         adapters
// @Produce      json
// @Param        name  path      string  true  "adapter name"
// @Success      200   {object}  types.Adapter
// @Failure      404   {object}  types.ErrorResponse
// @Router       /v1/adapters/{name} [get]
func (h *handlers) getAdapter(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.FindAdapter(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// deleteAdapter godoc
// @Summary      Delete an adapter record
// @Tags         adapters
// @Param        name  path  string  true  "adapter name"
// @Success      204
// @Failure      404   {object}  types.ErrorResponse
// @Router       /v1/adapters/{name} [delete]
func (h *handlers) deleteAdapter(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAdapter(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// isCanceled reports whether err came from the request going away.
func isCanceled(r *http.Request, err error) bool {
	return canceled(r) && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}
