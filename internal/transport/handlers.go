package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/undergnarly/odoo-mcp-chat/internal/agent"
	"github.com/undergnarly/odoo-mcp-chat/internal/audit"
	"github.com/undergnarly/odoo-mcp-chat/internal/discovery"
	"github.com/undergnarly/odoo-mcp-chat/internal/schema"
	"github.com/undergnarly/odoo-mcp-chat/model"
)

const maxBodyBytes = 1 << 20

// Handlers bundles the services behind the API endpoints.
type Handlers struct {
	Agent     *agent.Agent
	Schemas   *schema.Cache
	Discovery *discovery.Service
	Audit     audit.Store
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type confirmRequest struct {
	SessionID string `json:"session_id"`
	Confirmed bool   `json:"confirmed"`
}

// HandleChat processes one conversational message.
func (h *Handlers) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.SessionID == "" || req.Message == "" {
		WriteError(w, model.NewBadRequestError("session_id and message are required"))
		return
	}

	resp := h.Agent.HandleMessage(sessionContext(r, req.SessionID), req.SessionID, req.Message)
	WriteJSON(w, http.StatusOK, resp)
}

// HandleConfirm resolves a pending action.
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.SessionID == "" {
		WriteError(w, model.NewBadRequestError("session_id is required"))
		return
	}

	resp := h.Agent.Confirm(sessionContext(r, req.SessionID), req.SessionID, req.Confirmed)
	WriteJSON(w, http.StatusOK, resp)
}

// HandleModels lists the discoverable models.
func (h *Handlers) HandleModels(w http.ResponseWriter, r *http.Request) {
	catalog := h.Discovery.Models(r.Context(), r.URL.Query().Get("refresh") == "true")

	models := make([]discovery.ModelInfo, 0, len(catalog))
	for _, info := range catalog {
		models = append(models, info)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].Model < models[j].Model })

	WriteJSON(w, http.StatusOK, map[string]any{
		"models": models,
		"count":  len(models),
	})
}

// HandleModelSchema returns the cached schema for one model.
func (h *Handlers) HandleModelSchema(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	forceReload := r.URL.Query().Get("reload") == "true"

	sc, err := h.Schemas.Get(r.Context(), modelName, forceReload)
	if err != nil {
		WriteNotFound(w, "Schema for model "+modelName+" is not available")
		return
	}
	WriteJSON(w, http.StatusOK, sc)
}

// HandleSchemaInvalidate drops one model from the schema cache.
func (h *Handlers) HandleSchemaInvalidate(w http.ResponseWriter, r *http.Request) {
	modelName := chi.URLParam(r, "model")
	h.Schemas.Invalidate(modelName)
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "invalidated",
		"model":  modelName,
	})
}

// HandleSchemaStats reports schema cache contents and ages.
func (h *Handlers) HandleSchemaStats(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, h.Schemas.Stats())
}

// HandleAudit lists recent audit entries, optionally filtered.
func (h *Handlers) HandleAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := h.Audit.List(r.Context(), audit.Filter{
		SessionID: q.Get("session_id"),
		Model:     q.Get("model"),
		Operation: q.Get("operation"),
	})
	if err != nil {
		WriteError(w, model.NewInternalError())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}

// decodeBody decodes a JSON request body, rejecting unknown fields and
// oversized payloads.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return model.NewBadRequestError("Invalid request body: " + err.Error())
	}
	return nil
}

// sessionContext rebinds the request context's session id to the one the
// body names, so downstream logging and auditing agree with the handler.
func sessionContext(r *http.Request, sessionID string) context.Context {
	ctx := r.Context()
	rctx := model.RequestContextFrom(ctx)
	if rctx == nil {
		return ctx
	}
	if rctx.SessionID == sessionID {
		return ctx
	}
	bound := *rctx
	bound.SessionID = sessionID
	return model.WithRequestContext(ctx, &bound)
}
