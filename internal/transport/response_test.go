package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"bad request", model.NewBadRequestError("nope"), http.StatusBadRequest, model.ErrBadRequest},
		{"unauthorized", model.NewUnauthorizedError("who"), http.StatusUnauthorized, model.ErrUnauthorized},
		{"not found", model.NewNotFoundError("gone"), http.StatusNotFound, model.ErrNotFound},
		{"validation", model.NewValidationError(nil), http.StatusUnprocessableEntity, model.ErrValidationError},
		{"read only", model.NewReadOnlyModeError(), http.StatusForbidden, model.ErrReadOnlyMode},
		{"backend down", model.NewBackendUnavailableError(), http.StatusBadGateway, model.ErrBackendUnavailable},
		{"backend timeout", model.NewBackendTimeoutError(), http.StatusGatewayTimeout, model.ErrBackendTimeout},
		{"internal", model.NewInternalError(), http.StatusInternalServerError, model.ErrInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteError(rec, tt.err)

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body struct {
				Error *model.ErrorEnvelope `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if body.Error == nil || body.Error.Code != tt.code {
				t.Errorf("error = %+v, want code %s", body.Error, tt.code)
			}
		})
	}
}

func TestWriteErrorNonEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("raw failure"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	var body struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Error.Code != model.ErrInternalError {
		t.Errorf("code = %s", body.Error.Code)
	}
}

func TestWriteJSONHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]string{"ok": "yes"})

	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
}
