package integration

import (
	"net/http"
	"strings"
	"testing"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

func parseError(t *testing.T, h *TestHarness, resp *http.Response) *model.ErrorEnvelope {
	t.Helper()
	var body struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	h.ParseJSON(resp, &body)
	if body.Error == nil {
		t.Fatal("response carries no error envelope")
	}
	return body.Error
}

func TestRejectsMissingCredentials(t *testing.T) {
	h := NewTestHarness(t)

	resp := h.GET("/api/models", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	ee := parseError(t, h, resp)
	if ee.Code != model.ErrUnauthorized {
		t.Errorf("code = %s", ee.Code)
	}
}

func TestRejectsUnknownAPIKey(t *testing.T) {
	h := NewTestHarness(t)

	resp := h.GET("/api/models", "wrong-key")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestJWTAuthentication(t *testing.T) {
	h := NewTestHarness(t)

	call := func(token string) int {
		req, err := http.NewRequest(http.MethodGet, h.BaseURL()+"/api/models", nil)
		if err != nil {
			t.Fatal(err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	if got := call(h.GenerateToken(TestClaims{Subject: "jane@example.com"})); got != http.StatusOK {
		t.Errorf("valid token status = %d", got)
	}
	if got := call(h.GenerateToken(TestClaims{Subject: "jane@example.com", Expired: true})); got != http.StatusUnauthorized {
		t.Errorf("expired token status = %d", got)
	}
	if got := call(h.GenerateToken(TestClaims{Subject: "jane@example.com", Issuer: "rogue"})); got != http.StatusUnauthorized {
		t.Errorf("wrong issuer status = %d", got)
	}
	if got := call("garbage"); got != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d", got)
	}
}

func TestReadOnlyAPIKeyBlocksWrites(t *testing.T) {
	h := NewTestHarness(t)
	h.Classifier.Returns(model.Intent{
		Type:       model.IntentCreate,
		Model:      "res.partner",
		Confidence: 0.9,
		Parameters: model.IntentParameters{
			Values: map[string]any{"name": "Nope"},
		},
	})

	out := h.Chat("s1", "create partner", h.ViewerKey())
	if out.Type != model.ResponseError {
		t.Fatalf("type = %s, content = %s", out.Type, out.Content)
	}
	if !strings.Contains(out.Content, "read-only") {
		t.Errorf("content = %q", out.Content)
	}
	if len(h.Backend.CallsTo("res.partner", "create")) != 0 {
		t.Error("backend must not see writes from a read-only caller")
	}

	// Reads still work.
	h.Classifier.Returns(model.Intent{
		Type:       model.IntentQuery,
		Model:      "res.partner",
		Confidence: 0.9,
	})
	if out := h.Chat("s1", "list partners", h.ViewerKey()); out.Type != model.ResponseQueryResult {
		t.Errorf("query type = %s", out.Type)
	}
}

func TestGlobalReadOnlyMode(t *testing.T) {
	h := NewTestHarness(t, WithReadOnlyMode())
	h.Classifier.Returns(model.Intent{
		Type:       model.IntentDelete,
		Model:      "res.partner",
		Confidence: 0.9,
		Parameters: model.IntentParameters{RecordID: 1},
	})

	out := h.Chat("s1", "delete partner 1", h.OpsKey())
	if out.Type != model.ResponseError || !strings.Contains(out.Content, "read-only") {
		t.Errorf("type = %s, content = %q", out.Type, out.Content)
	}
	if len(h.Backend.CallsTo("res.partner", "unlink")) != 0 {
		t.Error("unlink must not run in read-only mode")
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := NewTestHarness(t)

	resp := h.GET("/health", "")
	resp.Body.Close()

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range headers {
		if got := resp.Header.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if resp.Header.Get("X-Correlation-Id") == "" {
		t.Error("missing X-Correlation-Id")
	}
}

func TestRejectsOversizedBody(t *testing.T) {
	h := NewTestHarness(t)

	big := strings.Repeat("x", 2<<20)
	resp := h.POST("/api/chat", map[string]any{
		"session_id": "s1",
		"message":    big,
	}, h.OpsKey())
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for oversized body", resp.StatusCode)
	}
}
