package intent

import (
	"strings"
	"testing"
)

func TestBuildSystemPromptEmbedsCatalog(t *testing.T) {
	prompt := BuildSystemPrompt(
		[]string{"sale.order: Sales Order", "res.partner: Contact"},
		[]string{"## Model: sale.order\n### Available Fields:"},
	)

	if !strings.Contains(prompt, "- sale.order: Sales Order\n") {
		t.Errorf("catalog line missing:\n%s", prompt)
	}
	if !strings.Contains(prompt, "## Model: sale.order") {
		t.Error("schema excerpt missing")
	}
	if !strings.Contains(prompt, "Respond with JSON only") {
		t.Error("response format instructions missing")
	}
}

func TestBuildSystemPromptWithoutDiscovery(t *testing.T) {
	prompt := BuildSystemPrompt(nil, nil)
	if !strings.Contains(prompt, "(model discovery unavailable)") {
		t.Error("missing discovery-unavailable placeholder")
	}
}
