package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

// ContextProvider supplies the model catalog and schema excerpts injected
// into the classifier prompt.
type ContextProvider interface {
	CatalogLines(ctx context.Context) []string
	SchemaExcerpts(ctx context.Context, hint string) []string
}

// GeminiClassifier classifies messages with the Gemini API, constrained to
// a JSON response.
type GeminiClassifier struct {
	client      *genai.Client
	modelName   string
	temperature float32
	provider    ContextProvider
	logger      *zap.Logger
}

// GeminiOptions configures a GeminiClassifier.
type GeminiOptions struct {
	APIKey      string
	Model       string
	Temperature float32
	Provider    ContextProvider
	Logger      *zap.Logger
}

// NewGeminiClassifier creates a classifier backed by the Gemini API.
func NewGeminiClassifier(ctx context.Context, opts GeminiOptions) (*GeminiClassifier, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("intent: Gemini API key is required")
	}
	modelName := opts.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: opts.APIKey})
	if err != nil {
		return nil, fmt.Errorf("intent: creating Gemini client: %w", err)
	}
	return &GeminiClassifier{
		client:      client,
		modelName:   modelName,
		temperature: opts.Temperature,
		provider:    opts.Provider,
		logger:      logger,
	}, nil
}

// Classify sends the conversation to Gemini and parses the structured
// intent from its JSON reply.
func (g *GeminiClassifier) Classify(ctx context.Context, message string, history []model.ChatMessage) (model.Intent, error) {
	var catalog, excerpts []string
	if g.provider != nil {
		catalog = g.provider.CatalogLines(ctx)
		excerpts = g.provider.SchemaExcerpts(ctx, message)
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, turn := range history {
		role := genai.Role(genai.RoleUser)
		if turn.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(message, genai.RoleUser))

	config := &genai.GenerateContentConfig{
		ResponseMIMEType:  "application/json",
		SystemInstruction: genai.NewContentFromText(BuildSystemPrompt(catalog, excerpts), genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
	if err != nil {
		return model.Intent{}, fmt.Errorf("intent: generate: %w", err)
	}

	intent, err := ParseIntent(resp.Text())
	if err != nil {
		return model.Intent{}, err
	}
	g.logger.Info("intent classified",
		zap.String("intent", intent.Type),
		zap.String("model", intent.Model),
		zap.Float64("confidence", intent.Confidence))
	return intent, nil
}

// ParseIntent decodes the classifier's JSON reply, tolerating markdown
// fences and a literal "null" model.
func ParseIntent(text string) (model.Intent, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var intent model.Intent
	if err := json.Unmarshal([]byte(cleaned), &intent); err != nil {
		return model.Intent{}, fmt.Errorf("intent: parsing classifier reply: %w", err)
	}
	if intent.Type == "" {
		return model.Intent{}, fmt.Errorf("intent: classifier reply has no intent")
	}
	if strings.EqualFold(intent.Model, "null") {
		intent.Model = ""
	}
	return intent, nil
}
