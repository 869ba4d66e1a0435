// Package agent orchestrates one conversation turn: classify the message,
// normalize whatever the classifier produced, and execute the operation
// against the backend. Mutating operations never run directly; they are
// parked in the session store until the user confirms.
package agent

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/undergnarly/odoo-mcp-chat/internal/audit"
	"github.com/undergnarly/odoo-mcp-chat/internal/discovery"
	"github.com/undergnarly/odoo-mcp-chat/internal/domfilter"
	"github.com/undergnarly/odoo-mcp-chat/internal/intent"
	"github.com/undergnarly/odoo-mcp-chat/internal/observability"
	"github.com/undergnarly/odoo-mcp-chat/internal/odoo"
	"github.com/undergnarly/odoo-mcp-chat/internal/schema"
	"github.com/undergnarly/odoo-mcp-chat/internal/session"
	"github.com/undergnarly/odoo-mcp-chat/internal/validate"
	"github.com/undergnarly/odoo-mcp-chat/model"
)

const (
	defaultQueryLimit = 10
	maxQueryLimit     = 100
	defaultPendingTTL = 5 * time.Minute
)

// Agent ties the classifier, the schema-aware validation pipeline, and the
// backend client together.
type Agent struct {
	client     odoo.Client
	schemas    *schema.Cache
	validator  *validate.Validator
	filters    *domfilter.Normalizer
	classifier intent.Classifier
	sessions   session.Store
	auditLog   audit.Store
	discovery  *discovery.Service
	metrics    *observability.Metrics
	logger     *zap.Logger
	readOnly   bool
	pendingTTL time.Duration
}

// Options configures an Agent. Client, Schemas, Validator, Filters,
// Classifier, and Sessions are required.
type Options struct {
	Client     odoo.Client
	Schemas    *schema.Cache
	Validator  *validate.Validator
	Filters    *domfilter.Normalizer
	Classifier intent.Classifier
	Sessions   session.Store
	Audit      audit.Store
	Discovery  *discovery.Service
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	ReadOnly   bool
	PendingTTL time.Duration
}

// New creates an Agent.
func New(opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := opts.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &Agent{
		client:     opts.Client,
		schemas:    opts.Schemas,
		validator:  opts.Validator,
		filters:    opts.Filters,
		classifier: opts.Classifier,
		sessions:   opts.Sessions,
		auditLog:   opts.Audit,
		discovery:  opts.Discovery,
		metrics:    opts.Metrics,
		logger:     logger,
		readOnly:   opts.ReadOnly,
		pendingTTL: ttl,
	}
}

// HandleMessage processes one user message end to end and returns the
// response to render. It never returns a raw backend error; everything
// user-facing goes through the sanitizer.
func (a *Agent) HandleMessage(ctx context.Context, sessionID, message string) model.AgentResponse {
	ctx, span := observability.StartSpan(ctx, "agent.HandleMessage",
		observability.AttrSessionID.String(sessionID))
	defer span.End()

	logger := observability.RequestLogger(ctx, a.logger)

	history, err := a.sessions.History(ctx, sessionID)
	if err != nil {
		logger.Warn("loading session history failed", zap.Error(err))
	}

	start := time.Now()
	in, err := a.classifier.Classify(ctx, message, history)
	if err != nil {
		logger.Warn("intent classification failed, using fallback", zap.Error(err))
		if a.metrics != nil {
			a.metrics.RecordIntentParseFailure()
		}
		in = intent.FallbackIntent()
	}
	if a.metrics != nil {
		a.metrics.RecordIntentClassification(in.Type, time.Since(start))
	}
	span.SetAttributes(
		observability.AttrIntentType.String(in.Type),
		observability.AttrModel.String(in.Model),
	)
	logger.Info("intent classified",
		zap.String("intent_type", in.Type),
		zap.String("model", in.Model),
		zap.Float64("confidence", in.Confidence))

	resp := a.dispatch(ctx, sessionID, message, in)

	turns := []model.ChatMessage{
		{Role: "user", Content: message},
		{Role: "assistant", Content: resp.Content},
	}
	if err := a.sessions.AppendHistory(ctx, sessionID, turns...); err != nil {
		logger.Warn("appending session history failed", zap.Error(err))
	}

	return resp
}

func (a *Agent) dispatch(ctx context.Context, sessionID, message string, in model.Intent) model.AgentResponse {
	switch in.Type {
	case model.IntentQuery:
		return a.handleQuery(ctx, in)
	case model.IntentCreate:
		return a.handleCreate(ctx, sessionID, in)
	case model.IntentUpdate:
		return a.handleUpdate(ctx, sessionID, in)
	case model.IntentDelete:
		return a.handleDelete(ctx, sessionID, in)
	case model.IntentAction:
		return a.handleAction(ctx, sessionID, in)
	case model.IntentMessage:
		return a.handleMessage(ctx, sessionID, in)
	case model.IntentMetadata:
		return a.handleMetadata(ctx, in)
	case model.IntentSchemaQuery:
		return a.handleSchemaQuery(ctx, in)
	case model.IntentChat:
		return a.handleChat(in)
	case model.IntentAttach:
		return clarification("Attachments are not supported over this channel. " +
			"You can post a text note on a record instead.")
	default:
		return a.handleQuery(ctx, in)
	}
}

// Confirm resolves the pending action for a session. When confirmed is
// false the action is discarded.
func (a *Agent) Confirm(ctx context.Context, sessionID string, confirmed bool) model.AgentResponse {
	ctx, span := observability.StartSpan(ctx, "agent.Confirm",
		observability.AttrSessionID.String(sessionID))
	defer span.End()

	logger := observability.RequestLogger(ctx, a.logger)

	pending, err := a.sessions.Pending(ctx, sessionID)
	if err != nil {
		logger.Error("loading pending action failed", zap.Error(err))
		return errorResponse("Could not load the pending action. Please try again.")
	}
	if pending == nil {
		a.recordConfirmation("expired")
		return clarification("There is no action awaiting confirmation. It may have expired.")
	}

	if err := a.sessions.ClearPending(ctx, sessionID); err != nil {
		logger.Warn("clearing pending action failed", zap.Error(err))
	}

	if !confirmed {
		a.recordConfirmation("cancelled")
		return model.AgentResponse{
			Type:    model.ResponseChat,
			Content: "Action cancelled. Nothing was changed.",
		}
	}
	a.recordConfirmation("confirmed")

	return a.execute(ctx, sessionID, *pending)
}

// execute runs a confirmed mutating action against the backend.
func (a *Agent) execute(ctx context.Context, sessionID string, action model.PendingAction) model.AgentResponse {
	ctx, span := observability.StartSpan(ctx, "agent.execute",
		observability.AttrOperation.String(action.Operation),
		observability.AttrModel.String(action.Model))
	defer span.End()

	logger := observability.RequestLogger(ctx, a.logger)

	if a.writesBlocked(ctx) {
		if a.metrics != nil {
			a.metrics.RecordReadOnlyRejection()
		}
		return errorResponse(model.NewReadOnlyModeError().Message)
	}

	var (
		recordID = action.RecordID
		detail   string
		err      error
	)

	switch action.Operation {
	case model.OpCreate:
		recordID, err = a.client.Create(ctx, action.Model, action.Values)
		detail = "record created"
	case model.OpUpdate:
		err = a.client.Write(ctx, action.Model, []int64{action.RecordID}, action.Values)
		detail = "record updated"
	case model.OpDelete:
		err = a.client.Unlink(ctx, action.Model, []int64{action.RecordID})
		detail = "record deleted"
	case model.OpAction:
		_, err = a.client.CallMethod(ctx, action.Model, action.Method, []int64{action.RecordID})
		detail = "method " + action.Method + " called"
	case model.OpMessage:
		err = a.client.MessagePost(ctx, action.Model, action.RecordID, action.Message)
		detail = "message posted"
	default:
		return errorResponse("Unknown pending operation.")
	}

	status := "success"
	if err != nil {
		status = "error"
	}
	a.recordAction(action.Operation, action.Model, status)
	a.writeAudit(ctx, audit.Entry{
		SessionID: sessionID,
		SubjectID: subjectID(ctx),
		Operation: action.Operation,
		Model:     action.Model,
		RecordID:  recordID,
		Method:    action.Method,
		Success:   err == nil,
		Detail:    detail,
	})

	if err != nil {
		logger.Error("executing confirmed action failed",
			zap.String("operation", action.Operation),
			zap.String("model", action.Model),
			zap.Error(err))
		observability.EndSpanWithError(span, err)
		return errorResponse(a.sanitized(err))
	}

	logger.Info("action executed",
		zap.String("operation", action.Operation),
		zap.String("model", action.Model),
		zap.Int64("record_id", recordID))

	return model.AgentResponse{
		Type:     model.ResponseActionResult,
		Content:  actionSummary(action, recordID),
		Model:    action.Model,
		RecordID: recordID,
	}
}

// writesBlocked reports whether mutations are disabled, either globally or
// for this caller.
func (a *Agent) writesBlocked(ctx context.Context) bool {
	if a.readOnly {
		return true
	}
	if rctx := model.RequestContextFrom(ctx); rctx != nil && rctx.ReadOnly {
		return true
	}
	return false
}

// park stores a pending action and returns the confirmation response.
func (a *Agent) park(ctx context.Context, sessionID string, action model.PendingAction, preview string) model.AgentResponse {
	action.ID = uuid.NewString()
	if err := a.sessions.SetPending(ctx, sessionID, action, a.pendingTTL); err != nil {
		observability.RequestLogger(ctx, a.logger).Error("storing pending action failed", zap.Error(err))
		return errorResponse("Could not prepare the action. Please try again.")
	}
	return model.AgentResponse{
		Type:    model.ResponseConfirmation,
		Content: preview,
		Model:   action.Model,
		Pending: &action,
	}
}

func (a *Agent) writeAudit(ctx context.Context, entry audit.Entry) {
	if a.auditLog == nil {
		return
	}
	if err := a.auditLog.Append(ctx, entry); err != nil {
		observability.RequestLogger(ctx, a.logger).Warn("audit write failed", zap.Error(err))
	}
}

func (a *Agent) recordAction(operation, modelName, status string) {
	if a.metrics != nil {
		a.metrics.RecordAction(operation, modelName, status)
	}
}

func (a *Agent) recordConfirmation(outcome string) {
	if a.metrics != nil {
		a.metrics.RecordConfirmation(outcome)
	}
}

func (a *Agent) sanitized(err error) string {
	if odoo.FaultKindOf(err) == odoo.FaultTransport {
		if odoo.IsTimeout(err) {
			return model.NewBackendTimeoutError().Message
		}
		return model.NewBackendUnavailableError().Message
	}
	return sanitizeError(err)
}

func subjectID(ctx context.Context) string {
	if rctx := model.RequestContextFrom(ctx); rctx != nil {
		return rctx.SubjectID
	}
	return ""
}

func clarification(content string) model.AgentResponse {
	return model.AgentResponse{Type: model.ResponseClarification, Content: content}
}

func errorResponse(content string) model.AgentResponse {
	return model.AgentResponse{Type: model.ResponseError, Content: content, Errors: []string{content}}
}
