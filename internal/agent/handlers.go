package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/undergnarly/odoo-mcp-chat/internal/observability"
	"github.com/undergnarly/odoo-mcp-chat/internal/sanitize"
	"github.com/undergnarly/odoo-mcp-chat/model"
)

func (a *Agent) handleQuery(ctx context.Context, in model.Intent) model.AgentResponse {
	if in.Model == "" {
		return clarification("I could not work out which records you are asking about. " +
			"Try naming the thing you want, for example \"show my sale orders\".")
	}

	logger := observability.RequestLogger(ctx, a.logger)

	domain := a.filters.Normalize(in.Parameters.Filters).ToWire()

	limit := in.Parameters.Limit
	if limit <= 0 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}

	var fields []string
	if a.discovery != nil {
		fields = a.discovery.SafeFields(in.Model)
	}

	total, err := a.client.SearchCount(ctx, in.Model, domain)
	if err != nil {
		logger.Warn("search_count failed", zap.String("model", in.Model), zap.Error(err))
		return errorResponse(a.sanitized(err))
	}

	records, err := a.client.SearchRead(ctx, in.Model, domain, fields, limit, 0)
	if err != nil {
		logger.Warn("search_read failed", zap.String("model", in.Model), zap.Error(err))
		return errorResponse(a.sanitized(err))
	}

	return model.AgentResponse{
		Type:       model.ResponseQueryResult,
		Content:    formatRecords(in.Model, records, total),
		Model:      in.Model,
		Count:      len(records),
		TotalCount: total,
		Results:    records,
	}
}

func (a *Agent) handleCreate(ctx context.Context, sessionID string, in model.Intent) model.AgentResponse {
	if in.Model == "" {
		return clarification("What kind of record should I create?")
	}
	if len(in.Parameters.Values) == 0 {
		return clarification(fmt.Sprintf("What values should the new %s record have?", in.Model))
	}
	if a.writesBlocked(ctx) {
		if a.metrics != nil {
			a.metrics.RecordReadOnlyRejection()
		}
		return errorResponse(model.NewReadOnlyModeError().Message)
	}

	outcome := a.validator.ValidateAndConvert(ctx, in.Model, in.Parameters.Values, "create")
	if !outcome.OK() {
		return a.validationFailed(ctx, in.Model, in.Parameters.Values, outcome)
	}

	preview := fmt.Sprintf("About to create a %s record with:\n%s\nConfirm to proceed.",
		in.Model, formatValues(outcome.Accepted))
	return a.park(ctx, sessionID, model.PendingAction{
		Operation: model.OpCreate,
		Model:     in.Model,
		Values:    outcome.Accepted,
	}, preview)
}

func (a *Agent) handleUpdate(ctx context.Context, sessionID string, in model.Intent) model.AgentResponse {
	if in.Model == "" || in.Parameters.RecordID == 0 {
		return clarification("Which record should I update? I need the model and the record id.")
	}
	if len(in.Parameters.Values) == 0 {
		return clarification("What should I change on that record?")
	}
	if a.writesBlocked(ctx) {
		if a.metrics != nil {
			a.metrics.RecordReadOnlyRejection()
		}
		return errorResponse(model.NewReadOnlyModeError().Message)
	}

	outcome := a.validator.ValidateAndConvert(ctx, in.Model, in.Parameters.Values, "update")
	if !outcome.OK() {
		return a.validationFailed(ctx, in.Model, in.Parameters.Values, outcome)
	}

	preview := fmt.Sprintf("About to update %s record #%d with:\n%s\nConfirm to proceed.",
		in.Model, in.Parameters.RecordID, formatValues(outcome.Accepted))
	return a.park(ctx, sessionID, model.PendingAction{
		Operation: model.OpUpdate,
		Model:     in.Model,
		RecordID:  in.Parameters.RecordID,
		Values:    outcome.Accepted,
	}, preview)
}

func (a *Agent) handleDelete(ctx context.Context, sessionID string, in model.Intent) model.AgentResponse {
	if in.Model == "" || in.Parameters.RecordID == 0 {
		return clarification("Which record should I delete? I need the model and the record id.")
	}
	if a.writesBlocked(ctx) {
		if a.metrics != nil {
			a.metrics.RecordReadOnlyRejection()
		}
		return errorResponse(model.NewReadOnlyModeError().Message)
	}

	label := a.recordLabel(ctx, in.Model, in.Parameters.RecordID)
	preview := fmt.Sprintf("About to permanently delete %s record #%d%s.\nConfirm to proceed.",
		in.Model, in.Parameters.RecordID, label)
	return a.park(ctx, sessionID, model.PendingAction{
		Operation: model.OpDelete,
		Model:     in.Model,
		RecordID:  in.Parameters.RecordID,
	}, preview)
}

func (a *Agent) handleAction(ctx context.Context, sessionID string, in model.Intent) model.AgentResponse {
	if in.Model == "" || in.Parameters.RecordID == 0 || in.Parameters.Method == "" {
		return clarification("To run a workflow action I need the model, the record id, and the action.")
	}
	if a.writesBlocked(ctx) {
		if a.metrics != nil {
			a.metrics.RecordReadOnlyRejection()
		}
		return errorResponse(model.NewReadOnlyModeError().Message)
	}
	if a.discovery != nil && !methodAllowed(a.discovery.Methods(in.Model), in.Parameters.Method) {
		return clarification(fmt.Sprintf("The action %q is not available on %s.",
			in.Parameters.Method, in.Model))
	}

	preview := fmt.Sprintf("About to call %s on %s record #%d.\nConfirm to proceed.",
		in.Parameters.Method, in.Model, in.Parameters.RecordID)
	return a.park(ctx, sessionID, model.PendingAction{
		Operation: model.OpAction,
		Model:     in.Model,
		RecordID:  in.Parameters.RecordID,
		Method:    in.Parameters.Method,
	}, preview)
}

func (a *Agent) handleMessage(ctx context.Context, sessionID string, in model.Intent) model.AgentResponse {
	if in.Model == "" || in.Parameters.RecordID == 0 {
		return clarification("Which record should I post the message on?")
	}
	if in.Parameters.Message == "" {
		return clarification("What should the message say?")
	}
	if a.writesBlocked(ctx) {
		if a.metrics != nil {
			a.metrics.RecordReadOnlyRejection()
		}
		return errorResponse(model.NewReadOnlyModeError().Message)
	}

	preview := fmt.Sprintf("About to post on %s record #%d:\n> %s\nConfirm to proceed.",
		in.Model, in.Parameters.RecordID, in.Parameters.Message)
	return a.park(ctx, sessionID, model.PendingAction{
		Operation: model.OpMessage,
		Model:     in.Model,
		RecordID:  in.Parameters.RecordID,
		Message:   in.Parameters.Message,
	}, preview)
}

func (a *Agent) handleMetadata(ctx context.Context, in model.Intent) model.AgentResponse {
	if a.discovery == nil {
		return clarification("Model discovery is not available.")
	}

	if kw := strings.TrimSpace(in.Parameters.Message); kw != "" {
		matches := a.discovery.SearchByKeyword(ctx, kw)
		if len(matches) == 0 {
			return model.AgentResponse{
				Type:    model.ResponseMetadata,
				Content: fmt.Sprintf("No models match %q.", kw),
			}
		}
		return model.AgentResponse{
			Type:    model.ResponseMetadata,
			Content: "Models matching your request:\n- " + strings.Join(matches, "\n- "),
		}
	}

	catalog := a.discovery.Models(ctx, false)
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("Available models:\n")
	for _, name := range names {
		info := catalog[name]
		fmt.Fprintf(&b, "- `%s`: %s\n", name, info.Name)
	}
	return model.AgentResponse{Type: model.ResponseMetadata, Content: b.String()}
}

func (a *Agent) handleSchemaQuery(ctx context.Context, in model.Intent) model.AgentResponse {
	if in.Model == "" {
		return clarification("Which model's fields do you want to see?")
	}

	sc, err := a.schemas.Get(ctx, in.Model, false)
	if err != nil {
		observability.RequestLogger(ctx, a.logger).Warn("schema query failed",
			zap.String("model", in.Model), zap.Error(err))
		return errorResponse(a.sanitized(err))
	}

	return model.AgentResponse{
		Type:    model.ResponseSchema,
		Content: formatSchema(sc, in.Parameters.Field),
		Model:   in.Model,
	}
}

func (a *Agent) handleChat(in model.Intent) model.AgentResponse {
	content := "I can look up, create, update, and delete ERP records, run workflow " +
		"actions, and explain which models and fields are available. What would you like to do?"
	if in.Parameters.Message != "" {
		content = in.Parameters.Message
	}
	return model.AgentResponse{Type: model.ResponseChat, Content: content}
}

// validationFailed builds the error response for a rejected write, with
// did-you-mean suggestions for values that look like mistyped selections.
func (a *Agent) validationFailed(ctx context.Context, modelName string, original map[string]any, outcome model.ValidationOutcome) model.AgentResponse {
	if a.metrics != nil {
		a.metrics.RecordValidationFailure(modelName)
	}

	msgs := append([]string(nil), outcome.Errors...)
	for name, value := range original {
		if _, accepted := outcome.Accepted[name]; accepted {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		if suggestion := a.validator.SuggestCorrection(ctx, name, s, modelName); suggestion != "" {
			msgs = append(msgs, fmt.Sprintf("Did you mean '%s' for %s?", suggestion, name))
		}
	}

	return model.AgentResponse{
		Type:    model.ResponseError,
		Content: "Some values were rejected:\n- " + strings.Join(msgs, "\n- "),
		Model:   modelName,
		Errors:  msgs,
	}
}

// recordLabel fetches the display name of one record, best effort.
func (a *Agent) recordLabel(ctx context.Context, modelName string, id int64) string {
	records, err := a.client.SearchRead(ctx, modelName,
		[]any{[]any{"id", "=", id}}, []string{"display_name"}, 1, 0)
	if err != nil || len(records) == 0 {
		return ""
	}
	if name, ok := records[0]["display_name"].(string); ok && name != "" {
		return fmt.Sprintf(" (%s)", name)
	}
	return ""
}

func methodAllowed(allowed []string, method string) bool {
	for _, m := range allowed {
		if m == method {
			return true
		}
	}
	return false
}

func formatRecords(modelName string, records []map[string]any, total int64) string {
	if len(records) == 0 {
		return fmt.Sprintf("No %s records match.", modelName)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s record(s)", total, modelName)
	if int64(len(records)) < total {
		fmt.Fprintf(&b, ", showing %d", len(records))
	}
	b.WriteString(":\n")
	for _, rec := range records {
		b.WriteString("- ")
		b.WriteString(recordLine(rec))
		b.WriteString("\n")
	}
	return b.String()
}

// recordLine renders one record as "#id name" plus any other small fields.
func recordLine(rec map[string]any) string {
	var b strings.Builder
	if id, ok := rec["id"]; ok {
		fmt.Fprintf(&b, "#%v", id)
	}
	if name, ok := rec["display_name"].(string); ok && name != "" {
		fmt.Fprintf(&b, " %s", name)
	} else if name, ok := rec["name"].(string); ok && name != "" {
		fmt.Fprintf(&b, " %s", name)
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		switch k {
		case "id", "name", "display_name":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := rec[k]
		// Relational fields come back as [id, label]; show the label.
		if pair, ok := v.([]any); ok && len(pair) == 2 {
			v = pair[1]
		}
		if v == false || v == nil {
			continue
		}
		fmt.Fprintf(&b, ", %s: %v", k, v)
	}
	return b.String()
}

func formatValues(values map[string]any) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, values[k])
	}
	return b.String()
}

func formatSchema(sc *model.EntitySchema, field string) string {
	if field != "" {
		if f := sc.Field(field); f != nil {
			var b strings.Builder
			fmt.Fprintf(&b, "Field `%s` on %s:\n", f.Name, sc.Model)
			fmt.Fprintf(&b, "- type: %s\n- label: %s\n", f.Kind, f.Label)
			if f.Required {
				b.WriteString("- required\n")
			}
			if f.ReadOnly {
				b.WriteString("- readonly\n")
			}
			if len(f.Selection) > 0 {
				b.WriteString("- values:\n")
				for _, opt := range f.Selection {
					fmt.Fprintf(&b, "  - `%s`: %s\n", opt.Value, opt.Label)
				}
			}
			if f.Relation != "" {
				fmt.Fprintf(&b, "- relation: %s\n", f.Relation)
			}
			return b.String()
		}
		return fmt.Sprintf("Model %s has no field %q.", sc.Model, field)
	}
	return formatSchemaSummary(sc)
}

func actionSummary(action model.PendingAction, recordID int64) string {
	switch action.Operation {
	case model.OpCreate:
		return fmt.Sprintf("Created %s record #%d.", action.Model, recordID)
	case model.OpUpdate:
		return fmt.Sprintf("Updated %s record #%d.", action.Model, action.RecordID)
	case model.OpDelete:
		return fmt.Sprintf("Deleted %s record #%d.", action.Model, action.RecordID)
	case model.OpAction:
		return fmt.Sprintf("Ran %s on %s record #%d.", action.Method, action.Model, action.RecordID)
	case model.OpMessage:
		return fmt.Sprintf("Posted a message on %s record #%d.", action.Model, action.RecordID)
	}
	return "Done."
}

func sanitizeError(err error) string {
	return sanitize.Error(err)
}
