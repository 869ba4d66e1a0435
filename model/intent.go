package model

// Intent types the classifier can emit.
const (
	IntentQuery       = "QUERY"
	IntentCreate      = "CREATE"
	IntentUpdate      = "UPDATE"
	IntentDelete      = "DELETE"
	IntentAction      = "ACTION"
	IntentMetadata    = "METADATA"
	IntentSchemaQuery = "SCHEMA_QUERY"
	IntentChat        = "CHAT"
	IntentMessage     = "MESSAGE"
	IntentAttach      = "ATTACH"
)

// Intent is the structured classification of one user message. The
// classifier is an unreliable producer: Model may be empty and Parameters
// may carry malformed filters or values that the core must sanitize.
type Intent struct {
	Type       string           `json:"intent"`
	Model      string           `json:"model,omitempty"`
	Confidence float64          `json:"confidence"`
	Parameters IntentParameters `json:"parameters"`
	Reasoning  string           `json:"reasoning,omitempty"`
}

// IntentParameters carries the loosely-typed operation parameters extracted
// from the user message.
type IntentParameters struct {
	Filters  any            `json:"filters,omitempty"`
	Values   map[string]any `json:"values,omitempty"`
	RecordID int64          `json:"record_id,omitempty"`
	Method   string         `json:"method,omitempty"`
	Message  string         `json:"message,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Field    string         `json:"field,omitempty"`
}

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Response kinds returned by the agent.
const (
	ResponseQueryResult   = "query_result"
	ResponseClarification = "clarification"
	ResponseConfirmation  = "confirmation_required"
	ResponseChat          = "chat"
	ResponseMetadata      = "metadata"
	ResponseSchema        = "schema"
	ResponseActionResult  = "action_result"
	ResponseError         = "error"
)

// AgentResponse is what the agent returns for one processed message.
type AgentResponse struct {
	Type       string           `json:"type"`
	Content    string           `json:"content"`
	Model      string           `json:"model,omitempty"`
	Count      int              `json:"count,omitempty"`
	TotalCount int64            `json:"total_count,omitempty"`
	Results    []map[string]any `json:"results,omitempty"`
	RecordID   int64            `json:"record_id,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
	Pending    *PendingAction   `json:"pending,omitempty"`
}

// Pending-action operations awaiting user confirmation.
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpAction  = "action"
	OpMessage = "message"
)

// PendingAction is a mutating operation held behind the confirmation gate.
// It is stored in the session store and executed only when the user confirms.
type PendingAction struct {
	ID        string         `json:"id"`
	Operation string         `json:"operation"`
	Model     string         `json:"model"`
	RecordID  int64          `json:"record_id,omitempty"`
	Values    map[string]any `json:"values,omitempty"`
	Method    string         `json:"method,omitempty"`
	Message   string         `json:"message,omitempty"`
}
