package integration

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// RecordedCall captures one object.execute_kw invocation received by the
// mock ERP backend.
type RecordedCall struct {
	Model  string
	Method string
	Args   []any
	Kwargs map[string]any
}

// MockOdoo simulates an ERP JSON-RPC endpoint. It answers
// common.authenticate with a fixed uid and routes object.execute_kw by
// method name against in-memory model data, recording every call.
type MockOdoo struct {
	t      *testing.T
	server *httptest.Server

	mu      sync.Mutex
	uid     any
	fields  map[string]map[string]map[string]any
	records map[string][]map[string]any
	nextID  int64
	calls   []RecordedCall

	// failMethod, when set, makes execute_kw calls of that method return
	// failError as a JSON-RPC fault.
	failMethod string
	failError  string

	// down makes every request answer 502 to simulate an outage.
	down bool
}

type mockRPCRequest struct {
	Method string `json:"method"`
	ID     int64  `json:"id"`
	Params struct {
		Service string `json:"service"`
		Method  string `json:"method"`
		Args    []any  `json:"args"`
	} `json:"params"`
}

func newMockOdoo(t *testing.T) *MockOdoo {
	t.Helper()
	m := &MockOdoo{
		t:      t,
		uid:    int64(7),
		nextID: 1000,
		fields: map[string]map[string]map[string]any{
			"res.partner": {
				"name":       {"type": "char", "string": "Name", "required": true},
				"email":      {"type": "char", "string": "Email"},
				"is_company": {"type": "boolean", "string": "Is a Company"},
			},
			"sale.order": {
				"partner_id": {"type": "many2one", "string": "Customer", "relation": "res.partner", "required": true},
				"state": {
					"type": "selection", "string": "Status",
					"selection": []any{
						[]any{"draft", "Quotation"},
						[]any{"sale", "Sales Order"},
					},
				},
			},
		},
		records: map[string][]map[string]any{
			"res.partner": {
				{"id": int64(1), "name": "ACME Corp", "email": "hello@acme.test"},
				{"id": int64(2), "name": "Globex", "email": "info@globex.test"},
			},
			"ir.model": {
				{"model": "res.partner", "name": "Contact"},
				{"model": "sale.order", "name": "Sales Order"},
			},
		},
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.server.Close)
	return m
}

// URL returns the mock backend's base URL.
func (m *MockOdoo) URL() string { return m.server.URL }

// Calls returns a copy of the recorded execute_kw calls.
func (m *MockOdoo) Calls() []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallsTo returns the recorded calls of one method on one model.
func (m *MockOdoo) CallsTo(model, method string) []RecordedCall {
	var out []RecordedCall
	for _, c := range m.Calls() {
		if c.Model == model && c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// FailMethod makes execute_kw calls of the named method return a backend
// fault with the given message.
func (m *MockOdoo) FailMethod(method, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failMethod = method
	m.failError = message
}

// SetDown toggles outage mode: every request answers 502.
func (m *MockOdoo) SetDown(down bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.down = down
}

func (m *MockOdoo) handle(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	if m.down {
		m.mu.Unlock()
		w.WriteHeader(http.StatusBadGateway)
		return
	}
	m.mu.Unlock()

	var req mockRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	switch req.Params.Service {
	case "common":
		if req.Params.Method == "version" {
			m.writeResult(w, req.ID, map[string]any{"server_version": "17.0"})
			return
		}
		m.writeResult(w, req.ID, m.uid)
	case "object":
		m.handleExecuteKw(w, req)
	default:
		m.writeError(w, req.ID, "unknown service "+req.Params.Service)
	}
}

func (m *MockOdoo) handleExecuteKw(w http.ResponseWriter, req mockRPCRequest) {
	args := req.Params.Args
	if len(args) < 5 {
		m.writeError(w, req.ID, "execute_kw needs at least 5 args")
		return
	}
	model, _ := args[3].(string)
	method, _ := args[4].(string)

	var callArgs []any
	if len(args) > 5 {
		callArgs, _ = args[5].([]any)
	}
	var kwargs map[string]any
	if len(args) > 6 {
		kwargs, _ = args[6].(map[string]any)
	}

	m.mu.Lock()
	m.calls = append(m.calls, RecordedCall{Model: model, Method: method, Args: callArgs, Kwargs: kwargs})
	failMethod, failError := m.failMethod, m.failError
	m.mu.Unlock()

	if failMethod != "" && method == failMethod {
		m.writeError(w, req.ID, failError)
		return
	}

	switch method {
	case "fields_get":
		m.mu.Lock()
		fields, ok := m.fields[model]
		m.mu.Unlock()
		if !ok {
			m.writeError(w, req.ID, "Object "+model+" doesn't exist")
			return
		}
		m.writeResult(w, req.ID, fields)
	case "search_read":
		m.mu.Lock()
		records := m.records[model]
		m.mu.Unlock()
		if records == nil {
			records = []map[string]any{}
		}
		m.writeResult(w, req.ID, records)
	case "search_count":
		m.mu.Lock()
		n := len(m.records[model])
		m.mu.Unlock()
		m.writeResult(w, req.ID, n)
	case "create":
		m.mu.Lock()
		m.nextID++
		id := m.nextID
		if len(callArgs) == 1 {
			if values, ok := callArgs[0].(map[string]any); ok {
				record := map[string]any{"id": id}
				for k, v := range values {
					record[k] = v
				}
				m.records[model] = append(m.records[model], record)
			}
		}
		m.mu.Unlock()
		m.writeResult(w, req.ID, id)
	case "write", "unlink":
		m.writeResult(w, req.ID, true)
	case "message_post":
		m.writeResult(w, req.ID, 1)
	default:
		// Workflow-style actions (action_confirm and friends).
		m.writeResult(w, req.ID, true)
	}
}

func (m *MockOdoo) writeResult(w http.ResponseWriter, id int64, result any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func (m *MockOdoo) writeError(w http.ResponseWriter, id int64, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error": map[string]any{
			"code":    200,
			"message": "Odoo Server Error",
			"data": map[string]any{
				"name":    "odoo.exceptions.UserError",
				"message": message,
			},
		},
	})
}
