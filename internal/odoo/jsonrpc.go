package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// JSONRPCClient talks to the backend's /jsonrpc endpoint using the
// object.execute_kw convention. Authentication happens lazily on the first
// call and the resulting uid is reused until an access fault forces a
// re-login.
type JSONRPCClient struct {
	endpoint string
	database string
	login    string
	apiKey   string

	httpClient *http.Client
	breaker    *Breaker
	logger     *zap.Logger

	reqID atomic.Int64

	mu  sync.Mutex
	uid int64
}

// Options configures a JSONRPCClient.
type Options struct {
	// URL is the backend base URL, e.g. "https://erp.example.com".
	URL      string
	Database string
	Login    string
	// APIKey is the login password or API key.
	APIKey  string
	Timeout time.Duration
	Breaker *Breaker
	Logger  *zap.Logger
}

// NewJSONRPCClient creates a client. No network call is made until the
// first request.
func NewJSONRPCClient(opts Options) *JSONRPCClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := opts.Breaker
	if breaker == nil {
		breaker = NewBreaker(5, 2, 30*time.Second)
	}
	return &JSONRPCClient{
		endpoint:   opts.URL + "/jsonrpc",
		database:   opts.Database,
		login:      opts.Login,
		apiKey:     opts.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    breaker,
		logger:     logger,
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Data    *rpcErrorData `json:"data"`
}

type rpcErrorData struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Debug   string `json:"debug"`
}

// call performs one JSON-RPC round trip through the breaker.
func (c *JSONRPCClient) call(ctx context.Context, service, method string, args []any, out any) error {
	if !c.breaker.Allow() {
		return &Fault{Kind: FaultTransport, Message: "circuit breaker open"}
	}
	err := c.doCall(ctx, service, method, args, out)
	c.breaker.Record(err)
	return err
}

func (c *JSONRPCClient) doCall(ctx context.Context, service, method string, args []any, out any) error {
	payload := rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.reqID.Add(1),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return transportFault(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return transportFault(err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportFault(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return transportFault(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return transportFault(fmt.Errorf("decoding response: %w", err))
	}

	c.logger.Debug("rpc call",
		zap.String("service", service),
		zap.String("method", method),
		zap.Duration("elapsed", time.Since(start)))

	if rpcResp.Error != nil {
		msg := rpcResp.Error.Message
		debug := ""
		if rpcResp.Error.Data != nil {
			if rpcResp.Error.Data.Message != "" {
				msg = rpcResp.Error.Data.Message
			}
			debug = rpcResp.Error.Data.Debug
		}
		return classifyFault(msg, debug)
	}

	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return transportFault(fmt.Errorf("decoding result: %w", err))
		}
	}
	return nil
}

// authenticate resolves and caches the uid for the configured credentials.
func (c *JSONRPCClient) authenticate(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != 0 {
		return c.uid, nil
	}

	var raw any
	err := c.call(ctx, "common", "authenticate",
		[]any{c.database, c.login, c.apiKey, map[string]any{}}, &raw)
	if err != nil {
		return 0, err
	}
	// The backend returns false for bad credentials, a numeric uid otherwise.
	id, convErr := toInt64(raw)
	if convErr != nil || id == 0 {
		return 0, &Fault{Kind: FaultAccessDenied, Message: "authentication failed"}
	}
	c.uid = id
	c.logger.Info("authenticated against backend", zap.Int64("uid", id))
	return id, nil
}

// ExecuteKw invokes model.method(args, kwargs) through object.execute_kw.
func (c *JSONRPCClient) ExecuteKw(ctx context.Context, model, method string, args []any, kwargs map[string]any) (any, error) {
	uid, err := c.authenticate(ctx)
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = []any{}
	}
	if kwargs == nil {
		kwargs = map[string]any{}
	}

	var result any
	err = c.call(ctx, "object", "execute_kw",
		[]any{c.database, uid, c.apiKey, model, method, args, kwargs}, &result)
	if err != nil {
		// A stale session comes back as an access fault; drop the cached
		// uid so the next call re-authenticates.
		if FaultKindOf(err) == FaultAccessDenied {
			c.mu.Lock()
			c.uid = 0
			c.mu.Unlock()
		}
		return nil, err
	}
	return result, nil
}

// FieldsGet returns the fields_get payload restricted to the given attributes.
func (c *JSONRPCClient) FieldsGet(ctx context.Context, model string, attributes []string) (map[string]map[string]any, error) {
	raw, err := c.ExecuteKw(ctx, model, "fields_get", []any{[]any{}},
		map[string]any{"attributes": attributes})
	if err != nil {
		return nil, err
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, &Fault{Kind: FaultServer, Message: fmt.Sprintf("fields_get returned %T", raw)}
	}
	fields := make(map[string]map[string]any, len(obj))
	for name, info := range obj {
		if m, ok := info.(map[string]any); ok {
			fields[name] = m
		}
	}
	return fields, nil
}

// SearchRead searches a model and reads the given fields.
func (c *JSONRPCClient) SearchRead(ctx context.Context, model string, domain []any, fields []string, limit, offset int) ([]map[string]any, error) {
	if domain == nil {
		domain = []any{}
	}
	kwargs := map[string]any{}
	if len(fields) > 0 {
		kwargs["fields"] = fields
	}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	if offset > 0 {
		kwargs["offset"] = offset
	}
	raw, err := c.ExecuteKw(ctx, model, "search_read", []any{domain}, kwargs)
	if err != nil {
		return nil, err
	}
	arr, ok := raw.([]any)
	if !ok {
		return nil, &Fault{Kind: FaultServer, Message: fmt.Sprintf("search_read returned %T", raw)}
	}
	records := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if rec, ok := el.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// SearchCount counts records matching a domain.
func (c *JSONRPCClient) SearchCount(ctx context.Context, model string, domain []any) (int64, error) {
	if domain == nil {
		domain = []any{}
	}
	raw, err := c.ExecuteKw(ctx, model, "search_count", []any{domain}, nil)
	if err != nil {
		return 0, err
	}
	return toInt64(raw)
}

// Create inserts one record and returns its id.
func (c *JSONRPCClient) Create(ctx context.Context, model string, values map[string]any) (int64, error) {
	raw, err := c.ExecuteKw(ctx, model, "create", []any{values}, nil)
	if err != nil {
		return 0, err
	}
	return toInt64(raw)
}

// Write updates the given records.
func (c *JSONRPCClient) Write(ctx context.Context, model string, ids []int64, values map[string]any) error {
	_, err := c.ExecuteKw(ctx, model, "write", []any{ids, values}, nil)
	return err
}

// Unlink deletes the given records.
func (c *JSONRPCClient) Unlink(ctx context.Context, model string, ids []int64) error {
	_, err := c.ExecuteKw(ctx, model, "unlink", []any{ids}, nil)
	return err
}

// CallMethod invokes an arbitrary method on the given records.
func (c *JSONRPCClient) CallMethod(ctx context.Context, model, method string, ids []int64) (any, error) {
	return c.ExecuteKw(ctx, model, method, []any{ids}, nil)
}

// MessagePost posts a chatter comment on one record.
func (c *JSONRPCClient) MessagePost(ctx context.Context, model string, id int64, body string) error {
	_, err := c.ExecuteKw(ctx, model, "message_post", []any{[]int64{id}},
		map[string]any{"body": body, "message_type": "comment"})
	return err
}

// Version returns the backend's reported server version.
func (c *JSONRPCClient) Version(ctx context.Context) (string, error) {
	var out map[string]any
	if err := c.call(ctx, "common", "version", []any{}, &out); err != nil {
		return "", err
	}
	v, _ := out["server_version"].(string)
	return v, nil
}

// HealthCheck verifies the backend answers the common.version call.
func (c *JSONRPCClient) HealthCheck(ctx context.Context) error {
	_, err := c.Version(ctx)
	return err
}

// BreakerState reports the circuit breaker state for metrics.
func (c *JSONRPCClient) BreakerState() string {
	return c.breaker.State()
}

func toInt64(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	case json.Number:
		return v.Int64()
	default:
		return 0, &Fault{Kind: FaultServer, Message: fmt.Sprintf("expected numeric result, got %T", raw)}
	}
}
