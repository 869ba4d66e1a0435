package validate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/undergnarly/odoo-mcp-chat/model"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05"
)

// dateLayouts are tried in order; the first successful parse wins.
var dateLayouts = []string{
	"2006-01-02",          // ISO (backend default)
	"02.01.2006",          // European dotted
	"02/01/2006",          // European slashed
	"01/02/2006",          // US
	"2006-01-02 15:04:05", // ISO datetime, truncated to date
}

var datetimeLayouts = []string{
	"2006-01-02 15:04:05", // ISO (backend default)
	"2006-01-02T15:04:05", // ISO with T separator
	"2006-01-02 15:04",    // without seconds
	"02.01.2006 15:04:05", // European with time
	"02.01.2006 15:04",    // European without seconds
	"02/01/2006 15:04:05", // European slashed
	"2006-01-02",          // bare date means midnight
}

// convertValue coerces one raw value to the protocol representation for its
// field kind. Nil passes through unless the field is required. Unrecognized
// kinds pass through unchanged for forward compatibility.
func convertValue(value any, field *model.FieldSchema) (any, error) {
	if value == nil {
		if field.Required {
			return nil, fmt.Errorf("required field cannot be null")
		}
		return nil, nil
	}

	switch field.Kind {
	case model.KindInteger:
		return convertInteger(value)
	case model.KindFloat, model.KindMonetary:
		return convertFloat(value)
	case model.KindBoolean:
		return convertBoolean(value)
	case model.KindDate:
		return convertDate(value)
	case model.KindDatetime:
		return convertDatetime(value)
	case model.KindSelection:
		return convertSelection(value, field)
	case model.KindMany2one:
		return convertMany2one(value)
	case model.KindOne2many, model.KindMany2many:
		return convertX2many(value)
	case model.KindChar, model.KindText, model.KindHTML:
		return stringify(value), nil
	case model.KindBinary:
		// Assumed already base64-encoded by the caller.
		return value, nil
	default:
		return value, nil
	}
}

func convertInteger(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		cleaned := strings.NewReplacer(",", "", " ", "").Replace(strings.TrimSpace(v))
		// A float parse tolerates a trailing ".0" form; truncate like the
		// backend would.
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert '%s' to integer", cleaned)
		}
		return int64(f), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to integer", value)
	}
}

func convertFloat(value any) (any, error) {
	switch v := value.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		cleaned := strings.NewReplacer(",", ".", " ", "").Replace(strings.TrimSpace(v))
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return nil, fmt.Errorf("cannot convert '%s' to float", cleaned)
		}
		return f, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to float", value)
	}
}

var (
	affirmatives = map[string]bool{"true": true, "1": true, "yes": true, "да": true, "on": true}
	negatives    = map[string]bool{"false": true, "0": true, "no": true, "нет": true, "off": true}
)

func convertBoolean(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case int:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	case string:
		lower := strings.ToLower(strings.TrimSpace(v))
		if affirmatives[lower] {
			return true, nil
		}
		if negatives[lower] {
			return false, nil
		}
		return nil, fmt.Errorf("cannot convert '%s' to boolean", v)
	default:
		return nil, fmt.Errorf("cannot convert %T to boolean", value)
	}
}

func convertDate(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(dateLayout), nil
	case string:
		trimmed := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t.Format(dateLayout), nil
			}
		}
		return nil, fmt.Errorf("cannot parse date: '%s'. Use YYYY-MM-DD format", trimmed)
	default:
		return nil, fmt.Errorf("cannot convert %T to date", value)
	}
}

func convertDatetime(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(datetimeLayout), nil
	case string:
		trimmed := strings.TrimSpace(v)
		for _, layout := range datetimeLayouts {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t.Format(datetimeLayout), nil
			}
		}
		return nil, fmt.Errorf("cannot parse datetime: '%s'. Use YYYY-MM-DD HH:MM:SS format", trimmed)
	default:
		return nil, fmt.Errorf("cannot convert %T to datetime", value)
	}
}

// convertSelection accepts a value that matches a legal raw value exactly,
// case-insensitively, or by choice label, in that order. A field without a
// known choice list passes the trimmed value through unvalidated.
func convertSelection(value any, field *model.FieldSchema) (any, error) {
	str := strings.TrimSpace(stringify(value))

	allowed := field.SelectionValues()
	if len(allowed) == 0 {
		return str, nil
	}

	for _, raw := range allowed {
		if str == raw {
			return raw, nil
		}
	}

	lower := strings.ToLower(str)
	for _, raw := range allowed {
		if strings.ToLower(raw) == lower {
			return raw, nil
		}
	}

	for _, opt := range field.Selection {
		if strings.ToLower(opt.Label) == lower {
			return opt.Value, nil
		}
	}

	return nil, fmt.Errorf("invalid value '%s'. Allowed: %s", str, strings.Join(allowed, ", "))
}

// convertMany2one resolves a single-reference value to an integer id. The
// backend's empty-reference sentinel is false, not null, and is preserved.
func convertMany2one(value any) (any, error) {
	switch v := value.(type) {
	case bool:
		if !v {
			return false, nil
		}
		return nil, fmt.Errorf("many2one field requires integer ID, got 'true'")
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case []any:
		// The [id, display_name] pair shape returned by reads.
		if len(v) >= 1 {
			return referenceID(v[0])
		}
		return nil, fmt.Errorf("many2one field requires integer ID, got empty list")
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("many2one field requires integer ID, got '%s'", v)
		}
		return id, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to many2one ID", value)
	}
}

// convertX2many encodes a multi-reference value as link-list commands.
// Already-encoded command lists pass through unchanged; a plain id list
// becomes a single replace command; nil became a clear command in
// convertValue's caller path — here nil means a JSON null inside the list
// handling, so treat it the same.
func convertX2many(value any) (any, error) {
	if value == nil {
		return model.ClearAll(), nil
	}

	list, ok := value.([]any)
	if !ok {
		// Typed id slices arrive from internal callers.
		if ids, ok := value.([]int64); ok {
			return model.ReplaceWith(ids), nil
		}
		return nil, fmt.Errorf("cannot convert %T to x2many format", value)
	}

	if isCommandList(list) {
		return value, nil
	}

	ids := make([]int64, 0, len(list))
	for _, el := range list {
		switch v := el.(type) {
		case float64:
			ids = append(ids, int64(v))
		case int:
			ids = append(ids, int64(v))
		case int64:
			ids = append(ids, v)
		case []any:
			if len(v) >= 1 {
				if id, err := referenceID(v[0]); err == nil {
					ids = append(ids, id)
				}
			}
		case string:
			if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				ids = append(ids, id)
			}
			// Unparseable members are skipped, not fatal.
		}
	}
	return model.ReplaceWith(ids), nil
}

// isCommandList reports whether every element already looks like a
// [verb, id, payload] command triple.
func isCommandList(list []any) bool {
	if len(list) == 0 {
		return false
	}
	for _, el := range list {
		triple, ok := el.([]any)
		if !ok || len(triple) != 3 {
			return false
		}
		verb, err := referenceID(triple[0])
		if err != nil || verb < 0 || verb > 6 {
			return false
		}
	}
	return true
}

func referenceID(v any) (int64, error) {
	switch id := v.(type) {
	case float64:
		return int64(id), nil
	case int:
		return int64(id), nil
	case int64:
		return id, nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	default:
		return 0, fmt.Errorf("not an integer id: %T", v)
	}
}

func stringify(value any) string {
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
