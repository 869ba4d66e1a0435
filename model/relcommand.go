package model

import (
	"encoding/json"
	"fmt"
)

// RelVerb is the tag of an x2many link-list command. The numeric values are
// the backend's wire encoding and must not change.
type RelVerb int

const (
	// RelCreate creates a new related record from Values.
	RelCreate RelVerb = 0
	// RelUpdate updates the related record ID with Values.
	RelUpdate RelVerb = 1
	// RelDelete deletes the related record ID from the database.
	RelDelete RelVerb = 2
	// RelUnlink removes the relation to ID without deleting the record.
	RelUnlink RelVerb = 3
	// RelLink adds a relation to the existing record ID.
	RelLink RelVerb = 4
	// RelClear removes all relations.
	RelClear RelVerb = 5
	// RelReplace replaces the whole relation set with IDs.
	RelReplace RelVerb = 6
)

// RelCommand is one command of the x2many micro-language. Which of ID,
// Values, and IDs is meaningful depends on the verb; the wire shape is
// always a [verb, id, payload] triple.
type RelCommand struct {
	Verb   RelVerb
	ID     int64
	Values map[string]any
	IDs    []int64
}

// ReplaceWith builds the single-command list that replaces an entire
// relation set with the given identifiers, preserving order.
func ReplaceWith(ids []int64) []RelCommand {
	return []RelCommand{{Verb: RelReplace, IDs: ids}}
}

// ClearAll builds the single-command list that removes every relation.
func ClearAll() []RelCommand {
	return []RelCommand{{Verb: RelClear}}
}

// MarshalJSON encodes the command as the backend's [verb, id, payload] triple.
func (c RelCommand) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.toWire())
}

func (c RelCommand) toWire() []any {
	switch c.Verb {
	case RelCreate:
		return []any{int(c.Verb), 0, c.Values}
	case RelUpdate:
		return []any{int(c.Verb), c.ID, c.Values}
	case RelDelete, RelUnlink, RelLink:
		return []any{int(c.Verb), c.ID, 0}
	case RelClear:
		return []any{int(c.Verb), 0, 0}
	case RelReplace:
		ids := c.IDs
		if ids == nil {
			ids = []int64{}
		}
		return []any{int(c.Verb), 0, ids}
	default:
		return []any{int(c.Verb), c.ID, 0}
	}
}

// RelCommandsToWire converts a command list to the []any shape the RPC
// layer sends.
func RelCommandsToWire(cmds []RelCommand) []any {
	out := make([]any, len(cmds))
	for i, c := range cmds {
		out[i] = c.toWire()
	}
	return out
}

// DecodeReplaceIDs extracts the identifier list from a single replace
// command, the inverse of ReplaceWith. It fails on any other shape.
func DecodeReplaceIDs(cmds []RelCommand) ([]int64, error) {
	if len(cmds) != 1 || cmds[0].Verb != RelReplace {
		return nil, fmt.Errorf("not a single replace command")
	}
	return cmds[0].IDs, nil
}
