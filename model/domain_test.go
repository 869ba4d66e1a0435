package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestDomainMarshalJSON(t *testing.T) {
	d := Domain{
		Tok(DomainAnd),
		Leaf("date_order", ">=", "2025-01-01"),
		Leaf("state", "=", "sale"),
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal error = %v", err)
	}
	var got []any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decoding wire shape: %v", err)
	}
	want := []any{
		"&",
		[]any{"date_order", ">=", "2025-01-01"},
		[]any{"state", "=", "sale"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("wire shape = %#v, want %#v", got, want)
	}
}

func TestDomainUnmarshalJSON(t *testing.T) {
	var d Domain
	raw := `["|",["name","ilike","acme"],["id","=",7]]`
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}

	if len(d) != 3 {
		t.Fatalf("len = %d", len(d))
	}
	if d[0].Token != DomainOr || d[0].Leaf != nil {
		t.Errorf("element 0 = %+v", d[0])
	}
	if d[1].Leaf == nil || d[1].Leaf.Field != "name" || d[1].Leaf.Operator != "ilike" {
		t.Errorf("element 1 = %+v", d[1])
	}
	// JSON numbers decode as float64.
	if d[2].Leaf == nil || d[2].Leaf.Value != float64(7) {
		t.Errorf("element 2 = %+v", d[2])
	}
}

func TestDomainUnmarshalRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"two-member condition", `[["name","="]]`},
		{"four-member condition", `[["name","=","x","y"]]`},
		{"non-string field", `[[1,"=","x"]]`},
		{"non-string operator", `[["name",2,"x"]]`},
		{"numeric element", `[42]`},
		{"not a list", `{"name":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Domain
			if err := json.Unmarshal([]byte(tt.raw), &d); err == nil {
				t.Errorf("Unmarshal(%s) accepted, want error", tt.raw)
			}
		})
	}
}

func TestDomainToWire(t *testing.T) {
	d := Domain{
		Tok(DomainNot),
		Leaf("active", "=", false),
	}

	got := d.ToWire()
	want := []any{"!", []any{"active", "=", false}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ToWire = %#v, want %#v", got, want)
	}
}

func TestDomainEmpty(t *testing.T) {
	data, err := json.Marshal(Domain{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]" {
		t.Errorf("empty domain = %s", data)
	}
	if got := (Domain{}).ToWire(); len(got) != 0 {
		t.Errorf("ToWire of empty domain = %#v", got)
	}
}
