package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotObject is returned when a listing item is not a JSON object.
var ErrNotObject = errors.New("PAYLOAD_NOT_OBJECT")

// payload gives typed, optional access to the fields of one JSON object and
// remembers every field that was missing or unusable.
type payload struct {
	fields    map[string]json.RawMessage
	defaulted []string
}

func newPayload(raw json.RawMessage) (*payload, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, ErrNotObject
	}
	return &payload{fields: fields}, nil
}

func (p *payload) lookup(key string) (json.RawMessage, bool) {
	raw, ok := p.fields[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil, false
	}
	return raw, true
}

func (p *payload) missing(key string) {
	p.defaulted = append(p.defaulted, key)
}

// scalarText returns the textual form of a string or number field without
// marking it defaulted.
func (p *payload) scalarText(key string) (string, bool) {
	raw, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// firstNonBlank returns the first of keys whose value is non-blank.
func (p *payload) firstNonBlank(keys ...string) string {
	for _, k := range keys {
		if v, ok := p.scalarText(k); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func (p *payload) textField(key string) *string {
	v, ok := p.scalarText(key)
	if !ok {
		p.missing(key)
		return nil
	}
	return &v
}

func (p *payload) number(key string) (json.Number, bool) {
	raw, ok := p.lookup(key)
	if !ok {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", false
	}
	return n, true
}

func (p *payload) int64Field(key string) *int64 {
	n, ok := p.number(key)
	if !ok {
		p.missing(key)
		return nil
	}
	if i, err := n.Int64(); err == nil {
		return &i
	}
	if f, err := n.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < math.MaxInt64 {
		i := int64(f)
		return &i
	}
	p.missing(key)
	return nil
}

func (p *payload) intField(key string) *int {
	v := p.int64Field(key)
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

func (p *payload) boolField(key string) *bool {
	raw, ok := p.lookup(key)
	if !ok {
		p.missing(key)
		return nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		p.missing(key)
		return nil
	}
	return &b
}

// decimalField accepts a JSON number or a numeric string; anything else is null.
func (p *payload) decimalField(key string) decimal.NullDecimal {
	v, ok := p.scalarText(key)
	if !ok || strings.TrimSpace(v) == "" {
		p.missing(key)
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		p.missing(key)
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// lenOfArray returns the length of an array field, or nil when it is not an array.
func (p *payload) lenOfArray(key string) *int {
	raw, ok := p.lookup(key)
	if !ok {
		p.missing(key)
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.missing(key)
		return nil
	}
	n := len(items)
	return &n
}
