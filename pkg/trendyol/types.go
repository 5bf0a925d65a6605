package trendyol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Page is one page of a paginated listing. Content items are kept raw so the
// caller can map them and persist the received payload verbatim.
type Page struct {
	Content    []json.RawMessage
	TotalPages *int // nil when the API did not report an integer
}

// Empty reports whether the page carried no items.
func (p *Page) Empty() bool {
	return p == nil || len(p.Content) == 0
}

// IsLast reports whether page index is the last one according to TotalPages.
func (p *Page) IsLast(index int) bool {
	return p != nil && p.TotalPages != nil && index+1 >= *p.TotalPages
}

// decodePage validates the listing envelope: the top level must be an object
// and "content", when present and not null, must be an array.
func decodePage(body []byte) (*Page, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil || envelope == nil {
		return nil, fmt.Errorf("%w: top-level payload is not an object", ErrUnexpectedResponse)
	}

	page := &Page{}
	if raw, ok := envelope["content"]; ok && !isNull(raw) {
		if err := json.Unmarshal(raw, &page.Content); err != nil {
			return nil, fmt.Errorf("%w: 'content' field is not a list", ErrUnexpectedResponse)
		}
	}

	if raw, ok := envelope["totalPages"]; ok {
		var total int
		if err := json.Unmarshal(raw, &total); err == nil {
			page.TotalPages = &total
		}
	}
	return page, nil
}

// BuyboxInfo is one entry of the buy-box information response. Fields the
// platform sent in an unusable form are left at their zero value.
type BuyboxInfo struct {
	Barcode           FlexString
	BuyboxPrice       decimal.NullDecimal
	HasMultipleSeller bool
	BuyboxOrder       *int
}

// decodeBuybox accepts {"buyboxInfo": [...]} or a bare array. Entries are
// mapped one by one; an entry that is not an object or has no barcode is
// dropped without affecting the others.
func decodeBuybox(body []byte) ([]BuyboxInfo, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty buybox response", ErrUnexpectedResponse)
	}

	var raws []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &raws); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
	case '{':
		var wrapped struct {
			BuyboxInfo []json.RawMessage `json:"buyboxInfo"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
		}
		raws = wrapped.BuyboxInfo
	default:
		return nil, fmt.Errorf("%w: buybox response is neither object nor list", ErrUnexpectedResponse)
	}

	entries := make([]BuyboxInfo, 0, len(raws))
	for _, raw := range raws {
		if info, ok := parseBuyboxEntry(raw); ok {
			entries = append(entries, info)
		}
	}
	return entries, nil
}

func parseBuyboxEntry(raw json.RawMessage) (BuyboxInfo, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return BuyboxInfo{}, false
	}

	var info BuyboxInfo
	if v, ok := fields["barcode"]; ok {
		_ = json.Unmarshal(v, &info.Barcode)
	}
	if info.Barcode.String() == "" {
		return BuyboxInfo{}, false
	}
	info.BuyboxPrice = lenientDecimal(fields["buyboxPrice"])
	info.HasMultipleSeller = lenientBool(fields["hasMultipleSeller"])
	info.BuyboxOrder = lenientInt(fields["buyboxOrder"])
	return info, true
}

// lenientText returns the trimmed text of a JSON string or number.
func lenientText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s FlexString
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s.String()
}

func lenientDecimal(raw json.RawMessage) decimal.NullDecimal {
	d, err := decimal.NewFromString(lenientText(raw))
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

func lenientInt(raw json.RawMessage) *int {
	d, err := decimal.NewFromString(lenientText(raw))
	if err != nil || !d.IsInteger() {
		return nil
	}
	v := int(d.IntPart())
	return &v
}

// lenientBool accepts true/false as JSON booleans or strings; anything else is false.
func lenientBool(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	b, _ = strconv.ParseBool(lenientText(raw))
	return b
}

// FlexString decodes a JSON string or number into its textual form. Null
// decodes to the empty string.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *FlexString) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("flex string: unsupported value %s", string(b))
	}
	*s = FlexString(n.String())
	return nil
}

// String returns the value with surrounding whitespace removed.
func (s FlexString) String() string {
	return strings.TrimSpace(string(s))
}

func isNull(b []byte) bool {
	return string(bytes.TrimSpace(b)) == "null"
}
