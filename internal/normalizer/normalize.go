// Package normalizer turns loosely shaped reservation bodies into canonical
// records, checks them against the booking rules and the record schema, and
// merges partial updates into existing records.
package normalizer

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Document is a reservation body keyed by JSON field name.  Values are the
// types produced by encoding/json (string, float64, bool, nil, nested maps
// and slices) plus int for coerced numeric fields.
type Document map[string]any

// legacyKeys are the flattened form fields folded into contact and valid_id.
var legacyKeys = map[string]string{
	"phone":           "contact",
	"email":           "contact",
	"valid_id_type":   "valid_id",
	"valid_id_number": "valid_id",
}

// optionalStrings default to "" when a body omits them.  guest_name is
// deliberately absent: a new reservation has to name its guest.
var optionalStrings = []string{
	"resort_name",
	"street_address",
	"municipality",
	"region",
	"country",
	"checkin_date",
	"checkout_date",
	"payment_gateway",
	"room_type",
	"notes",
}

// DefaultResortID is used when a body does not reference a resort.
const DefaultResortID = 1

// Normalize rewrites in into canonical shape.  It never fails and never
// modifies in: guests that cannot be read as an integer become nil so the
// rule check reports a single message for it.
func Normalize(in Document) Document {
	out := make(Document, len(in)+len(optionalStrings)+4)
	for k, v := range in {
		if _, legacy := legacyKeys[k]; legacy {
			continue
		}
		out[k] = v
	}

	out["contact"] = map[string]any{
		"phone": pick(in, "contact", "phone", "phone"),
		"email": pick(in, "contact", "email", "email"),
	}
	out["valid_id"] = map[string]any{
		"type":   pick(in, "valid_id", "type", "valid_id_type"),
		"number": pick(in, "valid_id", "number", "valid_id_number"),
	}

	if raw, ok := in["guests"]; ok {
		if n, ok := toInt(raw); ok {
			out["guests"] = n
		} else {
			out["guests"] = nil
		}
	} else {
		out["guests"] = 1
	}

	if raw, ok := in["resort_id"]; !ok || raw == nil {
		out["resort_id"] = DefaultResortID
	} else if n, ok := toInt(raw); ok {
		out["resort_id"] = n
	}

	for _, k := range optionalStrings {
		if v, ok := out[k]; !ok || v == nil {
			out[k] = ""
		}
	}
	return out
}

// Supplied reports the canonical top-level keys a client actually sent in
// raw.  Flattened contact and valid_id fields count as their nested parent.
// null and "" values are not counted, so a field Normalize fills with its
// default never overwrites a stored one; guests is the exception and stays
// supplied so a bad value reaches the rule check.
func Supplied(raw Document) map[string]bool {
	keys := make(map[string]bool, len(raw))
	for k, v := range raw {
		if k != "guests" && isEmpty(v) {
			continue
		}
		if parent, legacy := legacyKeys[k]; legacy {
			keys[parent] = true
			continue
		}
		keys[k] = true
	}
	return keys
}

// pick returns the best available value for a nested sub-field: the nested
// object's value when it is non-empty, otherwise the flattened key, else "".
func pick(in Document, parent, field, flat string) any {
	if nested, ok := asMap(in[parent]); ok {
		if v := nested[field]; !isEmpty(v) {
			return v
		}
	}
	if v := in[flat]; !isEmpty(v) {
		return v
	}
	return ""
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case Document:
		return m, true
	}
	return nil, false
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// toInt reads integral numbers and numeric strings.  Fractional numbers,
// booleans and anything else are rejected.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n >= 1<<63 || n < -(1<<63) {
			return 0, false
		}
		return int(n), true
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return toInt(f)
		}
	case string:
		if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return i, true
		}
	}
	return 0, false
}
