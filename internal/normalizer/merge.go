package normalizer

// protectedKeys are owned by the server and never taken from a request body.
var protectedKeys = map[string]bool{
	"id":         true,
	"sms_token":  true,
	"created_at": true,
	"updated_at": true,
}

// Merge applies a normalized update to an existing record and returns the
// result; neither input is modified.  Only keys listed in supplied are
// considered, and empty incoming values never erase stored ones.  contact
// and valid_id merge field by field.  guests is taken whenever it was sent,
// even when it failed coercion, so the rule check can reject it.
//
// PUT and PATCH share this algorithm; they differ only in how many fields
// the client is expected to send.
func Merge(existing, incoming Document, supplied map[string]bool) Document {
	out := clone(existing)
	for k, v := range incoming {
		if protectedKeys[k] || !supplied[k] {
			continue
		}
		switch k {
		case "contact", "valid_id":
			out[k] = mergeNested(out[k], v)
		case "guests":
			out[k] = v
		default:
			if !isEmpty(v) {
				out[k] = v
			}
		}
	}
	return out
}

func mergeNested(current, incoming any) map[string]any {
	merged := map[string]any{}
	if m, ok := asMap(current); ok {
		for k, v := range m {
			merged[k] = v
		}
	}
	if m, ok := asMap(incoming); ok {
		for k, v := range m {
			if !isEmpty(v) {
				merged[k] = v
			}
		}
	}
	return merged
}

// clone copies doc one level deep, and nested maps one level further.
func clone(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if m, ok := asMap(v); ok {
			nested := make(map[string]any, len(m))
			for nk, nv := range m {
				nested[nk] = nv
			}
			out[k] = nested
			continue
		}
		out[k] = v
	}
	return out
}
