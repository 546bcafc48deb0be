package cleaner

import (
	"strings"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// decodePayload unwraps the embedded player document. String payloads may be
// double-encoded: one surrounding quote pair is stripped and doubled quotes
// collapsed before parsing; if that does not yield JSON the raw text is tried.
// The second return is false when no JSON object could be recovered.
func decodePayload(v any) (gjson.Result, bool) {
	switch t := v.(type) {
	case nil:
		return gjson.Result{}, false
	case string:
		if t == "" {
			return gjson.Result{}, false
		}
		unwrapped := t
		if len(unwrapped) >= 2 && strings.HasPrefix(unwrapped, `"`) && strings.HasSuffix(unwrapped, `"`) {
			unwrapped = unwrapped[1 : len(unwrapped)-1]
		}
		unwrapped = strings.ReplaceAll(unwrapped, `""`, `"`)
		if gjson.Valid(unwrapped) {
			return asObject(gjson.Parse(unwrapped))
		}
		if gjson.Valid(t) {
			return asObject(gjson.Parse(t))
		}
		return gjson.Result{}, false
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return gjson.Result{}, false
		}
		return asObject(gjson.ParseBytes(b))
	}
}

// asObject accepts only non-empty JSON objects.
func asObject(r gjson.Result) (gjson.Result, bool) {
	if !r.IsObject() {
		return gjson.Result{}, false
	}
	empty := true
	r.ForEach(func(_, _ gjson.Result) bool {
		empty = false
		return false
	})
	return r, !empty
}
