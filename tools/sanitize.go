package tools

import "encoding/json"

var internalFields = map[string]bool{"id": true, "user_id": true, "created_at": true, "updated_at": true}

// sanitizeForDisplay drops bookkeeping columns from rows before they are shown
// in a thought step.
func sanitizeForDisplay(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var generic any
	if err := json.Unmarshal(b, &generic); err != nil {
		return v
	}
	return strip(generic)
}

func strip(v any) any {
	switch t := v.(type) {
	case []any:
		for i := range t {
			t[i] = strip(t[i])
		}
		return t
	case map[string]any:
		for k, val := range t {
			if internalFields[k] {
				delete(t, k)
				continue
			}
			t[k] = strip(val)
		}
		return t
	default:
		return v
	}
}

// displayJSON renders v for a thought step.
func displayJSON(v any) string {
	b, err := json.MarshalIndent(sanitizeForDisplay(v), "", "  ")
	if err != nil {
		return ""
	}
	return string(b)
}
