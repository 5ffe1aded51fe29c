package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// decodeArgs converts a tool call's input map into T.
func decodeArgs[T any](input map[string]any) (T, error) {
	var out T
	b, err := json.Marshal(input)
	if err != nil {
		return out, invalid("I couldn't read the request details.", err)
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, invalid("I couldn't read the request details.", err)
	}
	return out, nil
}

// Num accepts a JSON number or a numeric string; models emit both.
type Num float64

func (n *Num) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
		if s == "" {
			*n = 0
			return nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("not a number: %s", string(b))
	}
	*n = Num(f)
	return nil
}

// formatQty renders 2 as "2" and 1.5 as "1.5".
func formatQty[T ~float64](q T) string {
	return strconv.FormatFloat(float64(q), 'f', -1, 64)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
