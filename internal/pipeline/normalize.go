package pipeline

import (
	"encoding/json"
	"strconv"
	"strings"

	"slidecoach/internal/model"
)

// ParseStructured coerces a free-form model response into a Review. The
// model is instructed to return strict JSON but may wrap it in prose or
// markdown fencing, so three attempts are made in order: the whole trimmed
// text, the span between the first '{' and the last '}', and finally the
// caller-supplied fallback. Tips are trimmed, emptied entries dropped, and
// the list capped at maxTips. Total over arbitrary input: never fails.
func ParseStructured(text string, fallback model.Review, maxTips int) model.Review {
	raw := extractObject(strings.TrimSpace(text))
	result := fallback
	if raw != nil {
		result = model.Review{
			Feedback: coerceString(raw["feedback"]),
			Tips:     coerceTips(raw["tips"]),
		}
	}
	return normalizeReview(result, maxTips)
}

func extractObject(s string) map[string]any {
	if s == "" {
		return nil
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err == nil {
		return obj
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err == nil {
		return obj
	}
	return nil
}

func coerceString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func coerceTips(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	tips := make([]string, 0, len(items))
	for _, item := range items {
		if s := coerceString(item); s != "" {
			tips = append(tips, s)
		}
	}
	return tips
}

func normalizeReview(r model.Review, maxTips int) model.Review {
	if maxTips < 0 {
		maxTips = 0
	}
	tips := make([]string, 0, len(r.Tips))
	for _, tip := range r.Tips {
		if len(tips) == maxTips {
			break
		}
		tip = strings.TrimSpace(tip)
		if tip == "" {
			continue
		}
		tips = append(tips, tip)
	}
	return model.Review{
		Feedback: strings.TrimSpace(r.Feedback),
		Tips:     tips,
	}
}
