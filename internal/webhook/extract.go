package webhook

import (
	"bytes"
	"encoding/json"
	"net/url"
)

// Mercado Pago's notification body is unversioned and loosely specified: the
// same logical identifier shows up in different places depending on the
// notification type (payment, merchant_order, legacy IPN). Each candidate is
// an ordered list of extractors tried in sequence; the first non-empty value
// wins.

type extractor func(body map[string]any, query url.Values) string

var paymentIDExtractors = []extractor{
	field("id"),
	nested("data", "id"),
	field("collection_id"),
	nested("collection", "id"),
	func(_ map[string]any, query url.Values) string { return query.Get("data.id") },
	func(_ map[string]any, query url.Values) string { return query.Get("id") },
}

var externalRefExtractors = []extractor{
	field("external_reference"),
	nested("collection", "external_reference"),
	nested("data", "external_reference"),
	field("preference_id"),
	nested("preference", "external_reference"),
}

func extract(extractors []extractor, body map[string]any, query url.Values) string {
	for _, ex := range extractors {
		if v := ex(body, query); v != "" {
			return v
		}
	}
	return ""
}

// parseBody decodes the notification body tolerantly: malformed JSON yields
// an empty payload rather than an error, because this is a retried
// notification channel and 5xx-ing on noise causes retry storms.
func parseBody(raw []byte) map[string]any {
	if len(raw) == 0 {
		return map[string]any{}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		return map[string]any{}
	}
	return body
}

func field(key string) extractor {
	return func(body map[string]any, _ url.Values) string {
		return stringify(body[key])
	}
}

func nested(outer, inner string) extractor {
	return func(body map[string]any, _ url.Values) string {
		m, ok := body[outer].(map[string]any)
		if !ok {
			return ""
		}
		return stringify(m[inner])
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
