package application

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/marketplace-platform/webhook-service/internal/domain"
)

// ErrPayloadNotObject is returned when the body is not a JSON object.
var ErrPayloadNotObject = errors.New("payload must be a JSON object")

// DecodePayload parses a webhook body into a generic object. Numbers are kept
// as json.Number so re-encoding preserves the provider's representation.
func DecodePayload(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid JSON payload: trailing data")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrPayloadNotObject
	}
	return obj, nil
}

// MapPayload applies the response mapping to a provider payload. Without a
// mapping the payload is returned unchanged. With one, the result holds
// exactly the mapped keys and unresolved paths map to nil.
func MapPayload(payload map[string]any, mapping []domain.FieldMapping) map[string]any {
	if len(mapping) == 0 {
		return payload
	}
	out := make(map[string]any, len(mapping))
	for _, m := range mapping {
		v, _ := resolvePath(payload, m.Path)
		out[m.Key] = v
	}
	return out
}

// resolvePath walks a dotted path. Numeric segments index into arrays.
func resolvePath(src any, path string) (any, bool) {
	cur := src
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			next, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// eventNameOf extracts the event name; a missing or non-string value yields "".
func eventNameOf(payload map[string]any) domain.EventName {
	s, _ := payload["event"].(string)
	return domain.EventName(strings.TrimSpace(s))
}

// providerError returns the provider-reported failure carried in the payload, if any.
func providerError(payload map[string]any) (string, bool) {
	var parts []string
	for _, key := range []string{"errorCode", "error"} {
		v, ok := payload[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				parts = append(parts, t)
			}
		case bool:
			if t {
				parts = append(parts, key)
			}
		default:
			b, err := json.Marshal(t)
			if err == nil {
				parts = append(parts, string(b))
			}
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, ": "), true
}

func stringField(payload map[string]any, key string) string {
	switch v := payload[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// identifierKeys name the payload fields providers may send as JSON numbers.
var identifierKeys = []string{"orderId", "productId", "withdrawalId", "transactionId"}

// normalizeIdentifiers returns a copy of payload with numeric identifiers
// rewritten as strings, so 1001 and "1001" resolve to the same entity.
func normalizeIdentifiers(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}
	for _, key := range identifierKeys {
		switch payload[key].(type) {
		case json.Number, float64, int, int64:
			out[key] = stringField(payload, key)
		}
	}
	return out
}
