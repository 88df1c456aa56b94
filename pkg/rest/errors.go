package rest

import (
	"fmt"
	"strings"
)

var (
	ErrNoBaseURL = fmt.Errorf("relative path requires a base URL")
)

// ErrorResponse represents an error reported by the server:
// either a non-OK HTTP status or ArcGIS `error` envelope in an otherwise successful response.
type ErrorResponse struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("%v %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%v %s: %s", e.Code, e.Message, strings.Join(e.Details, "; "))
}

// errorFromEnvelope extracts ArcGIS error envelope `{"error": {...}}` from a decoded response, if any
func errorFromEnvelope(value any) (*ErrorResponse, bool) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, false
	}

	envelope, ok := obj["error"].(map[string]any)
	if !ok {
		return nil, false
	}

	result := &ErrorResponse{}
	if code, ok := envelope["code"].(float64); ok {
		result.Code = int(code)
	}
	if message, ok := envelope["message"].(string); ok {
		result.Message = message
	}
	if details, ok := envelope["details"].([]any); ok {
		for _, d := range details {
			if s, ok := d.(string); ok && s != "" {
				result.Details = append(result.Details, s)
			}
		}
	}

	return result, true
}
