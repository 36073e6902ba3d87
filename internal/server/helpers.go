package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/rebal/internal/advisor"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// UnmarshalArrayParam handles array parameters that may contain either native
// JSON objects or string-encoded JSON objects. MCP proxies often send array items
// as strings ("[\"{ ... }\", \"{ ... }\"]") instead of objects ("[{ ... }, { ... }]").
// raw is the JSON-encoded array, dest is a pointer to the target slice (e.g. *[]MyStruct).
func UnmarshalArrayParam(raw json.RawMessage, dest interface{}) error {
	// Try native array of objects first.
	if err := json.Unmarshal(raw, dest); err == nil {
		return nil
	}

	// Fall back to array of string-encoded objects.
	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return json.Unmarshal(raw, dest) // return the original error
	}

	parts := make([]json.RawMessage, len(items))
	for i, s := range items {
		parts[i] = json.RawMessage(s)
	}
	rebuilt, err := json.Marshal(parts)
	if err != nil {
		return err
	}
	return json.Unmarshal(rebuilt, dest)
}

// requestLocale resolves the message locale: ?locale=, then X-Rebal-Locale,
// then the primary Accept-Language tag. Empty means the configured default.
func requestLocale(r *http.Request) string {
	if l := r.URL.Query().Get("locale"); l != "" {
		return advisor.NormalizeLocale(l)
	}
	if l := r.Header.Get("X-Rebal-Locale"); l != "" {
		return advisor.NormalizeLocale(l)
	}
	if al := r.Header.Get("Accept-Language"); al != "" {
		tag := strings.TrimSpace(strings.SplitN(strings.SplitN(al, ",", 2)[0], ";", 2)[0])
		if tag != "" && tag != "*" {
			return advisor.NormalizeLocale(tag)
		}
	}
	return ""
}

// queryInt parses an integer query parameter, returning def when absent or invalid.
func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryBool parses a boolean query parameter, returning false when absent or invalid.
func queryBool(r *http.Request, key string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return b
}
