package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var (
	nonSlugRegex   = regexp.MustCompile(`[^\w\s-]`)
	separatorRegex = regexp.MustCompile(`[\s_-]+`)
)

// now is replaced in tests to pin the fallback slug.
var now = time.Now

// Slugify turns a product title into its URL-safe slug. It is the only slug
// function in the codebase: create, update and seeding all go through it.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = strings.TrimSpace(slug)

	// Drop everything that is not a word character, whitespace or dash
	slug = nonSlugRegex.ReplaceAllString(slug, "")

	// Collapse whitespace, underscores and dashes into a single dash
	slug = separatorRegex.ReplaceAllString(slug, "-")

	slug = strings.Trim(slug, "-")

	if slug == "" {
		slug = fmt.Sprintf("product-%d", now().UnixMilli())
	}

	return slug
}

// Envelope is the JSON body every HTTP endpoint answers with.
type Envelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data,omitempty"`
	Message string   `json:"message,omitempty"`
	Error   string   `json:"error,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

func WriteJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func WriteData(w http.ResponseWriter, code int, data any) {
	WriteJSON(w, code, Envelope{Success: true, Data: data})
}

func WriteJSONError(w http.ResponseWriter, message string, code int) {
	WriteJSON(w, code, Envelope{Success: false, Error: message})
}

func PtrString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func StrPtr(s string) *string {
	return &s
}
