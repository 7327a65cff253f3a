package notify

import (
	"fmt"
	"strings"
	"time"
)

// Template is reusable notification content with {{variable}} placeholders.
type Template struct {
	ID           string    `json:"id"`
	Key          string    `json:"key"` // stable lookup handle, e.g. "activity.milestone"
	Name         string    `json:"name"`
	Category     Category  `json:"category"`
	Subject      string    `json:"subject"`
	Content      string    `json:"content"`
	EmailContent string    `json:"email_content,omitempty"`
	Variables    []string  `json:"variables,omitempty"` // expected placeholder names, informational
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RenderedTemplate is the product of substituting variables into a template.
type RenderedTemplate struct {
	Title        string
	Content      string
	EmailContent string
}

// RenderTemplate substitutes every {{key}} occurrence with the stringified
// value for each key present in vars. Placeholders without a matching key are
// left verbatim. Pure: no lookups, no side effects.
func RenderTemplate(tpl Template, vars map[string]any) RenderedTemplate {
	return RenderedTemplate{
		Title:        renderString(tpl.Subject, vars),
		Content:      renderString(tpl.Content, vars),
		EmailContent: renderString(tpl.EmailContent, vars),
	}
}

func renderString(s string, vars map[string]any) string {
	if s == "" || len(vars) == 0 {
		return s
	}
	for key, value := range vars {
		s = strings.ReplaceAll(s, "{{"+key+"}}", fmt.Sprint(value))
	}
	return s
}
