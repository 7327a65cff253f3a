package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tpl  Template
		vars map[string]any
		want RenderedTemplate
	}{
		{
			name: "substitutes variables in all parts",
			tpl: Template{
				Subject:      "{{name}} hit a milestone",
				Content:      "{{name}} just ran {{distance}}km",
				EmailContent: "<p>{{name}} just ran {{distance}}km</p>",
			},
			vars: map[string]any{"name": "Alice", "distance": 100},
			want: RenderedTemplate{
				Title:        "Alice hit a milestone",
				Content:      "Alice just ran 100km",
				EmailContent: "<p>Alice just ran 100km</p>",
			},
		},
		{
			name: "unmatched placeholder stays verbatim",
			tpl: Template{
				Subject: "Welcome to {{teamName}}",
				Content: "Hi {{name}}, welcome to {{teamName}}",
			},
			vars: map[string]any{"name": "Bob"},
			want: RenderedTemplate{
				Title:   "Welcome to {{teamName}}",
				Content: "Hi Bob, welcome to {{teamName}}",
			},
		},
		{
			name: "nil vars leave template untouched",
			tpl: Template{
				Subject: "{{a}}",
				Content: "{{b}}",
			},
			vars: nil,
			want: RenderedTemplate{Title: "{{a}}", Content: "{{b}}"},
		},
		{
			name: "repeated placeholder replaced everywhere",
			tpl: Template{
				Content: "{{x}} and {{x}} again",
			},
			vars: map[string]any{"x": "go"},
			want: RenderedTemplate{Content: "go and go again"},
		},
		{
			name: "non-string values are stringified",
			tpl: Template{
				Content: "score {{score}}, done {{done}}",
			},
			vars: map[string]any{"score": 42.5, "done": true},
			want: RenderedTemplate{Content: "score 42.5, done true"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := RenderTemplate(tt.tpl, tt.vars)
			assert.Equal(t, tt.want, got)
		})
	}
}
