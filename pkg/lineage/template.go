package lineage

import (
	"fmt"
	"strings"
	"text/template"
)

// URLTemplate renders a per-node hyperlink. Two variables are available:
//
//	{{.node_type}}  "artifact" or "execution"
//	{{.id}}         the node's numeric ID
//
// A nil template renders the empty string for every node.
type URLTemplate struct {
	tmpl *template.Template
}

// ParseURLTemplate compiles s once for the lifetime of a render. A template
// referencing undefined variables fails at render time, which aborts the
// whole document.
func ParseURLTemplate(s string) (*URLTemplate, error) {
	tmpl, err := template.New("url").Option("missingkey=error").Parse(s)
	if err != nil {
		return nil, fmt.Errorf("parse URL template: %w", err)
	}
	return &URLTemplate{tmpl: tmpl}, nil
}

// Render produces the URL for one node.
func (t *URLTemplate) Render(id NodeID) (string, error) {
	if t == nil {
		return "", nil
	}
	var sb strings.Builder
	err := t.tmpl.Execute(&sb, map[string]any{
		"node_type": id.Kind.String(),
		"id":        id.ID,
	})
	if err != nil {
		return "", fmt.Errorf("render URL for %s: %w", id, err)
	}
	return sb.String(), nil
}
