package selector

import (
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/labels"
)

// Parse parses a Kubernetes-style label selector. An empty string selects
// every node.
func Parse(raw string) (labels.Selector, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return labels.Everything(), nil
	}
	parsed, err := labels.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid label selector %q: %w", raw, err)
	}
	return parsed, nil
}

// Scope returns the canonical form of a selector used to key cache
// artifacts. It is empty when the selector matches everything.
func Scope(sel labels.Selector) string {
	if sel == nil || sel.Empty() {
		return ""
	}
	return sel.String()
}
