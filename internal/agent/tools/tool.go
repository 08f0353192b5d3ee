package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// Tool is a capability the agent can invoke by name during its reasoning loop.
type Tool interface {
	Name() string
	Description() string
	// ReturnDirect tools short-circuit the loop: their output is returned to
	// the user verbatim instead of being fed back as an observation.
	ReturnDirect() bool
	Execute(ctx context.Context, userID, input string) (string, error)
}

// Registry resolves tool names to implementations.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Get returns the named tool, or an error naming the unknown tool.
func (r *Registry) Get(name string) (Tool, error) {
	t, ok := r.tools[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return t, nil
}

// Names returns the registered tool names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// cutRunes truncates s to at most n bytes without splitting a UTF-8
// sequence.
func cutRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// Catalogue renders the "name: description" lines for the agent prompt.
func (r *Registry) Catalogue() string {
	var b strings.Builder
	for _, name := range r.Names() {
		fmt.Fprintf(&b, "%s: %s\n", name, r.tools[name].Description())
	}
	return b.String()
}
