// Package prompts holds the embedded generation prompts and topic suggestions.
package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"outliner/internal/domain/models/outline"
)

//go:embed config/prompts.yaml
var promptsYAML []byte

// DefaultSuggestionCount is used when Sample is asked for zero suggestions.
const DefaultSuggestionCount = 5

type promptFile struct {
	System      string   `yaml:"system"`
	User        string   `yaml:"user"`
	Suggestions []string `yaml:"suggestions"`
}

// Library renders generation prompts and samples topic suggestions.
type Library struct {
	system      string
	user        *template.Template
	suggestions []string
}

// userData is the text/template input for the user prompt.
type userData struct {
	Topic   string
	Context string
	Prompt  string
	IsRoot  bool
}

// Load parses the embedded prompt file.
func Load() (*Library, error) {
	return parse(promptsYAML)
}

// MustLoad is Load for package-level initialisation; the embedded file is fixed at build time.
func MustLoad() *Library {
	lib, err := Load()
	if err != nil {
		panic(err)
	}
	return lib
}

func parse(data []byte) (*Library, error) {
	var f promptFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse prompts: %w", err)
	}
	if strings.TrimSpace(f.System) == "" || strings.TrimSpace(f.User) == "" {
		return nil, fmt.Errorf("prompts: system and user templates are required")
	}
	tmpl, err := template.New("user").Option("missingkey=error").Parse(f.User)
	if err != nil {
		return nil, fmt.Errorf("failed to parse user prompt template: %w", err)
	}
	return &Library{
		system:      strings.TrimSpace(f.System),
		user:        tmpl,
		suggestions: f.Suggestions,
	}, nil
}

// System returns the system prompt describing the marker-tag grammar.
func (l *Library) System() string {
	return l.system
}

// User renders the user prompt for a node.
//
// parentContext is the node's lineage ("Topic > Subtopic"); its last segment is the topic being
// expanded. Anything after the lineage, such as an intent suffix, stays in the context line.
func (l *Library) User(prompt, parentContext string) (string, error) {
	data := userData{
		Topic:   topicOf(parentContext),
		Context: strings.TrimSpace(parentContext),
		Prompt:  strings.TrimSpace(prompt),
	}
	data.IsRoot = !strings.Contains(data.Context, outline.LineageSeparator)
	if data.IsRoot && data.Context == data.Topic {
		data.Context = ""
	}

	var buf bytes.Buffer
	if err := l.user.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render user prompt: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// topicOf returns the last lineage segment, without a trailing "(Intent: ...)" annotation.
func topicOf(parentContext string) string {
	ctx := strings.TrimSpace(parentContext)
	if i := strings.LastIndex(ctx, " (Intent: "); i >= 0 && strings.HasSuffix(ctx, ")") {
		ctx = ctx[:i]
	}
	if i := strings.LastIndex(ctx, outline.LineageSeparator); i >= 0 {
		ctx = ctx[i+len(outline.LineageSeparator):]
	}
	return strings.TrimSpace(ctx)
}

// Suggestions returns every topic suggestion in file order.
func (l *Library) Suggestions() []string {
	out := make([]string, len(l.suggestions))
	copy(out, l.suggestions)
	return out
}

// Sample returns k distinct suggestions in random order. k <= 0 means DefaultSuggestionCount and
// k is capped at the number of suggestions.
func (l *Library) Sample(k int) []string {
	n := len(l.suggestions)
	if n == 0 {
		return []string{}
	}
	if k <= 0 {
		k = DefaultSuggestionCount
	}
	if k > n {
		k = n
	}
	idx := rand.Perm(n)[:k]
	out := make([]string, k)
	for i, j := range idx {
		out[i] = l.suggestions[j]
	}
	return out
}
