// Package prompts loads and renders the chat prompts sent to the reasoning
// model.
package prompts

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const (
	Summary = "summary"
	Answer  = "answer"
)

//go:embed default.yaml
var defaultYAML []byte

var ErrUnknownPrompt = errors.New("unknown prompt")

// Message is a rendered system/user pair.
type Message struct {
	System string
	User   string
}

type entry struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

type compiled struct {
	system string
	user   *template.Template
}

// Set holds the compiled prompt templates.
type Set struct {
	prompts map[string]compiled
}

// Default returns the built-in prompts.
func Default() *Set {
	s, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("prompts: embedded defaults are invalid: %v", err))
	}
	return s
}

// Load reads prompts from a YAML file. Entries missing from the file keep
// their built-in defaults. An empty path returns the defaults.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}

	override, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	set := Default()
	for name, p := range override.prompts {
		set.prompts[name] = p
	}
	return set, nil
}

// Parse compiles prompts from YAML.
func Parse(data []byte) (*Set, error) {
	var raw map[string]entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	set := &Set{prompts: make(map[string]compiled, len(raw))}
	for name, e := range raw {
		if e.System == "" || e.User == "" {
			return nil, fmt.Errorf("prompt %q: system and user are required", name)
		}
		tmpl, err := template.New(name).Option("missingkey=error").Parse(e.User)
		if err != nil {
			return nil, fmt.Errorf("prompt %q: %w", name, err)
		}
		set.prompts[name] = compiled{system: e.System, user: tmpl}
	}
	return set, nil
}

// Render fills the named prompt's user template with data.
func (s *Set) Render(name string, data any) (Message, error) {
	p, ok := s.prompts[name]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}

	var buf bytes.Buffer
	if err := p.user.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render prompt %q: %w", name, err)
	}
	return Message{System: p.system, User: buf.String()}, nil
}

// SummaryData feeds the summary prompt.
type SummaryData struct {
	Filename string
	Content  string
}

// AnswerData feeds the answer prompt.
type AnswerData struct {
	Query   string
	Context string
}
