// Package prompts renders the second-opinion prompts sent to the language
// model when a grader asks for an override suggestion.
package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var Templates embed.FS

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 500

// PromptVariant selects how tolerant the suggested verdict should be.
type PromptVariant string

const (
	// PromptStrict only forgives case, spacing and articles.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default.
	PromptStandard PromptVariant = "standard"
	// PromptLenient accepts synonyms and plausible misspellings.
	PromptLenient PromptVariant = "lenient"
)

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

var (
	loadOnce  sync.Once
	loadErr   error
	templates map[PromptVariant]*template.Template
)

// IsValidVariant checks if a prompt variant name is valid.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// SuggestData holds template data for a suggestion prompt.
type SuggestData struct {
	QuestionType string
	Prompt       string
	Accepted     []string
	Answer       string
}

// Load parses the suggestion templates from fsys. Only the first call has
// any effect.
func Load(fsys fs.FS) error {
	loadOnce.Do(func() {
		parsed := make(map[PromptVariant]*template.Template)
		for v := range validVariants {
			name := "templates/suggest_" + string(v) + ".txt"
			content, err := fs.ReadFile(fsys, name)
			if err != nil {
				loadErr = fmt.Errorf("read prompt file %s: %w", name, err)
				return
			}
			tmpl, err := template.New(string(v)).Parse(string(content))
			if err != nil {
				loadErr = fmt.Errorf("parse prompt template %s: %w", name, err)
				return
			}
			parsed[v] = tmpl
		}
		templates = parsed
	})
	return loadErr
}

// BuildSuggestPrompt renders the prompt for variant. The candidate answer
// is sanitized before it is embedded.
func BuildSuggestPrompt(variant PromptVariant, data SuggestData) (string, error) {
	if templates == nil {
		if loadErr != nil {
			return "", fmt.Errorf("templates load failed: %w", loadErr)
		}
		return "", errors.New("templates not initialized: call Load first")
	}
	tmpl, ok := templates[variant]
	if !ok {
		return "", errors.New("invalid prompt variant: " + string(variant))
	}

	data.Answer = sanitizeAnswer(data.Answer)
	accepted := make([]string, 0, len(data.Accepted))
	for _, a := range data.Accepted {
		accepted = append(accepted, sanitizeAnswer(a))
	}
	data.Accepted = accepted

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + " [truncated]"
	}
	return answer
}
