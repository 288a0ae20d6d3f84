// Package intent is the deterministic first gate in front of model routing.
//
// Explicit commands (/code, /doc) always win. Otherwise a small keyword
// classifier looks for documentation signals and for code signals. Only an
// unambiguous result is acted on; "none" and "mixed" are left to the
// coordinator model.
package intent

import (
	"regexp"
	"strings"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	None          Intent = "none"
	Code          Intent = "code"
	Documentation Intent = "documentation"
	Mixed         Intent = "mixed"
)

// Source records how a decision was reached.
type Source string

const (
	SourceCommand  Source = "command"
	SourceKeywords Source = "keywords"
)

// Decision is the outcome of Classify.
type Decision struct {
	Intent  Intent
	Source  Source
	Matched []string
}

// Unambiguous reports whether the decision names exactly one specialist.
func (d Decision) Unambiguous() bool {
	return d.Intent == Code || d.Intent == Documentation
}

var commands = map[string]Intent{
	"/code": Code,
	"/doc":  Documentation,
	"/docs": Documentation,
}

// Documentation requests: learning, explaining, summarizing, documenting.
var docTerms = []string{
	"explain", "explains", "explaining", "explanation",
	"summarize", "summarise", "summary",
	"document", "documentation", "docs",
	"tutorial", "guide", "learn", "understand",
	"describe", "description", "overview", "notes",
	"what is", "what are", "how does", "how do", "why does",
}

// Things that are source code.
var codeNouns = []string{
	"code", "script", "function", "program", "class", "snippet",
	"module", "source file", "implementation", "method",
	"python", "javascript", "typescript", "java", "c++", "cpp",
	"golang", "ruby", "bash", "html", "css",
}

// Things one does to produce or persist code.
var codeActions = []string{
	"write", "generate", "create", "implement", "build",
	"save", "store", "refactor", "fix", "make",
}

var tokenPattern = regexp.MustCompile(`[a-z0-9+#]+`)

// Classify decides the intent of a single user message.
func Classify(message string) Decision {
	trimmed := strings.TrimSpace(message)
	if strings.HasPrefix(trimmed, "/") {
		cmd := strings.ToLower(strings.Fields(trimmed)[0])
		if in, ok := commands[cmd]; ok {
			return Decision{Intent: in, Source: SourceCommand, Matched: []string{cmd}}
		}
	}

	text := " " + strings.Join(tokenPattern.FindAllString(strings.ToLower(trimmed), -1), " ") + " "

	docs := matches(text, docTerms)
	nouns := matches(text, codeNouns)
	actions := matches(text, codeActions)

	hasDoc := len(docs) > 0
	// A code noun alone ("tell me about python generators") names a topic,
	// not a request for an artifact.
	hasCode := len(nouns) > 0 && len(actions) > 0

	var matched []string
	matched = append(matched, docs...)
	if hasCode {
		matched = append(matched, nouns...)
		matched = append(matched, actions...)
	}

	d := Decision{Source: SourceKeywords, Matched: matched}
	switch {
	case hasDoc && hasCode:
		d.Intent = Mixed
	case hasCode:
		d.Intent = Code
	case hasDoc:
		d.Intent = Documentation
	default:
		d.Intent = None
	}
	return d
}

// matches returns the terms that occur in text as whole words or phrases.
// text must be space-delimited with leading and trailing spaces.
func matches(text string, terms []string) []string {
	var out []string
	for _, term := range terms {
		if strings.Contains(text, " "+term+" ") {
			out = append(out, term)
		}
	}
	return out
}

// StripCommand removes a leading /code or /doc command from message.
func StripCommand(message string) string {
	trimmed := strings.TrimSpace(message)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return trimmed
	}
	if _, ok := commands[strings.ToLower(fields[0])]; !ok {
		return trimmed
	}
	return strings.TrimSpace(trimmed[len(fields[0]):])
}
