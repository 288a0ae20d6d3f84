// Package filesink writes assistant artifacts to the output tree.
//
// Layout under the sink root:
//
//	GeneratedCode/<language-or-misc>/<filename><ext>
//	Documentation/<filename>.docx
//
// Writes are whole-file and overwrite on collision. Failures never escape as
// Go errors: they come back as a Result carrying a human-readable message.
package filesink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"
)

const (
	// CodeRoot is the top-level folder for code artifacts.
	CodeRoot = "GeneratedCode"
	// DocumentationRoot is the top-level folder for documentation artifacts.
	DocumentationRoot = "Documentation"
	// MiscCategory holds code whose language has no known extension.
	MiscCategory = "misc"
	// DocumentExtension is forced onto every documentation artifact.
	DocumentExtension = ".docx"
)

// Kind selects how content is serialized.
type Kind string

const (
	// KindCode writes Content as a plain source file under CodeRoot.
	KindCode Kind = "code"
	// KindDocument writes Content as a .docx under DocumentationRoot.
	KindDocument Kind = "document"
)

// extensions maps a lower-cased language name to its file extension.
var extensions = map[string]string{
	"python":     ".py",
	"javascript": ".js",
	"ts":         ".ts",
	"typescript": ".ts",
	"java":       ".java",
	"c":          ".c",
	"cpp":        ".cpp",
	"c++":        ".cpp",
	"go":         ".go",
	"ruby":       ".rb",
	"bash":       ".sh",
	"html":       ".html",
	"css":        ".css",
}

// ExtensionFor returns the extension mapped to language, or "" when the
// language is unknown. Matching ignores case and surrounding whitespace.
func ExtensionFor(language string) string {
	return extensions[normalizeLanguage(language)]
}

// Languages lists the supported language names.
func Languages() []string {
	out := make([]string, 0, len(extensions))
	for lang := range extensions {
		out = append(out, lang)
	}
	return out
}

// WriteRequest is one artifact write.
type WriteRequest struct {
	Kind     Kind
	Category string // language for code; ignored for documents
	Name     string
	Content  string
}

// Result is the outcome of a write. FilePath is empty on failure.
type Result struct {
	Message  string `json:"message"`
	FilePath string `json:"file_path,omitempty"`
	Err      error  `json:"-"`
}

// Failed reports whether the write did not produce an artifact.
func (r Result) Failed() bool {
	return r.Err != nil
}

// Sink writes artifacts below a root directory.
type Sink struct {
	root string
}

// NewSink creates a sink rooted at dir. An empty dir means the working directory.
func NewSink(dir string) *Sink {
	if dir == "" {
		dir = "."
	}
	return &Sink{root: dir}
}

// Root returns the directory artifacts are written under.
func (s *Sink) Root() string {
	return s.root
}

// Write dispatches on the request kind.
func (s *Sink) Write(req WriteRequest) Result {
	switch req.Kind {
	case KindCode:
		return s.WriteCode(req.Category, req.Name, req.Content)
	case KindDocument:
		return s.WriteDocument(req.Name, req.Content)
	default:
		err := fmt.Errorf("unknown artifact kind %q", req.Kind)
		return Result{Message: fmt.Sprintf("❌ Failed to save artifact: %v", err), Err: err}
	}
}

// WriteCode stores code at GeneratedCode/<language>/<filename><ext>.
func (s *Sink) WriteCode(language, filename, code string) Result {
	path, err := s.writeCode(language, filename, code)
	if err != nil {
		log.Warn().Err(err).Str("language", language).Str("filename", filename).Msg("Code artifact write failed")
		return Result{Message: fmt.Sprintf("❌ Failed to save code: %v", err), Err: err}
	}
	log.Info().Str("path", path).Msg("Code artifact written")
	return Result{
		Message:  fmt.Sprintf("✅ Code saved to '%s'.", path),
		FilePath: path,
	}
}

// WriteDocument stores content as one paragraph per line at
// Documentation/<filename>.docx.
func (s *Sink) WriteDocument(filename, content string) Result {
	path, err := s.writeDocument(filename, content)
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("Documentation artifact write failed")
		return Result{Message: fmt.Sprintf("❌ Failed to save documentation: %v", err), Err: err}
	}
	log.Info().Str("path", path).Msg("Documentation artifact written")
	return Result{
		Message:  fmt.Sprintf("✅ Documentation saved to '%s'.", path),
		FilePath: path,
	}
}

func (s *Sink) writeCode(language, filename, code string) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}

	lang := normalizeLanguage(language)
	category := MiscCategory
	if ext, ok := extensions[lang]; ok {
		category = lang
		name = withExtension(name, ext)
	}

	dir := filepath.Join(s.root, CodeRoot, category)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	body := strings.TrimRightFunc(code, unicode.IsSpace) + "\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func (s *Sink) writeDocument(filename, content string) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}
	name = withExtension(name, DocumentExtension)

	dir := filepath.Join(s.root, DocumentationRoot)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, name)
	if err := writeDocx(path, splitLines(content)); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

func normalizeLanguage(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}

// withExtension appends ext unless name already ends with it (case-insensitive).
func withExtension(name, ext string) string {
	if strings.HasSuffix(strings.ToLower(name), ext) {
		return name
	}
	return name + ext
}

var errInvalidName = errors.New("invalid file name")

// cleanName rejects names that would escape the category directory.
func cleanName(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	switch {
	case name == "", name == ".", name == "..":
		return "", fmt.Errorf("%w: %q", errInvalidName, filename)
	case strings.ContainsAny(name, `/\`), strings.ContainsRune(name, 0):
		return "", fmt.Errorf("%w: %q contains a path separator", errInvalidName, filename)
	}
	return name, nil
}

// splitLines breaks text on \n, \r\n and \r. A trailing line break does not
// produce an empty final line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}
