package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/codingassistant/assistant/internal/filesink"
)

const (
	GenerateCodeFile      = "generate_code_file"
	SaveDocumentationFile = "save_documentation_file"
)

// GenerateCodeArgs are the parameters of generate_code_file.
type GenerateCodeArgs struct {
	Language string `json:"language" jsonschema:"description=Programming language of the code (for example python or javascript)"`
	Filename string `json:"filename" jsonschema:"description=File name with or without extension"`
	Code     string `json:"code" jsonschema:"description=Full source code to store"`
}

// SaveDocumentationArgs are the parameters of save_documentation_file.
type SaveDocumentationArgs struct {
	Filename string `json:"filename" jsonschema:"description=Document name with or without the .docx extension"`
	Content  string `json:"content" jsonschema:"description=Full documentation or explanation text; one paragraph per line"`
}

// NewGenerateCodeFileTool writes code through the sink.
func NewGenerateCodeFileTool(sink *filesink.Sink) *Tool {
	langs := filesink.Languages()
	sort.Strings(langs)
	desc := fmt.Sprintf(
		"Writes code into %s/<language>/<filename>. Known languages get their extension appended (%s); other languages are stored under %s.",
		filesink.CodeRoot, strings.Join(langs, ", "), filesink.MiscCategory,
	)
	return newTool(GenerateCodeFile, desc, func(_ context.Context, args GenerateCodeArgs) filesink.Result {
		return sink.Write(filesink.WriteRequest{
			Kind:     filesink.KindCode,
			Category: args.Language,
			Name:     args.Filename,
			Content:  args.Code,
		})
	})
}

// NewSaveDocumentationFileTool writes a .docx document through the sink.
func NewSaveDocumentationFileTool(sink *filesink.Sink) *Tool {
	desc := fmt.Sprintf("Writes content into %s/<filename>%s, one paragraph per line.",
		filesink.DocumentationRoot, filesink.DocumentExtension)
	return newTool(SaveDocumentationFile, desc, func(_ context.Context, args SaveDocumentationArgs) filesink.Result {
		return sink.Write(filesink.WriteRequest{
			Kind:     filesink.KindDocument,
			Category: filesink.DocumentationRoot,
			Name:     args.Filename,
			Content:  args.Content,
		})
	})
}

// NewBuiltinRegistry registers exactly the two file-writing tools.
func NewBuiltinRegistry(sink *filesink.Sink) *Registry {
	r := NewRegistry()
	// Fresh registry: names cannot collide.
	_ = r.Register(NewGenerateCodeFileTool(sink))
	_ = r.Register(NewSaveDocumentationFileTool(sink))
	return r
}
