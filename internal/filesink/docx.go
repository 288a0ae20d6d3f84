package filesink

import (
	"fmt"

	"github.com/gomutex/godocx"
)

// writeDocx saves paragraphs to path as a Word document, one paragraph per
// line. An existing file at path is replaced.
func writeDocx(path string, paragraphs []string) error {
	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("new document: %w", err)
	}
	for _, p := range paragraphs {
		doc.AddParagraph(p)
	}
	return doc.SaveTo(path)
}
