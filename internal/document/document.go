// Package document turns uploaded files and video links into page text.
package document

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gen2brain/go-fitz"
)

var (
	// ErrUnsupported is returned for file types that cannot be read.
	ErrUnsupported = errors.New("document: unsupported file type")
	// ErrNoText is returned when a document yields no text at all.
	ErrNoText = errors.New("document: no text extracted")
)

// Page is the text of one page (or of a whole non-paginated source).
type Page struct {
	Source  string `json:"source"`
	Number  int    `json:"number"` // 1-based
	Content string `json:"content"`
}

// Load reads pages from a file based on its extension.
func Load(filename string, data []byte) ([]Page, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("file %s is empty", filename)
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return LoadPDF(filename, data)
	case ".txt", ".md":
		return LoadText(filename, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filename)
	}
}

// LoadPDF extracts the text of every page of a PDF. Pages whose text cannot
// be extracted are skipped with a warning; a PDF without any text is an
// error.
func LoadPDF(filename string, data []byte) ([]Page, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", filename, err)
	}
	defer doc.Close()

	var pages []Page
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			log.Printf("WARN: Failed to extract text from page %d of %s: %v", i+1, filename, err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Source: filename, Number: i + 1, Content: text})
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoText, filename)
	}
	log.Printf("INFO: Extracted %d pages of text from %s", len(pages), filename)
	return pages, nil
}

// LoadText wraps a UTF-8 text or markdown file as a single page.
func LoadText(filename string, data []byte) ([]Page, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8 text", ErrUnsupported, filename)
	}
	text := string(data)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoText, filename)
	}
	return []Page{{Source: filename, Number: 1, Content: text}}, nil
}
