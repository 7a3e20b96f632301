// Package extract turns source rulebook files into page-level text units
// with provenance metadata. Extraction is restartable: re-reading the same
// path yields the same page sequence.
package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrUnsupported marks a file whose format the extractor cannot read.
	// Callers skip such files rather than failing the batch.
	ErrUnsupported = errors.New("unsupported file format")
)

// Page is one extracted text unit, 1-indexed in document order. For
// markdown sources a page is a heading-delimited section; for plain text,
// a form-feed-delimited block.
type Page struct {
	Number  int
	Text    string
	Section string
}

// Extractor reads source documents from disk.
type Extractor struct {
	logger *slog.Logger
}

// NewExtractor creates an extractor. A nil logger falls back to slog.Default.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// ListFiles returns the supported source files directly inside folder,
// sorted by name. An empty or all-unsupported folder yields an empty list,
// not an error; only a missing or unreadable folder fails.
func (e *Extractor) ListFiles(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folder, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !supportedExt(filepath.Ext(entry.Name())) {
			e.logger.Debug("skipping unsupported file", "file", entry.Name())
			continue
		}
		files = append(files, filepath.Join(folder, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// Extract reads one source file and splits it into pages. An empty file
// yields zero pages.
func (e *Extractor) Extract(path string) ([]Page, error) {
	if !supportedExt(filepath.Ext(path)) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return markdownPages(data), nil
	default:
		return textPages(data), nil
	}
}

func markdownPages(data []byte) []Page {
	sections := markdownSections(data)
	pages := make([]Page, 0, len(sections))
	for i, s := range sections {
		pages = append(pages, Page{Number: i + 1, Text: s.Text, Section: s.Heading})
	}
	return pages
}

// textPages splits plain text on form feeds, the page separator commonly
// preserved by text conversions of paginated documents. Text without form
// feeds is a single page.
func textPages(data []byte) []Page {
	var pages []Page
	for _, block := range strings.Split(string(data), "\f") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		pages = append(pages, Page{Number: len(pages) + 1, Text: block})
	}
	return pages
}

func supportedExt(ext string) bool {
	switch strings.ToLower(ext) {
	case ".md", ".markdown", ".txt", ".text":
		return true
	}
	return false
}
