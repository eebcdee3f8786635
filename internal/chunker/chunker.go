package chunker

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultMaxChars is used when a non-positive chunk size is requested.
const DefaultMaxChars = 1200

// ErrUnsupportedFormat is returned for any path that is not a PDF.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// DocumentChunk is a bounded slice of text from a single page of a document.
type DocumentChunk struct {
	Source     string
	PageNumber int
	Text       string
}

// Extractor yields the raw text of each page of a document, in page order.
type Extractor interface {
	ExtractPages(path string) ([]string, error)
}

// LoadDocuments extracts, normalizes and chunks every page of the given PDFs.
// Nothing is returned if any path fails.
func LoadDocuments(ex Extractor, paths []string, maxChars int) ([]DocumentChunk, error) {
	var all []DocumentChunk
	for _, path := range paths {
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
		}
		pages, err := ex.ExtractPages(path)
		if err != nil {
			return nil, fmt.Errorf("extract %s: %w", path, err)
		}
		all = append(all, chunkPages(path, pages, maxChars)...)
	}
	return all, nil
}

// ChunkText chunks a single block of text as page 1 of source.
func ChunkText(source, text string, maxChars int) []DocumentChunk {
	return chunkPages(source, []string{text}, maxChars)
}

func chunkPages(source string, pages []string, maxChars int) []DocumentChunk {
	var chunks []DocumentChunk
	for i, raw := range pages {
		for _, segment := range Split(Normalize(raw), maxChars) {
			chunks = append(chunks, DocumentChunk{
				Source:     source,
				PageNumber: i + 1,
				Text:       segment,
			})
		}
	}
	return chunks
}

// Normalize collapses every whitespace run to a single space and trims the ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split cuts text into consecutive segments of at most maxChars characters.
// The last segment may be shorter; an empty input yields no segments.
func Split(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	runes := []rune(text)
	var segments []string
	for start := 0; start < len(runes); start += maxChars {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		segments = append(segments, string(runes[start:end]))
	}
	return segments
}
