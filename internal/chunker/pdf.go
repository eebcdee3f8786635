package chunker

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads page text with github.com/ledongthuc/pdf.
type PDFExtractor struct {
	Log *slog.Logger
}

// ExtractPages opens the PDF at path and returns the plain text of each page.
func (e PDFExtractor) ExtractPages(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	return e.ExtractReader(f, info.Size())
}

// ExtractReader returns the plain text of each page of an in-memory PDF.
// Pages that carry no content or fail to decode come back as "".
func (e PDFExtractor) ExtractReader(r io.ReaderAt, size int64) ([]string, error) {
	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, numPages)
	for pageNum := 1; pageNum <= numPages; pageNum++ {
		text, err := pageText(reader.Page(pageNum))
		if err != nil {
			e.logger().Debug("page text extraction failed", "page", pageNum, "err", err)
			continue
		}
		pages[pageNum-1] = text
	}
	return pages, nil
}

func (e PDFExtractor) logger() *slog.Logger {
	if e.Log == nil {
		return slog.Default()
	}
	return e.Log
}

// pageText guards against the decoder panicking on malformed content streams.
func pageText(page pdf.Page) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("decode page: %v", rec)
		}
	}()
	if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
		return "", nil
	}
	return page.GetPlainText(nil)
}
