package scan

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// PdfScanner extracts a document's full text and searches it once.
type PdfScanner struct {
	finder *detection.Finder
}

// NewPdfScanner creates a PDF scanner over the shared finder.
func NewPdfScanner(finder *detection.Finder) *PdfScanner {
	return &PdfScanner{finder: finder}
}

// Scan extracts the document text via the PDF decoder and applies the
// finder to the whole extracted string.
func (s *PdfScanner) Scan(job *queue.Job, res classify.Result) ([]detection.PAN, error) {
	var reader *pdf.Reader
	if job.Payload != nil {
		r, err := pdf.NewReader(bytes.NewReader(job.Payload), int64(len(job.Payload)))
		if err != nil {
			return nil, fmt.Errorf("failed to open pdf %s: %w", job.AbsPath(), err)
		}
		reader = r
	} else {
		f, r, err := pdf.Open(job.AbsPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open pdf %s: %w", job.AbsPath(), err)
		}
		defer f.Close()
		reader = r
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", job.AbsPath(), err)
	}
	text, err := io.ReadAll(textReader)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", job.AbsPath(), err)
	}
	return s.finder.Search(string(text)), nil
}
