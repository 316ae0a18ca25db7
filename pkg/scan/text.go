package scan

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// slurpThreshold is the size below which a text artifact is read whole;
// larger files are streamed line by line.
const slurpThreshold = 30 * 1024 * 1024

// TextScanner searches plain text artifacts. It also serves RTF and the
// legacy binary office formats, whose text is matchable inline.
type TextScanner struct {
	finder *detection.Finder
}

// NewTextScanner creates a plaintext scanner over the shared finder.
func NewTextScanner(finder *detection.Finder) *TextScanner {
	return &TextScanner{finder: finder}
}

// Scan decodes the artifact with the detected encoding (falling back to
// a lossy UTF-8 read for the "binary" label) and applies the finder.
// Payloads shorter than the minimum PAN length are skipped outright.
func (s *TextScanner) Scan(job *queue.Job, res classify.Result) ([]detection.PAN, error) {
	if job.Payload != nil {
		if len(job.Payload) < detection.MinPANLength {
			return nil, nil
		}
		text, err := decodeText(job.Payload, res.Encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", job.AbsPath(), err)
		}
		return s.finder.Search(text), nil
	}

	stat, err := os.Stat(job.AbsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", job.AbsPath(), err)
	}
	if stat.Size() < detection.MinPANLength {
		return nil, nil
	}

	f, err := os.Open(job.AbsPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", job.AbsPath(), err)
	}
	defer f.Close()

	if stat.Size() < slurpThreshold {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", job.AbsPath(), err)
		}
		text, err := decodeText(data, res.Encoding)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", job.AbsPath(), err)
		}
		return s.finder.Search(text), nil
	}
	return s.scanLines(f, res.Encoding, job.AbsPath())
}

// scanLines streams a large file line by line. Matches for brands already
// seen on earlier lines are dropped, preserving the one-match-per-brand
// contract.
func (s *TextScanner) scanLines(f *os.File, encoding, path string) ([]detection.PAN, error) {
	var src io.Reader = f
	if dec := utf16Decoder(encoding); dec != nil {
		src = transform.NewReader(f, dec)
	}

	seen := make(map[detection.Brand]struct{})
	var matches []detection.PAN

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		for _, pan := range s.finder.Search(scanner.Text()) {
			if _, ok := seen[pan.Brand]; ok {
				continue
			}
			seen[pan.Brand] = struct{}{}
			matches = append(matches, pan)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return matches, nil
}

// decodeText converts raw bytes to a string using the classifier's
// encoding label. Unknown or binary labels fall back to a lossy UTF-8
// interpretation, which keeps ASCII digit runs matchable.
func decodeText(data []byte, encoding string) (string, error) {
	if dec := utf16Decoder(encoding); dec != nil {
		out, _, err := transform.Bytes(dec, data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	return string(data), nil
}

func utf16Decoder(encoding string) transform.Transformer {
	switch encoding {
	case "utf-16le":
		return unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	case "utf-16be":
		return unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewDecoder()
	}
	return nil
}

// payloadReader opens the job's content: the in-memory payload when
// present, else the file on disk.
func payloadReader(job *queue.Job) (io.Reader, io.Closer, error) {
	if job.Payload != nil {
		return bytes.NewReader(job.Payload), nil, nil
	}
	f, err := os.Open(job.AbsPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", job.AbsPath(), err)
	}
	return f, f, nil
}
