package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// GzipExtractor handles single-stream gzip artifacts.
type GzipExtractor struct {
	// SizeLimit bounds the accumulated decompressed size.
	SizeLimit int64
}

// Children decompresses the stream into a single child job. The child's
// basename comes from the FNAME header when present, else the container
// basename with ".gz" stripped.
func (e *GzipExtractor) Children(job *queue.Job) ([]*queue.Job, error) {
	var src io.Reader
	if job.Payload != nil {
		src = bytes.NewReader(job.Payload)
	} else {
		f, err := os.Open(job.AbsPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip %s: %w", job.AbsPath(), err)
		}
		defer f.Close()
		src = f
	}

	gz, err := gzip.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip %s: %w", job.AbsPath(), err)
	}
	defer gz.Close()

	payload, err := readLimited(gz, e.SizeLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", job.AbsPath(), err)
	}

	basename := gz.Header.Name
	if basename == "" {
		basename = job.Basename
		if strings.HasSuffix(basename, ".gz") {
			basename = strings.TrimSuffix(basename, ".gz")
		}
	}
	return []*queue.Job{{
		Basename: basename,
		Dirname:  job.AbsPath(),
		Payload:  payload,
	}}, nil
}
