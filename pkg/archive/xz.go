package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// XzExtractor handles single-stream xz artifacts.
type XzExtractor struct {
	// SizeLimit bounds the accumulated decompressed size.
	SizeLimit int64
}

// Children decompresses the stream into a single child job named after
// the container with ".xz" stripped (the format carries no filename).
func (e *XzExtractor) Children(job *queue.Job) ([]*queue.Job, error) {
	var src io.Reader
	if job.Payload != nil {
		src = bytes.NewReader(job.Payload)
	} else {
		f, err := os.Open(job.AbsPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open xz %s: %w", job.AbsPath(), err)
		}
		defer f.Close()
		src = f
	}

	r, err := xz.NewReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open xz %s: %w", job.AbsPath(), err)
	}

	payload, err := readLimited(r, e.SizeLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress %s: %w", job.AbsPath(), err)
	}

	return []*queue.Job{{
		Basename: strings.TrimSuffix(job.Basename, ".xz"),
		Dirname:  job.AbsPath(),
		Payload:  payload,
	}}, nil
}
