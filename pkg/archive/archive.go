package archive

import (
	"fmt"
	"io"

	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// Extractor explodes a container artifact into child jobs. Each child
// carries the extracted bytes as its payload and the container's abspath
// as its dirname, preserving provenance through arbitrary nesting.
type Extractor interface {
	// Children opens the container named by the job (from its payload when
	// present, else from disk) and returns one job per contained artifact.
	Children(job *queue.Job) ([]*queue.Job, error)
}

// readLimited reads r to EOF, failing once the accumulated size exceeds
// limit. Single-stream decompressors use it so a compression bomb fails
// instead of producing a partial scan.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("decompressed size exceeds limit of %d bytes", limit)
	}
	return data, nil
}
