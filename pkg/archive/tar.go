package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// TarExtractor handles tar containers.
type TarExtractor struct{}

// Children iterates the tape members and emits one payload job per
// regular file. Directories, links and device nodes are skipped.
func (e *TarExtractor) Children(job *queue.Job) ([]*queue.Job, error) {
	var src io.Reader
	if job.Payload != nil {
		src = bytes.NewReader(job.Payload)
	} else {
		f, err := os.Open(job.AbsPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open tar %s: %w", job.AbsPath(), err)
		}
		defer f.Close()
		src = f
	}

	parent := job.AbsPath()
	reader := tar.NewReader(src)
	var children []*queue.Job
	for {
		hdr, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read tar %s: %w", parent, err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		payload, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read tar member %s: %w", hdr.Name, err)
		}
		children = append(children, &queue.Job{
			Basename: hdr.Name,
			Dirname:  parent,
			Payload:  payload,
		})
	}
	return children, nil
}
