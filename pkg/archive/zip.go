package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"

	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// ZipExtractor handles zip containers, including the zip-backed office
// formats (docx, xlsx, pptx).
type ZipExtractor struct{}

// Children enumerates the archive's file entries and emits one payload
// job per entry. Directory entries are skipped.
func (e *ZipExtractor) Children(job *queue.Job) ([]*queue.Job, error) {
	var (
		reader *zip.Reader
		closer io.Closer
	)

	if job.Payload != nil {
		r, err := zip.NewReader(bytes.NewReader(job.Payload), int64(len(job.Payload)))
		if err != nil {
			return nil, fmt.Errorf("failed to open zip %s: %w", job.AbsPath(), err)
		}
		reader = r
	} else {
		rc, err := zip.OpenReader(job.AbsPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open zip %s: %w", job.AbsPath(), err)
		}
		reader = &rc.Reader
		closer = rc
	}
	if closer != nil {
		defer closer.Close()
	}

	parent := job.AbsPath()
	var children []*queue.Job
	for _, entry := range reader.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to read zip entry %s: %w", entry.Name, err)
		}
		payload, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read zip entry %s: %w", entry.Name, err)
		}
		children = append(children, &queue.Job{
			Basename: entry.Name,
			Dirname:  parent,
			Payload:  payload,
		})
	}
	return children, nil
}
