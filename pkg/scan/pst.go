package scan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	pst "github.com/mooijtech/go-pst/v6/pkg"
	"github.com/mooijtech/go-pst/v6/pkg/properties"

	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// noSubject is the provenance placeholder for messages without a subject.
const noSubject = "[NoSubject]"

// PstScanner iterates the folders and messages of an Outlook personal
// store. Message bodies yield matches for the store; attachments become
// child jobs whose dirname is the store path, the name of the message's
// own folder and the message subject. Parent folder names are not
// included.
type PstScanner struct {
	finder *detection.Finder
	sink   JobSink
}

// NewPstScanner creates a PST scanner that reports attachments to sink.
func NewPstScanner(finder *detection.Finder, sink JobSink) *PstScanner {
	return &PstScanner{finder: finder, sink: sink}
}

// Scan walks the store. The store itself has already passed the
// dispatcher's size gate; in addition each attachment is re-enqueued and
// gated on its own size like any other artifact. Message bodies are not
// gated separately.
func (s *PstScanner) Scan(job *queue.Job, res classify.Result) ([]detection.PAN, error) {
	reader, closer, err := pstReader(job)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	store, err := pst.New(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open pst %s: %w", job.AbsPath(), err)
	}
	defer store.Cleanup()

	seen := make(map[detection.Brand]struct{})
	var matches []detection.PAN

	walkErr := store.WalkFolders(func(folder *pst.Folder) error {
		messageIterator, err := folder.GetMessageIterator()
		if errors.Is(err, pst.ErrMessagesNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		for messageIterator.Next() {
			message := messageIterator.Value()

			subject := noSubject
			var body string
			if msgProps, ok := message.Properties.(*properties.Message); ok {
				if s := msgProps.GetSubject(); s != "" {
					subject = s
				}
				body = msgProps.GetBody()
			}
			messagePath := filepath.Join(job.AbsPath(), folder.Name, subject)

			for _, pan := range s.finder.Search(body) {
				if _, ok := seen[pan.Brand]; ok {
					continue
				}
				seen[pan.Brand] = struct{}{}
				matches = append(matches, pan)
			}

			attachmentIterator, err := message.GetAttachmentIterator()
			if errors.Is(err, pst.ErrAttachmentsNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			for i := 0; attachmentIterator.Next(); i++ {
				attachment := attachmentIterator.Value()

				name := attachment.GetAttachLongFilename()
				if name == "" {
					name = fmt.Sprintf("attachment-%d", i+1)
				}

				var buf bytes.Buffer
				if _, err := attachment.WriteTo(&buf); err != nil {
					return fmt.Errorf("failed to read attachment %s: %w", name, err)
				}
				if buf.Len() == 0 {
					continue
				}
				s.sink.EnqueueChild(&queue.Job{
					Basename: name,
					Dirname:  messagePath,
					Payload:  buf.Bytes(),
				})
			}
			if err := attachmentIterator.Err(); err != nil {
				return err
			}
		}
		return messageIterator.Err()
	})
	if walkErr != nil {
		return nil, fmt.Errorf("failed to walk pst %s: %w", job.AbsPath(), walkErr)
	}
	return matches, nil
}

func pstReader(job *queue.Job) (pstSource, io.Closer, error) {
	if job.Payload != nil {
		return bytes.NewReader(job.Payload), nil, nil
	}
	f, err := os.Open(job.AbsPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", job.AbsPath(), err)
	}
	return f, f, nil
}

// pstSource is what the store decoder needs from its input.
type pstSource interface {
	io.ReadSeeker
	io.ReaderAt
}
