package scan

import (
	"fmt"
	"io"

	"github.com/emersion/go-mbox"
	"github.com/jhillyerd/enmime"

	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// MboxScanner searches every message in an mbox database. Bodies yield
// matches for the store itself; attachments become child jobs.
type MboxScanner struct {
	finder *detection.Finder
	sink   JobSink
}

// NewMboxScanner creates an mbox scanner that reports attachments to sink.
func NewMboxScanner(finder *detection.Finder, sink JobSink) *MboxScanner {
	return &MboxScanner{finder: finder, sink: sink}
}

// Scan iterates the store's messages in order. A message that fails to
// parse fails the whole store; partially scanned stores are not reported
// as successes.
func (s *MboxScanner) Scan(job *queue.Job, res classify.Result) ([]detection.PAN, error) {
	src, closer, err := payloadReader(job)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	seen := make(map[detection.Brand]struct{})
	var matches []detection.PAN

	reader := mbox.NewReader(src)
	for {
		msg, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read mbox %s: %w", job.AbsPath(), err)
		}
		env, err := enmime.ReadEnvelope(msg)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message in %s: %w", job.AbsPath(), err)
		}
		for _, pan := range s.finder.Search(env.Text) {
			if _, ok := seen[pan.Brand]; ok {
				continue
			}
			seen[pan.Brand] = struct{}{}
			matches = append(matches, pan)
		}
		enqueueParts(s.sink, job.AbsPath(), env.Attachments)
	}
	return matches, nil
}
