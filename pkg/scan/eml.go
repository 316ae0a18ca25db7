package scan

import (
	"fmt"

	"github.com/jhillyerd/enmime"

	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// EmlScanner searches a single RFC 5322 message. The body yields matches
// directly; attachments are re-enqueued as payload jobs.
type EmlScanner struct {
	finder *detection.Finder
	sink   JobSink
}

// NewEmlScanner creates an EML scanner that reports attachments to sink.
func NewEmlScanner(finder *detection.Finder, sink JobSink) *EmlScanner {
	return &EmlScanner{finder: finder, sink: sink}
}

// Scan parses the message, searches the body text and enqueues every
// attachment as a child job rooted at this message's abspath.
func (s *EmlScanner) Scan(job *queue.Job, res classify.Result) ([]detection.PAN, error) {
	src, closer, err := payloadReader(job)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	env, err := enmime.ReadEnvelope(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message %s: %w", job.AbsPath(), err)
	}

	matches := s.finder.Search(env.Text)
	enqueueParts(s.sink, job.AbsPath(), env.Attachments)
	return matches, nil
}

// enqueueParts turns MIME attachment parts into child jobs. Parts with
// no filename get a stable placeholder so provenance stays readable.
func enqueueParts(sink JobSink, parent string, parts []*enmime.Part) {
	for i, part := range parts {
		if len(part.Content) == 0 {
			continue
		}
		name := part.FileName
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}
		sink.EnqueueChild(&queue.Job{
			Basename: name,
			Dirname:  parent,
			Payload:  part.Content,
		})
	}
}
