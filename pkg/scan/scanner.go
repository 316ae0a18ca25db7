package scan

import (
	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// Scanner is a leaf scanner: it searches one artifact's text for PANs.
// Mail scanners additionally hand embedded attachments to their JobSink
// so every artifact goes through the same classification and size-gate
// logic regardless of nesting depth; a scanner never recurses inline.
type Scanner interface {
	Scan(job *queue.Job, res classify.Result) ([]detection.PAN, error)
}

// JobSink accepts child jobs discovered inside a scanned artifact. The
// dispatcher implements it; enqueue failures become failure findings for
// the child, so scanners do not see them.
type JobSink interface {
	EnqueueChild(job *queue.Job)
}
