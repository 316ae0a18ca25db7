package processing

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/MacAttak/pan-scanner/pkg/archive"
	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/finding"
	"github.com/MacAttak/pan-scanner/pkg/queue"
	"github.com/MacAttak/pan-scanner/pkg/scan"
)

// pollInterval is how long the worker sleeps when the queue is empty but
// not yet finished.
const pollInterval = 100 * time.Millisecond

// Dispatcher pulls jobs from the queue, classifies each artifact and
// routes it to a container extractor or a leaf scanner. Containers
// produce child jobs and no Finding; leaves produce exactly one Finding.
// Per-artifact failures are captured into failure Findings and the scan
// continues.
type Dispatcher struct {
	queue      *queue.JobQueue
	classifier *classify.Classifier
	extractors map[classify.ContentKind]archive.Extractor
	scanners   map[classify.ContentKind]scan.Scanner
	sizeLimit  int64
	logger     zerolog.Logger

	mu        sync.Mutex
	succeeded []*finding.Finding
	failed    []*finding.Finding

	stopFlag atomic.Bool
	done     chan struct{}
	started  bool
}

// NewDispatcher creates a dispatcher over the shared queue and
// classifier. Extractors and scanners are registered before Start.
func NewDispatcher(q *queue.JobQueue, classifier *classify.Classifier, sizeLimit int64, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:      q,
		classifier: classifier,
		extractors: make(map[classify.ContentKind]archive.Extractor),
		scanners:   make(map[classify.ContentKind]scan.Scanner),
		sizeLimit:  sizeLimit,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// RegisterExtractor routes a content kind to a container extractor.
func (d *Dispatcher) RegisterExtractor(kind classify.ContentKind, ex archive.Extractor) {
	d.extractors[kind] = ex
}

// RegisterScanner routes a content kind to a leaf scanner.
func (d *Dispatcher) RegisterScanner(kind classify.ContentKind, sc scan.Scanner) {
	d.scanners[kind] = sc
}

// Start runs the worker loop in a background goroutine. The loop exits
// when the queue reports finished or Stop is called; it never stops
// mid-job.
func (d *Dispatcher) Start() {
	if d.started {
		return
	}
	d.started = true
	go d.run()
}

// Stop requests the worker loop to halt between jobs.
func (d *Dispatcher) Stop() {
	d.stopFlag.Store(true)
}

// Wait blocks until the worker loop has exited.
func (d *Dispatcher) Wait() {
	<-d.done
}

// Results returns the success and failure lists. Call only after Wait;
// findings are immutable once released.
func (d *Dispatcher) Results() (succeeded, failed []*finding.Finding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.succeeded, d.failed
}

// EnqueueChild accepts a job discovered inside a container or message.
// An enqueue failure (memory back-pressure timeout) becomes a failure
// Finding for the child; the parent scan continues.
func (d *Dispatcher) EnqueueChild(job *queue.Job) {
	if err := d.queue.Enqueue(job); err != nil {
		f := finding.New(job.Basename, job.Dirname, job.Payload, "", "", d.classifier)
		f.AddError(err.Error())
		d.record(f)
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for !d.stopFlag.Load() && !d.queue.IsFinished() {
		job, ok := d.queue.Dequeue()
		if !ok {
			time.Sleep(pollInterval)
			continue
		}
		f := d.dispatch(job)
		d.queue.CompleteJob()
		if f != nil {
			d.record(f)
		}
	}
	d.logger.Debug().Msg("dispatcher stopped, all jobs processed")
}

// dispatch processes one job: size gate, classification, then routing.
func (d *Dispatcher) dispatch(job *queue.Job) *finding.Finding {
	// Size gate before any content is opened.
	var size int64
	if job.Payload != nil {
		size = int64(len(job.Payload))
	} else {
		stat, err := os.Stat(job.AbsPath())
		if err != nil {
			// The constructor records both the stat and classification
			// failures.
			return finding.New(job.Basename, job.Dirname, job.Payload, "", "", d.classifier)
		}
		size = stat.Size()
	}
	if size > d.sizeLimit {
		// Oversized content is never opened, not even for sniffing.
		f := finding.New(job.Basename, job.Dirname, job.Payload, "unknown/unknown", "unknown", d.classifier)
		f.AddError(fmt.Sprintf("file size %s over limit of %s for checking",
			finding.SizeFriendly(size), finding.SizeFriendly(d.sizeLimit)))
		return f
	}

	var (
		res classify.Result
		err error
	)
	if job.Payload != nil {
		res = d.classifier.FromBytes(job.Payload, job.Basename)
	} else {
		res, err = d.classifier.FromFile(job.AbsPath())
		if err != nil {
			f := finding.New(job.Basename, job.Dirname, job.Payload, res.MIMEType, res.Encoding, d.classifier)
			f.AddError(err.Error())
			return f
		}
	}

	if ex, ok := d.extractors[res.Kind]; ok {
		children, err := ex.Children(job)
		if err != nil {
			f := finding.New(job.Basename, job.Dirname, job.Payload, res.MIMEType, res.Encoding, d.classifier)
			f.AddError(err.Error())
			return f
		}
		for _, child := range children {
			d.EnqueueChild(child)
		}
		// The container itself produces no Finding.
		return nil
	}

	if sc, ok := d.scanners[res.Kind]; ok {
		f := finding.New(job.Basename, job.Dirname, job.Payload, res.MIMEType, res.Encoding, d.classifier)
		matches, err := sc.Scan(job, res)
		if err != nil {
			f.AddError(err.Error())
			return f
		}
		f.AddMatches(matches)
		return f
	}

	// Unknown kinds are not scanned and leave no trace.
	return nil
}

func (d *Dispatcher) record(f *finding.Finding) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if f.Status() == finding.StatusFailure {
		d.logger.Error().Str("path", f.AbsPath).Strs("errors", f.Errors).Msg("artifact not scanned")
		d.failed = append(d.failed, f)
		return
	}
	if len(f.Matches) > 0 {
		d.logger.Info().Str("path", f.AbsPath).Int("matches", len(f.Matches)).Msg("possible PANs found")
	}
	d.succeeded = append(d.succeeded, f)
}
