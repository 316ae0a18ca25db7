package hunter

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/MacAttak/pan-scanner/pkg/config"
	"github.com/MacAttak/pan-scanner/pkg/finding"
	"github.com/MacAttak/pan-scanner/pkg/processing"
	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// Summary carries the scan metadata the report writers need.
type Summary struct {
	ScanID       string
	SearchDir    string
	ExcludedDirs []string
	Start        time.Time
	End          time.Time
	Elapsed      time.Duration
	TotalFiles   int
	PANsFound    int
}

// Results is the complete outcome of one scan.
type Results struct {
	Summary Summary
	Matched []*finding.Finding
	Failed  []*finding.Finding
}

// Hunter seeds the job queue from the filesystem and waits for the
// dispatcher to drain it. Directory symlinks are not followed (the walk
// does not descend through them); symlinked files encountered in place
// are scanned via their link path.
type Hunter struct {
	cfg        *config.Config
	queue      *queue.JobQueue
	dispatcher *processing.Dispatcher
	logger     zerolog.Logger
}

// New creates a hunter over a started-or-startable dispatcher.
func New(cfg *config.Config, q *queue.JobQueue, d *processing.Dispatcher, logger zerolog.Logger) *Hunter {
	return &Hunter{cfg: cfg, queue: q, dispatcher: d, logger: logger}
}

// Hunt runs the scan to completion: seed jobs, mark input complete, wait
// for the queue to drain. Cancelling the context stops the dispatcher
// between jobs and returns the partial results gathered so far.
func (h *Hunter) Hunt(ctx context.Context) (*Results, error) {
	start := time.Now()
	h.dispatcher.Start()

	var seedErr error
	if h.cfg.Scanner.FilePath != "" {
		seedErr = h.seedSingleFile(h.cfg.Scanner.FilePath)
	} else {
		seedErr = h.seedTree(ctx, h.cfg.Scanner.SearchDir)
	}
	h.queue.MarkInputComplete()

	cancelled := h.waitForDrain(ctx)
	h.dispatcher.Wait()

	if seedErr != nil && !cancelled {
		return nil, seedErr
	}

	matched, failed := h.dispatcher.Results()
	pansFound := 0
	for _, f := range matched {
		pansFound += len(f.Matches)
	}

	end := time.Now()
	return &Results{
		Summary: Summary{
			ScanID:       uuid.NewString(),
			SearchDir:    h.cfg.Scanner.SearchDir,
			ExcludedDirs: h.cfg.Scanner.ExcludedDirs,
			Start:        start,
			End:          end,
			Elapsed:      end.Sub(start),
			TotalFiles:   h.queue.Processed(),
			PANsFound:    pansFound,
		},
		Matched: matched,
		Failed:  failed,
	}, nil
}

func (h *Hunter) seedSingleFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid file path %s: %w", path, err)
	}
	if _, err := os.Stat(abs); err != nil {
		return fmt.Errorf("cannot scan %s: %w", path, err)
	}
	h.logger.Info().Str("path", abs).Msg("added file to scan")
	return h.queue.Enqueue(&queue.Job{
		Basename: filepath.Base(abs),
		Dirname:  filepath.Dir(abs),
	})
}

func (h *Hunter) seedTree(ctx context.Context, root string) error {
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("directory does not exist: %s", root)
	}

	h.logger.Info().Str("root", root).Msg("started searching directories")
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// Unreadable entries are skipped, not fatal.
			h.logger.Warn().Str("path", path).Err(err).Msg("skipping unreadable entry")
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if h.isExcludedDir(path) {
				return fs.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() && entry.Type()&fs.ModeSymlink == 0 {
			return nil
		}
		if h.matchesExcludePattern(root, path) {
			return nil
		}

		return h.queue.Enqueue(&queue.Job{
			Basename: filepath.Base(path),
			Dirname:  filepath.Dir(path),
		})
	})
	if err != nil {
		return fmt.Errorf("error walking directory: %w", err)
	}
	h.logger.Info().Msg("finished searching directories")
	return nil
}

// isExcludedDir prunes directories whose absolute path starts with a
// configured exclusion, on a path-segment boundary.
func (h *Hunter) isExcludedDir(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	lower := strings.ToLower(abs)
	for _, excluded := range h.cfg.Scanner.ExcludedDirs {
		if lower == excluded {
			return true
		}
		if strings.HasPrefix(lower, excluded) {
			rest := lower[len(excluded):]
			if strings.HasSuffix(excluded, string(os.PathSeparator)) || strings.HasPrefix(rest, string(os.PathSeparator)) {
				return true
			}
		}
	}
	return false
}

func (h *Hunter) matchesExcludePattern(root, path string) bool {
	if len(h.cfg.Scanner.ExcludePatterns) == 0 {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range h.cfg.Scanner.ExcludePatterns {
		if matched, err := doublestar.Match(filepath.ToSlash(pattern), rel); err == nil && matched {
			return true
		}
	}
	return false
}

// waitForDrain polls the finished-predicate, stopping the dispatcher
// early when the context is cancelled. Returns true on cancellation.
func (h *Hunter) waitForDrain(ctx context.Context) bool {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.logger.Warn().Msg("scan cancelled")
			h.dispatcher.Stop()
			return true
		case <-ticker.C:
			if h.queue.IsFinished() {
				h.dispatcher.Stop()
				return false
			}
		}
	}
}
