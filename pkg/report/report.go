package report

import (
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/MacAttak/pan-scanner/pkg/finding"
	"github.com/MacAttak/pan-scanner/pkg/hunter"
)

// Report renders one scan's findings. Matched files are sorted by
// abspath and failures by basename before emission, because the
// dispatcher's lists arrive in completion order.
type Report struct {
	summary     hunter.Summary
	matched     []*finding.Finding
	interesting []*finding.Finding
	command     string
}

// New builds a report from scan results. Only findings with matches
// appear in the matched section; failure findings become the
// "interesting files" section.
func New(results *hunter.Results) *Report {
	var matched []*finding.Finding
	for _, f := range results.Matched {
		if len(f.Matches) > 0 {
			matched = append(matched, f)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].AbsPath < matched[j].AbsPath
	})

	interesting := append([]*finding.Finding(nil), results.Failed...)
	sort.Slice(interesting, func(i, j int) bool {
		return interesting[i].Basename < interesting[j].Basename
	})

	return &Report{
		summary:     results.Summary,
		matched:     matched,
		interesting: interesting,
		command:     strings.Join(os.Args, " "),
	}
}

// DefaultTextFilename names the text report for a scan started at ts.
func DefaultTextFilename(ts time.Time) string {
	return fmt.Sprintf("panscan_%s.report", ts.Format("2006-01-02-150405"))
}

// DefaultJSONFilename names the JSON report for a scan started at ts.
func DefaultJSONFilename(ts time.Time) string {
	return fmt.Sprintf("panscan_%s.json", ts.Format("2006-01-02-150405"))
}

// WriteText writes the human-readable report with an integrity hash as
// its final line.
func (r *Report) WriteText(path string) error {
	var b strings.Builder

	fmt.Fprintf(&b, "PAN Scan Report - %s\n", r.summary.End.Format("15:04:05 02/01/2006"))
	b.WriteString(strings.Repeat("=", 100) + "\n")
	fmt.Fprintf(&b, "Searched %s\n", r.summary.SearchDir)
	fmt.Fprintf(&b, "Excluded %s\n", strings.Join(r.summary.ExcludedDirs, ","))
	fmt.Fprintf(&b, "Command: %s\n", r.command)
	fmt.Fprintf(&b, "Scan ID: %s\n", r.summary.ScanID)
	fmt.Fprintf(&b, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "Elapsed time: %s\n", r.summary.Elapsed)
	fmt.Fprintf(&b, "Searched %d files. Found %d possible PANs.\n", r.summary.TotalFiles, r.summary.PANsFound)
	b.WriteString(strings.Repeat("=", 100) + "\n\n")

	for _, f := range r.matched {
		fmt.Fprintf(&b, "FOUND PANs: %s (%s)\n", f.AbsPath, finding.SizeFriendly(f.Size))
		b.WriteString("\t")
		lines := make([]string, 0, len(f.Matches))
		for _, pan := range f.Matches {
			lines = append(lines, pan.String())
		}
		b.WriteString(strings.Join(lines, "\n\t"))
		b.WriteString("\n\n")
	}

	if len(r.interesting) > 0 {
		b.WriteString("Interesting Files to check separately:\n")
		for _, f := range r.interesting {
			fmt.Fprintf(&b, "%s (%s): %s\n", f.AbsPath, finding.SizeFriendly(f.Size), strings.Join(f.Errors, "; "))
		}
	}

	text := b.String()
	text += textHash(text) + "\n"

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// jsonDocument is the JSON report shape.
type jsonDocument struct {
	ScanID           string              `json:"scan_id"`
	Timestamp        string              `json:"timestamp"`
	Searched         string              `json:"searched"`
	Excluded         string              `json:"excluded"`
	Command          string              `json:"command"`
	Elapsed          string              `json:"elapsed"`
	TotalFiles       int                 `json:"total_files"`
	PANsFound        int                 `json:"pans_found"`
	PANsFoundResults map[string][]string `json:"pans_found_results"`
	InterestingFiles *jsonInteresting    `json:"interesting_files,omitempty"`
	Hash             string              `json:"hash,omitempty"`
}

type jsonInteresting struct {
	Total int      `json:"total"`
	Files []string `json:"files"`
}

// WriteJSON writes the machine-readable report. The hash field covers
// the canonical document without the hash itself.
func (r *Report) WriteJSON(path string) error {
	doc := jsonDocument{
		ScanID:           r.summary.ScanID,
		Timestamp:        r.summary.End.Format("15:04:05 02/01/2006"),
		Searched:         r.summary.SearchDir,
		Excluded:         strings.Join(r.summary.ExcludedDirs, ","),
		Command:          r.command,
		Elapsed:          r.summary.Elapsed.String(),
		TotalFiles:       r.summary.TotalFiles,
		PANsFound:        r.summary.PANsFound,
		PANsFoundResults: make(map[string][]string, len(r.matched)),
	}
	for _, f := range r.matched {
		items := make([]string, 0, len(f.Matches))
		for _, pan := range f.Matches {
			items = append(items, pan.String())
		}
		doc.PANsFoundResults[f.AbsPath] = items
	}
	if len(r.interesting) > 0 {
		files := make([]string, 0, len(r.interesting))
		for _, f := range r.interesting {
			files = append(files, f.AbsPath)
		}
		doc.InterestingFiles = &jsonInteresting{Total: len(files), Files: files}
	}

	canonical, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	doc.Hash = textHash(string(canonical))

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// VerifyTextFile recomputes the integrity hash of a text report and
// reports whether it matches the trailing line.
func VerifyTextFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read report: %w", err)
	}
	text := strings.TrimRight(string(data), "\n")
	idx := strings.LastIndexByte(text, '\n')
	if idx < 0 {
		return false, fmt.Errorf("report has no hash line")
	}
	body, wantHash := text[:idx+1], text[idx+1:]
	return textHash(body) == wantHash, nil
}

func textHash(text string) string {
	sum := sha512.Sum512([]byte(text))
	return hex.EncodeToString(sum[:])
}
