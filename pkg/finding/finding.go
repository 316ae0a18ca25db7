package finding

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
)

// Status is the terminal state of a scanned artifact.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
)

func (s Status) String() string {
	if s == StatusFailure {
		return "Failure"
	}
	return "Success"
}

// Finding is the per-artifact result record. It is produced at most once
// per job and never mutated after the dispatcher releases it.
type Finding struct {
	Basename   string
	Dirname    string
	AbsPath    string
	Extension  string
	Extensions []string

	Size     int64
	MIMEType string
	Encoding string

	Matches []detection.PAN
	Errors  []string
}

// New constructs a Finding. Size comes from the payload when present,
// otherwise from stat (a stat failure records -1 and an error). When the
// caller already classified the artifact it passes mimeType/encoding;
// otherwise the content is classified here. The payload is only used for
// sizing and classification and is not retained.
func New(basename, dirname string, payload []byte, mimeType, encoding string, cl *classify.Classifier) *Finding {
	f := &Finding{
		Basename:   basename,
		Dirname:    dirname,
		AbsPath:    filepath.Join(dirname, basename),
		Extension:  strings.ToLower(filepath.Ext(basename)),
		Extensions: extensions(basename),
		MIMEType:   mimeType,
		Encoding:   encoding,
	}

	if f.MIMEType == "" || f.Encoding == "" {
		if payload != nil {
			res := cl.FromBytes(payload, basename)
			f.MIMEType, f.Encoding = res.MIMEType, res.Encoding
		} else {
			res, err := cl.FromFile(f.AbsPath)
			f.MIMEType, f.Encoding = res.MIMEType, res.Encoding
			if err != nil {
				f.AddError(fmt.Sprintf("failed to detect mimetype and encoding: %v", err))
			}
		}
	}

	if payload != nil {
		f.Size = int64(len(payload))
	} else {
		stat, err := os.Stat(f.AbsPath)
		if err != nil {
			f.Size = -1
			f.AddError(err.Error())
		} else {
			f.Size = stat.Size()
		}
	}
	return f
}

// AddError appends an error message. A Finding with any error reports
// StatusFailure.
func (f *Finding) AddError(msg string) {
	f.Errors = append(f.Errors, msg)
}

// AddMatches appends matched PANs.
func (f *Finding) AddMatches(matches []detection.PAN) {
	f.Matches = append(f.Matches, matches...)
}

// Status derives the terminal state: failure iff any error was recorded
// or size detection failed.
func (f *Finding) Status() Status {
	if len(f.Errors) > 0 || f.Size < 0 {
		return StatusFailure
	}
	return StatusSuccess
}

func (f *Finding) String() string {
	return fmt.Sprintf("%s (%s : %s)", f.AbsPath, f.MIMEType, f.Encoding)
}

// extensions returns every suffix of a name like "archive.tar.gz"
// (".tar", ".gz"), lowercased.
func extensions(basename string) []string {
	var exts []string
	rest := basename
	for {
		ext := filepath.Ext(rest)
		if ext == "" {
			break
		}
		exts = append([]string{strings.ToLower(ext)}, exts...)
		rest = strings.TrimSuffix(rest, ext)
	}
	return exts
}
