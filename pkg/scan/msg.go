package scan

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
	"github.com/MacAttak/pan-scanner/pkg/queue"
)

// MAPI property streams inside the compound file. The 001F suffix marks
// UTF-16LE string properties, 001E the codepage variants, 0102 binary.
const (
	streamBodyUnicode    = "__substg1.0_1000001F"
	streamBodyAnsi       = "__substg1.0_1000001E"
	streamAttachPrefix   = "__attach_version1.0_"
	streamAttachLongName = "__substg1.0_3707001F"
	streamAttachName     = "__substg1.0_3704001F"
	streamAttachData     = "__substg1.0_37010102"
)

// MsgScanner searches an Outlook .msg message stored as an OLE compound
// file. The body yields matches; attachment data streams become child
// jobs.
type MsgScanner struct {
	finder *detection.Finder
	sink   JobSink
}

// NewMsgScanner creates a .msg scanner that reports attachments to sink.
func NewMsgScanner(finder *detection.Finder, sink JobSink) *MsgScanner {
	return &MsgScanner{finder: finder, sink: sink}
}

type msgAttachment struct {
	longName string
	name     string
	data     []byte
}

// Scan walks the compound file's streams, decodes the message body and
// enqueues each attachment's bytes under this message's abspath.
func (s *MsgScanner) Scan(job *queue.Job, res classify.Result) ([]detection.PAN, error) {
	ra, closer, err := msgReaderAt(job)
	if err != nil {
		return nil, err
	}
	if closer != nil {
		defer closer.Close()
	}

	doc, err := mscfb.New(ra)
	if err != nil {
		return nil, fmt.Errorf("failed to open msg %s: %w", job.AbsPath(), err)
	}

	var body string
	attachments := make(map[string]*msgAttachment)

	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch {
		case len(entry.Path) == 0:
			switch entry.Name {
			case streamBodyUnicode:
				raw, rerr := io.ReadAll(entry)
				if rerr != nil {
					return nil, fmt.Errorf("failed to read msg body in %s: %w", job.AbsPath(), rerr)
				}
				body = decodeUTF16LE(raw)
			case streamBodyAnsi:
				if body == "" {
					raw, rerr := io.ReadAll(entry)
					if rerr != nil {
						return nil, fmt.Errorf("failed to read msg body in %s: %w", job.AbsPath(), rerr)
					}
					body = string(raw)
				}
			}
		case len(entry.Path) == 1 && strings.HasPrefix(entry.Path[0], streamAttachPrefix):
			att := attachments[entry.Path[0]]
			if att == nil {
				att = &msgAttachment{}
				attachments[entry.Path[0]] = att
			}
			switch entry.Name {
			case streamAttachLongName:
				raw, rerr := io.ReadAll(entry)
				if rerr == nil {
					att.longName = decodeUTF16LE(raw)
				}
			case streamAttachName:
				raw, rerr := io.ReadAll(entry)
				if rerr == nil {
					att.name = decodeUTF16LE(raw)
				}
			case streamAttachData:
				raw, rerr := io.ReadAll(entry)
				if rerr != nil {
					return nil, fmt.Errorf("failed to read msg attachment in %s: %w", job.AbsPath(), rerr)
				}
				att.data = raw
			}
		}
	}

	matches := s.finder.Search(body)

	// Stable order keeps repeated scans identical.
	keys := make([]string, 0, len(attachments))
	for key := range attachments {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for i, key := range keys {
		att := attachments[key]
		if len(att.data) == 0 {
			continue
		}
		name := att.longName
		if name == "" {
			name = att.name
		}
		if name == "" {
			name = fmt.Sprintf("attachment-%d", i+1)
		}
		s.sink.EnqueueChild(&queue.Job{
			Basename: name,
			Dirname:  job.AbsPath(),
			Payload:  att.data,
		})
	}
	return matches, nil
}

func msgReaderAt(job *queue.Job) (io.ReaderAt, io.Closer, error) {
	if job.Payload != nil {
		return bytes.NewReader(job.Payload), nil, nil
	}
	f, err := os.Open(job.AbsPath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", job.AbsPath(), err)
	}
	return f, f, nil
}

func decodeUTF16LE(raw []byte) string {
	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	out, _, err := transform.Bytes(dec, raw)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(out), "\x00")
}
