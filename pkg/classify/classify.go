package classify

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// ContentKind is the closed set of artifact classes the dispatcher routes on.
type ContentKind int

const (
	KindUnknown ContentKind = iota
	KindPlaintext
	KindRtf
	KindMsWord
	KindMsExcel
	KindMsPowerpoint
	KindPdf
	KindMsMsg
	KindMsPst
	KindEml
	KindMbox
	KindZip
	KindTar
	KindGzip
	KindXz
)

var kindNames = map[ContentKind]string{
	KindUnknown:      "Unknown",
	KindPlaintext:    "Plaintext",
	KindRtf:          "Rtf",
	KindMsWord:       "MsWord",
	KindMsExcel:      "MsExcel",
	KindMsPowerpoint: "MsPowerpoint",
	KindPdf:          "Pdf",
	KindMsMsg:        "MsMsg",
	KindMsPst:        "MsPst",
	KindEml:          "Eml",
	KindMbox:         "Mbox",
	KindZip:          "Zip",
	KindTar:          "Tar",
	KindGzip:         "Gzip",
	KindXz:           "Xz",
}

func (k ContentKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Result is the outcome of classifying one artifact.
type Result struct {
	MIMEType string
	Encoding string
	Kind     ContentKind
}

// sniffLen is how much content the sniffer inspects.
const sniffLen = 2048

// Top-level MIME families that are never scanned.
var inertFamilies = map[string]struct{}{
	"audio":        {},
	"video":        {},
	"image":        {},
	"chemical":     {},
	"model":        {},
	"gcode":        {},
	"x-conference": {},
	"font":         {},
	"x-world":      {},
}

// Classifier maps artifact content and extension to a ContentKind.
// Content sniffing is the primary signal; the extension disambiguates the
// cases where the bytes alone are not conclusive (.eml and .mbox over
// text/plain, .mbox and .pst over octet-stream).
type Classifier struct{}

// NewClassifier returns a classifier. The sniff window is bounded so
// classification cost does not grow with artifact size.
func NewClassifier() *Classifier {
	mimetype.SetLimit(sniffLen)
	return &Classifier{}
}

// FromFile classifies an on-disk artifact.
func (c *Classifier) FromFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{MIMEType: "unknown/unknown", Encoding: "unknown"}, fmt.Errorf("failed to sniff %s: %w", path, err)
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Result{MIMEType: "unknown/unknown", Encoding: "unknown"}, fmt.Errorf("failed to sniff %s: %w", path, err)
	}
	return c.FromBytes(head[:n], filepath.Base(path)), nil
}

// FromBytes classifies an in-memory artifact. The basename supplies the
// extension signal.
func (c *Classifier) FromBytes(payload []byte, basename string) Result {
	head := payload
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}

	mtype := mimetype.Detect(head)
	mimeType := strings.ToLower(strings.TrimSpace(mtype.String()))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	ext := strings.ToLower(filepath.Ext(basename))
	kind := mapKind(mimeType, ext)

	encoding := detectEncoding(head)
	return Result{MIMEType: mimeType, Encoding: encoding, Kind: kind}
}

// mapKind folds (mime type, extension) into a ContentKind.
func mapKind(mimeType, ext string) ContentKind {
	family, subtype, found := strings.Cut(mimeType, "/")
	if !found {
		return KindUnknown
	}
	if _, inert := inertFamilies[family]; inert {
		return KindUnknown
	}

	switch family {
	case "text", "message":
		switch {
		case subtype == "rtf":
			return KindRtf
		case subtype == "rfc822", ext == ".eml":
			return KindEml
		case ext == ".mbox":
			return KindMbox
		default:
			return KindPlaintext
		}
	case "application":
		switch subtype {
		case "octet-stream":
			switch ext {
			case ".mbox":
				return KindMbox
			case ".pst":
				return KindMsPst
			default:
				return KindUnknown
			}
		case "vnd.openxmlformats-officedocument.wordprocessingml.document":
			return KindMsWord
		case "vnd.openxmlformats-officedocument.spreadsheetml.sheet":
			return KindMsExcel
		case "vnd.openxmlformats-officedocument.presentationml.presentation":
			return KindMsPowerpoint
		case "msword", "vnd.ms-excel", "vnd.ms-powerpoint":
			// Legacy binary office formats carry their text inline.
			return KindPlaintext
		case "vnd.ms-outlook":
			if ext == ".pst" {
				return KindMsPst
			}
			return KindMsMsg
		case "rtf", "x-rtf":
			return KindRtf
		case "mbox":
			return KindMbox
		case "pdf":
			return KindPdf
		case "zip", "x-zip-compressed":
			return KindZip
		case "x-tar", "tar":
			return KindTar
		case "gzip", "x-gzip":
			return KindGzip
		case "x-xz", "xz":
			return KindXz
		default:
			return KindUnknown
		}
	default:
		return KindUnknown
	}
}

// detectEncoding labels the text encoding of the sniff window. The label
// "binary" tells the plaintext scanner to fall back to a lossy UTF-8 read.
func detectEncoding(head []byte) string {
	if len(head) == 0 {
		return "us-ascii"
	}
	switch {
	case bytes.HasPrefix(head, []byte{0xFF, 0xFE}):
		return "utf-16le"
	case bytes.HasPrefix(head, []byte{0xFE, 0xFF}):
		return "utf-16be"
	}

	ascii := true
	for _, b := range head {
		if b == 0 {
			return "binary"
		}
		if b > 0x7F {
			ascii = false
		}
	}
	if ascii {
		return "us-ascii"
	}
	if utf8.Valid(head) {
		return "utf-8"
	}
	return "binary"
}
