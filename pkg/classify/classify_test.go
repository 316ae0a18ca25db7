package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal PNG header, enough for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestClassifier_FromBytes(t *testing.T) {
	classifier := NewClassifier()

	tests := []struct {
		name     string
		payload  []byte
		basename string
		kind     ContentKind
	}{
		{
			name:     "plain text",
			payload:  []byte("just some ordinary text content"),
			basename: "notes.txt",
			kind:     KindPlaintext,
		},
		{
			name:     "eml extension disambiguates text",
			payload:  []byte("From: a@example.com\nTo: b@example.com\nSubject: hi\n\nbody"),
			basename: "message.eml",
			kind:     KindEml,
		},
		{
			name:     "mbox extension disambiguates text",
			payload:  []byte("plain looking content without a separator"),
			basename: "inbox.mbox",
			kind:     KindMbox,
		},
		{
			name:     "zip magic",
			payload:  []byte{'P', 'K', 0x03, 0x04, 0x14, 0, 0, 0, 0, 0, 0, 0, 0, 0},
			basename: "archive.zip",
			kind:     KindZip,
		},
		{
			name:     "gzip magic",
			payload:  []byte{0x1f, 0x8b, 0x08, 0, 0, 0, 0, 0, 0, 0},
			basename: "file.txt.gz",
			kind:     KindGzip,
		},
		{
			name:     "xz magic",
			payload:  []byte{0xfd, '7', 'z', 'X', 'Z', 0x00, 0, 0, 0, 0},
			basename: "file.txt.xz",
			kind:     KindXz,
		},
		{
			name:     "pdf magic",
			payload:  []byte("%PDF-1.4\n%âãÏÓ\n"),
			basename: "doc.pdf",
			kind:     KindPdf,
		},
		{
			name:     "image is inert",
			payload:  pngHeader,
			basename: "photo.png",
			kind:     KindUnknown,
		},
		{
			name:     "unknown binary",
			payload:  []byte{0x00, 0x01, 0x02, 0x03, 0xff, 0xfe, 0x00, 0x99},
			basename: "blob.bin",
			kind:     KindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := classifier.FromBytes(tt.payload, tt.basename)
			assert.Equal(t, tt.kind, res.Kind, "mime %s", res.MIMEType)
			assert.NotEmpty(t, res.MIMEType)
			assert.NotEmpty(t, res.Encoding)
		})
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	classifier := NewClassifier()
	payload := []byte("the same content classified twice")

	first := classifier.FromBytes(payload, "same.txt")
	second := classifier.FromBytes(payload, "same.txt")
	assert.Equal(t, first, second)
}

func TestClassifier_FromFile(t *testing.T) {
	classifier := NewClassifier()

	dir := t.TempDir()
	path := filepath.Join(dir, "sample.txt")
	require.NoError(t, os.WriteFile(path, []byte("file content on disk"), 0o644))

	res, err := classifier.FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, KindPlaintext, res.Kind)

	_, err = classifier.FromFile(filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestDetectEncoding(t *testing.T) {
	tests := []struct {
		name     string
		head     []byte
		expected string
	}{
		{"empty", nil, "us-ascii"},
		{"ascii", []byte("plain ascii"), "us-ascii"},
		{"utf-8", []byte("caf\xc3\xa9"), "utf-8"},
		{"utf-16le bom", []byte{0xFF, 0xFE, 'a', 0}, "utf-16le"},
		{"utf-16be bom", []byte{0xFE, 0xFF, 0, 'a'}, "utf-16be"},
		{"null byte means binary", []byte{'a', 0x00, 'b'}, "binary"},
		{"invalid utf-8 means binary", []byte{'a', 0xff, 0xfe, 0x81}, "binary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, detectEncoding(tt.head))
		})
	}
}

func TestMapKind_OfficeFormats(t *testing.T) {
	assert.Equal(t, KindMsWord, mapKind("application/vnd.openxmlformats-officedocument.wordprocessingml.document", ".docx"))
	assert.Equal(t, KindMsExcel, mapKind("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ".xlsx"))
	assert.Equal(t, KindMsPowerpoint, mapKind("application/vnd.openxmlformats-officedocument.presentationml.presentation", ".pptx"))
	assert.Equal(t, KindPlaintext, mapKind("application/msword", ".doc"))
	assert.Equal(t, KindMsMsg, mapKind("application/vnd.ms-outlook", ".msg"))
	assert.Equal(t, KindMsPst, mapKind("application/vnd.ms-outlook", ".pst"))
	assert.Equal(t, KindMsPst, mapKind("application/octet-stream", ".pst"))
	assert.Equal(t, KindMbox, mapKind("application/octet-stream", ".mbox"))
	assert.Equal(t, KindUnknown, mapKind("application/octet-stream", ".dat"))
	assert.Equal(t, KindEml, mapKind("message/rfc822", ".eml"))
	assert.Equal(t, KindUnknown, mapKind("video/mp4", ".mp4"))
	assert.Equal(t, KindUnknown, mapKind("nonsense", ""))
}
