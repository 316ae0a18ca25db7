package scan

import (
	"encoding/base64"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
	"github.com/MacAttak/pan-scanner/pkg/queue"
)

func buildEml(body string, attachment []byte) string {
	var b strings.Builder
	b.WriteString("From: sender@example.com\r\n")
	b.WriteString("To: recipient@example.com\r\n")
	b.WriteString("Subject: invoice\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: multipart/mixed; boundary=\"MIXED\"\r\n")
	b.WriteString("\r\n")
	b.WriteString("--MIXED\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body + "\r\n")
	if attachment != nil {
		b.WriteString("--MIXED\r\n")
		b.WriteString("Content-Type: application/octet-stream; name=\"payload.txt\"\r\n")
		b.WriteString("Content-Disposition: attachment; filename=\"payload.txt\"\r\n")
		b.WriteString("Content-Transfer-Encoding: base64\r\n")
		b.WriteString("\r\n")
		b.WriteString(base64.StdEncoding.EncodeToString(attachment) + "\r\n")
	}
	b.WriteString("--MIXED--\r\n")
	return b.String()
}

func TestEmlScanner_BodyAndAttachment(t *testing.T) {
	sink := &fakeSink{}
	scanner := NewEmlScanner(newFinder(), sink)

	attachment := []byte("attached visa 4012 8888 8888 1881 here")
	eml := buildEml("mastercard in body: 5555-5555-5555-4444", attachment)

	job := &queue.Job{Basename: "mail.eml", Dirname: "inbox", Payload: []byte(eml)}
	matches, err := scanner.Scan(job, classify.Result{})
	require.NoError(t, err)

	// The body yields only the mail's own matches.
	require.Len(t, matches, 1)
	assert.Equal(t, detection.BrandMastercard, matches[0].Brand)

	// The attachment is re-enqueued, not scanned inline.
	require.Len(t, sink.jobs, 1)
	assert.Equal(t, "payload.txt", sink.jobs[0].Basename)
	assert.Equal(t, filepath.Join("inbox", "mail.eml"), sink.jobs[0].Dirname)
	assert.Equal(t, attachment, sink.jobs[0].Payload)
}

func TestEmlScanner_NoAttachments(t *testing.T) {
	sink := &fakeSink{}
	scanner := NewEmlScanner(newFinder(), sink)

	eml := buildEml("nothing to see", nil)
	matches, err := scanner.Scan(&queue.Job{Basename: "mail.eml", Payload: []byte(eml)}, classify.Result{})
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Empty(t, sink.jobs)
}

func TestEmlScanner_MissingFile(t *testing.T) {
	sink := &fakeSink{}
	scanner := NewEmlScanner(newFinder(), sink)

	// Missing file and no payload.
	_, err := scanner.Scan(&queue.Job{Basename: "gone.eml", Dirname: t.TempDir()}, classify.Result{})
	assert.Error(t, err)
}

func TestMboxScanner(t *testing.T) {
	sink := &fakeSink{}
	scanner := NewMboxScanner(newFinder(), sink)

	var b strings.Builder
	b.WriteString("From sender@example.com Thu Jan  1 00:00:00 2015\r\n")
	b.WriteString("From: sender@example.com\r\n")
	b.WriteString("Subject: first\r\n")
	b.WriteString("Content-Type: text/plain\r\n")
	b.WriteString("\r\n")
	b.WriteString("visa 4111 1111 1111 1111\r\n")
	b.WriteString("\r\n")
	b.WriteString("From other@example.com Thu Jan  1 00:00:01 2015\r\n")
	b.WriteString("From: other@example.com\r\n")
	b.WriteString("Subject: second\r\n")
	b.WriteString("Content-Type: text/plain\r\n")
	b.WriteString("\r\n")
	b.WriteString("amex 378282246310005\r\n")

	matches, err := scanner.Scan(&queue.Job{Basename: "inbox.mbox", Payload: []byte(b.String())}, classify.Result{})
	require.NoError(t, err)

	brands := make(map[detection.Brand]bool)
	for _, pan := range matches {
		brands[pan.Brand] = true
	}
	assert.True(t, brands[detection.BrandVisa])
	assert.True(t, brands[detection.BrandAmex])
	assert.Empty(t, sink.jobs)
}
