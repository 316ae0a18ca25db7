package finding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MacAttak/pan-scanner/pkg/classify"
	"github.com/MacAttak/pan-scanner/pkg/detection"
)

func TestNew_WithPayload(t *testing.T) {
	classifier := classify.NewClassifier()
	payload := []byte("payload text content for sizing")

	f := New("att.txt", filepath.Join("inbox", "mail.eml"), payload, "", "", classifier)

	assert.Equal(t, filepath.Join("inbox", "mail.eml", "att.txt"), f.AbsPath)
	assert.Equal(t, int64(len(payload)), f.Size)
	assert.Equal(t, ".txt", f.Extension)
	assert.Equal(t, "text/plain", f.MIMEType)
	assert.Equal(t, StatusSuccess, f.Status())
	assert.Empty(t, f.Errors)
}

func TestNew_WithFile(t *testing.T) {
	classifier := classify.NewClassifier()

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	content := []byte("some on-disk content")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	f := New("doc.txt", dir, nil, "", "", classifier)

	assert.Equal(t, int64(len(content)), f.Size)
	assert.Equal(t, StatusSuccess, f.Status())
}

func TestNew_StatFailure(t *testing.T) {
	classifier := classify.NewClassifier()

	f := New("missing.txt", t.TempDir(), nil, "", "", classifier)

	assert.Equal(t, int64(-1), f.Size)
	assert.Equal(t, StatusFailure, f.Status())
	assert.NotEmpty(t, f.Errors)
}

func TestNew_CallerProvidedClassification(t *testing.T) {
	// When the dispatcher already classified, no re-classification runs
	// and the classifier may be nil-equivalent for payload jobs.
	f := New("data.csv", "dir", []byte("1,2,3"), "text/csv", "us-ascii", nil)

	assert.Equal(t, "text/csv", f.MIMEType)
	assert.Equal(t, "us-ascii", f.Encoding)
}

func TestFinding_StatusFailure(t *testing.T) {
	f := &Finding{Size: 10}
	assert.Equal(t, StatusSuccess, f.Status())

	f.AddError("boom")
	assert.Equal(t, StatusFailure, f.Status())
	assert.Equal(t, "Failure", f.Status().String())
}

func TestFinding_AddMatches(t *testing.T) {
	f := &Finding{Size: 1}
	f.AddMatches([]detection.PAN{{Brand: detection.BrandVisa, Masked: "411111******1111"}})
	f.AddMatches(nil)
	assert.Len(t, f.Matches, 1)
}

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".tar", ".gz"}, extensions("backup.tar.gz"))
	assert.Equal(t, []string{".txt"}, extensions("NOTES.TXT"))
	assert.Nil(t, extensions("Makefile"))
}

func TestSizeFriendly(t *testing.T) {
	assert.Equal(t, "512.00B", SizeFriendly(512))
	assert.Equal(t, "1.00KB", SizeFriendly(1024))
	assert.Equal(t, "1.50MB", SizeFriendly(3*1024*1024/2))
	assert.Equal(t, "1.00GB", SizeFriendly(1073741824))
}
