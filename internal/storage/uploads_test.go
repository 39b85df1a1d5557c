package storage

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

func TestUploadStoreSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := NewUploadStore(dir, 0)
	require.NoError(t, err)
	store.now = func() time.Time { return time.UnixMilli(1718000000123) }
	store.suffix = func() string { return "abcd1234" }

	fh := newFileHeader(t, "clip.webm", []byte("voice bytes"))
	saved, err := store.Save(fh, "voice")
	require.NoError(t, err)

	assert.Equal(t, "1718000000123-abcd1234.webm", saved.StoredName)
	assert.Equal(t, "/uploads/1718000000123-abcd1234.webm", saved.URL)
	assert.Equal(t, "clip.webm", saved.OriginalName)
	assert.Equal(t, int64(len("voice bytes")), saved.SizeBytes)
	assert.Equal(t, "voice", saved.Type)
	assert.Equal(t, filepath.Join(dir, saved.StoredName), saved.StoragePath)

	data, err := os.ReadFile(saved.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, "voice bytes", string(data))
}

func TestUploadStoreMissingFile(t *testing.T) {
	store, err := NewUploadStore(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = store.Save(nil, "video")
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestUploadStoreDistinctNames(t *testing.T) {
	store, err := NewUploadStore(t.TempDir(), 0)
	require.NoError(t, err)
	frozen := time.Now()
	store.now = func() time.Time { return frozen }

	first, err := store.Save(newFileHeader(t, "a.mp4", []byte("one")), "")
	require.NoError(t, err)
	second, err := store.Save(newFileHeader(t, "a.mp4", []byte("two")), "")
	require.NoError(t, err)

	assert.NotEqual(t, first.URL, second.URL)
	assert.True(t, strings.HasSuffix(first.URL, ".mp4"))
	assert.True(t, strings.HasSuffix(second.URL, ".mp4"))
}

func TestUploadStoreNeverOverwrites(t *testing.T) {
	store, err := NewUploadStore(t.TempDir(), 0)
	require.NoError(t, err)
	frozen := time.Now()
	store.now = func() time.Time { return frozen }
	suffixes := []string{"same0000", "same0000", "other000"}
	store.suffix = func() string {
		s := suffixes[0]
		suffixes = suffixes[1:]
		return s
	}

	first, err := store.Save(newFileHeader(t, "a.txt", []byte("first")), "")
	require.NoError(t, err)
	second, err := store.Save(newFileHeader(t, "a.txt", []byte("second")), "")
	require.NoError(t, err)

	assert.NotEqual(t, first.StoredName, second.StoredName)
	data, err := os.ReadFile(first.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestUploadStoreSizeLimit(t *testing.T) {
	store, err := NewUploadStore(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = store.Save(newFileHeader(t, "big.bin", []byte("too many bytes")), "")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadStoreDetectsMimeType(t *testing.T) {
	store, err := NewUploadStore(t.TempDir(), 0)
	require.NoError(t, err)

	png, err := store.Save(newFileHeader(t, "frame.png", pngHeader), "video")
	require.NoError(t, err)
	assert.Equal(t, "image/png", png.MimeType)

	text, err := store.Save(newFileHeader(t, "notes.txt", []byte("hello there")), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text.MimeType, "text/plain"), text.MimeType)
}

func TestExtension(t *testing.T) {
	cases := map[string]string{
		"clip.webm":          ".webm",
		"archive.tar.gz":     ".gz",
		"noext":              "",
		".bashrc":            "",
		`C:\videos\sign.mp4`: ".mp4",
		"dir/photo.JPG":      ".JPG",
	}
	for in, want := range cases {
		assert.Equal(t, want, extension(in), in)
	}
}

func newFileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	t.Cleanup(func() { req.MultipartForm.RemoveAll() })

	files := req.MultipartForm.File["file"]
	require.Len(t, files, 1)
	return files[0]
}
