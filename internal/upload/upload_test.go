package upload

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngBytes  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	jpegBytes = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00\x00\x01\x00\x01\x00\x00")
)

type testFile struct {
	name    string
	content []byte
}

// fileHeaders builds real multipart headers by round-tripping a multipart body.
func fileHeaders(t *testing.T, files ...testFile) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		w, err := mw.CreateFormFile("photos", f.name)
		require.NoError(t, err)
		_, err = w.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	form, err := multipart.NewReader(&body, mw.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["photos"]
}

func newUploader(t *testing.T) *Uploader {
	t.Helper()
	u, err := New(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return u
}

func storedFiles(t *testing.T, u *Uploader) []string {
	t.Helper()
	entries, err := os.ReadDir(u.Dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestSaveStoresImage(t *testing.T) {
	u := newUploader(t)
	fh := fileHeaders(t, testFile{"view.PNG", pngBytes})[0]

	path, err := u.Save(fh)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, URLPrefix))
	assert.True(t, strings.HasSuffix(path, ".png"))

	data, err := os.ReadFile(filepath.Join(u.Dir, filepath.Base(path)))
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)
}

func TestValidate(t *testing.T) {
	u := newUploader(t)
	tests := []struct {
		name    string
		file    testFile
		wantErr error
	}{
		{"png", testFile{"a.png", pngBytes}, nil},
		{"jpeg", testFile{"a.jpeg", jpegBytes}, nil},
		{"jpg", testFile{"a.jpg", jpegBytes}, nil},
		{"wrong extension", testFile{"a.gif", pngBytes}, ErrInvalidType},
		{"text disguised as png", testFile{"a.png", []byte("just some text")}, ErrInvalidType},
		{"jpeg content png name", testFile{"a.png", jpegBytes}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := u.Validate(fileHeaders(t, tt.file)[0])
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTooLarge(t *testing.T) {
	u := newUploader(t)
	u.MaxSize = 16
	err := u.Validate(fileHeaders(t, testFile{"a.png", pngBytes})[0])
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestSaveAllValidatesBeforeWriting(t *testing.T) {
	u := newUploader(t)
	fhs := fileHeaders(t,
		testFile{"a.png", pngBytes},
		testFile{"notes.txt", []byte("hello")},
	)

	_, err := u.SaveAll(fhs)
	assert.ErrorIs(t, err, ErrInvalidType)
	assert.Empty(t, storedFiles(t, u))
}

func TestSaveAllLimitsCount(t *testing.T) {
	u := newUploader(t)
	u.MaxFiles = 2
	fhs := fileHeaders(t,
		testFile{"a.png", pngBytes},
		testFile{"b.png", pngBytes},
		testFile{"c.png", pngBytes},
	)

	_, err := u.SaveAll(fhs)
	assert.ErrorIs(t, err, ErrTooManyFiles)
	assert.Empty(t, storedFiles(t, u))
}

func TestSaveAllAndRemove(t *testing.T) {
	u := newUploader(t)
	paths, err := u.SaveAll(fileHeaders(t,
		testFile{"a.png", pngBytes},
		testFile{"b.jpg", jpegBytes},
	))
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.NotEqual(t, paths[0], paths[1])
	assert.Len(t, storedFiles(t, u), 2)

	u.Remove(append(paths, "/etc/passwd", URLPrefix+"missing.png"))
	assert.Empty(t, storedFiles(t, u))
}

func TestMessage(t *testing.T) {
	u := newUploader(t)
	assert.Equal(t, "Only JPG / PNG images allowed", u.Message(ErrInvalidType))
	assert.Equal(t, "Each photo must be 2.0 MiB or smaller", u.Message(ErrTooLarge))
	assert.Equal(t, "You can upload at most 5 photos at a time", u.Message(ErrTooManyFiles))
}
