package storage

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidFilename(t *testing.T) {
	assert.Equal(t, "releve-mars-2025.pdf", ValidFilename("Relevé Mars 2025.PDF"))
	assert.Equal(t, "passwd", ValidFilename("../../etc/passwd"))
	assert.Equal(t, "file.txt", ValidFilename("***.txt"))
}

func TestLocalStorageSaveOpenDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/media")
	require.NoError(t, err)

	first, err := s.Save("documents", "f1.pdf", strings.NewReader("data"))
	require.NoError(t, err)
	assert.Equal(t, "documents/f1.pdf", first.Name)
	assert.Equal(t, int64(4), first.Size)
	assert.Equal(t, "a17c9aaa61e80a1bf71d0d850af4e5baa9800bbd", first.SHA1)
	assert.Equal(t, "/media/documents/f1.pdf", s.URL(first.Name))

	second, err := s.Save("documents", "f1.pdf", strings.NewReader("other"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Name, second.Name)
	assert.True(t, strings.HasPrefix(second.Name, "documents/f1_"))

	f, err := s.Open(first.Name)
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, f.Close())
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))

	require.NoError(t, s.Delete(first.Name))
	require.NoError(t, s.Delete(first.Name))
	_, err = s.Open(first.Name)
	assert.Error(t, err)
}

func TestPathStaysInsideRoot(t *testing.T) {
	s := &LocalStorage{Root: "/srv/media", BaseURL: "/media/"}

	p, err := s.Path("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, "/srv/media/etc/passwd", p)

	_, err = s.Path("")
	assert.ErrorIs(t, err, ErrInvalidName)
}
