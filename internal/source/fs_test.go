package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dserrors "github.com/docsearch-io/docsearch/pkg/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestFSSourceDocuments(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.txt", "second document")
	writeFile(t, dir, "a.txt", "first document")
	writeFile(t, dir, "notes.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0755))

	docs, err := NewFSSource(dir).Documents(context.Background())
	require.NoError(t, err)

	require.Len(t, docs, 2, "only regular .txt files are documents")
	assert.Equal(t, "a.txt", docs[0].Title, "enumeration is sorted by name")
	assert.Equal(t, filepath.Join(dir, "a.txt"), docs[0].Path)
	assert.Equal(t, "first document", docs[0].Content)
	assert.Equal(t, "b.txt", docs[1].Title)
}

func TestFSSourceEmptyDir(t *testing.T) {
	docs, err := NewFSSource(t.TempDir()).Documents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestFSSourceMissingDir(t *testing.T) {
	_, err := NewFSSource(filepath.Join(t.TempDir(), "absent")).Documents(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, dserrors.ErrSourceUnavailable))
}

func TestFSSourceCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFSSource(dir).Documents(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
