package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/kestrel-labs/corpusreaper/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilenameStemReplacesSlashes(t *testing.T) {
	assert.Equal(t, "example.test_docs_intro", storage.FilenameStem("example.test/docs/intro"))
}

func TestRawExtensionPicksPDFOrHTML(t *testing.T) {
	assert.Equal(t, ".pdf", storage.RawExtension("application/pdf"))
	assert.Equal(t, ".html", storage.RawExtension("text/html; charset=utf-8"))
}

func TestWriteRawThenText(t *testing.T) {
	dir := t.TempDir()
	sink := storage.NewLocalSink(&metadataSinkMock{})

	rawResult, err := sink.WriteRaw(dir, "example.test/page", "text/html", []byte("<html></html>"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "example.test_page.html"), rawResult.Path())
	assert.Equal(t, int64(len("<html></html>")), rawResult.Size())

	textResult, err := sink.WriteText(dir, "example.test/page", "Title", "body text")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "example.test_page.txt"), textResult.Path())

	contents, readErr := os.ReadFile(textResult.Path())
	require.NoError(t, readErr)
	assert.Contains(t, string(contents), "Title")
	assert.Contains(t, string(contents), "body text")
}

func TestWriteRawOverwritesOnRerun(t *testing.T) {
	dir := t.TempDir()
	sink := storage.NewLocalSink(&metadataSinkMock{})

	_, err := sink.WriteRaw(dir, "example.test/page", "text/html", []byte("first"))
	require.NoError(t, err)

	result, err := sink.WriteRaw(dir, "example.test/page", "text/html", []byte("second-and-longer"))
	require.NoError(t, err)

	contents, readErr := os.ReadFile(result.Path())
	require.NoError(t, readErr)
	assert.Equal(t, "second-and-longer", string(contents))
}
