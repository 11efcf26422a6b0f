package normalize_test

import (
	"testing"

	"github.com/kestrel-labs/corpusreaper/internal/normalize"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenRejectsEmptyContent(t *testing.T) {
	sink := &metadataSinkMock{}
	f := normalize.NewTextFlattener(sink)

	_, err := f.Flatten([]byte("   \n  "))
	require.Error(t, err)
	assert.True(t, sink.recordErrorCalled)
}

func TestFlattenExtractsFirstHeadingAsTitle(t *testing.T) {
	sink := &metadataSinkMock{}
	f := normalize.NewTextFlattener(sink)

	md := []byte("# Hello World\n\nThis is the body.\n\n## Section\n\nMore text.")
	result, err := f.Flatten(md)
	require.NoError(t, err)
	assert.Equal(t, "Hello World", result.Title())
	assert.Contains(t, result.Text(), "This is the body.")
	assert.Contains(t, result.Text(), "Section")
	assert.Contains(t, result.Text(), "More text.")
}

func TestFlattenToleratesMissingHeading(t *testing.T) {
	sink := &metadataSinkMock{}
	f := normalize.NewTextFlattener(sink)

	md := []byte("Just a paragraph with no heading at all.")
	result, err := f.Flatten(md)
	require.NoError(t, err)
	assert.Empty(t, result.Title())
	assert.Contains(t, result.Text(), "Just a paragraph")
}

func TestFlattenToleratesMultipleH1s(t *testing.T) {
	sink := &metadataSinkMock{}
	f := normalize.NewTextFlattener(sink)

	md := []byte("# First\n\nbody one\n\n# Second\n\nbody two")
	result, err := f.Flatten(md)
	require.NoError(t, err)
	assert.Equal(t, "First", result.Title())
	assert.Contains(t, result.Text(), "Second")
	assert.Contains(t, result.Text(), "body two")
}
