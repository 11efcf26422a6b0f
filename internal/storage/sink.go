package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/metadata"
	"github.com/kestrel-labs/corpusreaper/pkg/failure"
	"github.com/kestrel-labs/corpusreaper/pkg/fileutil"
)

/*
Responsibilities
- Persist the raw artifact (.html or .pdf) and its .txt sibling
- Derive a deterministic filename stem from the canonical URL
- Write atomically: stage to a temp file in the same directory, then rename

Output Characteristics
- Stable directory layout, one corpus directory, flat
- Idempotent, overwrite-safe reruns: a rewrite replaces both files in the
  pair together
*/

type Sink interface {
	WriteRaw(corpusDir, cu, contentType string, body []byte) (WriteResult, failure.ClassifiedError)
	WriteText(corpusDir, cu, title, text string) (WriteResult, failure.ClassifiedError)
}

type LocalSink struct {
	metadataSink metadata.MetadataSink
}

func NewLocalSink(metadataSink metadata.MetadataSink) LocalSink {
	return LocalSink{metadataSink: metadataSink}
}

// FilenameStem derives the artifact filename stem from a canonical URL:
// every "/" becomes "_", per spec.md's artifact-pair naming rule.
func FilenameStem(cu string) string {
	return strings.ReplaceAll(cu, "/", "_")
}

// RawExtension picks the raw artifact's extension from the fetched
// content-type: application/pdf gets .pdf, everything dispatched to the
// HTML pipeline gets .html.
func RawExtension(contentType string) string {
	if strings.Contains(strings.ToLower(contentType), "pdf") {
		return ".pdf"
	}
	return ".html"
}

func (s *LocalSink) WriteRaw(corpusDir, cu, contentType string, body []byte) (WriteResult, failure.ClassifiedError) {
	path := filepath.Join(corpusDir, FilenameStem(cu)+RawExtension(contentType))
	result, err := atomicWrite(path, body)
	if err != nil {
		s.recordError("WriteRaw", cu, path, err)
		return WriteResult{}, err
	}
	s.metadataSink.RecordArtifact(artifactKindForExtension(path), path, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrWritePath, path),
		metadata.NewAttr(metadata.AttrURL, cu),
	})
	return result, nil
}

func (s *LocalSink) WriteText(corpusDir, cu, title, text string) (WriteResult, failure.ClassifiedError) {
	path := filepath.Join(corpusDir, FilenameStem(cu)+".txt")
	content := title + "\n\n" + text
	result, err := atomicWrite(path, []byte(content))
	if err != nil {
		s.recordError("WriteText", cu, path, err)
		return WriteResult{}, err
	}
	s.metadataSink.RecordArtifact(metadata.ArtifactText, path, []metadata.Attribute{
		metadata.NewAttr(metadata.AttrWritePath, path),
		metadata.NewAttr(metadata.AttrURL, cu),
	})
	return result, nil
}

func (s *LocalSink) recordError(action, cu, path string, err *StorageError) {
	s.metadataSink.RecordError(
		time.Now(),
		"storage",
		"LocalSink."+action,
		mapStorageErrorToMetadataCause(err),
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrURL, cu),
			metadata.NewAttr(metadata.AttrWritePath, path),
		},
	)
}

func artifactKindForExtension(path string) metadata.ArtifactKind {
	if strings.HasSuffix(path, ".pdf") {
		return metadata.ArtifactPDF
	}
	return metadata.ArtifactHTML
}

// atomicWrite stages content in a sibling temp file and renames it into
// place, so a reader never observes a partially written artifact.
func atomicWrite(path string, content []byte) (WriteResult, *StorageError) {
	dir := filepath.Dir(path)
	if dirErr := fileutil.EnsureDir(dir); dirErr != nil {
		return WriteResult{}, &StorageError{
			Message:   dirErr.Error(),
			Retryable: false,
			Cause:     ErrCausePathError,
			Path:      dir,
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0644); err != nil {
		cause := ErrCauseWriteFailure
		retryable := false
		if errors.Is(err, syscall.ENOSPC) {
			cause = ErrCauseDiskFull
			retryable = true
		}
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: retryable,
			Cause:     cause,
			Path:      tmpPath,
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return WriteResult{}, &StorageError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseWriteFailure,
			Path:      path,
		}
	}

	return NewWriteResult(path, int64(len(content))), nil
}
