package storage_test

import (
	"time"

	"github.com/kestrel-labs/corpusreaper/internal/metadata"
)

type metadataSinkMock struct {
	artifacts []metadata.ArtifactKind
	errors    int
}

func (m *metadataSinkMock) RecordFetch(fetchUrl string, httpStatus int, duration time.Duration, contentType string, retryCount int, crawlDepth int) {
}

func (m *metadataSinkMock) RecordError(observedAt time.Time, packageName, action string, cause metadata.ErrorCause, errString string, attrs []metadata.Attribute) {
	m.errors++
}

func (m *metadataSinkMock) RecordArtifact(kind metadata.ArtifactKind, path string, attrs []metadata.Attribute) {
	m.artifacts = append(m.artifacts, kind)
}
