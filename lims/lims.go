// Package lims is the surface the host LIMS exposes to the pipeline
// services: step artifacts, user defined fields, containers and step
// attachments. The host owns persistence; everything here follows the
// update-then-commit pattern where writes accumulate in memory and a failed
// commit leaves the remote state unchanged.
package lims

import (
	"context"
)

// Step is the current unit of work: a set of input artifacts plus step level
// UDFs.
type Step struct {
	ID        string
	URI       string
	Artifacts []*Artifact

	udfs    map[string]string
	pending map[string]string
}

func NewStep(id string) *Step {
	return &Step{
		ID:      id,
		udfs:    map[string]string{},
		pending: map[string]string{},
	}
}

func (s *Step) UDF(name string) string {
	if value, ok := s.pending[name]; ok {
		return value
	}
	return s.udfs[name]
}

func (s *Step) SetUDF(name, value string) {
	if s.pending == nil {
		s.pending = map[string]string{}
	}
	s.pending[name] = value
}

func (s *Step) Flush() {
	if s.udfs == nil {
		s.udfs = map[string]string{}
	}
	for name, value := range s.pending {
		s.udfs[name] = value
	}
	s.pending = map[string]string{}
}

// Client is implemented by the host LIMS adapter. The pipeline only ever
// talks to the LIMS through this interface.
type Client interface {
	// GetStep loads a step with its input artifacts and UDFs.
	GetStep(ctx context.Context, stepID string) (*Step, error)
	// CommitArtifacts flushes pending UDF changes on the given artifacts and
	// their submitted samples in one batch.
	CommitArtifacts(ctx context.Context, artifacts []*Artifact) error
	// CommitStep flushes pending step level UDF changes.
	CommitStep(ctx context.Context, step *Step) error
	// CreateContainers materializes new plates with their samples and routes
	// them to the named workflow. Returns the created container IDs.
	CreateContainers(ctx context.Context, containers []*Container, workflowName string) ([]string, error)
	// UploadFile attaches a new file to the step. Existing files are never
	// overwritten.
	UploadFile(ctx context.Context, stepID, fileName string, content []byte) error
	// DownloadFile fetches a step attachment by file slot name.
	DownloadFile(ctx context.Context, stepID, fileName string) ([]byte, error)
	// ContainerNameExists reports whether any container with the given name
	// exists in the LIMS.
	ContainerNameExists(ctx context.Context, name string) (bool, error)
}
