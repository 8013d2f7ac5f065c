package covidpipe

import (
	"context"
	"fmt"

	"github.com/snpseq/covidpipe/lims"
)

// A testrig that can be used for isolated Testing
// Fullfills the lims.Client contract with in-memory state
type LimsTestRig struct {
	Steps              map[string]*lims.Step
	Files              map[string][]byte
	UploadedFiles      map[string][]byte
	CreatedContainers  []*lims.Container
	RoutedWorkflowName string
	ExistingNames      map[string]bool

	nextContainerID int

	CommitArtifactsError  error
	CommitStepError       error
	CreateContainersError error
}

func NewLimsTestRig() *LimsTestRig {
	return &LimsTestRig{
		Steps:         map[string]*lims.Step{},
		Files:         map[string][]byte{},
		UploadedFiles: map[string][]byte{},
		ExistingNames: map[string]bool{},
	}
}

func (tr *LimsTestRig) GetStep(ctx context.Context, stepID string) (*lims.Step, error) {
	step, ok := tr.Steps[stepID]
	if !ok {
		return nil, fmt.Errorf("no step with id %s", stepID)
	}
	return step, nil
}

func (tr *LimsTestRig) CommitArtifacts(ctx context.Context, artifacts []*lims.Artifact) error {
	if tr.CommitArtifactsError != nil {
		return tr.CommitArtifactsError
	}
	for _, artifact := range artifacts {
		artifact.Flush()
		if artifact.Sample != nil {
			artifact.Sample.Flush()
		}
	}
	return nil
}

func (tr *LimsTestRig) CommitStep(ctx context.Context, step *lims.Step) error {
	if tr.CommitStepError != nil {
		return tr.CommitStepError
	}
	step.Flush()
	return nil
}

func (tr *LimsTestRig) CreateContainers(ctx context.Context, containers []*lims.Container, workflowName string) ([]string, error) {
	if tr.CreateContainersError != nil {
		return nil, tr.CreateContainersError
	}
	ids := make([]string, len(containers))
	for i, container := range containers {
		tr.nextContainerID++
		ids[i] = fmt.Sprintf("27-%d", tr.nextContainerID)
		tr.CreatedContainers = append(tr.CreatedContainers, container)
		tr.ExistingNames[container.Name] = true
	}
	tr.RoutedWorkflowName = workflowName
	return ids, nil
}

func (tr *LimsTestRig) UploadFile(ctx context.Context, stepID, fileName string, content []byte) error {
	key := stepID + "/" + fileName
	tr.UploadedFiles[key] = content
	return nil
}

// DownloadFile serves a staged attachment; the freshest upload wins when the
// slot name matches an uploaded file prefix.
func (tr *LimsTestRig) DownloadFile(ctx context.Context, stepID, fileName string) ([]byte, error) {
	if content, ok := tr.Files[stepID+"/"+fileName]; ok {
		return content, nil
	}
	return nil, fmt.Errorf("no file %q attached to step %s", fileName, stepID)
}

func (tr *LimsTestRig) ContainerNameExists(ctx context.Context, name string) (bool, error) {
	return tr.ExistingNames[name], nil
}

// Additonal Testing Functionality
func (tr *LimsTestRig) StageFile(stepID, fileName string, content []byte) {
	tr.Files[stepID+"/"+fileName] = content
}

func (tr *LimsTestRig) Clear() {
	tr.Steps = map[string]*lims.Step{}
	tr.Files = map[string][]byte{}
	tr.UploadedFiles = map[string][]byte{}
	tr.CreatedContainers = nil
	tr.ExistingNames = map[string]bool{}
	tr.nextContainerID = 0
}
