package lims

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtifactUDFsAccumulateUntilFlush(t *testing.T) {
	artifact := NewArtifact("art-1", "s1", WellPosition{})
	artifact.SetUDF("status", "created")

	assert.Equal(t, "created", artifact.UDF("status"), "pending writes are visible to readers")
	assert.True(t, artifact.Dirty())

	artifact.Flush()
	assert.False(t, artifact.Dirty())
	assert.Equal(t, "created", artifact.UDF("status"))
}

func TestArtifactFlushCascadesToSample(t *testing.T) {
	artifact := NewArtifact("art-1", "s1", WellPosition{})
	artifact.Sample = NewSample("sam-1", "s1")
	artifact.Sample.SetUDF("status", "created")

	assert.True(t, artifact.Dirty(), "a dirty sample makes the artifact dirty")
	artifact.Flush()
	assert.False(t, artifact.Dirty())
	assert.Equal(t, "created", artifact.Sample.UDF("status"))
}

func TestStepUDFs(t *testing.T) {
	step := NewStep("step-1")
	step.SetUDF("created_containers", "27-1,27-2")
	assert.Equal(t, "27-1,27-2", step.UDF("created_containers"))

	step.Flush()
	step.SetUDF("created_containers", "27-3")
	assert.Equal(t, "27-3", step.UDF("created_containers"), "pending value shadows the committed one")
}
