package docker

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBuildLabels(t *testing.T) {
	labels := BuildLabels("sigma-main", "test-run-123", ComponentRedis)

	assert.Equal(t, "true", labels[LabelProject])
	assert.Equal(t, "sigma-main", labels[LabelWorkspace])
	assert.Equal(t, "test-run-123", labels[LabelRunID])
	assert.Equal(t, "redis", labels[LabelComponent])
	assert.Len(t, labels, 4)
}

func TestBuildLabels_NoComponent(t *testing.T) {
	labels := BuildLabels("dev", "test-run-456", "")

	assert.Equal(t, "dev", labels[LabelWorkspace])
	assert.NotContains(t, labels, LabelComponent)
	assert.Len(t, labels, 3)
}

func TestGenerateRunID(t *testing.T) {
	a, b := GenerateRunID(), GenerateRunID()

	_, err := uuid.Parse(a)
	assert.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRedisContainerName(t *testing.T) {
	assert.Equal(t, "tablero-redis-sigma-main", RedisContainerName("sigma-main"))
	assert.Equal(t, "tablero-redis-obra-norte-2", RedisContainerName("obra norte/2"))
	assert.Equal(t, "tablero-redis-a.b_c", RedisContainerName("a.b_c"))
}
