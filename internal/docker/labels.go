package docker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Label keys used for tablero resources
const (
	LabelProject   = "tablero.project"
	LabelWorkspace = "tablero.workspace"
	LabelRunID     = "tablero.run_id"
	LabelComponent = "tablero.component"
	LabelRedisPort = "tablero.redis.port"
)

// ComponentRedis marks the development store container
const ComponentRedis = "redis"

// BuildLabels creates the standard label set for tablero resources.
// component may be empty.
func BuildLabels(workspace, runID, component string) map[string]string {
	labels := map[string]string{
		LabelProject:   "true",
		LabelWorkspace: workspace,
		LabelRunID:     runID,
	}

	if component != "" {
		labels[LabelComponent] = component
	}

	return labels
}

// GenerateRunID creates a new UUID for one `store up`.
func GenerateRunID() string {
	return uuid.New().String()
}

// RedisContainerName returns the store container name for a workspace.
// Characters Docker rejects in names are replaced with '-'.
func RedisContainerName(workspace string) string {
	return fmt.Sprintf("tablero-redis-%s", sanitizeName(workspace))
}

func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			return r
		default:
			return '-'
		}
	}, s)
}
