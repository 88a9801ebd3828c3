package board

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced by workspace so several boards can share
// one Redis server without seeing each other's documents or events.
//
// Key pattern: tablero:{workspace}:{collection}:{doc_id}
// Channel pattern: tablero:{workspace}:{collection}_events

// CellKeyName returns the Redis key of a cell document.
// Pattern: tablero:{workspace}:cell:{doc_id}
func CellKeyName(workspace, docID string) string {
	return fmt.Sprintf("tablero:%s:cell:%s", workspace, docID)
}

// MetaKeyName returns the Redis key of a platform meta document.
// Meta documents are keyed directly by platform name.
// Pattern: tablero:{workspace}:meta:{platform}
func MetaKeyName(workspace, platform string) string {
	return fmt.Sprintf("tablero:%s:meta:%s", workspace, platform)
}

// CellIndexKey returns the Redis key of the set listing every cell document ID.
// Pattern: tablero:{workspace}:cells
func CellIndexKey(workspace string) string {
	return fmt.Sprintf("tablero:%s:cells", workspace)
}

// MetaIndexKey returns the Redis key of the set listing every platform with a meta document.
// Pattern: tablero:{workspace}:metas
func MetaIndexKey(workspace string) string {
	return fmt.Sprintf("tablero:%s:metas", workspace)
}

// CellEventsChannel returns the Pub/Sub channel carrying cell change events.
// Pattern: tablero:{workspace}:cell_events
func CellEventsChannel(workspace string) string {
	return fmt.Sprintf("tablero:%s:cell_events", workspace)
}

// MetaEventsChannel returns the Pub/Sub channel carrying meta change events.
// Pattern: tablero:{workspace}:meta_events
func MetaEventsChannel(workspace string) string {
	return fmt.Sprintf("tablero:%s:meta_events", workspace)
}
