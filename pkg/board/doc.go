// Package board provides the typed documents and the Redis-backed shared store of a tablero
// status grid.
//
// # Overview
//
// A board is a grid of equipment items (rows) by drilling platforms (columns). Each platform is
// split into two stages, "actual" and "siguiente", and every (item, platform, stage) cell holds a
// status and an optional comment. Each platform also carries four free-text meta fields.
//
// Several viewers edit the same board. Their edits meet in the shared store, which offers three
// operations: a merge write, a change feed and a per-document last-write-wins timestamp.
//
// # Documents
//
// Cell documents are keyed by CellDocID, a URL-safe encoding of the (platform, item, stage)
// triple. Meta documents are keyed by platform name. Both are Redis hashes, so writing a subset
// of fields (HSET) never clears the others: two viewers editing different fields of the same
// document do not erase each other.
//
// # Workspaces
//
// All Redis keys and Pub/Sub channels are namespaced by workspace so independent boards can
// share one Redis server.
//
// # Redis Schema
//
// Cells:       tablero:{workspace}:cell:{doc_id}
// Metas:       tablero:{workspace}:meta:{platform}
// Cell index:  tablero:{workspace}:cells
// Meta index:  tablero:{workspace}:metas
//
// Pub/Sub channels:
//
// Cell events: tablero:{workspace}:cell_events
// Meta events: tablero:{workspace}:meta_events
//
// # Usage Example
//
//	client, err := board.NewClient(&redis.Options{Addr: "localhost:6379"}, "sigma-main")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	err = client.MergeCell(ctx, &board.CellDocument{
//		Platform: "NJORD",
//		Item:     "CABEZAL",
//		Stage:    board.StageActual,
//		Status:   board.StringPtr(string(board.StatusGreen)),
//	})
package board
