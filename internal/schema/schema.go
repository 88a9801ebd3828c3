// Package schema decodes persisted board records into their canonical in-memory shape.
//
// Older versions stored one status string per (item, platform) and a single "etapa" meta field.
// Both shapes are still found in caches on disk and are upgraded on read. Decoding never fails:
// anything that cannot be interpreted is dropped and the defaults apply.
package schema

import (
	"bytes"
	"encoding/json"

	"github.com/dyluth/tablero/pkg/board"
)

// Report summarises what a decode had to fix. It is meant for logging only.
type Report struct {
	// Corrupt is set when the record as a whole could not be parsed and was discarded.
	Corrupt bool

	// Upgraded counts entries found in a legacy shape and converted.
	Upgraded int

	// Dropped counts entries (rows, cells or platforms) that were discarded.
	Dropped int
}

// Clean reports whether the record decoded without any fix-ups.
func (r Report) Clean() bool {
	return !r.Corrupt && r.Upgraded == 0 && r.Dropped == 0
}

// shape is the tag of a persisted cell value.
type shape int

const (
	shapeAbsent shape = iota // null or empty
	shapeLegacy              // bare JSON string, pre-stage format
	shapeStaged              // object with per-stage sub-fields
	shapeInvalid             // any other JSON kind
)

func classify(raw json.RawMessage) shape {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return shapeAbsent
	}
	switch trimmed[0] {
	case '"':
		return shapeLegacy
	case '{':
		return shapeStaged
	default:
		return shapeInvalid
	}
}

// asString returns the string held by raw, if raw is a JSON string.
func asString(raw json.RawMessage) (string, bool) {
	if classify(raw) != shapeLegacy {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// rows splits a record into its top-level entries.
func rows(raw []byte, report *Report) map[string]json.RawMessage {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		report.Corrupt = true
		return nil
	}
	return out
}

// object decodes raw as a JSON object, or returns nil.
func object(raw json.RawMessage) map[string]json.RawMessage {
	if classify(raw) != shapeStaged {
		return nil
	}
	var out map[string]json.RawMessage
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

// DecodeStatus decodes a status record.
//
// A cell holding a bare string is the pre-stage format and becomes {actual: value, siguiente: none}.
// In an object, each stage that is not a string reads as none.
func DecodeStatus(raw []byte) (board.StatusMatrix, Report) {
	var report Report
	out := board.StatusMatrix{}

	for item, rowRaw := range rows(raw, &report) {
		row := object(rowRaw)
		if row == nil {
			report.Dropped++
			continue
		}

		cells := make(map[string]board.StagedStatus, len(row))
		for platform, cellRaw := range row {
			switch classify(cellRaw) {
			case shapeLegacy:
				v, ok := asString(cellRaw)
				if !ok {
					report.Dropped++
					continue
				}
				cells[platform] = board.StagedStatus{Actual: board.Status(v).OrNone(), Siguiente: board.StatusNone}
				report.Upgraded++
			case shapeStaged:
				fields := object(cellRaw)
				if fields == nil {
					report.Dropped++
					continue
				}
				cells[platform] = board.StagedStatus{
					Actual:    stageStatus(fields, board.StageActual),
					Siguiente: stageStatus(fields, board.StageSiguiente),
				}
			case shapeAbsent:
			default:
				report.Dropped++
			}
		}

		if len(cells) > 0 {
			out[item] = cells
		}
	}

	return out, report
}

func stageStatus(fields map[string]json.RawMessage, stage board.Stage) board.Status {
	v, ok := asString(fields[string(stage)])
	if !ok {
		return board.StatusNone
	}
	return board.Status(v).OrNone()
}

// DecodeComments decodes a comment record.
//
// A bare string is the pre-stage format and becomes the actual-stage comment. In an object only
// string sub-fields are kept; anything else stays unset.
func DecodeComments(raw []byte) (board.CommentMatrix, Report) {
	var report Report
	out := board.CommentMatrix{}

	for item, rowRaw := range rows(raw, &report) {
		row := object(rowRaw)
		if row == nil {
			report.Dropped++
			continue
		}

		cells := make(map[string]board.StagedComment, len(row))
		for platform, cellRaw := range row {
			switch classify(cellRaw) {
			case shapeLegacy:
				v, ok := asString(cellRaw)
				if !ok {
					report.Dropped++
					continue
				}
				cells[platform] = board.StagedComment{}.With(board.StageActual, v)
				report.Upgraded++
			case shapeStaged:
				fields := object(cellRaw)
				if fields == nil {
					report.Dropped++
					continue
				}
				var c board.StagedComment
				for _, stage := range board.Stages {
					if v, ok := asString(fields[string(stage)]); ok {
						c = c.With(stage, v)
					}
				}
				cells[platform] = c
			case shapeAbsent:
			default:
				report.Dropped++
			}
		}

		if len(cells) > 0 {
			out[item] = cells
		}
	}

	return out, report
}

// legacyEtapa is the single-stage field of the original meta format.
const legacyEtapa = "etapa"

// DecodeMeta decodes a platform meta record.
//
// Missing or non-string fields read as "". A legacy "etapa" seeds etapaActual when the latter is empty.
func DecodeMeta(raw []byte) (board.MetaMatrix, Report) {
	var report Report
	out := board.MetaMatrix{}

	for platform, metaRaw := range rows(raw, &report) {
		fields := object(metaRaw)
		if fields == nil {
			if classify(metaRaw) != shapeAbsent {
				report.Dropped++
			}
			continue
		}

		var m board.PlatformMeta
		for _, f := range board.MetaFields {
			if v, ok := asString(fields[string(f)]); ok {
				m = m.With(f, v)
			}
		}

		if etapa, ok := asString(fields[legacyEtapa]); ok && etapa != "" && m.EtapaActual == "" {
			m.EtapaActual = etapa
			report.Upgraded++
		}

		out[platform] = m
	}

	return out, report
}
