package board

import (
	"fmt"
	"strconv"
)

// Serialization helpers for converting between documents and Redis hashes
//
// Redis stores documents as string-to-string hashes. Optional document fields are written only
// when present, which is what gives HSET its merge semantics: fields absent from a write are
// left untouched in the stored hash.

// CellToHash converts a cell document to the fields of a merge write.
// Identity fields are always written; status and comment only when present.
func CellToHash(d *CellDocument) map[string]interface{} {
	hash := map[string]interface{}{
		"platform":      d.Platform,
		"item":          d.Item,
		"stage":         string(d.Stage.Normalize()),
		"updated_at_ms": d.UpdatedAtMs,
	}

	if d.Status != nil {
		hash["status"] = *d.Status
	}
	if d.Comment != nil {
		hash["comment"] = *d.Comment
	}
	if d.Origin != "" {
		hash["origin"] = d.Origin
	}

	return hash
}

// HashToCell converts a stored Redis hash back to a cell document.
// Documents written before stages existed have no stage field and read as StageActual.
func HashToCell(hash map[string]string) (*CellDocument, error) {
	doc := &CellDocument{
		Platform: hash["platform"],
		Item:     hash["item"],
		Stage:    Stage(hash["stage"]).Normalize(),
		Origin:   hash["origin"],
	}

	if v, ok := hash["status"]; ok {
		doc.Status = StringPtr(v)
	}
	if v, ok := hash["comment"]; ok {
		doc.Comment = StringPtr(v)
	}

	if raw := hash["updated_at_ms"]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid updated_at_ms field: %w", err)
		}
		doc.UpdatedAtMs = ms
	}

	return doc, nil
}

// MetaToHash converts a meta document to the fields of a merge write.
func MetaToHash(d *MetaDocument) map[string]interface{} {
	hash := map[string]interface{}{
		"platform":      d.Platform,
		"updated_at_ms": d.UpdatedAtMs,
	}

	for _, f := range MetaFields {
		if v, ok := d.Field(f); ok {
			hash[f.HashField()] = v
		}
	}
	if d.Etapa != nil {
		hash["etapa"] = *d.Etapa
	}
	if d.Origin != "" {
		hash["origin"] = d.Origin
	}

	return hash
}

// HashToMeta converts a stored Redis hash back to a meta document.
func HashToMeta(hash map[string]string) (*MetaDocument, error) {
	doc := &MetaDocument{
		Platform: hash["platform"],
		Origin:   hash["origin"],
	}

	for _, f := range MetaFields {
		if v, ok := hash[f.HashField()]; ok {
			doc.SetField(f, v)
		}
	}
	if v, ok := hash["etapa"]; ok {
		doc.Etapa = StringPtr(v)
	}

	if raw := hash["updated_at_ms"]; raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid updated_at_ms field: %w", err)
		}
		doc.UpdatedAtMs = ms
	}

	return doc, nil
}
