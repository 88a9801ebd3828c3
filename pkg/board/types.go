package board

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Status is the colour state of a single cell.
// Unknown values are carried as opaque strings; renderers map them to StatusNone.
type Status string

const (
	// StatusNone is the default for every cell that has never been written
	StatusNone Status = "none"

	// StatusGreen marks equipment that is ready
	StatusGreen Status = "green"

	// StatusRed marks equipment that is blocked or missing
	StatusRed Status = "red"

	// StatusYellow marks equipment that is in progress
	StatusYellow Status = "yellow"

	// StatusBlue marks equipment that is informational / on hold
	StatusBlue Status = "blue"
)

// KnownStatuses lists every enum member in display order.
var KnownStatuses = []Status{StatusNone, StatusGreen, StatusRed, StatusYellow, StatusBlue}

// Known reports whether s is one of the enum members.
func (s Status) Known() bool {
	switch s {
	case StatusNone, StatusGreen, StatusRed, StatusYellow, StatusBlue:
		return true
	default:
		return false
	}
}

// OrNone maps the empty status to StatusNone and leaves everything else untouched.
func (s Status) OrNone() Status {
	if s == "" {
		return StatusNone
	}
	return s
}

// Stage identifies the sub-column of a platform a cell belongs to.
type Stage string

const (
	// StageActual is the current well of the platform. An absent stage means StageActual.
	StageActual Stage = "actual"

	// StageSiguiente is the next well of the platform
	StageSiguiente Stage = "siguiente"
)

// Stages lists both stages in display order.
var Stages = []Stage{StageActual, StageSiguiente}

// Normalize maps the empty stage to StageActual.
func (s Stage) Normalize() Stage {
	if s == "" {
		return StageActual
	}
	return s
}

// Validate checks that the stage (after normalization) is a known enum value.
func (s Stage) Validate() error {
	switch s.Normalize() {
	case StageActual, StageSiguiente:
		return nil
	default:
		return fmt.Errorf("unknown stage: %q", string(s))
	}
}

// CellKey is the identity of a cell. No other field participates in identity.
type CellKey struct {
	Item     string `json:"item"`
	Platform string `json:"platform"`
	Stage    Stage  `json:"stage"`
}

// Normalize returns the key with its stage normalized.
func (k CellKey) Normalize() CellKey {
	k.Stage = k.Stage.Normalize()
	return k
}

// String renders the key for logs.
func (k CellKey) String() string {
	return fmt.Sprintf("%s@%s/%s", k.Item, k.Platform, k.Stage.Normalize())
}

// StagedStatus holds the status of both stages of one (item, platform) pair.
type StagedStatus struct {
	Actual    Status `json:"actual"`
	Siguiente Status `json:"siguiente"`
}

// Get returns the status of a stage, defaulting to StatusNone.
func (s StagedStatus) Get(stage Stage) Status {
	if stage.Normalize() == StageSiguiente {
		return s.Siguiente.OrNone()
	}
	return s.Actual.OrNone()
}

// With returns a copy with the given stage replaced.
func (s StagedStatus) With(stage Stage, value Status) StagedStatus {
	if stage.Normalize() == StageSiguiente {
		s.Siguiente = value
	} else {
		s.Actual = value
	}
	return s
}

// StagedComment holds the comments of both stages. A nil pointer means the comment was never
// saved; a pointer to "" means an empty comment was saved explicitly.
type StagedComment struct {
	Actual    *string `json:"actual,omitempty"`
	Siguiente *string `json:"siguiente,omitempty"`
}

// Get returns the comment of a stage and whether it was ever saved.
func (c StagedComment) Get(stage Stage) (string, bool) {
	p := c.Actual
	if stage.Normalize() == StageSiguiente {
		p = c.Siguiente
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

// With returns a copy with the given stage replaced.
func (c StagedComment) With(stage Stage, text string) StagedComment {
	if stage.Normalize() == StageSiguiente {
		c.Siguiente = &text
	} else {
		c.Actual = &text
	}
	return c
}

// StatusMatrix is status[item][platform].
type StatusMatrix map[string]map[string]StagedStatus

// CommentMatrix is comments[item][platform].
type CommentMatrix map[string]map[string]StagedComment

// MetaMatrix is meta[platform].
type MetaMatrix map[string]PlatformMeta

// MetaField names one of the free-text fields of a platform.
type MetaField string

const (
	// MetaActual is the current well of the platform ("POZO ACTUAL")
	MetaActual MetaField = "actual"

	// MetaFuturo is the next well of the platform ("POZO FUTURO")
	MetaFuturo MetaField = "futuro"

	// MetaEtapaActual is the hole section of the current well
	MetaEtapaActual MetaField = "etapaActual"

	// MetaEtapaSiguiente is the hole section of the next well
	MetaEtapaSiguiente MetaField = "etapaSiguiente"
)

// MetaFields lists every editable meta field in display order.
var MetaFields = []MetaField{MetaActual, MetaFuturo, MetaEtapaActual, MetaEtapaSiguiente}

// Validate checks that f is one of the editable meta fields.
func (f MetaField) Validate() error {
	switch f {
	case MetaActual, MetaFuturo, MetaEtapaActual, MetaEtapaSiguiente:
		return nil
	default:
		return fmt.Errorf("unknown meta field: %q", string(f))
	}
}

// ParseMetaField accepts the field name in either its camelCase or stored snake_case form.
func ParseMetaField(s string) (MetaField, error) {
	for _, f := range MetaFields {
		if strings.EqualFold(s, string(f)) || strings.EqualFold(s, f.HashField()) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown meta field: %q", s)
}

// HashField returns the name the field is stored under in the shared store.
func (f MetaField) HashField() string {
	switch f {
	case MetaEtapaActual:
		return "etapa_actual"
	case MetaEtapaSiguiente:
		return "etapa_siguiente"
	default:
		return string(f)
	}
}

// PlatformMeta holds the free-text descriptors of a platform.
type PlatformMeta struct {
	Actual         string `json:"actual"`
	Futuro         string `json:"futuro"`
	EtapaActual    string `json:"etapaActual"`
	EtapaSiguiente string `json:"etapaSiguiente"`
}

// Get returns the value of a field. Unknown fields read as "".
func (m PlatformMeta) Get(f MetaField) string {
	switch f {
	case MetaActual:
		return m.Actual
	case MetaFuturo:
		return m.Futuro
	case MetaEtapaActual:
		return m.EtapaActual
	case MetaEtapaSiguiente:
		return m.EtapaSiguiente
	default:
		return ""
	}
}

// With returns a copy with one field replaced. Unknown fields are ignored.
func (m PlatformMeta) With(f MetaField, value string) PlatformMeta {
	switch f {
	case MetaActual:
		m.Actual = value
	case MetaFuturo:
		m.Futuro = value
	case MetaEtapaActual:
		m.EtapaActual = value
	case MetaEtapaSiguiente:
		m.EtapaSiguiente = value
	}
	return m
}

// CellDocument is both the merge-write payload for a cell and the change event delivered for it.
// Nil pointer fields are absent: a merge write leaves them untouched and a change event does not
// carry them.
type CellDocument struct {
	Platform    string  `json:"platform"`
	Item        string  `json:"item"`
	Stage       Stage   `json:"stage,omitempty"`
	Status      *string `json:"status,omitempty"`
	Comment     *string `json:"comment,omitempty"`
	UpdatedAtMs int64   `json:"updated_at_ms,omitempty"` // Server clock, set by the store on write
	Origin      string  `json:"origin,omitempty"`        // Session UUID of the writer
}

// Key returns the identity of the cell the document belongs to.
func (d *CellDocument) Key() CellKey {
	return CellKey{Item: d.Item, Platform: d.Platform, Stage: d.Stage.Normalize()}
}

// Validate checks that the document carries its identifying fields.
func (d *CellDocument) Validate() error {
	if d.Platform == "" {
		return fmt.Errorf("cell document: platform cannot be empty")
	}
	if d.Item == "" {
		return fmt.Errorf("cell document: item cannot be empty")
	}
	if err := d.Stage.Validate(); err != nil {
		return fmt.Errorf("cell document: %w", err)
	}
	if d.Origin != "" && !isValidUUID(d.Origin) {
		return fmt.Errorf("cell document: origin is not a valid UUID")
	}
	return nil
}

// MetaDocument is both the merge-write payload for a platform's meta fields and the change event
// delivered for it. Etapa is the legacy single-stage field still found in older documents.
type MetaDocument struct {
	Platform       string  `json:"platform"`
	Actual         *string `json:"actual,omitempty"`
	Futuro         *string `json:"futuro,omitempty"`
	Etapa          *string `json:"etapa,omitempty"`
	EtapaActual    *string `json:"etapa_actual,omitempty"`
	EtapaSiguiente *string `json:"etapa_siguiente,omitempty"`
	UpdatedAtMs    int64   `json:"updated_at_ms,omitempty"`
	Origin         string  `json:"origin,omitempty"`
}

// Field returns the value of an editable field and whether the document carries it.
func (d *MetaDocument) Field(f MetaField) (string, bool) {
	var p *string
	switch f {
	case MetaActual:
		p = d.Actual
	case MetaFuturo:
		p = d.Futuro
	case MetaEtapaActual:
		p = d.EtapaActual
	case MetaEtapaSiguiente:
		p = d.EtapaSiguiente
	}
	if p == nil {
		return "", false
	}
	return *p, true
}

// SetField sets one editable field on the document.
func (d *MetaDocument) SetField(f MetaField, value string) {
	switch f {
	case MetaActual:
		d.Actual = &value
	case MetaFuturo:
		d.Futuro = &value
	case MetaEtapaActual:
		d.EtapaActual = &value
	case MetaEtapaSiguiente:
		d.EtapaSiguiente = &value
	}
}

// Validate checks that the document carries its identifying field.
func (d *MetaDocument) Validate() error {
	if d.Platform == "" {
		return fmt.Errorf("meta document: platform cannot be empty")
	}
	if d.Origin != "" && !isValidUUID(d.Origin) {
		return fmt.Errorf("meta document: origin is not a valid UUID")
	}
	return nil
}

// StringPtr is a small helper for building documents with optional fields.
func StringPtr(s string) *string {
	return &s
}

// isValidUUID checks if a string is a valid UUID format.
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
