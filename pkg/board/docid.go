package board

import (
	"encoding/base64"
	"strings"
)

// cellIDEscaper makes the pipe join injective: a literal '|' inside a component can never be
// mistaken for a separator.
var cellIDEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// CellDocID derives the storage identifier of a cell document.
//
// The identifier is the unpadded URL-safe base64 encoding of
// "cell|{platform}|{item}|{stage}", with '\' and '|' escaped inside platform and item.
// It only contains [A-Za-z0-9_-], is stable across processes and distinct keys never collide,
// so repeated writes to one cell always upsert the same document.
func CellDocID(key CellKey) string {
	key = key.Normalize()

	var b strings.Builder
	b.WriteString("cell|")
	b.WriteString(cellIDEscaper.Replace(key.Platform))
	b.WriteByte('|')
	b.WriteString(cellIDEscaper.Replace(key.Item))
	b.WriteByte('|')
	b.WriteString(cellIDEscaper.Replace(string(key.Stage)))

	return base64.RawURLEncoding.EncodeToString([]byte(b.String()))
}
