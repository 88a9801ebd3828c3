package board

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var docIDAlphabet = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func TestCellDocID_Deterministic(t *testing.T) {
	key := CellKey{Item: "CABEZAL", Platform: "NJORD", Stage: StageSiguiente}
	assert.Equal(t, CellDocID(key), CellDocID(key))
}

func TestCellDocID_EmptyStageIsActual(t *testing.T) {
	withEmpty := CellDocID(CellKey{Item: "MPD", Platform: "PAE"})
	withActual := CellDocID(CellKey{Item: "MPD", Platform: "PAE", Stage: StageActual})
	assert.Equal(t, withActual, withEmpty)
}

func TestCellDocID_Format(t *testing.T) {
	id := CellDocID(CellKey{Item: "CABEZAL", Platform: "NJORD", Stage: StageActual})

	raw, err := base64.RawURLEncoding.DecodeString(id)
	require.NoError(t, err)
	assert.Equal(t, "cell|NJORD|CABEZAL|actual", string(raw))
	assert.NotContains(t, id, "=", "identifier must be unpadded")
}

func TestCellDocID_SafeAlphabet(t *testing.T) {
	keys := []CellKey{
		{Item: "LÍNEA DE 4\"", Platform: "UNÍDAD 1", Stage: StageActual},
		{Item: "a/b+c", Platform: "x?y", Stage: StageSiguiente},
		{Item: "ñ", Platform: "😀", Stage: StageActual},
		{Item: "with space", Platform: "tab\there", Stage: StageSiguiente},
	}
	for _, k := range keys {
		id := CellDocID(k)
		assert.Regexp(t, docIDAlphabet, id, "key %s", k)
	}
}

func TestCellDocID_Injective(t *testing.T) {
	// Components deliberately contain the separator and the escape character
	parts := []string{"", "A", "B", "|", "A|", "|B", "A|B", `\`, `A\`, `\|`, `A\|B`, "ñ", "A B"}

	seen := make(map[string]CellKey)
	count := 0
	for _, platform := range parts {
		for _, item := range parts {
			for _, stage := range Stages {
				key := CellKey{Item: item, Platform: platform, Stage: stage}
				id := CellDocID(key)
				if prev, dup := seen[id]; dup {
					t.Fatalf("collision: %q and %q both map to %s", prev, key, id)
				}
				seen[id] = key
				count++
			}
		}
	}

	// Bulk generated triples on top of the hand-picked edge cases
	for i := 0; i < 1000; i++ {
		key := CellKey{
			Item:     fmt.Sprintf("item|%d", i%37),
			Platform: fmt.Sprintf("%d|platform", i/37),
			Stage:    Stages[i%2],
		}
		id := CellDocID(key)
		if prev, dup := seen[id]; dup && prev != key {
			t.Fatalf("collision: %q and %q both map to %s", prev, key, id)
		}
		seen[id] = key
	}

	assert.GreaterOrEqual(t, len(seen), count)
}

func TestCellDocID_SeparatorInComponents(t *testing.T) {
	// Without escaping these two would both join to "cell|A|B|C|actual"
	a := CellDocID(CellKey{Platform: "A|B", Item: "C"})
	b := CellDocID(CellKey{Platform: "A", Item: "B|C"})
	assert.NotEqual(t, a, b)
}
