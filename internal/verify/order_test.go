package verify

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func titleGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9 ]{0,12}`)
}

// =============================================================================
// Property: prepending one item always passes
// =============================================================================

func testCheckPrepended_PrependPasses(t *rapid.T) {
	before := rapid.SliceOf(titleGenerator()).Draw(t, "before")
	added := titleGenerator().Draw(t, "added")

	after := append([]string{added}, before...)
	ok, observed := checkPrepended(before, after)
	if !ok {
		t.Fatalf("prepended list rejected: %s", observed)
	}
}

func TestCheckPrepended_PrependPasses(t *testing.T) {
	rapid.Check(t, testCheckPrepended_PrependPasses)
}

func FuzzCheckPrepended_PrependPasses(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testCheckPrepended_PrependPasses))
}

// =============================================================================
// Property: appending is rejected and named, unless it is indistinguishable
// from prepending
// =============================================================================

func testCheckPrepended_AppendRejected(t *rapid.T) {
	before := rapid.SliceOfN(titleGenerator(), 1, 8).Draw(t, "before")
	added := titleGenerator().Draw(t, "added")

	after := append(slices.Clone(before), added)
	ok, observed := checkPrepended(before, after)

	looksPrepended := slices.Equal(after[1:], before)
	if ok != looksPrepended {
		t.Fatalf("checkPrepended(%q, %q) = %v, want %v", before, after, ok, looksPrepended)
	}
	if !ok && !strings.Contains(observed, "appended") {
		t.Fatalf("observed %q does not mention the append", observed)
	}
}

func TestCheckPrepended_AppendRejected(t *testing.T) {
	rapid.Check(t, testCheckPrepended_AppendRejected)
}

// =============================================================================
// Property: an append that passes the value check is always flagged as
// undecidable from values alone
// =============================================================================

func testPositionUnknown_CoversPassingAppends(t *rapid.T) {
	before := rapid.SliceOfN(titleGenerator(), 1, 8).Draw(t, "before")
	added := titleGenerator().Draw(t, "added")

	after := append(slices.Clone(before), added)
	if ok, _ := checkPrepended(before, after); ok && !positionUnknown(before, after) {
		t.Fatalf("append %q -> %q passed and was not flagged", before, after)
	}
}

func TestPositionUnknown_CoversPassingAppends(t *testing.T) {
	rapid.Check(t, testPositionUnknown_CoversPassingAppends)
}

func TestPositionUnknown(t *testing.T) {
	t.Parallel()

	assert.True(t, positionUnknown([]string{"New Episode"}, []string{"New Episode", "New Episode"}))
	assert.True(t, positionUnknown([]string{"", ""}, []string{"", "", ""}))
	assert.False(t, positionUnknown(nil, []string{"New Episode"}))
	assert.False(t, positionUnknown([]string{"Pilot"}, []string{"New Episode", "Pilot"}))
	assert.False(t, positionUnknown([]string{"Pilot"}, []string{"Pilot"}))
}

// =============================================================================
// Property: anything but exactly one more item is rejected
// =============================================================================

func testCheckPrepended_WrongLengthRejected(t *rapid.T) {
	before := rapid.SliceOf(titleGenerator()).Draw(t, "before")
	after := rapid.SliceOf(titleGenerator()).
		Filter(func(s []string) bool { return len(s) != len(before)+1 }).
		Draw(t, "after")

	if ok, _ := checkPrepended(before, after); ok {
		t.Fatalf("checkPrepended(%q, %q) accepted a list of the wrong length", before, after)
	}
}

func TestCheckPrepended_WrongLengthRejected(t *testing.T) {
	rapid.Check(t, testCheckPrepended_WrongLengthRejected)
}

func TestCheckPrepended(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		before   []string
		after    []string
		ok       bool
		observed string
	}{
		{"first item", nil, []string{"New Episode"}, true, ""},
		{"prepended", []string{"Pilot"}, []string{"New Episode", "Pilot"}, true, ""},
		{"appended", []string{"Pilot"}, []string{"Pilot", "New Episode"}, false, "appended at index 1"},
		{"nothing added", []string{"Pilot"}, []string{"Pilot"}, false, "1 items after adding to 1"},
		{"reordered", []string{"Pilot", "Finale"}, []string{"New Episode", "Finale", "Pilot"}, false, "reordered"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ok, observed := checkPrepended(tc.before, tc.after)
			assert.Equal(t, tc.ok, ok)
			if tc.observed == "" {
				assert.Empty(t, observed)
			} else {
				assert.Contains(t, observed, tc.observed)
			}
		})
	}
}
