package verify

import (
	"fmt"
	"slices"
)

// checkPrepended reports whether after is before with exactly one item added
// at the front. When it is not, observed describes what happened instead.
func checkPrepended(before, after []string) (ok bool, observed string) {
	if len(after) != len(before)+1 {
		return false, fmt.Sprintf("%d items after adding to %d", len(after), len(before))
	}
	if slices.Equal(after[1:], before) {
		return true, ""
	}
	if slices.Equal(after[:len(before)], before) {
		return false, fmt.Sprintf("new item appended at index %d instead of index 0 (items: %q)", len(before), after)
	}
	return false, fmt.Sprintf("items reordered: before %q, after %q", before, after)
}


// positionUnknown reports whether after reads the same whether the new item
// went to the front or the back, which happens when every title is equal.
func positionUnknown(before, after []string) bool {
	return len(before) > 0 && len(after) == len(before)+1 &&
		slices.Equal(after[1:], before) && slices.Equal(after[:len(before)], before)
}
