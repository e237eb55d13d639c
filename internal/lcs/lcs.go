// Package lcs computes longest-common-subsequence edit scripts over
// abstract sequences. Elements are never materialized here; the caller
// supplies an equality oracle and receives the script through a Hook,
// which keeps the package usable both for identity-keyed document
// elements and for plain positional ones.
package lcs

// Hook receives the edit script of a diff. Calls arrive in old
// sequence order; runs of consecutive same-type edits are coalesced
// into a single call. Within a replaced region, deletions are
// reported before insertions.
type Hook interface {
	// Equal reports length matching elements starting at oldIdx and
	// newIdx.
	Equal(oldIdx, newIdx, length int) error

	// Delete reports length old elements starting at oldIdx with no
	// match in the new sequence.
	Delete(oldIdx, length int) error

	// Insert reports length new elements starting at newIdx to be
	// added.
	Insert(newIdx, length int) error
}

// Diff computes an edit script turning the old sequence (length
// oldLen) into the new one (length newLen) and feeds it to h. eq
// reports whether old element oi matches new element ni. The first
// error from a hook method aborts the walk.
func Diff(h Hook, eq func(oi, ni int) bool, oldLen, newLen int) error {
	// l[i][j] is the LCS length of old[i:] and new[j:].
	l := make([][]int, oldLen+1)
	for i := range l {
		l[i] = make([]int, newLen+1)
	}
	for i := oldLen - 1; i >= 0; i-- {
		for j := newLen - 1; j >= 0; j-- {
			if eq(i, j) {
				l[i][j] = l[i+1][j+1] + 1
			} else {
				l[i][j] = max(l[i+1][j], l[i][j+1])
			}
		}
	}

	i, j := 0, 0
	for i < oldLen || j < newLen {
		switch {
		case i < oldLen && j < newLen && eq(i, j):
			si, sj := i, j
			for i < oldLen && j < newLen && eq(i, j) {
				i++
				j++
			}
			if err := h.Equal(si, sj, i-si); err != nil {
				return err
			}
		case i < oldLen && (j >= newLen || l[i+1][j] >= l[i][j+1]):
			si := i
			for i < oldLen && (j >= newLen || (!eq(i, j) && l[i+1][j] >= l[i][j+1])) {
				i++
			}
			if err := h.Delete(si, i-si); err != nil {
				return err
			}
		default:
			sj := j
			for j < newLen && (i >= oldLen || (!eq(i, j) && l[i+1][j] < l[i][j+1])) {
				j++
			}
			if err := h.Insert(sj, j-sj); err != nil {
				return err
			}
		}
	}
	return nil
}
