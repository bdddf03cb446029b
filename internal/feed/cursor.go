package feed

import "github.com/expothearchive/archive-backend/internal/archive"

// Next returns the entry after selectedID in the list, wrapping from the
// last entry back to the first. Returns nil when the list is empty or the
// id is not in it (nothing to navigate to).
func Next(list []*archive.Entry, selectedID string) *archive.Entry {
	return step(list, selectedID, 1)
}

// Previous is the mirror of Next, wrapping from the first entry to the last.
func Previous(list []*archive.Entry, selectedID string) *archive.Entry {
	return step(list, selectedID, -1)
}

func step(list []*archive.Entry, selectedID string, delta int) *archive.Entry {
	n := len(list)
	if n == 0 {
		return nil
	}
	for i, e := range list {
		if e.ID == selectedID {
			return list[((i+delta)%n+n)%n]
		}
	}
	return nil
}
