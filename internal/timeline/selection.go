package timeline

// Selection helpers operate on an ordered id sequence with a nullable
// current selection (zero means none). They clamp at the boundaries and
// fall back to the first id when the current selection is no longer in the
// sequence, e.g. after the selected article was read and pruned.

func NextSelectionID(currentID int64, orderedIDs []int64) int64 {
	if len(orderedIDs) == 0 {
		return 0
	}
	idx := indexOfID(orderedIDs, currentID)
	if idx == -1 {
		return orderedIDs[0]
	}
	if idx+1 < len(orderedIDs) {
		return orderedIDs[idx+1]
	}
	return orderedIDs[idx]
}

func PreviousSelectionID(currentID int64, orderedIDs []int64) int64 {
	if len(orderedIDs) == 0 {
		return 0
	}
	idx := indexOfID(orderedIDs, currentID)
	if idx <= 0 {
		return orderedIDs[0]
	}
	return orderedIDs[idx-1]
}

// TopmostVisibleID returns the first id of the caller-supplied visible
// subsequence; computing visibility is the caller's concern.
func TopmostVisibleID(visibleIDs []int64) int64 {
	if len(visibleIDs) == 0 {
		return 0
	}
	return visibleIDs[0]
}

func indexOfID(ids []int64, id int64) int {
	if id == 0 {
		return -1
	}
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
