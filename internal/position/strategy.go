package position

// ConflictStrategy decides what happens to a position that cannot be mapped
// to exactly the same content in the target tree. Returning false drops the
// entity.
type ConflictStrategy interface {
	// OnRangeConflict is called when the position's range overlaps a
	// changed region.
	OnRangeConflict(old Position) (Position, bool)
	// OnFileConflict is called when the position's file has no counterpart
	// in the target tree.
	OnFileConflict(old Position) (Position, bool)
}

// OmitOnConflict drops every conflicting position, so that anything that
// survives still refers to identical content. Edits due to rebase rely on
// this.
type OmitOnConflict struct{}

func (OmitOnConflict) OnRangeConflict(Position) (Position, bool) {
	return Position{}, false
}

func (OmitOnConflict) OnFileConflict(Position) (Position, bool) {
	return Position{}, false
}

// BestPositionOnConflict never drops a position. A range conflict keeps the
// file and forgets the range; a file conflict forgets both.
type BestPositionOnConflict struct{}

func (BestPositionOnConflict) OnRangeConflict(old Position) (Position, bool) {
	return old.WithoutLineRange(), true
}

func (BestPositionOnConflict) OnFileConflict(Position) (Position, bool) {
	return Position{}, true
}
