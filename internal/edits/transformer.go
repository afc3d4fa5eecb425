package edits

import (
	"math"

	"filediff/internal/logging"
	"filediff/internal/position"
)

// endOfFile bounds the last unchanged region of a mapped file.
const endOfFile = math.MaxInt32

// Side selects which coordinates of an edit a transform rewrites.
type Side int

const (
	SideA Side = iota
	SideB
)

func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Transformer moves the edits of one diff into the coordinates of other
// trees. Edits which touch lines modified by a mapping diff are dropped.
type Transformer struct {
	edits     []ContextAwareEdit
	logger    *logging.Logger
	positions *position.Transformer
}

// NewTransformer seeds a Transformer with fileEdits. A FileEdits without
// edits contributes a placeholder so renames can still be followed.
func NewTransformer(fileEdits []FileEdits, logger *logging.Logger) *Transformer {
	if logger == nil {
		logger = logging.Discard()
	}
	t := &Transformer{
		logger:    logger,
		positions: position.NewTransformer(position.OmitOnConflict{}),
	}
	for _, fe := range fileEdits {
		if len(fe.Edits) == 0 {
			t.edits = append(t.edits, NewPlaceholder(fe.OldPath, fe.NewPath))
			continue
		}
		for _, e := range fe.Edits {
			t.edits = append(t.edits, NewContextAwareEdit(fe.OldPath, fe.NewPath, e, false))
		}
	}
	return t
}

// TransformSideA rewrites the old side of every edit. The mapping diffs must
// have the tree of the current old side as their own old side.
func (t *Transformer) TransformSideA(mappingDiffs []FileEdits) {
	t.transform(SideA, mappingDiffs)
}

// TransformSideB rewrites the new side of every edit. The mapping diffs must
// have the tree of the current new side as their own old side.
func (t *Transformer) TransformSideB(mappingDiffs []FileEdits) {
	t.transform(SideB, mappingDiffs)
}

func (t *Transformer) transform(side Side, mappingDiffs []FileEdits) {
	var mappings []position.Mapping
	for _, fe := range mappingDiffs {
		mappings = append(mappings, MappingsFor(fe)...)
	}

	entities := make([]position.Entity[ContextAwareEdit], 0, len(t.edits))
	for _, e := range t.edits {
		entities = append(entities, position.NewEntity(e,
			func(e ContextAwareEdit) position.Position { return extract(side, e) },
			func(e ContextAwareEdit, p position.Position) ContextAwareEdit { return t.rebuild(side, e, p) }))
	}

	transformed := position.Transform(t.positions, entities, mappings)
	t.edits = make([]ContextAwareEdit, 0, len(transformed))
	for _, entity := range transformed {
		t.edits = append(t.edits, entity.AtUpdatedPosition())
	}
}

func extract(side Side, e ContextAwareEdit) position.Position {
	var pos position.Position
	switch side {
	case SideA:
		pos.FilePath = e.OldPath
		if pos.FilePath == "" {
			pos.FilePath = e.NewPath
		}
		if !e.IsPlaceholder() {
			pos.LineRange = position.NewRange(e.BeginA, e.EndA)
		}
	case SideB:
		pos.FilePath = e.FilePath()
		if !e.IsPlaceholder() {
			pos.LineRange = position.NewRange(e.BeginB, e.EndB)
		}
	}
	return pos
}

func (t *Transformer) rebuild(side Side, e ContextAwareEdit, p position.Position) ContextAwareEdit {
	path := p.FilePath
	if path == "" {
		t.logger.Warn("edit transform lost the file path, likely a regression", map[string]any{
			"side":     side.String(),
			"old_path": e.OldPath,
			"new_path": e.NewPath,
		})
		path = FileLevelPath
	}

	begin, end := noLine, noLine
	if p.LineRange != nil {
		begin, end = p.LineRange.Start, p.LineRange.End
	} else if !e.IsPlaceholder() {
		t.logger.Warn("edit transform lost the line range, likely a regression", map[string]any{
			"side": side.String(),
			"path": path,
		})
	}

	switch side {
	case SideA:
		return NewContextAwareEdit(path, e.NewPath,
			Edit{BeginA: begin, EndA: end, BeginB: e.BeginB, EndB: e.EndB}, path != e.OldPath)
	default:
		return NewContextAwareEdit(e.OldPath, path,
			Edit{BeginA: e.BeginA, EndA: e.EndA, BeginB: begin, EndB: end}, path != e.NewPath)
	}
}

// Edits returns the current edits in order.
func (t *Transformer) Edits() []ContextAwareEdit {
	out := make([]ContextAwareEdit, len(t.edits))
	copy(out, t.edits)
	return out
}

// EditsByFilePath groups the current edits by ContextAwareEdit.FilePath.
func (t *Transformer) EditsByFilePath() map[string][]ContextAwareEdit {
	byPath := make(map[string][]ContextAwareEdit)
	for _, e := range t.edits {
		byPath[e.FilePath()] = append(byPath[e.FilePath()], e)
	}
	return byPath
}

// MappingsFor turns a diff into position mappings from its old tree to its
// new tree. Each unchanged region between two edits maps onto its shifted
// counterpart, including empty regions between adjacent edits; the last
// region runs to the end of the file. Added files yield no mappings and
// deleted files a single mapping without a target file. Edits must be
// sorted.
func MappingsFor(fe FileEdits) []position.Mapping {
	if fe.OldPath == "" {
		return nil
	}
	if fe.NewPath == "" {
		return []position.Mapping{{Source: position.Position{FilePath: fe.OldPath}}}
	}

	mappings := make([]position.Mapping, 0, len(fe.Edits)+1)
	prevA, prevB := 0, 0
	for _, e := range fe.Edits {
		mappings = append(mappings, unchangedRegion(fe, prevA, e.BeginA, prevB, e.BeginB))
		prevA, prevB = e.EndA, e.EndB
	}
	return append(mappings, unchangedRegion(fe, prevA, endOfFile, prevB, prevB+(endOfFile-prevA)))
}

func unchangedRegion(fe FileEdits, beginA, endA, beginB, endB int) position.Mapping {
	return position.Mapping{
		Source: position.Position{FilePath: fe.OldPath, LineRange: position.NewRange(beginA, endA)},
		Target: position.Position{FilePath: fe.NewPath, LineRange: position.NewRange(beginB, endB)},
	}
}
