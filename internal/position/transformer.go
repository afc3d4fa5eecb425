package position

// Mapping states that Source in the old tree corresponds to Target in the
// new tree. A nil Source.LineRange maps the whole file. An empty
// Target.FilePath means the file does not exist in the new tree.
// OnConflict overrides the transformer's strategy for entities this mapping
// cannot place.
type Mapping struct {
	Source     Position
	Target     Position
	OnConflict ConflictStrategy
}

// Entity annotates a value with the Position it refers to.
type Entity[T any] struct {
	value    T
	position Position
	update   func(T, Position) T
}

// NewEntity wraps value, deriving its position with extract. update must
// return a new value placed at the given position without modifying the
// original.
func NewEntity[T any](value T, extract func(T) Position, update func(T, Position) T) Entity[T] {
	return Entity[T]{value: value, position: extract(value), update: update}
}

// Value returns the original wrapped value.
func (e Entity[T]) Value() T {
	return e.value
}

// Position returns the tracked position.
func (e Entity[T]) Position() Position {
	return e.position
}

// AtUpdatedPosition rebuilds the value at the tracked position.
func (e Entity[T]) AtUpdatedPosition() T {
	return e.update(e.value, e.position)
}

// WithPosition returns a copy tracking newPosition.
func (e Entity[T]) WithPosition(newPosition Position) Entity[T] {
	return Entity[T]{value: e.value, position: newPosition, update: e.update}
}

// Transformer moves entities from the source tree to the target tree.
type Transformer struct {
	strategy ConflictStrategy
}

// NewTransformer returns a Transformer using strategy for mappings that do
// not carry their own. A nil strategy omits conflicting entities.
func NewTransformer(strategy ConflictStrategy) *Transformer {
	if strategy == nil {
		strategy = OmitOnConflict{}
	}
	return &Transformer{strategy: strategy}
}

// Transform places every entity according to mappings. The output keeps the
// input order; entities dropped by the conflict strategy are absent.
func Transform[T any](t *Transformer, entities []Entity[T], mappings []Mapping) []Entity[T] {
	byFile := groupBySourceFile(mappings)
	result := make([]Entity[T], 0, len(entities))
	for _, entity := range entities {
		pos := entity.Position()
		fileMappings, ok := byFile[pos.FilePath]
		if !pos.HasFile() || !ok {
			result = append(result, entity)
			continue
		}
		if placed, keep := t.place(pos, fileMappings); keep {
			result = append(result, entity.WithPosition(placed))
		}
	}
	return result
}

func groupBySourceFile(mappings []Mapping) map[string][]Mapping {
	byFile := make(map[string][]Mapping)
	for _, m := range mappings {
		if !m.Source.HasFile() {
			continue
		}
		byFile[m.Source.FilePath] = append(byFile[m.Source.FilePath], m)
	}
	return byFile
}

func (t *Transformer) place(pos Position, fileMappings []Mapping) (Position, bool) {
	if pos.LineRange == nil {
		return t.placeWholeFile(pos, fileMappings)
	}

	entityRange := *pos.LineRange
	var fileLevel, best *Mapping
	for i := range fileMappings {
		m := &fileMappings[i]
		src := m.Source.LineRange
		if src == nil {
			if fileLevel == nil {
				fileLevel = m
			}
			continue
		}
		if src.Conflicts(entityRange) {
			return t.strategyFor(m).OnRangeConflict(pos)
		}
		if src.Contains(entityRange) && (best == nil || src.Start > best.Source.LineRange.Start) {
			best = m
		}
	}

	switch {
	case best != nil:
		return t.moveInto(pos, entityRange, best)
	case fileLevel != nil:
		if !fileLevel.Target.HasFile() {
			return t.strategyFor(fileLevel).OnFileConflict(pos)
		}
		return Position{FilePath: fileLevel.Target.FilePath, LineRange: fileLevel.Target.LineRange}, true
	default:
		// The file is mapped but no region holds the entity: it sits inside a
		// modified part of the file.
		return t.strategyFor(&fileMappings[0]).OnRangeConflict(pos)
	}
}

func (t *Transformer) placeWholeFile(pos Position, fileMappings []Mapping) (Position, bool) {
	m := &fileMappings[0]
	for i := range fileMappings {
		if fileMappings[i].Source.LineRange == nil {
			m = &fileMappings[i]
			break
		}
	}
	if !m.Target.HasFile() {
		return t.strategyFor(m).OnFileConflict(pos)
	}
	return Position{FilePath: m.Target.FilePath}, true
}

func (t *Transformer) moveInto(pos Position, entityRange Range, m *Mapping) (Position, bool) {
	if !m.Target.HasFile() {
		return t.strategyFor(m).OnFileConflict(pos)
	}
	if m.Target.LineRange == nil {
		// Callers decide how to rebuild an entity that lost its range.
		return Position{FilePath: m.Target.FilePath}, true
	}
	offset := entityRange.Start - m.Source.LineRange.Start
	start := m.Target.LineRange.Start + offset
	moved := Range{Start: start, End: start + entityRange.Len()}
	return Position{FilePath: m.Target.FilePath, LineRange: &moved}, true
}

func (t *Transformer) strategyFor(m *Mapping) ConflictStrategy {
	if m.OnConflict != nil {
		return m.OnConflict
	}
	return t.strategy
}
