package ecs

// Set is an insertion-ordered membership collection of entities. Removal
// only touches entities that are present, so removing twice is harmless.
type Set struct {
	order []EntityID
	index map[EntityID]int
}

func NewSet() *Set {
	return &Set{index: make(map[EntityID]int, 64)}
}

// Add appends id unless it is already a member.
func (s *Set) Add(id EntityID) bool {
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = len(s.order)
	s.order = append(s.order, id)
	return true
}

// Remove satisfies Removable.
func (s *Set) Remove(id EntityID) {
	s.Discard(id)
}

// Discard deletes id if present and reports whether it was.
func (s *Set) Discard(id EntityID) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}
	copy(s.order[i:], s.order[i+1:])
	s.order = s.order[:len(s.order)-1]
	delete(s.index, id)
	for j := i; j < len(s.order); j++ {
		s.index[s.order[j]] = j
	}
	return true
}

func (s *Set) Has(id EntityID) bool {
	_, ok := s.index[id]
	return ok
}

func (s *Set) Len() int { return len(s.order) }

// Snapshot copies the members so callers can mutate the set while iterating.
func (s *Set) Snapshot() []EntityID {
	out := make([]EntityID, len(s.order))
	copy(out, s.order)
	return out
}
