// Package set provides a map-backed set, used to track the values a
// compositor advertises, such as shm formats.
package set

// Set is a set of comparable values. The zero value is nil and can be
// queried but not added to.
type Set[T comparable] map[T]struct{}

// New returns a set containing vals.
func New[T comparable](vals ...T) Set[T] {
	s := make(Set[T], len(vals))
	for _, v := range vals {
		s.Add(v)
	}
	return s
}

// Add inserts v. Adding a value twice is a no-op, which lets Add be
// used directly as an event handler for repeated announcements.
func (s Set[T]) Add(v T) {
	s[v] = struct{}{}
}

func (s Set[T]) Has(v T) bool {
	_, ok := s[v]
	return ok
}
