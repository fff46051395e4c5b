package engine

// DuplicateGuard remembers the content IDs of the paths an enumeration has
// emitted.
//
// Every full assignment of the discrete choice points must be emitted
// exactly once. A repeat means the worklist or the model's replay is
// broken, and is reported as a DUPLICATE_PATH runtime error rather than
// silently double-counting probability mass.
type DuplicateGuard struct {
	seen map[string]int64 // path id -> seq of first emission
}

// NewDuplicateGuard creates an empty guard.
func NewDuplicateGuard() *DuplicateGuard {
	return &DuplicateGuard{seen: make(map[string]int64)}
}

// Seen reports whether id was recorded, and the seq it was recorded with.
func (g *DuplicateGuard) Seen(id string) (int64, bool) {
	seq, ok := g.seen[id]
	return seq, ok
}

// Record marks id as emitted at seq.
func (g *DuplicateGuard) Record(id string, seq int64) {
	g.seen[id] = seq
}

// Size returns the number of recorded paths.
func (g *DuplicateGuard) Size() int {
	return len(g.seen)
}
