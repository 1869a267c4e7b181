package pathintern

import (
	"path/filepath"
	"sync"
)

// Path is a shared, immutable path value. Handles produced by the same
// Table compare equal by pointer exactly when their cleaned strings are
// equal, so records can share one allocation per distinct path.
type Path struct {
	str string
}

func (p *Path) String() string {
	if p == nil {
		return ""
	}

	return p.str
}

func (p *Path) Base() string {
	return filepath.Base(p.str)
}

func (p *Path) Join(parts ...string) string {
	return filepath.Join(append([]string{p.str}, parts...)...)
}

// Table interns cleaned path strings for the lifetime of one scan or
// load. It only grows. Safe for concurrent use.
type Table struct {
	mu    sync.Mutex
	paths map[string]*Path
}

func NewTable() *Table {
	return &Table{
		paths: make(map[string]*Path),
	}
}

func (t *Table) Intern(path string) *Path {
	path = filepath.Clean(path)

	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.paths[path]; ok {
		return p
	}

	p := &Path{str: path}
	t.paths[path] = p

	return p
}

func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.paths)
}
