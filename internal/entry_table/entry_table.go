package entry_table

import (
	"fmt"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/exp/slices"
)

const (
	DefaultMaxFiles      = 100
	DefaultMaxNameLength = 255
)

// FileEntry is the metadata record for one tracked file. Size caches the
// backend's length as of the last successful write and is not authoritative.
type FileEntry struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	IsOpen     bool      `json:"isOpen"`
	CreatedAt  time.Time `json:"createdAt"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

func NewFileEntry(name string) FileEntry {
	now := time.Now()
	return FileEntry{
		Name:       name,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// EntryTable is an ordered, capacity-bounded list of entries keyed by name.
// Removal shifts later entries left so indices stay dense and relative order
// is kept. The table never flips IsOpen or Size on its own.
type EntryTable struct {
	entries  []FileEntry
	maxFiles int
}

func New(maxFiles int) *EntryTable {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &EntryTable{
		entries:  make([]FileEntry, 0, min(maxFiles, 16)),
		maxFiles: maxFiles,
	}
}

func (t *EntryTable) Len() int   { return len(t.entries) }
func (t *EntryTable) Cap() int   { return t.maxFiles }
func (t *EntryTable) Full() bool { return len(t.entries) >= t.maxFiles }

// Find returns the index of the first entry named name.
func (t *EntryTable) Find(name string) (int, bool) {
	i := slices.IndexFunc(t.entries, func(e FileEntry) bool { return e.Name == name })
	return i, i >= 0
}

// Insert appends entry and returns its index.
func (t *EntryTable) Insert(entry FileEntry) (int, error) {
	if _, ok := t.Find(entry.Name); ok {
		return -1, fmt.Errorf("%w: %s", ErrAlreadyTracked, entry.Name)
	}
	if t.Full() {
		return -1, ErrCapacityExceeded
	}
	t.entries = append(t.entries, entry)
	return len(t.entries) - 1, nil
}

// RemoveAt deletes the entry at index, compacting the table.
func (t *EntryTable) RemoveAt(index int) error {
	if index < 0 || index >= len(t.entries) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	if t.entries[index].IsOpen {
		return fmt.Errorf("%w: %s", ErrEntryOpen, t.entries[index].Name)
	}
	t.entries = slices.Delete(t.entries, index, index+1)
	return nil
}

// Get returns a pointer into the table. It is invalidated by the next Insert
// or RemoveAt.
func (t *EntryTable) Get(index int) (*FileEntry, error) {
	if index < 0 || index >= len(t.entries) {
		return nil, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	return &t.entries[index], nil
}

// Entries returns a copy of every entry in table order.
func (t *EntryTable) Entries() []FileEntry {
	return slices.Clone(t.entries)
}

// Match returns the entries whose names match the glob pattern, in table order.
func (t *EntryTable) Match(pattern string) ([]FileEntry, error) {
	if pattern == "" {
		return t.Entries(), nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}

	out := make([]FileEntry, 0, len(t.entries))
	for _, e := range t.entries {
		if g.Match(e.Name) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *EntryTable) OpenCount() int {
	n := 0
	for _, e := range t.entries {
		if e.IsOpen {
			n++
		}
	}
	return n
}

// ValidateName rejects names that cannot live in a flat namespace.
func ValidateName(name string, maxLen int) error {
	if maxLen <= 0 {
		maxLen = DefaultMaxNameLength
	}
	switch {
	case name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	case len(name) > maxLen:
		return fmt.Errorf("%w: name longer than %d bytes", ErrInvalidName, maxLen)
	case name == "." || name == "..":
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	}
	return nil
}
