package domain

import (
	"encoding/json"
	"fmt"
)

// TransportEntry moves a token that lands on From to To. To > From is a
// shortcut, To < From is a setback.
type TransportEntry struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// TransportTable is an immutable lookup of board shortcuts and setbacks.
// The zero value is an empty table.
type TransportTable struct {
	entries []TransportEntry
}

var (
	defaultTransportFrom = [...]int{1, 4, 8, 21, 28, 32, 36, 48, 50, 62, 71, 80, 88, 95, 97}
	defaultTransportTo   = [...]int{38, 14, 30, 42, 76, 10, 6, 26, 67, 18, 92, 99, 24, 56, 78}
)

// DefaultTransportTable returns a fresh copy of the standard 15 entry board.
func DefaultTransportTable() TransportTable {
	entries := make([]TransportEntry, len(defaultTransportFrom))
	for i := range defaultTransportFrom {
		entries[i] = TransportEntry{From: defaultTransportFrom[i], To: defaultTransportTo[i]}
	}
	return TransportTable{entries: entries}
}

// NewTransportTable validates entries against a board ending at winPosition.
// Every From must be distinct, both ends must lie in [1, winPosition) and an
// entry may not map a square to itself.
func NewTransportTable(entries []TransportEntry, winPosition int) (TransportTable, error) {
	if len(entries) > MaxTransportSize {
		return TransportTable{}, fmt.Errorf("%w: %d entries, max %d", ErrInvalidTransportTable, len(entries), MaxTransportSize)
	}
	seen := make(map[int]struct{}, len(entries))
	for _, e := range entries {
		if e.From < 1 || e.From >= winPosition || e.To < 1 || e.To >= winPosition {
			return TransportTable{}, fmt.Errorf("%w: entry %d->%d off board", ErrInvalidTransportTable, e.From, e.To)
		}
		if e.From == e.To {
			return TransportTable{}, fmt.Errorf("%w: entry %d maps to itself", ErrInvalidTransportTable, e.From)
		}
		if _, dup := seen[e.From]; dup {
			return TransportTable{}, fmt.Errorf("%w: duplicate from %d", ErrInvalidTransportTable, e.From)
		}
		seen[e.From] = struct{}{}
	}
	return TransportTable{entries: append([]TransportEntry(nil), entries...)}, nil
}

// Apply returns the destination for a token landing on pos. The first match
// wins.
func (t TransportTable) Apply(pos int) (int, bool) {
	for _, e := range t.entries {
		if e.From == pos {
			return e.To, true
		}
	}
	return pos, false
}

func (t TransportTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the table.
func (t TransportTable) Entries() []TransportEntry {
	return append([]TransportEntry(nil), t.entries...)
}

func (t TransportTable) MarshalJSON() ([]byte, error) {
	if t.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(t.entries)
}

func (t *TransportTable) UnmarshalJSON(b []byte) error {
	var entries []TransportEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return err
	}
	if len(entries) > MaxTransportSize {
		return fmt.Errorf("%w: %d entries, max %d", ErrInvalidTransportTable, len(entries), MaxTransportSize)
	}
	t.entries = entries
	return nil
}
