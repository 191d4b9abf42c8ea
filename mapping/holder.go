package mapping

import "sync/atomic"

// Holder provides atomic access to the active mapping table so a
// configuration reload can swap the whole table without locking readers.
// Observers are not notified synchronously; in-flight resolutions finish
// against the table they started with.
type Holder struct {
	table atomic.Pointer[Table]
}

// NewHolder creates a holder around the initial table
func NewHolder(table *Table) *Holder {
	h := &Holder{}
	h.table.Store(table)
	return h
}

// Current returns the active table
func (h *Holder) Current() *Table {
	return h.table.Load()
}

// Swap atomically replaces the active table
func (h *Holder) Swap(table *Table) {
	h.table.Store(table)
}
