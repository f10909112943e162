package podcast

import "sync"

// Collection is an ordered, keyed set of podcast records. Exactly one record
// exists per id at any time; the most recently inserted or replace-updated
// record appears at the head. All methods are safe for concurrent use.
type Collection struct {
	mu    sync.Mutex
	order []string
	byID  map[string]Record
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{
		order: nil,
		byID:  make(map[string]Record),
	}
}

// Upsert inserts or updates a record by id.
//
// With replace false it is an insert-if-absent: an existing record with the
// same id is left untouched, otherwise the record is placed at the head.
//
// With replace true an existing record is merge-overwritten field by field
// (unspecified fields of the incoming record are preserved) and moved to the
// head; a missing id is inserted as new.
func (c *Collection) Upsert(record Record, replace bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, found := c.byID[record.ID]
	if found && !replace {
		return
	}

	if found {
		record = merge(existing, record)

		c.removeFromOrder(record.ID)
	}

	c.byID[record.ID] = record
	c.order = append([]string{record.ID}, c.order...)
}

// Remove deletes a record by id. Removing an unknown id is a no-op.
func (c *Collection) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, found := c.byID[id]
	if !found {
		return
	}

	delete(c.byID, id)
	c.removeFromOrder(id)
}

// Get returns the record with the given id, if present.
func (c *Collection) Get(id string) (Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	record, found := c.byID[id]

	return record, found
}

// List returns the records in display order, newest-affecting first.
// The returned slice is a copy and safe to retain.
func (c *Collection) List() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()

	records := make([]Record, 0, len(c.order))
	for _, id := range c.order {
		records = append(records, c.byID[id])
	}

	return records
}

// Len returns the number of records in the collection.
func (c *Collection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.order)
}

// removeFromOrder drops an id from the display order. Callers hold the lock.
func (c *Collection) removeFromOrder(id string) {
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)

			return
		}
	}
}
