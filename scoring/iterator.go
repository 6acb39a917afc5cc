package scoring

import (
	"context"

	"leadsite/api/models"
	"leadsite/api/store"
)

// DefaultChunkSize is the page size used when reading the event log.
const DefaultChunkSize = 500

// EventIterator walks an event query lazily, one keyset page at a time. Only
// the current page is held in memory.
type EventIterator struct {
	reader store.EventReader
	query  store.EventQuery
	chunk  int

	buf    []models.AnalyticsEvent
	pos    int
	cursor store.EventCursor
	done   bool
	err    error
}

func NewEventIterator(reader store.EventReader, q store.EventQuery, chunk int) *EventIterator {
	if chunk <= 0 {
		chunk = DefaultChunkSize
	}
	return &EventIterator{reader: reader, query: q, chunk: chunk}
}

// Next advances to the next event, fetching a new page when needed.
func (it *EventIterator) Next(ctx context.Context) bool {
	for {
		if it.err != nil {
			return false
		}
		if it.pos < len(it.buf) {
			it.cursor = store.CursorOf(&it.buf[it.pos])
			it.pos++
			return true
		}
		if it.done {
			return false
		}

		page, err := it.reader.FetchEvents(ctx, it.query, it.cursor, it.chunk)
		if err != nil {
			it.err = err
			return false
		}
		if len(page) < it.chunk {
			it.done = true
		}
		it.buf, it.pos = page, 0
	}
}

// Event returns the current event. It is valid until the next call to Next.
func (it *EventIterator) Event() *models.AnalyticsEvent {
	if it.pos == 0 {
		return nil
	}
	return &it.buf[it.pos-1]
}

func (it *EventIterator) Err() error {
	return it.err
}

// Cursor is the position of the current event; a new iterator can resume
// from it with Seek.
func (it *EventIterator) Cursor() store.EventCursor {
	return it.cursor
}

// Seek restarts the iteration just after c.
func (it *EventIterator) Seek(c store.EventCursor) {
	it.buf, it.pos = nil, 0
	it.cursor = c
	it.done = false
	it.err = nil
}

// Reset restarts the iteration from the beginning of the query.
func (it *EventIterator) Reset() {
	it.Seek(store.EventCursor{})
}
