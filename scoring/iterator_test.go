package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadsite/api/models"
	"leadsite/api/store"
)

type countingReader struct {
	store.EventReader
	calls int
}

func (r *countingReader) FetchEvents(ctx context.Context, q store.EventQuery, after store.EventCursor, limit int) ([]models.AnalyticsEvent, error) {
	r.calls++
	return r.EventReader.FetchEvents(ctx, q, after, limit)
}

func seededReader(t *testing.T, n int) *countingReader {
	t.Helper()
	b := &eventBuilder{}
	for i := 0; i < n; i++ {
		// Pairs share a timestamp so paging must break ties on event id.
		b.add(models.EventPageView, 0, "a1", time.Duration(n-i/2)*time.Minute, `{}`)
	}
	s := store.NewMemoryEventStore()
	require.NoError(t, s.InsertAnalyticsEvents(context.Background(), b.events))
	return &countingReader{EventReader: s}
}

func collectIDs(t *testing.T, it *EventIterator) []string {
	t.Helper()
	var ids []string
	for it.Next(context.Background()) {
		ids = append(ids, it.Event().EventID)
	}
	require.NoError(t, it.Err())
	return ids
}

func TestEventIteratorPagesInOrder(t *testing.T) {
	r := seededReader(t, 7)
	q := store.EventQuery{Start: fixedNow.Add(-time.Hour), End: fixedNow}
	it := NewEventIterator(r, q, 3)

	ids := collectIDs(t, it)
	assert.Equal(t, []string{"evt-0001", "evt-0002", "evt-0003", "evt-0004", "evt-0005", "evt-0006", "evt-0007"}, ids)
	assert.Equal(t, 3, r.calls)
	assert.False(t, it.Next(context.Background()))
}

func TestEventIteratorExactMultipleFetchesEmptyTail(t *testing.T) {
	r := seededReader(t, 6)
	it := NewEventIterator(r, store.EventQuery{Start: fixedNow.Add(-time.Hour), End: fixedNow}, 3)

	assert.Len(t, collectIDs(t, it), 6)
	assert.Equal(t, 3, r.calls)
}

func TestEventIteratorSeekAndReset(t *testing.T) {
	r := seededReader(t, 5)
	q := store.EventQuery{Start: fixedNow.Add(-time.Hour), End: fixedNow}
	it := NewEventIterator(r, q, 2)

	require.True(t, it.Next(context.Background()))
	require.True(t, it.Next(context.Background()))
	cursor := it.Cursor()
	assert.Equal(t, "evt-0002", cursor.EventID)

	resumed := NewEventIterator(r, q, 2)
	resumed.Seek(cursor)
	assert.Equal(t, []string{"evt-0003", "evt-0004", "evt-0005"}, collectIDs(t, resumed))

	resumed.Reset()
	assert.Len(t, collectIDs(t, resumed), 5)
}

func TestEventIteratorDefaultsChunk(t *testing.T) {
	it := NewEventIterator(store.NewMemoryEventStore(), store.EventQuery{}, 0)
	assert.Equal(t, DefaultChunkSize, it.chunk)
	assert.Nil(t, it.Event())
}

func TestEventIteratorStopsOnCancel(t *testing.T) {
	r := seededReader(t, 3)
	it := NewEventIterator(r, store.EventQuery{Start: fixedNow.Add(-time.Hour), End: fixedNow}, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, it.Next(ctx))
	assert.ErrorIs(t, it.Err(), context.Canceled)
}
