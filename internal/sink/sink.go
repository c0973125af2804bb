package sink

import (
	"context"

	"swapCore/internal/model"
)

// EventSink receives committed engine events for journaling/indexing.
type EventSink interface {
	PutEventBatch(ctx context.Context, events []model.EventRecord) error
}
