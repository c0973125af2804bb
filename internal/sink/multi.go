package sink

import (
	"context"

	"swapCore/internal/model"
)

// Multi fans event batches out to several sinks, stopping at the first
// failure.
type Multi []EventSink

func (m Multi) PutEventBatch(ctx context.Context, events []model.EventRecord) error {
	for _, s := range m {
		if err := s.PutEventBatch(ctx, events); err != nil {
			return err
		}
	}
	return nil
}
