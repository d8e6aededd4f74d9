package stage

import (
	"context"

	"spool/internal/queue"
)

// Handler describes the contract the workflow manager needs from each stage.
// Prepare runs before the item is marked processing and may mutate the item;
// Execute performs the stage work and may set the item's next status when it
// differs from the stage's default transition.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
