package stage

import (
	"context"

	"tunesort/internal/queue"
)

// Handler describes the contract the workflow engine needs from each stage.
type Handler interface {
	Prepare(context.Context, *queue.Item) error
	Execute(context.Context, *queue.Item) error
	HealthCheck(context.Context) Health
}
