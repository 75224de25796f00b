package resuscitation

import (
	"context"

	"github.com/google/uuid"

	"github.com/resus/resus/internal/domain/audittrail"
)

// Repository persists cases. Audit entries are append-only: AppendAction
// stores one new entry together with the trail totals it changed.
type Repository interface {
	Create(ctx context.Context, c *Case) error
	Get(ctx context.Context, id uuid.UUID) (*Case, error)
	Update(ctx context.Context, c *Case) error
	AppendAction(ctx context.Context, c *Case, entry audittrail.CompletedAction) error
	List(ctx context.Context, limit, offset int) ([]*Case, int, error)
}
