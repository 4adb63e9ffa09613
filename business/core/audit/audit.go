// Package audit keeps a trail of who did what in the service. The trail is
// best effort, recording never fails the operation being audited.
package audit

import (
	"context"
	"time"

	"github.com/ecoledger/ecoledger/business/sys/validate"
	"go.uber.org/zap"
)

// Set of actions recorded in the audit trail.
const (
	ActionRegister = "REGISTER"
	ActionLogin    = "LOGIN"
	ActionCreate   = "CREATE"
	ActionVerify   = "VERIFY"
)

// Storer interface declares the behavior this package needs to persist and
// retrieve data.
type Storer interface {
	Create(ctx context.Context, evt Event) error
	Query(ctx context.Context, actor string, pageNumber int, rowsPerPage int) ([]Event, error)
	Count(ctx context.Context, actor string) (int, error)
}

// Event represents one entry in the audit trail.
type Event struct {
	ID          string
	Actor       string
	Action      string
	Entity      string
	EntityID    string
	Description string
	IPAddress   string
	CreatedAt   time.Time
}

// =============================================================================

// Core manages the set of APIs for audit trail access.
type Core struct {
	log    *zap.SugaredLogger
	storer Storer
}

// NewCore constructs a core for audit trail access.
func NewCore(log *zap.SugaredLogger, storer Storer) *Core {
	return &Core{
		log:    log,
		storer: storer,
	}
}

// Record writes an event to the trail. A failure here is logged and
// swallowed so the audited operation still completes.
func (c *Core) Record(ctx context.Context, evt Event) {
	evt.ID = validate.GenerateID()
	evt.CreatedAt = time.Now().UTC()

	if err := c.storer.Create(ctx, evt); err != nil {
		c.log.Errorw("audit record dropped", "ERROR", err, "action", evt.Action, "actor", evt.Actor)
	}
}

// Query returns a page of the trail, newest first. An empty actor selects
// events across all actors.
func (c *Core) Query(ctx context.Context, actor string, pageNumber int, rowsPerPage int) ([]Event, error) {
	return c.storer.Query(ctx, actor, pageNumber, rowsPerPage)
}

// Count returns the number of recorded events, optionally for one actor.
func (c *Core) Count(ctx context.Context, actor string) (int, error) {
	return c.storer.Count(ctx, actor)
}
