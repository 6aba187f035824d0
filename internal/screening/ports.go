package screening

import (
	"context"

	"sanctions-gateway/internal/audit"
	"sanctions-gateway/internal/matcher"
)

//go:generate mockgen -source=ports.go -destination=mocks/ports-mocks.go -package=mocks Gateway,Auditor

// Gateway screens a person against every configured dataset.
type Gateway interface {
	Ready(ctx context.Context) error
	ScreenAll(ctx context.Context, requestID string, q matcher.PersonQuery) matcher.Aggregate
	Datasets() []string
}

// Auditor records audit events. Emit never fails the caller.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event)
}
