package services

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/iota-uz/iota-identity/pkg/composables"
)

const tracerName = "github.com/iota-uz/iota-identity/modules/department/services"

// inTenantTx runs fn inside one tenant-scoped transaction. Tests swap it for
// an in-memory runner.
var inTenantTx = defaultInTenantTx

func defaultInTenantTx(ctx context.Context, tenantID uuid.UUID, fn func(txCtx context.Context) error) error {
	return composables.InTenantTx(composables.WithTenantID(ctx, tenantID), fn)
}

// actorID is the user recorded in created_by/updated_by, or uuid.Nil when
// the caller did not identify one.
func actorID(ctx context.Context) uuid.UUID {
	id, err := composables.UseUserID(ctx)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func startSpan(ctx context.Context, op string, tenantID uuid.UUID, size int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "department."+op, trace.WithAttributes(
		attribute.String("tenant_id", tenantID.String()),
		attribute.Int("batch_size", size),
	))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, ErrorCode(err))
	}
	span.End()
}
