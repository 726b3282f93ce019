package department

import (
	"time"

	"github.com/google/uuid"
)

type CreatedEvent struct {
	EventID     uuid.UUID
	TenantID    uuid.UUID
	Departments []*Department
	OccurredAt  time.Time
}

type UpdatedEvent struct {
	EventID    uuid.UUID
	TenantID   uuid.UUID
	Before     *Department
	After      *Department
	OccurredAt time.Time
}

// MovedEvent is published for every department whose parent changed.
// DescendantIDs lists the departments whose path was rebased with it.
type MovedEvent struct {
	EventID       uuid.UUID
	TenantID      uuid.UUID
	DepartmentID  int64
	OldPID        int64
	NewPID        int64
	OldPrefix     string
	NewPrefix     string
	LevelDelta    int
	DescendantIDs []int64
	OccurredAt    time.Time
}

// DeletedEvent carries the explicitly targeted ids and the full removed set,
// descendants included.
type DeletedEvent struct {
	EventID    uuid.UUID
	TenantID   uuid.UUID
	TargetIDs  []int64
	DeletedIDs []int64
	OccurredAt time.Time
}

func NewCreatedEvent(tenantID uuid.UUID, departments []*Department) *CreatedEvent {
	return &CreatedEvent{EventID: uuid.New(), TenantID: tenantID, Departments: departments, OccurredAt: time.Now()}
}

func NewUpdatedEvent(tenantID uuid.UUID, before, after *Department) *UpdatedEvent {
	return &UpdatedEvent{EventID: uuid.New(), TenantID: tenantID, Before: before, After: after, OccurredAt: time.Now()}
}

func NewDeletedEvent(tenantID uuid.UUID, targetIDs, deletedIDs []int64) *DeletedEvent {
	return &DeletedEvent{EventID: uuid.New(), TenantID: tenantID, TargetIDs: targetIDs, DeletedIDs: deletedIDs, OccurredAt: time.Now()}
}
