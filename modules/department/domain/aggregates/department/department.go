package department

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// RootPID is the parent id of departments that sit directly under the tenant root.
const RootPID int64 = 0

type Department struct {
	ID           int64
	TenantID     uuid.UUID
	PID          int64
	Level        int
	ParentLikeID string
	Code         string
	Name         string
	Description  string
	DisplayOrder int
	TagIDs       []int64
	CreatedBy    uuid.UUID
	UpdatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (d *Department) IsRootLevel() bool {
	return d.PID == RootPID
}

func (d *Department) Clone() *Department {
	if d == nil {
		return nil
	}
	out := *d
	out.TagIDs = slices.Clone(d.TagIDs)
	return &out
}

func IndexByID(departments []*Department) map[int64]*Department {
	out := make(map[int64]*Department, len(departments))
	for _, d := range departments {
		if d != nil {
			out[d.ID] = d
		}
	}
	return out
}

func IDs(departments []*Department) []int64 {
	out := make([]int64, 0, len(departments))
	for _, d := range departments {
		out = append(out, d.ID)
	}
	return out
}
