package department

import (
	"strings"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-identity/pkg/constants"
)

type CreateDTO struct {
	PID          int64   `json:"pid" validate:"gte=0"`
	Code         string  `json:"code" validate:"required,max=64"`
	Name         string  `json:"name" validate:"required,max=128"`
	Description  string  `json:"description" validate:"max=512"`
	DisplayOrder int     `json:"display_order"`
	TagIDs       []int64 `json:"tag_ids" validate:"omitempty,dive,gt=0"`
}

func (d *CreateDTO) Normalize() {
	d.Code = strings.TrimSpace(d.Code)
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
}

func (d *CreateDTO) Validate() error {
	d.Normalize()
	return constants.Validate.Struct(d)
}

func (d *CreateDTO) ToEntity(tenantID uuid.UUID) *Department {
	return &Department{
		TenantID:     tenantID,
		PID:          d.PID,
		Code:         d.Code,
		Name:         d.Name,
		Description:  d.Description,
		DisplayOrder: d.DisplayOrder,
		TagIDs:       dedupeIDs(d.TagIDs),
	}
}

// UpdateDTO is a partial update. Nil fields are left untouched; a nil PID
// means the department is not moved.
type UpdateDTO struct {
	ID           int64    `json:"id" validate:"required,gt=0"`
	PID          *int64   `json:"pid" validate:"omitnil,gte=0"`
	Code         *string  `json:"code" validate:"omitnil,min=1,max=64"`
	Name         *string  `json:"name" validate:"omitnil,min=1,max=128"`
	Description  *string  `json:"description" validate:"omitnil,max=512"`
	DisplayOrder *int     `json:"display_order"`
	TagIDs       *[]int64 `json:"tag_ids"`
}

func (d *UpdateDTO) Normalize() {
	trim := func(s *string) {
		if s != nil {
			*s = strings.TrimSpace(*s)
		}
	}
	trim(d.Code)
	trim(d.Name)
	trim(d.Description)
}

func (d *UpdateDTO) Validate() error {
	d.Normalize()
	if err := constants.Validate.Struct(d); err != nil {
		return err
	}
	if d.TagIDs != nil {
		return validateTagIDs(*d.TagIDs)
	}
	return nil
}

// Apply merges the non-nil fields of d into a copy of current.
// Level and ParentLikeID are left for the caller to recompute.
func (d *UpdateDTO) Apply(current *Department) *Department {
	next := current.Clone()
	if d.PID != nil {
		next.PID = *d.PID
	}
	if d.Code != nil {
		next.Code = *d.Code
	}
	if d.Name != nil {
		next.Name = *d.Name
	}
	if d.Description != nil {
		next.Description = *d.Description
	}
	if d.DisplayOrder != nil {
		next.DisplayOrder = *d.DisplayOrder
	}
	if d.TagIDs != nil {
		next.TagIDs = dedupeIDs(*d.TagIDs)
	}
	return next
}

// ReplaceDTO is a full overwrite when ID is set and a create when ID is zero.
// A nil PID places the department at root level.
type ReplaceDTO struct {
	ID           int64   `json:"id" validate:"gte=0"`
	PID          *int64  `json:"pid" validate:"omitnil,gte=0"`
	Code         string  `json:"code" validate:"required,max=64"`
	Name         string  `json:"name" validate:"required,max=128"`
	Description  string  `json:"description" validate:"max=512"`
	DisplayOrder int     `json:"display_order"`
	TagIDs       []int64 `json:"tag_ids" validate:"omitempty,dive,gt=0"`
}

func (d *ReplaceDTO) Validate() error {
	d.Code = strings.TrimSpace(d.Code)
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	return constants.Validate.Struct(d)
}

func (d *ReplaceDTO) ToCreateDTO() *CreateDTO {
	pid := RootPID
	if d.PID != nil {
		pid = *d.PID
	}
	return &CreateDTO{
		PID:          pid,
		Code:         d.Code,
		Name:         d.Name,
		Description:  d.Description,
		DisplayOrder: d.DisplayOrder,
		TagIDs:       d.TagIDs,
	}
}

// ToUpdateDTO expresses the overwrite as an update with every field set.
func (d *ReplaceDTO) ToUpdateDTO() *UpdateDTO {
	pid := RootPID
	if d.PID != nil {
		pid = *d.PID
	}
	code, name, description, order := d.Code, d.Name, d.Description, d.DisplayOrder
	tags := dedupeIDs(d.TagIDs)
	if tags == nil {
		tags = []int64{}
	}
	return &UpdateDTO{
		ID:           d.ID,
		PID:          &pid,
		Code:         &code,
		Name:         &name,
		Description:  &description,
		DisplayOrder: &order,
		TagIDs:       &tags,
	}
}

func validateTagIDs(ids []int64) error {
	return constants.Validate.Var(ids, "omitempty,dive,gt=0")
}

func dedupeIDs(ids []int64) []int64 {
	if ids == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
