package persistence

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
	"github.com/iota-uz/iota-identity/pkg/composables"
)

var ErrDepartmentNotFound = errors.New("department not found")

const (
	departmentColumns = `
        id,
        tenant_id,
        pid,
        level,
        parent_like_id,
        code,
        name,
        description,
        display_order,
        created_by,
        updated_by,
        created_at,
        updated_at`

	departmentFindQuery = `SELECT` + departmentColumns + ` FROM departments`

	departmentByIDsQuery   = departmentFindQuery + ` WHERE tenant_id = $1 AND id = ANY($2) ORDER BY id`
	departmentLockQuery    = departmentByIDsQuery + ` FOR UPDATE`
	departmentByCodesQuery = departmentFindQuery + ` WHERE tenant_id = $1 AND code = ANY($2) ORDER BY id`
	departmentByNamesQuery = departmentFindQuery + ` WHERE tenant_id = $1 AND name = ANY($2) ORDER BY id`
	departmentListQuery    = departmentFindQuery + ` WHERE tenant_id = $1 ORDER BY level, display_order, id`

	departmentCountQuery = `SELECT COUNT(*) FROM departments WHERE tenant_id = $1`

	// prefix is made of digits and '-' only, so it is safe inside LIKE.
	departmentSubtreeIDsQuery = `
        SELECT id FROM departments
        WHERE tenant_id = $1 AND (parent_like_id = $2 OR parent_like_id LIKE $2 || '-%')
        ORDER BY id`
	departmentSubtreeLockQuery = departmentSubtreeIDsQuery + ` FOR UPDATE`

	departmentSubtreeMaxLevelQuery = `
        SELECT COALESCE(MAX(level), 0) FROM departments
        WHERE tenant_id = $1 AND (parent_like_id = $2 OR parent_like_id LIKE $2 || '-%')`

	departmentInsertQuery = `
        INSERT INTO departments (
            tenant_id,
            pid,
            level,
            parent_like_id,
            code,
            name,
            description,
            display_order,
            created_by,
            updated_by
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id`

	departmentUpdateQuery = `
        UPDATE departments SET
            pid = $3,
            level = $4,
            parent_like_id = $5,
            code = $6,
            name = $7,
            description = $8,
            display_order = $9,
            updated_by = $10,
            updated_at = NOW()
        WHERE tenant_id = $1 AND id = $2`

	departmentRebaseQuery = `
        UPDATE departments SET
            level = level + $3,
            parent_like_id = $5::text || substr(parent_like_id, length($4::text) + 1),
            updated_at = NOW()
        WHERE tenant_id = $1 AND id = ANY($2)`

	departmentDeleteQuery = `DELETE FROM departments WHERE tenant_id = $1 AND id = ANY($2)`
)

// DepartmentRepository stores departments in Postgres. Every method runs on
// the transaction carried by ctx.
type DepartmentRepository struct{}

func NewDepartmentRepository() department.Repository {
	return &DepartmentRepository{}
}

func (r *DepartmentRepository) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) ([]*department.Department, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := r.queryDepartments(ctx, departmentByIDsQuery, tenantID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find departments by ids")
	}
	return out, nil
}

func (r *DepartmentRepository) LockByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) ([]*department.Department, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out, err := r.queryDepartments(ctx, departmentLockQuery, tenantID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to lock departments")
	}
	return out, nil
}

func (r *DepartmentRepository) FindIDsByPathPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]int64, error) {
	return r.subtreeIDs(ctx, departmentSubtreeLockQuery, tenantID, prefix)
}

func (r *DepartmentRepository) ListIDsByPathPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) ([]int64, error) {
	return r.subtreeIDs(ctx, departmentSubtreeIDsQuery, tenantID, prefix)
}

func (r *DepartmentRepository) subtreeIDs(ctx context.Context, query string, tenantID uuid.UUID, prefix string) ([]int64, error) {
	if prefix == "" {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, tenantID, prefix)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query subtree")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, errors.Wrap(err, "failed to collect subtree ids")
	}
	return ids, nil
}

func (r *DepartmentRepository) MaxLevelByPathPrefix(ctx context.Context, tenantID uuid.UUID, prefix string) (int, error) {
	if prefix == "" {
		return 0, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	var level int
	if err := tx.QueryRow(ctx, departmentSubtreeMaxLevelQuery, tenantID, prefix).Scan(&level); err != nil {
		return 0, errors.Wrap(err, "failed to query subtree depth")
	}
	return level, nil
}

func (r *DepartmentRepository) FindByCodes(ctx context.Context, tenantID uuid.UUID, codes []string) ([]*department.Department, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	out, err := r.queryDepartments(ctx, departmentByCodesQuery, tenantID, codes)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find departments by codes")
	}
	return out, nil
}

func (r *DepartmentRepository) FindByNames(ctx context.Context, tenantID uuid.UUID, names []string) ([]*department.Department, error) {
	if len(names) == 0 {
		return nil, nil
	}
	out, err := r.queryDepartments(ctx, departmentByNamesQuery, tenantID, names)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find departments by names")
	}
	return out, nil
}

func (r *DepartmentRepository) Count(ctx context.Context, tenantID uuid.UUID) (int, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to get transaction")
	}
	var count int
	if err := tx.QueryRow(ctx, departmentCountQuery, tenantID).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count departments")
	}
	return count, nil
}

func (r *DepartmentRepository) ListAll(ctx context.Context, tenantID uuid.UUID) ([]*department.Department, error) {
	out, err := r.queryDepartments(ctx, departmentListQuery, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list departments")
	}
	return out, nil
}

// BatchInsert inserts the departments in one round trip and returns their ids
// in input order.
func (r *DepartmentRepository) BatchInsert(ctx context.Context, tenantID uuid.UUID, departments []*department.Department) ([]int64, error) {
	if len(departments) == 0 {
		return nil, nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}

	batch := &pgx.Batch{}
	for _, d := range departments {
		batch.Queue(departmentInsertQuery,
			tenantID,
			d.PID,
			d.Level,
			pgNullablePath(d.ParentLikeID),
			d.Code,
			d.Name,
			d.Description,
			d.DisplayOrder,
			pgNullableUUID(d.CreatedBy),
			pgNullableUUID(d.UpdatedBy),
		)
	}
	results := tx.SendBatch(ctx, batch)
	ids := make([]int64, len(departments))
	for i := range departments {
		if err := results.QueryRow().Scan(&ids[i]); err != nil {
			_ = results.Close()
			return nil, errors.Wrapf(err, "failed to insert department %q", departments[i].Code)
		}
	}
	if err := results.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to insert departments")
	}
	return ids, nil
}

func (r *DepartmentRepository) Update(ctx context.Context, tenantID uuid.UUID, d *department.Department) error {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	tag, err := tx.Exec(ctx, departmentUpdateQuery,
		tenantID,
		d.ID,
		d.PID,
		d.Level,
		pgNullablePath(d.ParentLikeID),
		d.Code,
		d.Name,
		d.Description,
		d.DisplayOrder,
		pgNullableUUID(d.UpdatedBy),
	)
	if err != nil {
		return errors.Wrap(err, "failed to update department")
	}
	if tag.RowsAffected() == 0 {
		return errors.Wrapf(ErrDepartmentNotFound, "department %d", d.ID)
	}
	return nil
}

// BulkUpdateSubtree shifts the level of every id by levelDelta and swaps the
// oldPrefix head of its parent_like_id for newPrefix, in a single statement.
func (r *DepartmentRepository) BulkUpdateSubtree(ctx context.Context, tenantID uuid.UUID, ids []int64, levelDelta int, oldPrefix, newPrefix string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, departmentRebaseQuery, tenantID, ids, levelDelta, oldPrefix, newPrefix); err != nil {
		return errors.Wrap(err, "failed to rebase subtree")
	}
	return nil
}

func (r *DepartmentRepository) DeleteByIDs(ctx context.Context, tenantID uuid.UUID, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get transaction")
	}
	if _, err := tx.Exec(ctx, departmentDeleteQuery, tenantID, ids); err != nil {
		return errors.Wrap(err, "failed to delete departments")
	}
	return nil
}

func (r *DepartmentRepository) queryDepartments(ctx context.Context, query string, args ...any) ([]*department.Department, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction")
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*department.Department
	for rows.Next() {
		var (
			d            department.Department
			parentLikeID pgtype.Text
			createdBy    pgtype.UUID
			updatedBy    pgtype.UUID
		)
		if err := rows.Scan(
			&d.ID,
			&d.TenantID,
			&d.PID,
			&d.Level,
			&parentLikeID,
			&d.Code,
			&d.Name,
			&d.Description,
			&d.DisplayOrder,
			&createdBy,
			&updatedBy,
			&d.CreatedAt,
			&d.UpdatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan department")
		}
		d.ParentLikeID = parentLikeID.String
		d.CreatedBy = fromPgUUID(createdBy)
		d.UpdatedBy = fromPgUUID(updatedBy)
		out = append(out, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// pgNullablePath stores the empty path of root-level departments as NULL.
func pgNullablePath(path string) pgtype.Text {
	return pgtype.Text{String: path, Valid: path != ""}
}

func pgNullableUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func fromPgUUID(id pgtype.UUID) uuid.UUID {
	if !id.Valid {
		return uuid.Nil
	}
	return uuid.UUID(id.Bytes)
}
