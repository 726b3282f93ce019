package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

const constraintTenantCode = "departments_tenant_id_code_key"

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505": // unique_violation
		recordWriteConflict("unique")
		if pgErr.ConstraintName == constraintTenantCode {
			return &ServiceError{Kind: KindValidation, Code: CodeCodeDuplicate, Message: "department code already exists", Field: "code", Cause: err}
		}
		return newServiceError(KindConflict, CodePathConflict, "unique constraint violated", err)
	case "40001", "40P01": // serialization_failure, deadlock_detected
		recordWriteConflict("serialization")
		return newServiceError(KindConflict, CodePathConflict, "concurrent department change, retry the operation", err)
	default:
		return newServiceError(KindInternal, codeInternalDBError, fmt.Sprintf("database error (%s)", pgErr.Code), err)
	}
}
