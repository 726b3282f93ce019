package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iota-uz/iota-identity/modules/department/domain/aggregates/department"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindConflict   ErrorKind = "conflict"
	KindInternal   ErrorKind = "internal"
)

const (
	CodeInvalidBody     = "DEPT_INVALID_BODY"
	CodeCodeDuplicate   = "DEPT_CODE_DUPLICATE"
	CodeNameDuplicate   = "DEPT_NAME_DUPLICATE"
	CodeParentNotFound  = "DEPT_PARENT_NOT_FOUND"
	CodeParentCycle     = "DEPT_PARENT_CYCLE"
	CodeNotFound        = "DEPT_NOT_FOUND"
	CodeQuotaCount      = "DEPT_QUOTA_COUNT"
	CodeQuotaDepth      = "DEPT_QUOTA_DEPTH"
	CodeQuotaTags       = "DEPT_QUOTA_TAGS"
	CodePathConflict    = "DEPT_PATH_CONFLICT"
	codeInternalDBError = "DEPT_INTERNAL"
)

// ServiceError is the single terminal error a department operation returns.
// Field and Value name the offending input when there is one.
type ServiceError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Field   string
	Value   any
	Cause   error
}

func (e *ServiceError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Field != "" {
		fmt.Fprintf(&b, " (%s=%v)", e.Field, e.Value)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *ServiceError) Unwrap() error { return e.Cause }

func newServiceError(kind ErrorKind, code, message string, cause error) *ServiceError {
	return &ServiceError{Kind: kind, Code: code, Message: message, Cause: cause}
}

func validationError(code, field string, value any, message string) *ServiceError {
	return &ServiceError{Kind: KindValidation, Code: code, Message: message, Field: field, Value: value}
}

func notFoundError(field string, value any) *ServiceError {
	return &ServiceError{Kind: KindNotFound, Code: CodeNotFound, Message: "department not found", Field: field, Value: value}
}

func hasKind(err error, kind ErrorKind) bool {
	var svcErr *ServiceError
	return errors.As(err, &svcErr) && svcErr.Kind == kind
}

func IsValidation(err error) bool { return hasKind(err, KindValidation) }
func IsNotFound(err error) bool   { return hasKind(err, KindNotFound) }
func IsConflict(err error) bool   { return hasKind(err, KindConflict) }
func IsInternal(err error) bool   { return hasKind(err, KindInternal) }

// ErrorCode returns the code of a ServiceError in err's chain, or "".
func ErrorCode(err error) string {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.Code
	}
	return ""
}

func fromValidatorError(err error, index int) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return newServiceError(KindValidation, CodeInvalidBody, "invalid department draft", err)
	}
	fe := verrs[0]
	svcErr := validationError(CodeInvalidBody, fieldName(fe), fe.Value(), fmt.Sprintf("draft #%d failed %q validation", index, fe.Tag()))
	svcErr.Cause = err
	return svcErr
}

func fieldName(fe validator.FieldError) string {
	switch fe.StructField() {
	case "PID":
		return "pid"
	case "TagIDs":
		return "tag_ids"
	case "DisplayOrder":
		return "display_order"
	default:
		return strings.ToLower(fe.Field())
	}
}

func fromQuotaError(err error) error {
	var qe *department.QuotaError
	if !errors.As(err, &qe) {
		return err
	}
	recordQuotaRejection(string(qe.Kind))
	var (
		code  string
		field string
		value any
	)
	switch qe.Kind {
	case department.QuotaCount:
		code, field, value = CodeQuotaCount, "count", qe.Actual
	case department.QuotaDepth:
		code, field, value = CodeQuotaDepth, "code", qe.Code
	default:
		code, field, value = CodeQuotaTags, "tag_ids", qe.Actual
	}
	svcErr := validationError(code, field, value, qe.Error())
	svcErr.Cause = err
	return svcErr
}
