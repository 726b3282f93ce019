package authz

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	globalDomain          = "global"
	subjectTenantPrefix   = "tenant"
	subjectUserPrefix     = "user"
	departmentPrefix      = "dept"
	objectSeparator       = "."
	subjectSeparator      = ":"
	defaultActionWildcard = "*"
)

// Request encapsulates all parameters required to evaluate a Casbin rule.
type Request struct {
	Subject string
	Domain  string
	Object  string
	Action  string
}

func NewRequest(subject, domain, object, action string) Request {
	return Request{
		Subject: subject,
		Domain:  domain,
		Object:  object,
		Action:  action,
	}
}

// SubjectForUser builds a subject identifier in the form tenant:{tenantID}:user:{userID}.
func SubjectForUser(tenantID, userID uuid.UUID) string {
	userPart := "anonymous"
	if userID != uuid.Nil {
		userPart = userID.String()
	}
	return strings.Join([]string{subjectTenantPrefix, DomainFromTenant(tenantID), subjectUserPrefix, userPart}, subjectSeparator)
}

// SubjectForDepartment is the role every member of a department is grouped into.
func SubjectForDepartment(departmentID int64) string {
	return departmentPrefix + subjectSeparator + strconv.FormatInt(departmentID, 10)
}

// DomainFromTenant converts a tenant ID into a casbin domain string.
func DomainFromTenant(id uuid.UUID) string {
	if id == uuid.Nil {
		return globalDomain
	}
	return strings.ToLower(id.String())
}

// ObjectName returns the canonical module.resource string, lowercased.
func ObjectName(module, resource string) string {
	module = strings.ToLower(strings.TrimSpace(module))
	resource = strings.ToLower(strings.TrimSpace(resource))
	if module == "" {
		module = "global"
	}
	if resource == "" {
		resource = "resource"
	}
	return module + objectSeparator + resource
}

func NormalizeAction(action string) string {
	action = strings.ToLower(strings.TrimSpace(action))
	if action == "" {
		return defaultActionWildcard
	}
	return action
}
