package department

import "fmt"

type QuotaKind string

const (
	QuotaCount QuotaKind = "count"
	QuotaDepth QuotaKind = "depth"
	QuotaTags  QuotaKind = "tags"
)

// QuotaError is returned by a QuotaGuard when a tenant limit would be exceeded.
type QuotaError struct {
	Kind   QuotaKind
	Limit  int
	Actual int
	// Code identifies the offending department for depth and tag checks.
	Code string
}

func (e *QuotaError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("department %s quota exceeded for %q: %d > %d", e.Kind, e.Code, e.Actual, e.Limit)
	}
	return fmt.Sprintf("department %s quota exceeded: %d > %d", e.Kind, e.Actual, e.Limit)
}
