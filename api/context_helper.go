package api

import (
	"context"
	"time"
)

// QueryTimeout is the default timeout for database queries
const QueryTimeout = 10 * time.Second

type staffKey struct{}

// WithQueryTimeout creates a context with query timeout
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

// WithStaff stores the authenticated staff member on ctx
func WithStaff(ctx context.Context, staff string) context.Context {
	return context.WithValue(ctx, staffKey{}, staff)
}

// StaffFrom returns the staff member authenticated for the request, if any
func StaffFrom(ctx context.Context) string {
	s, _ := ctx.Value(staffKey{}).(string)
	return s
}
