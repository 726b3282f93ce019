package composables

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/iota-uz/iota-identity/pkg/constants"
)

var ErrNoUserID = errors.New("user id not found in context")

// WithUserID records the user performing the current operation.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, constants.UserIDKey, userID)
}

func UseUserID(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(constants.UserIDKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, ErrNoUserID
	}
	return userID, nil
}
