package uid

import (
	"github.com/google/uuid"
)

// New returns a random (v4) UUID string used for user, bot and request ids.
func New() string {
	return uuid.New().String()
}
