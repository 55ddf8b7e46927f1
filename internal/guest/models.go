package guest

import (
	"time"

	"github.com/google/uuid"
)

// Guest is one invited guest record.
type Guest struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
