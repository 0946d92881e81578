package shop

import (
	"time"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.NotFound("shop not found")
	ErrNameRequired = apperror.Validation("shop name is required")
	ErrInvalidSize  = apperror.Validation("shop size must be positive")
	ErrNameTaken    = apperror.Conflict("a shop with this name already exists")
)

// Shop is a leasable unit of the mall. Contracts reserve it for a period.
type Shop struct {
	ID        string
	Name      string
	Location  string
	Size      float64
	CreatedAt time.Time
}

type Filter struct {
	Keyword   string
	Page      int
	PageSize  int
	SortOrder string
}
