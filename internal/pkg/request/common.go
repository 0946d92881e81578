package request

import (
	"strings"

	"github.com/nekogravitycat/mall-admin-backend/internal/pkg/apperror"
)

var ErrInvalidSortOrder = apperror.Validation("sort_order must be asc or desc")

// ByIDRequest is a common struct for endpoints that require an ID path parameter.
type ByIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ListParams holds the pagination and sorting query parameters shared by list endpoints.
type ListParams struct {
	Page      int    `form:"page,default=1" binding:"min=1"`
	PageSize  int    `form:"page_size,default=20" binding:"min=1,max=100"`
	SortOrder string `form:"sort_order"`
}

// Validate normalizes SortOrder and rejects unknown values.
func (p *ListParams) Validate() error {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}
	switch strings.ToUpper(p.SortOrder) {
	case "":
		p.SortOrder = "DESC"
	case "ASC", "DESC":
		p.SortOrder = strings.ToUpper(p.SortOrder)
	default:
		return ErrInvalidSortOrder
	}
	return nil
}
