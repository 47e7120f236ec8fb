package dto

// PaginationMeta summarises a paginated listing.
type PaginationMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// ReauthRequest carries the caller's password for destructive operations.
type ReauthRequest struct {
	Password string `json:"password" validate:"required"`
}
