package domain

// Card is the externally owned report a subscription delivers. Only the
// summary fields surface in views; permission objects for a card come from
// the card subsystem.
type Card struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Display      string `json:"display"`
	Archived     bool   `json:"archived"`
	CollectionID *int64 `json:"collection_id,omitempty"`
}

// User is the externally owned identity record, attached to views as the
// creator and used to resolve recipient emails.
type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// Principal is the identity a permission check is evaluated for. It is
// supplied explicitly by the caller, never read from ambient state.
type Principal struct {
	UserID int64
	Email  string
}
