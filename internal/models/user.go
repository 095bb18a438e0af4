package models

// UserAccount represents one application account as listed by the backend.
type UserAccount struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
