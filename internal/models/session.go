package models

// Role represents the access level granted by the backend session.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Session is the authenticated identity governing which operations are
// permitted. The zero value is the logged-out state.
type Session struct {
	LoggedIn bool   `json:"logged_in"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// CanMutate reports whether mutating operations on the directories are
// permitted for this session.
func (s Session) CanMutate() bool {
	return s.LoggedIn && s.Role == RoleTeacher
}

// Credentials carries a username/password pair for login and registration.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
