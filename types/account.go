package types

import "time"

// Account is a stored user account.
// It holds the login identity, the credential hash and login bookkeeping.
type Account struct {
	// ID is the surrogate key assigned by the database on insert.
	ID int64 `json:"-" db:"id"`

	// Username is the unique login name.
	Username string `json:"username" db:"username"`

	// Email is optional. An empty value is stored as NULL so that accounts
	// without an email never collide with each other.
	Email string `json:"email,omitempty" db:"email"`

	// PasswordHash stores the salted bcrypt hash of the password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is set once when the account is inserted.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// LastLoginAt is nil until the first successful authentication.
	LastLoginAt *time.Time `json:"last_login,omitempty" db:"last_login_at"`

	// LoginCount counts successful authentications.
	LoginCount int64 `json:"login_count" db:"login_count"`
}

// AccountView is the public projection of an Account.
type AccountView struct {
	Username   string     `json:"username"`
	Email      *string    `json:"email"`
	CreatedAt  *time.Time `json:"created_at"`
	LastLogin  *time.Time `json:"last_login"`
	LoginCount int64      `json:"login_count"`
}

// View returns the public projection of the account.
func (a Account) View() AccountView {
	view := AccountView{
		Username:   a.Username,
		LoginCount: a.LoginCount,
	}
	if a.Email != "" {
		email := a.Email
		view.Email = &email
	}
	if !a.CreatedAt.IsZero() {
		createdAt := a.CreatedAt
		view.CreatedAt = &createdAt
	}
	if a.LastLoginAt != nil {
		lastLogin := *a.LastLoginAt
		view.LastLogin = &lastLogin
	}
	return view
}
