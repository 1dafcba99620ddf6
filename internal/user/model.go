package user

import "time"

type User struct {
	ID                string     `json:"id"`
	FullName          string     `json:"full_name"`
	PhoneNumber       string     `json:"phone_number"`
	Address           string     `json:"address"`
	PasswordHash      string     `json:"-"`
	Active            bool       `json:"active"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	FacebookAccountID int64      `json:"facebook_account_id"`
	GoogleAccountID   int64      `json:"google_account_id"`
	RoleID            int64      `json:"role_id"`
	Role              string     `json:"role"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// HasSocialLogin reports whether the account is linked to an external
// identity provider and therefore carries no local password.
func (u User) HasSocialLogin() bool {
	return u.FacebookAccountID > 0 || u.GoogleAccountID > 0
}

type RegisterInput struct {
	FullName          string     `json:"full_name"`
	PhoneNumber       string     `json:"phone_number"`
	Address           string     `json:"address"`
	Password          string     `json:"password"`
	RetypePassword    string     `json:"retype_password"`
	DateOfBirth       *time.Time `json:"date_of_birth,omitempty"`
	FacebookAccountID int64      `json:"facebook_account_id"`
	GoogleAccountID   int64      `json:"google_account_id"`
	RoleID            int64      `json:"role_id"`
}
