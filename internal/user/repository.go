package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"shop-api/internal/auth"
)

const adminRoleName = "admin"

var (
	ErrPhoneNumberTaken = errors.New("phone number already exists")
	ErrRoleNotFound     = errors.New("role not found")
	ErrAdminSignup      = errors.New("cannot register an admin account")
)

// Repository owns the users and roles tables. It also implements
// auth.Directory, which is the only view of a user the session core sees.
type Repository struct {
	db     *sql.DB
	hasher auth.PasswordHasher
}

func NewRepository(db *sql.DB, hasher auth.PasswordHasher) *Repository {
	return &Repository{db: db, hasher: hasher}
}

const userColumns = `u.id, u.full_name, u.phone_number, u.address, u.password_hash,
	u.active, u.date_of_birth, u.facebook_account_id, u.google_account_id,
	u.role_id, r.name, u.created_at, u.updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var dateOfBirth sql.NullTime
	err := row.Scan(
		&u.ID, &u.FullName, &u.PhoneNumber, &u.Address, &u.PasswordHash,
		&u.Active, &dateOfBirth, &u.FacebookAccountID, &u.GoogleAccountID,
		&u.RoleID, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return User{}, err
	}
	if dateOfBirth.Valid {
		value := dateOfBirth.Time
		u.DateOfBirth = &value
	}

	return u, nil
}

func (r *Repository) FindByPhoneNumber(ctx context.Context, phoneNumber string) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.phone_number = $1
	`, phoneNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, auth.ErrNotFound
		}
		return User{}, fmt.Errorf("query user by phone number: %w", err)
	}

	return u, nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users u
		JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, auth.ErrNotFound
		}
		return User{}, fmt.Errorf("query user by id: %w", err)
	}

	return u, nil
}

func (r *Repository) ExistsByPhoneNumber(ctx context.Context, phoneNumber string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE phone_number = $1)
	`, phoneNumber).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check phone number: %w", err)
	}

	return exists, nil
}

// Create registers a new user. Admin accounts cannot be self-registered and
// social-linked accounts are stored without a local password.
func (r *Repository) Create(ctx context.Context, input RegisterInput) (User, error) {
	exists, err := r.ExistsByPhoneNumber(ctx, input.PhoneNumber)
	if err != nil {
		return User{}, err
	}
	if exists {
		return User{}, ErrPhoneNumberTaken
	}

	var roleName string
	err = r.db.QueryRowContext(ctx, `SELECT name FROM roles WHERE id = $1`, input.RoleID).Scan(&roleName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrRoleNotFound
		}
		return User{}, fmt.Errorf("query role: %w", err)
	}
	if roleName == adminRoleName {
		return User{}, ErrAdminSignup
	}

	passwordHash := ""
	if input.FacebookAccountID == 0 && input.GoogleAccountID == 0 {
		passwordHash, err = r.hasher.Hash(input.Password)
		if err != nil {
			return User{}, err
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return User{}, fmt.Errorf("generate user id: %w", err)
	}

	now := time.Now().UTC()
	u := User{
		ID:                id.String(),
		FullName:          input.FullName,
		PhoneNumber:       input.PhoneNumber,
		Address:           input.Address,
		PasswordHash:      passwordHash,
		Active:            true,
		DateOfBirth:       input.DateOfBirth,
		FacebookAccountID: input.FacebookAccountID,
		GoogleAccountID:   input.GoogleAccountID,
		RoleID:            input.RoleID,
		Role:              roleName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, full_name, phone_number, address, password_hash,
			active, date_of_birth, facebook_account_id, google_account_id,
			role_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
	`, u.ID, u.FullName, u.PhoneNumber, u.Address, u.PasswordHash,
		u.Active, u.DateOfBirth, u.FacebookAccountID, u.GoogleAccountID,
		u.RoleID, now)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return u, nil
}

// AccountByPhone implements auth.Directory.
func (r *Repository) AccountByPhone(ctx context.Context, phoneNumber string) (auth.Account, error) {
	u, err := r.FindByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return auth.Account{}, err
	}

	return accountFor(u), nil
}

// AccountByID implements auth.Directory.
func (r *Repository) AccountByID(ctx context.Context, id string) (auth.Account, error) {
	u, err := r.FindByID(ctx, id)
	if err != nil {
		return auth.Account{}, err
	}

	return accountFor(u), nil
}

func accountFor(u User) auth.Account {
	return auth.Account{
		ID:             u.ID,
		PhoneNumber:    u.PhoneNumber,
		PasswordHash:   u.PasswordHash,
		RoleID:         u.RoleID,
		Role:           u.Role,
		Active:         u.Active,
		HasSocialLogin: u.HasSocialLogin(),
	}
}
