package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"chat-app/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateEmail  = errors.New("email already exists")
	ErrDuplicateMobile = errors.New("mobile already exists")
)

const uniqueViolation = "23505"

// UserRepository abstracts account persistence.
type UserRepository interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	GetByID(ctx context.Context, userID int) (models.User, error)
	FindByLogin(ctx context.Context, emailOrMobile string) (models.User, error)
	List(ctx context.Context, search string, includeInactive bool) ([]models.User, error)
	Update(ctx context.Context, user models.User) (models.User, error)
	UpdateProfilePic(ctx context.Context, userID int, url string) (models.User, error)
	Deactivate(ctx context.Context, userID int) (models.User, error)
	Delete(ctx context.Context, userID int) error
}

// UserRepo is a sqlx implementation of UserRepository.
type UserRepo struct {
	db *sqlx.DB
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

const (
	publicUserColumns = `id, full_name, email, mobile, role, profile_pic, is_active, created_at, updated_at`
	userColumns       = publicUserColumns + `, password_hash`
)

// Create inserts a user and returns the stored row.
func (r *UserRepo) Create(ctx context.Context, user models.User) (models.User, error) {
	var created models.User
	err := r.db.QueryRowxContext(ctx, `INSERT INTO users (full_name, email, mobile, password_hash, role)
        VALUES ($1, $2, $3, $4, $5) RETURNING `+publicUserColumns,
		user.FullName, user.Email, user.Mobile, user.PasswordHash, user.Role).StructScan(&created)
	if err != nil {
		return models.User{}, mapUniqueViolation(err)
	}
	return created, nil
}

// GetByID fetches a user by id, active or not.
func (r *UserRepo) GetByID(ctx context.Context, userID int) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+publicUserColumns+` FROM users WHERE id=$1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// FindByLogin looks a user up by email or mobile, including the password hash.
func (r *UserRepo) FindByLogin(ctx context.Context, emailOrMobile string) (models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `SELECT `+userColumns+` FROM users WHERE email=$1 OR mobile=$1 LIMIT 1`, emailOrMobile)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return user, err
}

// List returns users newest first, optionally filtered by a case-insensitive
// search over name and email.
func (r *UserRepo) List(ctx context.Context, search string, includeInactive bool) ([]models.User, error) {
	var (
		where []string
		args  []interface{}
	)
	if !includeInactive {
		where = append(where, "is_active = TRUE")
	}
	if search = strings.TrimSpace(search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, "(full_name ILIKE $1 OR email ILIKE $1)")
	}

	query := `SELECT ` + publicUserColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	users := []models.User{}
	err := r.db.SelectContext(ctx, &users, query, args...)
	return users, err
}

// Update replaces the editable profile fields of a user.
func (r *UserRepo) Update(ctx context.Context, user models.User) (models.User, error) {
	var updated models.User
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET full_name=$2, email=$3, mobile=$4, role=$5, updated_at=NOW()
        WHERE id=$1 RETURNING `+publicUserColumns,
		user.ID, user.FullName, user.Email, user.Mobile, user.Role).StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, mapUniqueViolation(err)
	}
	return updated, nil
}

// UpdateProfilePic stores a new avatar URL.
func (r *UserRepo) UpdateProfilePic(ctx context.Context, userID int, url string) (models.User, error) {
	var updated models.User
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET profile_pic=$2, updated_at=NOW() WHERE id=$1 RETURNING `+publicUserColumns, userID, url).
		StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return updated, err
}

// Deactivate soft-deletes a user.
func (r *UserRepo) Deactivate(ctx context.Context, userID int) (models.User, error) {
	var updated models.User
	err := r.db.QueryRowxContext(ctx, `UPDATE users SET is_active=FALSE, updated_at=NOW() WHERE id=$1 RETURNING `+publicUserColumns, userID).
		StructScan(&updated)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrUserNotFound
	}
	return updated, err
}

// Delete removes a user permanently. Messages keep their weak references.
func (r *UserRepo) Delete(ctx context.Context, userID int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, userID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "users_email_key":
		return ErrDuplicateEmail
	case "users_mobile_key":
		return ErrDuplicateMobile
	}
	return err
}
