package repository

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ekinaydin/intrachat/internal/models"
)

type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash, is_admin)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	return r.db.QueryRow(ctx, query, user.Username, nullable(user.Email), user.PasswordHash, user.IsAdmin).
		Scan(&user.ID)
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, profile_image, is_admin
		FROM users
		WHERE id = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, profile_image, is_admin
		FROM users
		WHERE username = $1
	`
	return r.scanUser(r.db.QueryRow(ctx, query, username))
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	query := `
		SELECT id, username, email, password_hash, profile_image, is_admin
		FROM users
		ORDER BY id ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

type UpdateUserInput struct {
	Username     string
	Email        string
	ProfileImage string
	PasswordHash string
	IsAdmin      bool
}

func (r *UserRepository) Update(ctx context.Context, id int64, input UpdateUserInput) error {
	if input.PasswordHash != "" {
		_, err := r.db.Exec(ctx, `
			UPDATE users
			SET username = $2, email = $3, profile_image = $4, password_hash = $5, is_admin = $6
			WHERE id = $1
		`, id, input.Username, nullable(input.Email), nullable(input.ProfileImage), input.PasswordHash, input.IsAdmin)
		return err
	}

	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET username = $2, email = $3, profile_image = $4, is_admin = $5
		WHERE id = $1
	`, id, input.Username, nullable(input.Email), nullable(input.ProfileImage), input.IsAdmin)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}

func (r *UserRepository) scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	var email, profileImage sql.NullString
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&email,
		&user.PasswordHash,
		&profileImage,
		&user.IsAdmin,
	); err != nil {
		return nil, err
	}

	user.Email = email.String
	user.ProfileImage = profileImage.String
	if user.ProfileImage == "" {
		user.ProfileImage = models.DefaultProfileImage
	}
	return &user, nil
}

func nullable(value string) any {
	if value == "" {
		return nil
	}
	return value
}
