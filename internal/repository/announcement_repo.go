package repository

import (
	"context"
	"database/sql"

	"github.com/ekinaydin/intrachat/internal/models"
)

type AnnouncementRepository struct {
	db DBTX
}

func NewAnnouncementRepository(db DBTX) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

func (r *AnnouncementRepository) Create(
	ctx context.Context,
	userID int64,
	title string,
	content string,
) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO announcements (user_id, title, content)
		VALUES ($1, $2, $3)
		RETURNING id
	`, userID, title, content).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// List returns every announcement with its author joined in, newest first.
// The author is nil when the posting user has since been deleted.
func (r *AnnouncementRepository) List(ctx context.Context) ([]models.Announcement, error) {
	query := `
		SELECT a.id, a.title, a.content, a.created_at,
		       u.id, u.username, u.email, u.profile_image
		FROM announcements a
		LEFT JOIN users u ON a.user_id = u.id
		ORDER BY a.created_at DESC, a.id DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	announcements := make([]models.Announcement, 0)
	for rows.Next() {
		var announcement models.Announcement
		var authorID sql.NullInt64
		var username, email, profileImage sql.NullString

		if err := rows.Scan(
			&announcement.ID,
			&announcement.Title,
			&announcement.Content,
			&announcement.CreatedAt,
			&authorID,
			&username,
			&email,
			&profileImage,
		); err != nil {
			return nil, err
		}

		if authorID.Valid {
			author := &models.AnnouncementAuthor{
				ID:           authorID.Int64,
				Username:     username.String,
				Email:        email.String,
				ProfileImage: profileImage.String,
			}
			if author.ProfileImage == "" {
				author.ProfileImage = models.DefaultProfileImage
			}
			announcement.Author = author
		}

		announcements = append(announcements, announcement)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return announcements, nil
}

// Update edits an announcement in place. Reports whether a row matched.
func (r *AnnouncementRepository) Update(
	ctx context.Context,
	id int64,
	title string,
	content string,
) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE announcements
		SET title = $2, content = $3
		WHERE id = $1
	`, id, title, content)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *AnnouncementRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM announcements WHERE id = $1`, id)
	return err
}
