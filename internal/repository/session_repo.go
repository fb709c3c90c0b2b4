package repository

import "context"

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

// Issue stores a fresh token for the user and prunes the oldest sessions
// beyond maxSessions in the same statement. With the default policy of one
// session per user this replaces whatever row the user had.
func (r *SessionRepository) Issue(ctx context.Context, userID int64, token string, maxSessions int) error {
	if maxSessions < 1 {
		maxSessions = 1
	}
	_, err := r.db.Exec(ctx, `
		WITH pruned AS (
			DELETE FROM sessions
			WHERE user_id = $2
			  AND token IN (
				SELECT token FROM sessions
				WHERE user_id = $2
				ORDER BY created_at DESC
				OFFSET $3
			  )
		)
		INSERT INTO sessions (token, user_id)
		VALUES ($1, $2)
	`, token, userID, maxSessions-1)
	return err
}

// Resolve maps a bearer token to the owning user id. Returns pgx.ErrNoRows
// for tokens with no session row.
func (r *SessionRepository) Resolve(ctx context.Context, token string) (int64, error) {
	var userID int64
	err := r.db.QueryRow(ctx, `
		SELECT user_id FROM sessions WHERE token = $1
	`, token).Scan(&userID)
	if err != nil {
		return 0, err
	}
	return userID, nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}
