package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/microfeed/microfeed/internal/domain"
)

type ProfileRepo struct {
	pool PgxPool
}

func NewProfileRepo(pool PgxPool) *ProfileRepo {
	return &ProfileRepo{pool: pool}
}

// GetByEmails performs one batched lookup for the given (already
// normalized) emails.
func (r *ProfileRepo) GetByEmails(ctx context.Context, emails []string) ([]domain.Profile, error) {
	query := `
		SELECT email, name, bio, avatar_url, created_at, updated_at
		FROM profiles
		WHERE email = ANY($1)`
	rows, err := r.pool.Query(ctx, query, emails)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func (r *ProfileRepo) Upsert(ctx context.Context, profile *domain.Profile) error {
	profile.Email = domain.NormalizeEmail(profile.Email)
	query := `
		INSERT INTO profiles (email, name, bio, avatar_url, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE
		SET name = $2, bio = $3, avatar_url = $4, updated_at = $5`
	_, err := r.pool.Exec(ctx, query,
		profile.Email, profile.Name, profile.Bio, profile.AvatarRef, time.Now(),
	)
	return err
}

func (r *ProfileRepo) Delete(ctx context.Context, email string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM profiles WHERE email = $1`, domain.NormalizeEmail(email))
	return err
}

func scanProfiles(rows pgx.Rows) ([]domain.Profile, error) {
	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(
			&p.Email, &p.Name, &p.Bio, &p.AvatarRef, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}
