package user

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL profile repository.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateProfile(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (id, email, role, full_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, query, p.ID, p.Email, p.Role, p.FullName, p.PasswordHash)
	return err
}

func (r *postgresRepository) GetProfileByEmail(ctx context.Context, email string) (*Profile, error) {
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, email, role, full_name, password_hash, created_at, updated_at
		FROM profiles
		WHERE email = $1`, email))
}

func (r *postgresRepository) GetProfileByID(ctx context.Context, id string) (*Profile, error) {
	parsedID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	return r.scanOne(r.db.QueryRowContext(ctx, `
		SELECT id, email, role, full_name, password_hash, created_at, updated_at
		FROM profiles
		WHERE id = $1`, parsedID))
}

func (r *postgresRepository) ListProfiles(ctx context.Context) ([]*Profile, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, role, full_name, password_hash, created_at, updated_at
		FROM profiles
		ORDER BY email ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		p := &Profile{}
		var fullName sql.NullString
		if err := rows.Scan(&p.ID, &p.Email, &p.Role, &fullName, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.FullName = fullName.String
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (r *postgresRepository) scanOne(row *sql.Row) (*Profile, error) {
	p := &Profile{}
	var fullName sql.NullString
	err := row.Scan(&p.ID, &p.Email, &p.Role, &fullName, &p.PasswordHash, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.FullName = fullName.String
	return p, nil
}
