package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/prok/internal/model"
)

var ErrProfileNotFound = errors.New("profile not found")

// Repository stores profiles together with their skills, experiences and educations.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// GetByUserID retrieves the profile of a user with all sub-entities.
func (r *Repository) GetByUserID(ctx context.Context, userID uuid.UUID) (model.Profile, error) {
	query := `
		SELECT id, user_id, full_name, headline, summary, about, location, email,
		       profile_image, profile_thumbnail
		FROM profiles
		WHERE user_id = $1
    `

	var p model.Profile
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&p.ID, &p.UserID, &p.FullName, &p.Headline, &p.Summary, &p.About, &p.Location, &p.Email,
		&p.ProfileImage, &p.ProfileThumbnail,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Profile{}, ErrProfileNotFound
		}

		return model.Profile{}, fmt.Errorf("get: failed to get profile: %w", err)
	}

	if p.Skills, err = r.skills(ctx, p.ID); err != nil {
		return model.Profile{}, err
	}
	if p.Experiences, err = r.experiences(ctx, p.ID); err != nil {
		return model.Profile{}, err
	}
	if p.Educations, err = r.educations(ctx, p.ID); err != nil {
		return model.Profile{}, err
	}

	return p, nil
}

// Upsert creates or updates the text fields of a profile and replaces its
// skills, experiences and educations. Image names are left untouched.
func (r *Repository) Upsert(ctx context.Context, p model.Profile) (uuid.UUID, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert: failed to begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO profiles (user_id, full_name, headline, summary, about, location, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE
		SET full_name = EXCLUDED.full_name,
		    headline = EXCLUDED.headline,
		    summary = EXCLUDED.summary,
		    about = EXCLUDED.about,
		    location = EXCLUDED.location,
		    email = EXCLUDED.email,
		    updated_at = NOW()
		RETURNING id
    `

	var id uuid.UUID
	err = tx.QueryRowContext(
		ctx, query, p.UserID, p.FullName, p.Headline, p.Summary, p.About, p.Location, p.Email,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert: failed to save profile: %w", err)
	}

	for _, table := range []string{"skills", "experiences", "educations"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE profile_id = $1", id); err != nil {
			return uuid.Nil, fmt.Errorf("upsert: failed to clear %s: %w", table, err)
		}
	}

	for _, s := range p.Skills {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO skills (profile_id, name) VALUES ($1, $2)`, id, s,
		); err != nil {
			return uuid.Nil, fmt.Errorf("upsert: failed to save skill: %w", err)
		}
	}

	for _, e := range p.Experiences {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO experiences (profile_id, title, company, location, start_date, end_date, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, e.Title, e.Company, e.Location, e.StartDate, e.EndDate, e.Description,
		); err != nil {
			return uuid.Nil, fmt.Errorf("upsert: failed to save experience: %w", err)
		}
	}

	for _, e := range p.Educations {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO educations (profile_id, school, degree, field_of_study, start_year, end_year, description)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, e.School, e.Degree, e.FieldOfStudy, e.StartYear, e.EndYear, e.Description,
		); err != nil {
			return uuid.Nil, fmt.Errorf("upsert: failed to save education: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, fmt.Errorf("upsert: failed to commit: %w", err)
	}

	return id, nil
}

// SetImage stores new image names on the user's profile, creating an empty
// profile if none exists, and returns the names it replaced.
func (r *Repository) SetImage(ctx context.Context, userID uuid.UUID, image, thumbnail string) (oldImage, oldThumbnail string, err error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return "", "", fmt.Errorf("set image: failed to begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	err = tx.QueryRowContext(ctx, `
		SELECT profile_image, profile_thumbnail FROM profiles WHERE user_id = $1 FOR UPDATE`,
		userID,
	).Scan(&oldImage, &oldThumbnail)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", "", fmt.Errorf("set image: failed to read profile: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO profiles (user_id, profile_image, profile_thumbnail)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET profile_image = EXCLUDED.profile_image,
		    profile_thumbnail = EXCLUDED.profile_thumbnail,
		    updated_at = NOW()`,
		userID, image, thumbnail,
	)
	if err != nil {
		return "", "", fmt.Errorf("set image: failed to update profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", "", fmt.Errorf("set image: failed to commit: %w", err)
	}

	return oldImage, oldThumbnail, nil
}

func (r *Repository) skills(ctx context.Context, profileID uuid.UUID) ([]string, error) {
	rows, err := r.db.Master.QueryContext(ctx,
		`SELECT name FROM skills WHERE profile_id = $1 ORDER BY name`, profileID)
	if err != nil {
		return nil, fmt.Errorf("get: failed to query skills: %w", err)
	}
	defer rows.Close()

	skills := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("get: failed to scan skill: %w", err)
		}
		skills = append(skills, s)
	}

	return skills, rows.Err()
}

func (r *Repository) experiences(ctx context.Context, profileID uuid.UUID) ([]model.Experience, error) {
	rows, err := r.db.Master.QueryContext(ctx, `
		SELECT id, title, company, location, start_date, end_date, description
		FROM experiences
		WHERE profile_id = $1
		ORDER BY start_date DESC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("get: failed to query experiences: %w", err)
	}
	defer rows.Close()

	list := []model.Experience{}
	for rows.Next() {
		var e model.Experience
		if err := rows.Scan(&e.ID, &e.Title, &e.Company, &e.Location, &e.StartDate, &e.EndDate, &e.Description); err != nil {
			return nil, fmt.Errorf("get: failed to scan experience: %w", err)
		}
		list = append(list, e)
	}

	return list, rows.Err()
}

func (r *Repository) educations(ctx context.Context, profileID uuid.UUID) ([]model.Education, error) {
	rows, err := r.db.Master.QueryContext(ctx, `
		SELECT id, school, degree, field_of_study, start_year, end_year, description
		FROM educations
		WHERE profile_id = $1
		ORDER BY start_year DESC NULLS LAST`, profileID)
	if err != nil {
		return nil, fmt.Errorf("get: failed to query educations: %w", err)
	}
	defer rows.Close()

	list := []model.Education{}
	for rows.Next() {
		var e model.Education
		if err := rows.Scan(&e.ID, &e.School, &e.Degree, &e.FieldOfStudy, &e.StartYear, &e.EndYear, &e.Description); err != nil {
			return nil, fmt.Errorf("get: failed to scan education: %w", err)
		}
		list = append(list, e)
	}

	return list, rows.Err()
}
