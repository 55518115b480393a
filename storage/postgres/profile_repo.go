package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"tandem/pkg/logger"
	"tandem/pkg/models"
	"tandem/storage"
)

type profileRepo struct {
	db  *pgxpool.Pool
	log logger.ILogger
}

func NewProfileRepo(db *pgxpool.Pool, log logger.ILogger) storage.IProfileStorage {
	return &profileRepo{db: db, log: log}
}

const profileColumns = `id, email, name, postcode, children, photo_consent, school, created_at, updated_at`

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var (
		p        models.Profile
		children []byte
	)
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.Postcode, &children, &p.PhotoConsent, &p.School, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(children) > 0 {
		if err := json.Unmarshal(children, &p.Children); err != nil {
			return nil, errors.Wrap(err, "decode children")
		}
	}
	return &p, nil
}

func (r *profileRepo) Get(ctx context.Context, id string) (*models.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	p, err := scanProfile(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.log.Error("failed to get profile", logger.String("id", id), logger.Error(err))
		return nil, err
	}
	return p, nil
}

func (r *profileRepo) Upsert(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	children := profile.Children
	if children == nil {
		children = []models.Child{}
	}
	childrenJSON, err := json.Marshal(children)
	if err != nil {
		return nil, errors.Wrap(err, "encode children")
	}

	query := `
		INSERT INTO profiles (id, email, name, postcode, children, photo_consent, school)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email,
			name = EXCLUDED.name,
			postcode = EXCLUDED.postcode,
			children = EXCLUDED.children,
			photo_consent = EXCLUDED.photo_consent,
			school = EXCLUDED.school,
			updated_at = NOW()
		RETURNING ` + profileColumns
	p, err := scanProfile(r.db.QueryRow(ctx, query,
		profile.ID, profile.Email, profile.Name, profile.Postcode, childrenJSON, profile.PhotoConsent, profile.School,
	))
	if err != nil {
		r.log.Error("failed to upsert profile", logger.String("id", profile.ID), logger.Error(err))
		return nil, err
	}
	return p, nil
}
