package local

import (
	"context"

	"tandem/pkg/models"
)

type profileRepo struct {
	s *Store
}

func (r *profileRepo) Get(ctx context.Context, id string) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	profiles := map[string]*models.Profile{}
	if _, err := r.s.load(ctx, keyProfiles, &profiles); err != nil {
		return nil, err
	}
	return profiles[id], nil
}

func (r *profileRepo) Upsert(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	profiles := map[string]*models.Profile{}
	if _, err := r.s.load(ctx, keyProfiles, &profiles); err != nil {
		return nil, err
	}

	now := r.s.now().UTC()
	p := *profile
	if prev, ok := profiles[p.ID]; ok && prev.CreatedAt != nil {
		p.CreatedAt = prev.CreatedAt
	} else {
		p.CreatedAt = &now
	}
	p.UpdatedAt = &now
	profiles[p.ID] = &p

	if err := r.s.save(ctx, keyProfiles, profiles); err != nil {
		return nil, err
	}
	return &p, nil
}
