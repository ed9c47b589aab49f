package repository

import (
	"context"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/errors"
)

type memoryProfileRepository struct {
	store *MemoryStore
}

func NewMemoryProfileRepository(store *MemoryStore) repository.ProfileRepository {
	return &memoryProfileRepository{store: store}
}

func (r *memoryProfileRepository) GetProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	profile, ok := s.profiles[userID]
	if !ok {
		return nil, errors.NotFound("Profile", nil)
	}
	p := *profile
	p.Photos = append([]string(nil), profile.Photos...)
	return &p, nil
}
