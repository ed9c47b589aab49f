package repository

import (
	"context"

	"matchchat/internal/domain/entity"
)

type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*entity.Profile, error)
}
