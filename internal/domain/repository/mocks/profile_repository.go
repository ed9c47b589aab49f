package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"matchchat/internal/domain/entity"
)

type ProfileRepository struct {
	mock.Mock
}

func (m *ProfileRepository) GetProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	args := m.Called(ctx, userID)
	profile, _ := args.Get(0).(*entity.Profile)
	return profile, args.Error(1)
}
