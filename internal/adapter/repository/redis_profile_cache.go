package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"matchchat/internal/domain/entity"
	"matchchat/internal/domain/repository"
	"matchchat/pkg/logger"
)

// cachedProfileRepository fronts a ProfileRepository with a shared Redis cache
// under user:{id}:profile. Redis failures fall through to the backing store.
type cachedProfileRepository struct {
	next   repository.ProfileRepository
	client *goredis.Client
	ttl    time.Duration
}

func NewCachedProfileRepository(next repository.ProfileRepository, client *goredis.Client, ttl time.Duration) repository.ProfileRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &cachedProfileRepository{
		next:   next,
		client: client,
		ttl:    ttl,
	}
}

func profileCacheKey(userID string) string {
	return fmt.Sprintf("user:%s:profile", userID)
}

func (r *cachedProfileRepository) GetProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	key := profileCacheKey(userID)

	data, err := r.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var profile entity.Profile
		if err := json.Unmarshal(data, &profile); err == nil {
			profile.UserID = userID
			return &profile, nil
		}
		logger.Warn("Discarding corrupt cached profile for %s", userID)
	case err != goredis.Nil:
		logger.Warn("Profile cache read failed for %s: %v", userID, err)
	}

	profile, err := r.next.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(profile); err == nil {
		if err := r.client.Set(ctx, key, encoded, r.ttl).Err(); err != nil {
			logger.Warn("Profile cache write failed for %s: %v", userID, err)
		}
	}
	return profile, nil
}
