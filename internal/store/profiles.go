package store

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/sitelore/evolvd/internal/kv"
	"github.com/sitelore/evolvd/pkg/models"
)

// ProfileStore owns the per-user preference profiles.
type ProfileStore struct {
	kv     kv.Store
	logger zerolog.Logger
}

// NewProfileStore creates a profile store over the given backend.
func NewProfileStore(backend kv.Store, logger zerolog.Logger) *ProfileStore {
	return &ProfileStore{
		kv:     backend,
		logger: logger.With().Str("component", "profile-store").Logger(),
	}
}

// GetProfile returns the profile for userID, or ErrProfileNotFound.
func (s *ProfileStore) GetProfile(ctx context.Context, userID string) (*models.UserPreferenceProfile, error) {
	data, err := s.kv.Get(ctx, profileKey(userID))
	if err == kv.ErrKeyNotFound {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load profile %q: %w", userID, err)
	}

	var profile models.UserPreferenceProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("decode profile %q: %w", userID, err)
	}
	return &profile, nil
}

// GetOrCreateProfile returns the profile for userID, lazily creating one
// with default preferences on first reference.
func (s *ProfileStore) GetOrCreateProfile(ctx context.Context, userID string) (*models.UserPreferenceProfile, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err == nil {
		return profile, nil
	}
	if err != ErrProfileNotFound {
		return nil, err
	}

	profile = models.NewUserPreferenceProfile(userID)
	if err := s.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Debug().Str("user_id", userID).Msg("Preference profile created")
	return profile, nil
}

// SaveProfile persists the profile. Profiles never expire.
func (s *ProfileStore) SaveProfile(ctx context.Context, profile *models.UserPreferenceProfile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile %q: %w", profile.UserID, err)
	}
	if err := s.kv.Set(ctx, profileKey(profile.UserID), data, 0); err != nil {
		return fmt.Errorf("save profile %q: %w", profile.UserID, err)
	}
	return nil
}
