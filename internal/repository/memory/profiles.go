package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
)

type profileRepository struct {
	sess *session
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	return r.sess.write(ctx, func(d *dataset) error {
		if _, ok := d.profiles[profile.ID]; ok {
			return repository.ErrProfileAlreadyExists
		}
		email := strings.ToLower(profile.Email)
		for _, existing := range d.profiles {
			if existing.Email == email {
				return repository.ErrProfileAlreadyExists
			}
		}
		stored := *profile
		stored.Email = email
		d.profiles[profile.ID] = &stored
		return nil
	})
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	return r.sess.write(ctx, func(d *dataset) error {
		existing, ok := d.profiles[profile.ID]
		if !ok {
			return repository.ErrProfileNotFound
		}
		existing.FullName = profile.FullName
		existing.Phone = profile.Phone
		existing.IsAdmin = profile.IsAdmin
		existing.PasswordHash = profile.PasswordHash
		existing.UpdatedAt = profile.UpdatedAt
		return nil
	})
}

func (r *profileRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var profile *domain.Profile
	err := r.sess.read(ctx, func(d *dataset) error {
		existing, ok := d.profiles[id]
		if !ok {
			return repository.ErrProfileNotFound
		}
		cp := *existing
		profile = &cp
		return nil
	})
	return profile, err
}

func (r *profileRepository) FindByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	email = strings.ToLower(email)

	var profile *domain.Profile
	err := r.sess.read(ctx, func(d *dataset) error {
		for _, existing := range d.profiles {
			if existing.Email == email {
				cp := *existing
				profile = &cp
				return nil
			}
		}
		return repository.ErrProfileNotFound
	})
	return profile, err
}

func (r *profileRepository) Find(ctx context.Context) ([]*domain.Profile, error) {
	profiles := []*domain.Profile{}
	err := r.sess.read(ctx, func(d *dataset) error {
		for _, existing := range d.profiles {
			cp := *existing
			profiles = append(profiles, &cp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].CreatedAt.After(profiles[j].CreatedAt)
	})
	return profiles, nil
}

type refreshTokenRepository struct {
	sess *session
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	return r.sess.write(ctx, func(d *dataset) error {
		if _, ok := d.profiles[token.UserID]; !ok {
			return fmt.Errorf("failed to create refresh token: %w", repository.ErrProfileNotFound)
		}
		if _, ok := d.tokens[token.Token]; ok {
			return fmt.Errorf("failed to create refresh token: %w", domain.ErrConflict)
		}
		stored := *token
		d.tokens[token.Token] = &stored
		return nil
	})
}

func (r *refreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	var found *domain.RefreshToken
	err := r.sess.read(ctx, func(d *dataset) error {
		existing, ok := d.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		if existing.Revoked {
			return repository.ErrRefreshTokenRevoked
		}
		cp := *existing
		found = &cp
		return nil
	})
	return found, err
}

func (r *refreshTokenRepository) Revoke(ctx context.Context, token string) error {
	return r.sess.write(ctx, func(d *dataset) error {
		existing, ok := d.tokens[token]
		if !ok {
			return repository.ErrRefreshTokenNotFound
		}
		existing.Revoked = true
		return nil
	})
}
