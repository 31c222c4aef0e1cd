package service

import (
	"context"

	"github.com/noah-isme/smk-student-hub/internal/models"
	appErrors "github.com/noah-isme/smk-student-hub/pkg/errors"
)

// PreferenceService stores UI preferences shared by every session.
type PreferenceService struct {
	state *StateService
}

// NewPreferenceService constructs the preference service.
func NewPreferenceService(state *StateService) *PreferenceService {
	return &PreferenceService{state: state}
}

// Theme returns the stored theme, light when unset or unreadable.
func (s *PreferenceService) Theme(ctx context.Context) (models.Theme, error) {
	theme, _, err := Load(ctx, s.state, models.KeyTheme, models.ThemeLight)
	if err != nil {
		return models.ThemeLight, err
	}
	if !theme.Valid() {
		return models.ThemeLight, nil
	}
	return theme, nil
}

// SetTheme persists the theme.
func (s *PreferenceService) SetTheme(ctx context.Context, theme models.Theme) (models.Theme, error) {
	if !theme.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, "theme must be light or dark")
	}
	if _, err := s.state.Save(ctx, models.KeyTheme, theme, models.AnyVersion); err != nil {
		return "", err
	}
	return theme, nil
}
