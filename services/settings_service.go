package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"emberAPI/internal/docstore"
	"emberAPI/internal/settings"
	"emberAPI/utils"
)

type SettingsService struct {
	store    docstore.Settings
	now      func() time.Time
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewSettingsService(store docstore.Store, logger zerolog.Logger) *SettingsService {
	return &SettingsService{
		store:    store.Settings(),
		now:      utils.NowUTC,
		validate: newValidator(),
		logger:   logger.With().Str("component", "settings_service").Logger(),
	}
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// GetOrCreate returns the settings singleton, inserting the defaults on first
// access. Losing a concurrent create falls back to reading the winner.
func (s *SettingsService) GetOrCreate(ctx context.Context) (*settings.UserSettings, error) {
	existing, err := s.store.Find(ctx)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	now := s.now()
	defaults := &settings.UserSettings{
		ID:             uuid.New().String(),
		DailyLimit:     settings.DefaultDailyLimit,
		CigarettePrice: settings.DefaultCigarettePrice,
		Currency:       settings.DefaultCurrency,
		SoundEnabled:   false,
		DelayDuration:  settings.DefaultDelayDuration,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.store.Insert(ctx, defaults)
	if err == nil {
		s.logger.Info().Str("id", defaults.ID).Msg("created default settings")
		return defaults, nil
	}
	if !errors.Is(err, docstore.ErrDuplicate) {
		return nil, fmt.Errorf("failed to create settings: %w", err)
	}

	existing, err = s.store.Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}
	return existing, nil
}

// Validate checks the provided fields of req. Omitted fields are not checked.
func (s *SettingsService) Validate(req *settings.UpdateSettingsRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate settings: %w", err)
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "alpha":
		return "must contain letters only"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// Update applies only the fields present in req and always refreshes
// updated_at. It returns the full settings document.
func (s *SettingsService) Update(ctx context.Context, req *settings.UpdateSettingsRequest) (*settings.UserSettings, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	if req.Currency != nil {
		currency := strings.ToUpper(*req.Currency)
		req.Currency = &currency
	}

	if _, err := s.GetOrCreate(ctx); err != nil {
		return nil, err
	}

	updated, err := s.store.Update(ctx, req, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	return updated, nil
}
