package formoptions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/scherkao31/dentseq-data-sub000/internal/domain/taxonomy"
	"github.com/scherkao31/dentseq-data-sub000/internal/platform/cache"
)

// ErrValidation wraps customization documents that cannot be saved.
var ErrValidation = errors.New("invalid form options")

const cacheKey = "form_options:merged"

var builtinCatalog = taxonomy.Default()

type Service struct {
	repo  Repository
	cache cache.JSON
	ttl   time.Duration
	log   zerolog.Logger
}

// NewService builds the provider. A nil cache disables caching.
func NewService(repo Repository, c cache.JSON, ttl time.Duration, log zerolog.Logger) *Service {
	return &Service{repo: repo, cache: c, ttl: ttl, log: log.With().Str("component", "formoptions").Logger()}
}

// Get returns the builtin defaults merged with the stored customizations.
// Cache failures are logged and fall through to the store.
func (s *Service) Get(ctx context.Context) (*Config, error) {
	if s.cache != nil {
		var cfg Config
		ok, err := s.cache.Get(ctx, cacheKey, &cfg)
		if err != nil {
			s.log.Warn().Err(err).Msg("form options cache read failed")
		} else if ok {
			return &cfg, nil
		}
	}

	stored, err := s.repo.Get(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("load form options failed")
		return nil, fmt.Errorf("load form options: %w", err)
	}
	cfg := Merge(Defaults(), stored)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, cfg, s.ttl); err != nil {
			s.log.Warn().Err(err).Msg("form options cache write failed")
		}
	}
	return cfg, nil
}

// Save validates and persists a customization document, then invalidates
// the cache. It returns the merged result.
func (s *Service) Save(ctx context.Context, cfg *Config, updatedBy string) (*Config, error) {
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if err := s.repo.Put(ctx, cfg, updatedBy); err != nil {
		s.log.Error().Err(err).Msg("save form options failed")
		return nil, fmt.Errorf("save form options: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, cacheKey); err != nil {
			s.log.Warn().Err(err).Msg("form options cache invalidation failed")
		}
	}
	s.log.Info().Str("updated_by", updatedBy).Int("treatments", len(cfg.Treatments)).Msg("form options updated")
	return Merge(Defaults(), cfg), nil
}

// Catalog returns the treatment lookup for the editing model.
func (s *Service) Catalog(ctx context.Context) (taxonomy.Lookup, error) {
	cfg, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Catalog(), nil
}

// Validate checks a customization document: values must be non-empty and
// unique per list, treatment categories must be known and durations positive.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: empty document", ErrValidation)
	}
	seen := map[string]bool{}
	for i, t := range cfg.Treatments {
		v := strings.TrimSpace(t.Value)
		if v == "" {
			return fmt.Errorf("%w: treatments[%d]: value is required", ErrValidation, i)
		}
		if seen[strings.ToLower(v)] {
			return fmt.Errorf("%w: treatments: duplicate value %q", ErrValidation, v)
		}
		seen[strings.ToLower(v)] = true
		if t.Category != "" && !taxonomy.ValidCategory(t.Category) {
			return fmt.Errorf("%w: treatments[%d]: invalid category %q", ErrValidation, i, t.Category)
		}
		if t.DefaultDuration < 0 {
			return fmt.Errorf("%w: treatments[%d]: default_duration must be positive", ErrValidation, i)
		}
		if _, builtin := builtinCatalog.Lookup(v); !builtin {
			if t.Category == "" {
				return fmt.Errorf("%w: treatments[%d]: category is required for custom treatments", ErrValidation, i)
			}
			if t.DefaultDuration == 0 {
				return fmt.Errorf("%w: treatments[%d]: default_duration must be positive", ErrValidation, i)
			}
			if strings.TrimSpace(t.Label) == "" {
				return fmt.Errorf("%w: treatments[%d]: label is required for custom treatments", ErrValidation, i)
			}
		}
	}
	if err := validateOptions("appointment_types", cfg.AppointmentTypes); err != nil {
		return err
	}
	return validateOptions("delay_reasons", cfg.DelayReasons)
}

func validateOptions(list string, opts []Option) error {
	seen := map[string]bool{}
	for i, o := range opts {
		v := strings.TrimSpace(o.Value)
		if v == "" {
			return fmt.Errorf("%w: %s[%d]: value is required", ErrValidation, list, i)
		}
		if seen[v] {
			return fmt.Errorf("%w: %s: duplicate value %q", ErrValidation, list, v)
		}
		seen[v] = true
	}
	return nil
}
