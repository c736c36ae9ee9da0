package formoptions

import "context"

// Repository stores the customization document.
type Repository interface {
	// Get returns the stored document, or nil when none has been saved.
	Get(ctx context.Context) (*Config, error)
	Put(ctx context.Context, cfg *Config, updatedBy string) error
}
