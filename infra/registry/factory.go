package registry

import (
	"context"
	"fmt"

	"github.com/kilianp07/outagewatch/core/logger"
	"github.com/kilianp07/outagewatch/core/model"
	coreregistry "github.com/kilianp07/outagewatch/core/registry"
)

// Config selects the registry backend.
type Config struct {
	// Backend is "memory", "sqlite" or "postgres".
	Backend string `json:"backend"`
	DSN     string `json:"dsn"`
	// SeedFile is loaded at startup. With a SQL backend the profiles are
	// upserted into the database.
	SeedFile string `json:"seed_file"`
}

// SetDefaults applies the memory backend when none is set.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "memory"
	}
}

// Validate checks the backend settings.
func (c Config) Validate() error {
	switch c.Backend {
	case "memory":
		return nil
	case "sqlite", "postgres":
		if c.DSN == "" {
			return fmt.Errorf("registry: dsn is required for %s", c.Backend)
		}
		return nil
	default:
		return fmt.Errorf("registry: unknown backend %s", c.Backend)
	}
}

// New builds the configured store. The returned close function releases the
// database handle, if any.
func New(ctx context.Context, cfg Config, log logger.Logger) (coreregistry.Store, func() error, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	var seed []model.FacilityProfile
	if cfg.SeedFile != "" {
		var err error
		if seed, err = LoadSeedFile(cfg.SeedFile); err != nil {
			return nil, nil, err
		}
	}
	if cfg.Backend == "memory" {
		mem := coreregistry.NewMemoryStore()
		if err := mem.Replace(seed); err != nil {
			return nil, nil, err
		}
		return mem, func() error { return nil }, nil
	}
	db, err := Open(ctx, Dialect(cfg.Backend), cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetLogger(log)
	for _, p := range seed {
		if err := db.Upsert(ctx, p); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
	}
	store, err := NewSyncedStore(ctx, db, log)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}
