package vault

import (
	"fmt"

	"github.com/tori/consolidation/internal/config"
)

// NewStore creates the Store backend named by cfg.Backend, mirroring the
// selection pattern of internal/reputation/factory.go.
func NewStore(cfg config.VaultConfig) (Store, error) {
	switch cfg.Backend {
	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("vault: postgres backend requires postgres_dsn")
		}
		return NewPostgresStore(cfg.PostgresDSN)

	case "spanner":
		if cfg.SpannerProject == "" || cfg.SpannerInstance == "" || cfg.SpannerDatabase == "" {
			return nil, fmt.Errorf("vault: spanner backend requires spanner_project, spanner_instance and spanner_database")
		}
		return NewSpannerStore(cfg.SpannerProject, cfg.SpannerInstance, cfg.SpannerDatabase)

	case "supabase":
		return NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey)

	case "memory", "":
		if cfg.WALPath != "" {
			return OpenWALStore(cfg.WALPath, cfg.MaxEpisodes, cfg.MaxBytes, cfg.EpisodeSizeLimit)
		}
		return NewMemStore(cfg.MaxEpisodes, cfg.MaxBytes, cfg.EpisodeSizeLimit), nil

	default:
		return nil, fmt.Errorf("vault: unknown backend %q", cfg.Backend)
	}
}
