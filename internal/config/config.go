// Package config holds the tunables of the TORI consolidation pipeline:
// one YAML document with a section per service, environment-variable
// overrides, and sensible defaults matching spec.md's Recognized
// Configuration Options.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v2"
)

// Config is the root configuration document shared by all four services.
type Config struct {
	Bus       BusConfig       `yaml:"bus"`
	Vault     VaultConfig     `yaml:"vault"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Pruner    PrunerConfig    `yaml:"pruner"`
	Koopman   KoopmanConfig   `yaml:"koopman"`
	Oscillator OscillatorConfig `yaml:"oscillator"`
	Server    ServerConfig    `yaml:"server"`
	Peers     PeersConfig     `yaml:"peers"`
}

// PeersConfig names the RPC addresses each service dials to reach the
// others; the supervisor sets these (and each process's own
// server.rpc_addr) per child when it spawns V, S, P, K on one host.
type PeersConfig struct {
	VaultAddr     string `yaml:"vault_addr"`
	SchedulerAddr string `yaml:"scheduler_addr"`
	PrunerAddr    string `yaml:"pruner_addr"`
	KoopmanAddr   string `yaml:"koopman_addr"`
}

// ServerConfig controls the admin HTTP and RPC listeners common to all
// four services.
type ServerConfig struct {
	RPCAddr          string `yaml:"rpc_addr"`
	AdminAddr        string `yaml:"admin_addr"`
	ShutdownTimeout  int    `yaml:"shutdown_timeout_sec"`
	SpiffeSocketPath string `yaml:"spiffe_socket_path"`
	TrustDomain      string `yaml:"trust_domain"`
}

// BusConfig selects and configures the event bus backend.
type BusConfig struct {
	Backend        string `yaml:"backend"` // "memory", "redis", "gcp-pubsub"
	RedisAddr      string `yaml:"redis_addr"`
	GCPProjectID   string `yaml:"gcp_project_id"`
	GCPTopicPrefix string `yaml:"gcp_topic_prefix"`
	QueueCapacity  int    `yaml:"queue_capacity"`
}

// VaultConfig controls the EpisodicVault.
type VaultConfig struct {
	Backend            string `yaml:"backend"` // "memory", "postgres", "spanner", "supabase"
	MaxEpisodes        int    `yaml:"max_episodes"`
	MaxBytes           int64  `yaml:"max_bytes"`
	EpisodeSizeLimit   int    `yaml:"episode_size_limit"`
	WALPath            string `yaml:"wal_path"`
	PostgresDSN        string `yaml:"postgres_dsn"`
	SpannerProject     string `yaml:"spanner_project"`
	SpannerInstance    string `yaml:"spanner_instance"`
	SpannerDatabase    string `yaml:"spanner_database"`
	SupabaseURL        string `yaml:"supabase_url"`
	SupabaseServiceKey string `yaml:"supabase_service_key"`
}

// SchedulerConfig controls the SleepScheduler's annealed wake-sleep cycle.
type SchedulerConfig struct {
	AnnealT0           float64       `yaml:"anneal_t0"`
	AnnealAlpha        float64       `yaml:"anneal_alpha"`
	KAnneal            int           `yaml:"k_anneal"`
	MGibbs             int           `yaml:"m_gibbs"`
	LearningEta        float64       `yaml:"learning_eta"`
	WClip              float64       `yaml:"w_clip"`
	EnergyDriftEpsilon float64       `yaml:"energy_drift_epsilon"`
	WindowSize         int           `yaml:"window_size"`
	MaxFetchRetries    int           `yaml:"max_fetch_retries"`
	FetchBackoffBase   time.Duration `yaml:"fetch_backoff_base"`
}

// PrunerConfig controls the SparsePruner.
type PrunerConfig struct {
	L1Strength      float64       `yaml:"prune_l1_strength"`
	Threshold       float64       `yaml:"prune_threshold"`
	TargetSparsity  float64       `yaml:"target_sparsity"`
	RollbackWindow  time.Duration `yaml:"rollback_window"`
	QualityBudget   float64       `yaml:"quality_budget"`
	PruneInterval   time.Duration `yaml:"prune_interval"`
	SoftCap         float64       `yaml:"soft_cap"`
	MaxEdges        int           `yaml:"max_edges"`
	RetentionWindow time.Duration `yaml:"retention_window"`
}

// KoopmanConfig controls the KoopmanLearner's streaming DMD model.
type KoopmanConfig struct {
	Rank                          int     `yaml:"kcl_rank"`
	ModeMagFloor                  float64 `yaml:"mode_mag_floor"`
	L1Strength                    float64 `yaml:"kcl_l1_strength"`
	StabilityFloor                float64 `yaml:"stability_floor"`
	EigenMergeRadius              float64 `yaml:"eigen_merge_radius"`
	MergeCosThreshold             float64 `yaml:"merge_cos_threshold"`
	RefreshStride                 int     `yaml:"refresh_stride"`
	EvictionWindow                int     `yaml:"eviction_window"`
	SparsityCap                   int     `yaml:"sparsity_cap"`
	CouplingEpsilon               float64 `yaml:"coupling_epsilon"`
	BufferCapacity                int     `yaml:"buffer_capacity"`
	MaxConsecutiveRefreshFailures int     `yaml:"max_consecutive_refresh_failures"`
	EMABeta                       float64 `yaml:"ema_beta"`
	Retention                     int     `yaml:"kcl_retention"`
	BatchSizeLimit                int     `yaml:"batch_size_limit"`
}

// OscillatorConfig controls delivery of coupling.update to the downstream
// oscillator substrate.
type OscillatorConfig struct {
	Backend         string `yaml:"backend"` // "memory", "cloud-tasks"
	WebhookURL      string `yaml:"webhook_url"`
	WebhookSecret   string `yaml:"webhook_secret"`
	GCPProjectID    string `yaml:"gcp_project_id"`
	GCPLocationID   string `yaml:"gcp_location_id"`
	GCPQueueID      string `yaml:"gcp_queue_id"`
	FallbackWorkers int    `yaml:"fallback_workers"`
	QueueCapacity   int    `yaml:"queue_capacity"`
}

// Defaults returns the documented default configuration of spec.md §6.
func Defaults() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a YAML config file over Defaults(), then applies environment
// overrides. A missing file leaves the defaults in place; any other open
// error, or a malformed document, is returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: open %s: %w", path, err)
			}
		} else {
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, fmt.Errorf("config: decode %s: %w", path, err)
			}
		}
	}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the process-wide singleton, loading from CONFIG_PATH (or
// "config.yaml") on first use. The service entrypoints use this; toriadm
// calls Load with its --config path, and services under test construct
// Config values directly.
func Get() *Config {
	once.Do(func() {
		cfg, err := Load(getEnv("CONFIG_PATH", "config.yaml"))
		if err != nil {
			cfg = Defaults()
		}
		instance = cfg
	})
	return instance
}

func (c *Config) applyDefaults() {
	if c.Server.RPCAddr == "" {
		c.Server.RPCAddr = ":7070"
	}
	if c.Server.AdminAddr == "" {
		c.Server.AdminAddr = ":8080"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30
	}
	if c.Server.TrustDomain == "" {
		c.Server.TrustDomain = "tori.internal"
	}
	if c.Peers.VaultAddr == "" {
		c.Peers.VaultAddr = "localhost:7070"
	}
	if c.Peers.SchedulerAddr == "" {
		c.Peers.SchedulerAddr = "localhost:7071"
	}
	if c.Peers.PrunerAddr == "" {
		c.Peers.PrunerAddr = "localhost:7072"
	}
	if c.Peers.KoopmanAddr == "" {
		c.Peers.KoopmanAddr = "localhost:7073"
	}

	if c.Bus.Backend == "" {
		c.Bus.Backend = "memory"
	}
	if c.Bus.QueueCapacity == 0 {
		c.Bus.QueueCapacity = 256
	}
	if c.Bus.GCPTopicPrefix == "" {
		c.Bus.GCPTopicPrefix = "tori"
	}

	if c.Vault.Backend == "" {
		c.Vault.Backend = "memory"
	}
	if c.Vault.MaxEpisodes == 0 {
		c.Vault.MaxEpisodes = 1_000_000
	}
	if c.Vault.MaxBytes == 0 {
		c.Vault.MaxBytes = 8 << 30 // 8 GiB
	}
	if c.Vault.EpisodeSizeLimit == 0 {
		c.Vault.EpisodeSizeLimit = 256 << 10 // 256 KiB
	}
	if c.Vault.WALPath == "" {
		c.Vault.WALPath = "vault.wal"
	}

	if c.Scheduler.AnnealT0 == 0 {
		c.Scheduler.AnnealT0 = 2.0
	}
	if c.Scheduler.AnnealAlpha == 0 {
		c.Scheduler.AnnealAlpha = 0.9
	}
	if c.Scheduler.KAnneal == 0 {
		c.Scheduler.KAnneal = 10
	}
	if c.Scheduler.MGibbs == 0 {
		c.Scheduler.MGibbs = 5
	}
	if c.Scheduler.LearningEta == 0 {
		c.Scheduler.LearningEta = 0.01
	}
	if c.Scheduler.WClip == 0 {
		c.Scheduler.WClip = 1.0
	}
	if c.Scheduler.EnergyDriftEpsilon == 0 {
		c.Scheduler.EnergyDriftEpsilon = 1e-3
	}
	if c.Scheduler.WindowSize == 0 {
		c.Scheduler.WindowSize = 512
	}
	if c.Scheduler.MaxFetchRetries == 0 {
		c.Scheduler.MaxFetchRetries = 5
	}
	if c.Scheduler.FetchBackoffBase == 0 {
		c.Scheduler.FetchBackoffBase = 50 * time.Millisecond
	}

	if c.Pruner.L1Strength == 0 {
		c.Pruner.L1Strength = 1e-3
	}
	if c.Pruner.Threshold == 0 {
		c.Pruner.Threshold = 1e-3
	}
	if c.Pruner.TargetSparsity == 0 {
		c.Pruner.TargetSparsity = 0.9
	}
	if c.Pruner.RollbackWindow == 0 {
		c.Pruner.RollbackWindow = 24 * time.Hour
	}
	if c.Pruner.QualityBudget == 0 {
		c.Pruner.QualityBudget = 0.05
	}
	if c.Pruner.PruneInterval == 0 {
		c.Pruner.PruneInterval = 10 * time.Minute
	}
	if c.Pruner.SoftCap == 0 {
		c.Pruner.SoftCap = 0.9
	}
	if c.Pruner.MaxEdges == 0 {
		c.Pruner.MaxEdges = 200_000
	}
	if c.Pruner.RetentionWindow == 0 {
		c.Pruner.RetentionWindow = time.Hour
	}

	if c.Koopman.Rank == 0 {
		c.Koopman.Rank = 50
	}
	if c.Koopman.ModeMagFloor == 0 {
		c.Koopman.ModeMagFloor = 1e-3
	}
	if c.Koopman.L1Strength == 0 {
		c.Koopman.L1Strength = 1e-3
	}
	if c.Koopman.StabilityFloor == 0 {
		c.Koopman.StabilityFloor = 0.1
	}
	if c.Koopman.EigenMergeRadius == 0 {
		c.Koopman.EigenMergeRadius = 0.05
	}
	if c.Koopman.MergeCosThreshold == 0 {
		c.Koopman.MergeCosThreshold = 0.9
	}
	if c.Koopman.RefreshStride == 0 {
		c.Koopman.RefreshStride = 256
	}
	if c.Koopman.EvictionWindow == 0 {
		c.Koopman.EvictionWindow = 5
	}
	if c.Koopman.SparsityCap == 0 {
		c.Koopman.SparsityCap = 64
	}
	if c.Koopman.CouplingEpsilon == 0 {
		c.Koopman.CouplingEpsilon = 1e-4
	}
	if c.Koopman.BufferCapacity == 0 {
		c.Koopman.BufferCapacity = 4096
	}
	if c.Koopman.MaxConsecutiveRefreshFailures == 0 {
		c.Koopman.MaxConsecutiveRefreshFailures = 5
	}
	if c.Koopman.EMABeta == 0 {
		c.Koopman.EMABeta = 0.2
	}
	if c.Koopman.Retention == 0 {
		c.Koopman.Retention = 8
	}
	if c.Koopman.BatchSizeLimit == 0 {
		c.Koopman.BatchSizeLimit = 10_000
	}

	if c.Oscillator.Backend == "" {
		c.Oscillator.Backend = "memory"
	}
	if c.Oscillator.FallbackWorkers == 0 {
		c.Oscillator.FallbackWorkers = 4
	}
	if c.Oscillator.QueueCapacity == 0 {
		c.Oscillator.QueueCapacity = 1000
	}
	if c.Oscillator.GCPQueueID == "" {
		c.Oscillator.GCPQueueID = "tori-coupling-updates"
	}
}

func (c *Config) applyEnvOverrides() {
	c.Server.RPCAddr = getEnv("TORI_RPC_ADDR", c.Server.RPCAddr)
	c.Server.AdminAddr = getEnv("TORI_ADMIN_ADDR", c.Server.AdminAddr)
	c.Server.SpiffeSocketPath = getEnv("TORI_SPIFFE_SOCKET", c.Server.SpiffeSocketPath)
	c.Server.TrustDomain = getEnv("TORI_TRUST_DOMAIN", c.Server.TrustDomain)
	c.Peers.VaultAddr = getEnv("TORI_PEER_VAULT_ADDR", c.Peers.VaultAddr)
	c.Peers.SchedulerAddr = getEnv("TORI_PEER_SCHEDULER_ADDR", c.Peers.SchedulerAddr)
	c.Peers.PrunerAddr = getEnv("TORI_PEER_PRUNER_ADDR", c.Peers.PrunerAddr)
	c.Peers.KoopmanAddr = getEnv("TORI_PEER_KOOPMAN_ADDR", c.Peers.KoopmanAddr)

	c.Bus.Backend = getEnv("TORI_BUS_BACKEND", c.Bus.Backend)
	c.Bus.RedisAddr = getEnv("TORI_REDIS_ADDR", c.Bus.RedisAddr)
	c.Bus.GCPProjectID = getEnv("TORI_GCP_PROJECT_ID", c.Bus.GCPProjectID)

	c.Vault.Backend = getEnv("TORI_VAULT_BACKEND", c.Vault.Backend)
	c.Vault.PostgresDSN = getEnv("TORI_VAULT_POSTGRES_DSN", c.Vault.PostgresDSN)
	c.Vault.SpannerProject = getEnv("TORI_VAULT_SPANNER_PROJECT", c.Vault.SpannerProject)
	c.Vault.SpannerInstance = getEnv("TORI_VAULT_SPANNER_INSTANCE", c.Vault.SpannerInstance)
	c.Vault.SpannerDatabase = getEnv("TORI_VAULT_SPANNER_DATABASE", c.Vault.SpannerDatabase)
	c.Vault.SupabaseURL = getEnv("TORI_VAULT_SUPABASE_URL", c.Vault.SupabaseURL)
	c.Vault.SupabaseServiceKey = getEnv("TORI_VAULT_SUPABASE_KEY", c.Vault.SupabaseServiceKey)
	if v := getEnvInt("TORI_VAULT_MAX_EPISODES", 0); v > 0 {
		c.Vault.MaxEpisodes = v
	}

	if v := getEnvFloat("TORI_ANNEAL_T0", 0); v > 0 {
		c.Scheduler.AnnealT0 = v
	}
	if v := getEnvFloat("TORI_LEARNING_ETA", 0); v > 0 {
		c.Scheduler.LearningEta = v
	}

	if v := getEnvFloat("TORI_PRUNE_THRESHOLD", 0); v > 0 {
		c.Pruner.Threshold = v
	}
	if v := getEnvFloat("TORI_QUALITY_BUDGET", 0); v > 0 {
		c.Pruner.QualityBudget = v
	}

	if v := getEnvInt("TORI_KCL_RANK", 0); v > 0 {
		c.Koopman.Rank = v
	}

	c.Oscillator.Backend = getEnv("TORI_OSCILLATOR_BACKEND", c.Oscillator.Backend)
	c.Oscillator.WebhookURL = getEnv("TORI_OSCILLATOR_WEBHOOK_URL", c.Oscillator.WebhookURL)
	c.Oscillator.WebhookSecret = getEnv("TORI_OSCILLATOR_WEBHOOK_SECRET", c.Oscillator.WebhookSecret)
	c.Oscillator.GCPProjectID = getEnv("TORI_OSCILLATOR_GCP_PROJECT_ID", c.Oscillator.GCPProjectID)
}

// Validate returns one human-readable message per malformed field, used by
// UpdateConfig RPC handlers to report InvalidArgument errors.
func (c *Config) Validate() []string {
	var errs []string
	if c.Scheduler.AnnealAlpha <= 0 || c.Scheduler.AnnealAlpha >= 1 {
		errs = append(errs, "scheduler.anneal_alpha must be in (0, 1)")
	}
	if c.Scheduler.EnergyDriftEpsilon < 0 {
		errs = append(errs, "scheduler.energy_drift_epsilon must be >= 0")
	}
	if c.Pruner.TargetSparsity <= 0 || c.Pruner.TargetSparsity >= 1 {
		errs = append(errs, "pruner.target_sparsity must be in (0, 1)")
	}
	if c.Koopman.StabilityFloor < 0 || c.Koopman.StabilityFloor > 1 {
		errs = append(errs, "koopman.stability_floor must be in [0, 1]")
	}
	return errs
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// ApplyUpdates merges a map of dotted scalar overrides (the wire shape of
// UpdateConfig) into c, returning one error message per unknown key or
// unparsable value.
func (c *Config) ApplyUpdates(updates map[string]string) []string {
	var errs []string
	for k, v := range updates {
		if err := c.applyOne(k, v); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", k, err))
		}
	}
	return errs
}

func (c *Config) applyOne(key, value string) error {
	switch strings.ToLower(key) {
	case "anneal_t0":
		return setFloat(&c.Scheduler.AnnealT0, value)
	case "anneal_alpha":
		return setFloat(&c.Scheduler.AnnealAlpha, value)
	case "k_anneal":
		return setInt(&c.Scheduler.KAnneal, value)
	case "m_gibbs":
		return setInt(&c.Scheduler.MGibbs, value)
	case "learning_eta":
		return setFloat(&c.Scheduler.LearningEta, value)
	case "w_clip":
		return setFloat(&c.Scheduler.WClip, value)
	case "energy_drift_epsilon":
		return setFloat(&c.Scheduler.EnergyDriftEpsilon, value)
	case "prune_threshold":
		return setFloat(&c.Pruner.Threshold, value)
	case "target_sparsity":
		return setFloat(&c.Pruner.TargetSparsity, value)
	case "quality_budget":
		return setFloat(&c.Pruner.QualityBudget, value)
	case "kcl_rank":
		return setInt(&c.Koopman.Rank, value)
	case "mode_mag_floor":
		return setFloat(&c.Koopman.ModeMagFloor, value)
	case "stability_floor":
		return setFloat(&c.Koopman.StabilityFloor, value)
	case "eigen_merge_radius":
		return setFloat(&c.Koopman.EigenMergeRadius, value)
	case "merge_cos_threshold":
		return setFloat(&c.Koopman.MergeCosThreshold, value)
	case "refresh_stride":
		return setInt(&c.Koopman.RefreshStride, value)
	default:
		return fmt.Errorf("unknown config key")
	}
}

func setFloat(dst *float64, value string) error {
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func setInt(dst *int, value string) error {
	i, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*dst = i
	return nil
}
