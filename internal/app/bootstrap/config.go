package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/barazo-forum/barazo-trust/internal/application"
	"github.com/barazo-forum/barazo-trust/internal/domain"
)

// Config is the resolved runtime configuration for the trust service.
// It merges file defaults and environment overrides to support both local and deployed runs.
type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL   string
	RedisURL      string
	LabelsBaseURL string

	JWTSecret string

	MaxDBConns int32

	Trust    domain.TrustSettings
	AntiSpam domain.AntiSpamSettings

	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxClaimTTL     time.Duration
	OutboxMaxRetries   int
}

// Service returns the slice of configuration the application layer consumes.
func (c Config) Service() application.Config {
	return application.Config{Trust: c.Trust, AntiSpam: c.AntiSpam}
}

// configFile mirrors the YAML schema used by configs/default.yaml.
// It is intentionally separate from Config so runtime-only fields stay internal.
type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL   string `yaml:"postgres_url"`
		RedisURL      string `yaml:"redis_url"`
		LabelsBaseURL string `yaml:"labels_base_url"`
	} `yaml:"dependencies"`
	Trust struct {
		Epsilon                 float64 `yaml:"epsilon"`
		MaxIterations           int     `yaml:"max_iterations"`
		Damping                 float64 `yaml:"damping"`
		LowTrustCutoff          float64 `yaml:"low_trust_cutoff"`
		MinClusterSize          int     `yaml:"min_cluster_size"`
		SuspicionThreshold      float64 `yaml:"suspicion_threshold"`
		RecomputeCooldownMins   int     `yaml:"recompute_cooldown_minutes"`
		HighWeightEdge          float64 `yaml:"high_weight_edge"`
		BanPropagationThreshold int     `yaml:"ban_propagation_threshold"`
	} `yaml:"trust"`
	AntiSpam struct {
		NewAccountAgeHours         int   `yaml:"new_account_age_hours"`
		NewWritesPerMinute         int   `yaml:"new_writes_per_minute"`
		EstablishedWritesPerMinute int   `yaml:"established_writes_per_minute"`
		TrustedPostThreshold       int   `yaml:"trusted_post_threshold"`
		FirstPostsQueueCount       int   `yaml:"first_posts_queue_count"`
		HoldLinksFromNew           *bool `yaml:"hold_links_from_new"`
		LinkEstablishedAgeHours    int   `yaml:"link_established_age_hours"`
		BurstWindowMinutes         int   `yaml:"burst_window_minutes"`
		BurstMaxPosts              int   `yaml:"burst_max_posts"`
	} `yaml:"antispam"`
}

// LoadConfig resolves configuration in priority order: defaults -> file -> env.
// This order keeps local bootstrap simple while allowing environment-specific overrides.
func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:  "trust-service",
		HTTPPort:   8086,
		GRPCPort:   9096,
		MaxDBConns: 20,
		Trust: domain.TrustSettings{
			Epsilon:                 1e-4,
			MaxIterations:           50,
			Damping:                 0.85,
			LowTrustCutoff:          0.1,
			MinClusterSize:          5,
			SuspicionThreshold:      0.8,
			RecomputeCooldown:       time.Hour,
			HighWeightEdge:          10.0,
			BanPropagationThreshold: 3,
		},
		AntiSpam: domain.AntiSpamSettings{
			NewAccountAge:              72 * time.Hour,
			NewWritesPerMinute:         5,
			EstablishedWritesPerMinute: 30,
			TrustedPostThreshold:       50,
			FirstPostsQueueCount:       3,
			HoldLinksFromNew:           true,
			LinkEstablishedAge:         7 * 24 * time.Hour,
			BurstWindow:                10 * time.Minute,
			BurstMaxPosts:              15,
		},
		OutboxPollInterval: 2 * time.Second,
		OutboxBatchSize:    100,
		OutboxClaimTTL:     30 * time.Second,
		OutboxMaxRetries:   5,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if f.Service.ID != "" {
			cfg.ServiceID = f.Service.ID
		}
		if f.Service.HTTPPort > 0 {
			cfg.HTTPPort = f.Service.HTTPPort
		}
		if f.Service.GRPCPort > 0 {
			cfg.GRPCPort = f.Service.GRPCPort
		}
		if f.Dependencies.PostgresURL != "" {
			cfg.DatabaseURL = f.Dependencies.PostgresURL
		}
		if f.Dependencies.RedisURL != "" {
			cfg.RedisURL = f.Dependencies.RedisURL
		}
		if f.Dependencies.LabelsBaseURL != "" {
			cfg.LabelsBaseURL = f.Dependencies.LabelsBaseURL
		}
		if f.Trust.Epsilon > 0 {
			cfg.Trust.Epsilon = f.Trust.Epsilon
		}
		if f.Trust.MaxIterations > 0 {
			cfg.Trust.MaxIterations = f.Trust.MaxIterations
		}
		if f.Trust.Damping > 0 {
			cfg.Trust.Damping = f.Trust.Damping
		}
		if f.Trust.LowTrustCutoff > 0 {
			cfg.Trust.LowTrustCutoff = f.Trust.LowTrustCutoff
		}
		if f.Trust.MinClusterSize > 0 {
			cfg.Trust.MinClusterSize = f.Trust.MinClusterSize
		}
		if f.Trust.SuspicionThreshold > 0 {
			cfg.Trust.SuspicionThreshold = f.Trust.SuspicionThreshold
		}
		if f.Trust.RecomputeCooldownMins > 0 {
			cfg.Trust.RecomputeCooldown = time.Duration(f.Trust.RecomputeCooldownMins) * time.Minute
		}
		if f.Trust.HighWeightEdge > 0 {
			cfg.Trust.HighWeightEdge = f.Trust.HighWeightEdge
		}
		if f.Trust.BanPropagationThreshold > 0 {
			cfg.Trust.BanPropagationThreshold = f.Trust.BanPropagationThreshold
		}
		if f.AntiSpam.NewAccountAgeHours > 0 {
			cfg.AntiSpam.NewAccountAge = time.Duration(f.AntiSpam.NewAccountAgeHours) * time.Hour
		}
		if f.AntiSpam.NewWritesPerMinute > 0 {
			cfg.AntiSpam.NewWritesPerMinute = f.AntiSpam.NewWritesPerMinute
		}
		if f.AntiSpam.EstablishedWritesPerMinute > 0 {
			cfg.AntiSpam.EstablishedWritesPerMinute = f.AntiSpam.EstablishedWritesPerMinute
		}
		if f.AntiSpam.TrustedPostThreshold > 0 {
			cfg.AntiSpam.TrustedPostThreshold = f.AntiSpam.TrustedPostThreshold
		}
		if f.AntiSpam.FirstPostsQueueCount > 0 {
			cfg.AntiSpam.FirstPostsQueueCount = f.AntiSpam.FirstPostsQueueCount
		}
		if f.AntiSpam.HoldLinksFromNew != nil {
			cfg.AntiSpam.HoldLinksFromNew = *f.AntiSpam.HoldLinksFromNew
		}
		if f.AntiSpam.LinkEstablishedAgeHours > 0 {
			cfg.AntiSpam.LinkEstablishedAge = time.Duration(f.AntiSpam.LinkEstablishedAgeHours) * time.Hour
		}
		if f.AntiSpam.BurstWindowMinutes > 0 {
			cfg.AntiSpam.BurstWindow = time.Duration(f.AntiSpam.BurstWindowMinutes) * time.Minute
		}
		if f.AntiSpam.BurstMaxPosts > 0 {
			cfg.AntiSpam.BurstMaxPosts = f.AntiSpam.BurstMaxPosts
		}
	}

	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.LabelsBaseURL = envOrDefault("LABELS_BASE_URL", cfg.LabelsBaseURL)
	cfg.JWTSecret = envOrDefault("JWT_SECRET", cfg.JWTSecret)

	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))

	cfg.Trust.RecomputeCooldown = time.Duration(envInt("TRUST_RECOMPUTE_COOLDOWN_MINUTES", int(cfg.Trust.RecomputeCooldown.Minutes()))) * time.Minute
	cfg.Trust.MaxIterations = envInt("TRUST_MAX_ITERATIONS", cfg.Trust.MaxIterations)
	cfg.Trust.MinClusterSize = envInt("TRUST_MIN_CLUSTER_SIZE", cfg.Trust.MinClusterSize)
	cfg.Trust.BanPropagationThreshold = envInt("TRUST_BAN_PROPAGATION_THRESHOLD", cfg.Trust.BanPropagationThreshold)
	cfg.AntiSpam.NewAccountAge = time.Duration(envInt("ANTISPAM_NEW_ACCOUNT_AGE_HOURS", int(cfg.AntiSpam.NewAccountAge.Hours()))) * time.Hour
	cfg.AntiSpam.NewWritesPerMinute = envInt("ANTISPAM_NEW_WRITES_PER_MINUTE", cfg.AntiSpam.NewWritesPerMinute)
	cfg.AntiSpam.EstablishedWritesPerMinute = envInt("ANTISPAM_ESTABLISHED_WRITES_PER_MINUTE", cfg.AntiSpam.EstablishedWritesPerMinute)
	cfg.AntiSpam.TrustedPostThreshold = envInt("ANTISPAM_TRUSTED_POST_THRESHOLD", cfg.AntiSpam.TrustedPostThreshold)
	cfg.AntiSpam.BurstMaxPosts = envInt("ANTISPAM_BURST_MAX_POSTS", cfg.AntiSpam.BurstMaxPosts)

	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.OutboxClaimTTL = time.Duration(envInt("OUTBOX_CLAIM_TTL_SECONDS", int(cfg.OutboxClaimTTL.Seconds()))) * time.Second
	cfg.OutboxMaxRetries = envInt("OUTBOX_MAX_RETRIES", cfg.OutboxMaxRetries)

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("missing DB_URL/POSTGRES_URL")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("missing REDIS_URL")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("missing JWT_SECRET")
	}

	return cfg, nil
}

// envOrDefault returns an env var when present, otherwise the provided fallback.
func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

// envInt parses integer env vars with safe fallback on empty/invalid values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
