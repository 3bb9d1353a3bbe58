package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"delivery-dispatch/internal/domain"
)

// Config stores dispatch service settings.
type Config struct {
	Port      int
	DB        DB
	Kafka     Kafka
	Dispatch  Dispatch
	RateLimit RateLimit
	Pprof     Pprof
}

// DB stores database connection settings.
type DB struct {
	Host string
	Port string
	User string
	Pass string
	Name string
}

// DSN returns the postgres connection string.
func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		d.User, d.Pass, d.Host, d.Port, d.Name)
}

// Kafka stores Kafka consumer/producer settings.
type Kafka struct {
	Brokers     []string
	GroupID     string
	OrdersTopic string
	NotifyTopic string
}

// Dispatch stores the dispatch engine tuning knobs.
type Dispatch struct {
	Waves               domain.WavePlan
	EscalationInterval  time.Duration
	HeartbeatFreshFor   time.Duration
	OfflineAfter        time.Duration
	SweepInterval       time.Duration
	RetentionWindow     time.Duration
	OperationTimeout    time.Duration
	AcceptRetryAttempts int
	AcceptRetryBase     time.Duration
	AcceptRetryMax      time.Duration
}

// RateLimit stores HTTP rate limiter settings.
type RateLimit struct {
	Enabled    bool
	Rate       float64
	Burst      int
	TTL        time.Duration
	MaxBuckets int
}

// Pprof stores pprof server settings.
type Pprof struct {
	Enabled bool
	Addr    string
	User    string
	Pass    string
}

// Load reads configuration in order: .env (if present) → environment → flags.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := &Config{
		Port:      envInt("PORT", DefaultPort()),
		DB:        loadDB(),
		Kafka:     loadKafka(),
		Dispatch:  loadDispatch(),
		RateLimit: loadRateLimit(),
		Pprof:     loadPprof(),
	}

	pflag.IntVarP(&cfg.Port, "port", "p", cfg.Port, "port to listen on")
	pflag.Parse()

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if err := cfg.Dispatch.Waves.Validate(); err != nil {
		return nil, fmt.Errorf("invalid wave plan: %w", err)
	}
	if cfg.Dispatch.AcceptRetryAttempts < 1 {
		return nil, fmt.Errorf("invalid accept retry attempts: %d", cfg.Dispatch.AcceptRetryAttempts)
	}
	return cfg, nil
}

func loadDB() DB {
	db := DefaultDB()
	db.Host = envStr("DB_HOST", db.Host)
	db.Port = envStr("DB_PORT", db.Port)
	db.User = envStr("DB_USER", db.User)
	db.Pass = envStr("DB_PASS", db.Pass)
	db.Name = envStr("DB_NAME", db.Name)
	return db
}

func loadKafka() Kafka {
	k := DefaultKafka()
	if v := envStr("KAFKA_BROKERS", ""); v != "" {
		k.Brokers = splitList(v)
	}
	k.GroupID = envStr("KAFKA_GROUP_ID", k.GroupID)
	k.OrdersTopic = envStr("KAFKA_ORDERS_TOPIC", k.OrdersTopic)
	k.NotifyTopic = envStr("KAFKA_NOTIFY_TOPIC", k.NotifyTopic)
	return k
}

func loadDispatch() Dispatch {
	d := DefaultDispatch()
	if v := envStr("DISPATCH_WAVES", ""); v != "" {
		if plan, err := ParseWavePlan(v); err == nil {
			d.Waves = plan
		} else {
			log.Printf("warning: DISPATCH_WAVES ignored: %v", err)
		}
	}
	d.EscalationInterval = envDuration("DISPATCH_ESCALATION_INTERVAL", d.EscalationInterval)
	d.HeartbeatFreshFor = envDuration("DISPATCH_HEARTBEAT_FRESH", d.HeartbeatFreshFor)
	d.OfflineAfter = envDuration("DISPATCH_OFFLINE_AFTER", d.OfflineAfter)
	d.SweepInterval = envDuration("DISPATCH_SWEEP_INTERVAL", d.SweepInterval)
	d.RetentionWindow = envDuration("DISPATCH_RETENTION", d.RetentionWindow)
	d.OperationTimeout = envDuration("DISPATCH_OP_TIMEOUT", d.OperationTimeout)
	d.AcceptRetryAttempts = envInt("DISPATCH_ACCEPT_RETRIES", d.AcceptRetryAttempts)
	d.AcceptRetryBase = envDuration("DISPATCH_ACCEPT_RETRY_BASE", d.AcceptRetryBase)
	d.AcceptRetryMax = envDuration("DISPATCH_ACCEPT_RETRY_MAX", d.AcceptRetryMax)
	return d
}

func loadRateLimit() RateLimit {
	rl := DefaultRateLimit()
	rl.Enabled = envBool("RATE_LIMIT_ENABLED", rl.Enabled)
	rl.Rate = envFloat("RATE_LIMIT_RATE", rl.Rate)
	rl.Burst = envInt("RATE_LIMIT_BURST", rl.Burst)
	rl.TTL = envDuration("RATE_LIMIT_TTL", rl.TTL)
	rl.MaxBuckets = envInt("RATE_LIMIT_MAX_BUCKETS", rl.MaxBuckets)
	return rl
}

func loadPprof() Pprof {
	p := DefaultPprof()
	p.Enabled = envBool("PPROF_ENABLED", p.Enabled)
	p.Addr = envStr("PPROF_ADDR", p.Addr)
	p.User = envStr("PPROF_USER", p.User)
	p.Pass = envStr("PPROF_PASS", p.Pass)
	return p
}

// ParseWavePlan parses a wave table of the form
// "count:ttl:radiusKm,count:ttl:radiusKm,..." e.g. "3:45s:2,5:30s:3.5".
func ParseWavePlan(raw string) (domain.WavePlan, error) {
	var plan domain.WavePlan
	for i, part := range splitList(raw) {
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			return domain.WavePlan{}, fmt.Errorf("wave %d: want count:ttl:radius, got %q", i+1, part)
		}
		count, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			return domain.WavePlan{}, fmt.Errorf("wave %d: bad count: %w", i+1, err)
		}
		ttl, err := time.ParseDuration(strings.TrimSpace(fields[1]))
		if err != nil {
			return domain.WavePlan{}, fmt.Errorf("wave %d: bad ttl: %w", i+1, err)
		}
		radius, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return domain.WavePlan{}, fmt.Errorf("wave %d: bad radius: %w", i+1, err)
		}
		plan.Waves = append(plan.Waves, domain.WaveConfig{
			DriverCount: count,
			TTL:         ttl,
			RadiusKm:    radius,
		})
	}
	if err := plan.Validate(); err != nil {
		return domain.WavePlan{}, err
	}
	return plan, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
