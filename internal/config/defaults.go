package config

import (
	"time"

	"delivery-dispatch/internal/domain"
)

const defaultPort = 8080

var defaultDB = DB{
	Host: "127.0.0.1",
	Port: "5432",
	User: "dispatch",
	Pass: "dispatch",
	Name: "dispatch_db",
}

var defaultKafka = Kafka{
	Brokers:     nil,
	GroupID:     "dispatch-worker",
	OrdersTopic: "order-events",
	NotifyTopic: "driver-notifications",
}

// defaultWaves: later waves offer to more drivers over a wider radius with a
// shorter TTL.
var defaultWaves = domain.WavePlan{Waves: []domain.WaveConfig{
	{DriverCount: 3, TTL: 45 * time.Second, RadiusKm: 2},
	{DriverCount: 5, TTL: 30 * time.Second, RadiusKm: 3.5},
	{DriverCount: 8, TTL: 30 * time.Second, RadiusKm: 5},
}}

var defaultDispatch = Dispatch{
	Waves:               defaultWaves,
	EscalationInterval:  10 * time.Second,
	HeartbeatFreshFor:   5 * time.Minute,
	OfflineAfter:        15 * time.Minute,
	SweepInterval:       15 * time.Second,
	RetentionWindow:     30 * 24 * time.Hour,
	OperationTimeout:    3 * time.Second,
	AcceptRetryAttempts: 3,
	AcceptRetryBase:     150 * time.Millisecond,
	AcceptRetryMax:      time.Second,
}

var defaultRateLimit = RateLimit{
	Enabled:    false,
	Rate:       20,
	Burst:      40,
	TTL:        10 * time.Minute,
	MaxBuckets: 10000,
}

var defaultPprof = Pprof{
	Enabled: false,
	Addr:    "127.0.0.1:6060",
}

// DefaultPort returns the default port.
func DefaultPort() int { return defaultPort }

// DefaultDB returns the default database settings.
func DefaultDB() DB { return defaultDB }

// DefaultKafka returns the default Kafka settings.
func DefaultKafka() Kafka { return defaultKafka }

// DefaultDispatch returns the default dispatch settings.
func DefaultDispatch() Dispatch { return defaultDispatch }

// DefaultRateLimit returns the default rate limiter settings.
func DefaultRateLimit() RateLimit { return defaultRateLimit }

// DefaultPprof returns the default pprof server settings.
func DefaultPprof() Pprof { return defaultPprof }
