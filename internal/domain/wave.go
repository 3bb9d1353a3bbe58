package domain

import (
	"fmt"
	"time"
)

// WaveConfig describes one escalation wave: how many drivers to offer to,
// how long the offers live and the nominal search radius label.
//
// RadiusKm is propagated to offer payloads and logs but is not applied as a
// candidate filter; candidate selection is distance-naive.
type WaveConfig struct {
	DriverCount int
	TTL         time.Duration
	RadiusKm    float64
}

// WavePlan is the ordered wave table; index 0 holds wave 1.
type WavePlan struct {
	Waves []WaveConfig
}

// MaxWave returns the highest wave number the plan allows.
func (p WavePlan) MaxWave() int { return len(p.Waves) }

// For returns the config for the given wave number (1-based).
func (p WavePlan) For(wave int) (WaveConfig, bool) {
	if wave < 1 || wave > len(p.Waves) {
		return WaveConfig{}, false
	}
	return p.Waves[wave-1], true
}

// Validate checks the plan is non-empty and every wave is well-formed.
func (p WavePlan) Validate() error {
	if len(p.Waves) == 0 {
		return fmt.Errorf("wave plan: empty")
	}
	for i, w := range p.Waves {
		if w.DriverCount <= 0 {
			return fmt.Errorf("wave %d: driver count must be positive", i+1)
		}
		if w.TTL <= 0 {
			return fmt.Errorf("wave %d: ttl must be positive", i+1)
		}
		if w.RadiusKm < 0 {
			return fmt.Errorf("wave %d: radius must not be negative", i+1)
		}
	}
	return nil
}
