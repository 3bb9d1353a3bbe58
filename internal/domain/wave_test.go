package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func planOf(waves ...WaveConfig) WavePlan { return WavePlan{Waves: waves} }

func TestWavePlan_For(t *testing.T) {
	t.Parallel()

	p := planOf(
		WaveConfig{DriverCount: 1, TTL: 30 * time.Second, RadiusKm: 3},
		WaveConfig{DriverCount: 3, TTL: 30 * time.Second, RadiusKm: 7},
	)

	require.Equal(t, 2, p.MaxWave())

	w, ok := p.For(1)
	require.True(t, ok)
	require.Equal(t, 1, w.DriverCount)

	w, ok = p.For(2)
	require.True(t, ok)
	require.Equal(t, 3, w.DriverCount)

	_, ok = p.For(0)
	require.False(t, ok)
	_, ok = p.For(3)
	require.False(t, ok)
}

func TestWavePlan_Validate(t *testing.T) {
	t.Parallel()

	valid := WaveConfig{DriverCount: 2, TTL: time.Minute, RadiusKm: 5}

	tests := []struct {
		name    string
		plan    WavePlan
		wantErr string
	}{
		{name: "ok", plan: planOf(valid, valid)},
		{name: "empty", plan: WavePlan{}, wantErr: "empty"},
		{name: "zero drivers", plan: planOf(valid, WaveConfig{DriverCount: 0, TTL: time.Minute}), wantErr: "wave 2"},
		{name: "zero ttl", plan: planOf(WaveConfig{DriverCount: 1}), wantErr: "ttl"},
		{name: "negative radius", plan: planOf(WaveConfig{DriverCount: 1, TTL: time.Minute, RadiusKm: -1}), wantErr: "radius"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := tc.plan.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestAssignment_ExpiredAt(t *testing.T) {
	t.Parallel()

	now := time.Now()
	a := Assignment{ExpiresAt: now}

	require.False(t, a.ExpiredAt(now), "boundary instant is still live")
	require.False(t, a.ExpiredAt(now.Add(-time.Second)))
	require.True(t, a.ExpiredAt(now.Add(time.Nanosecond)))
}

func TestDriverState_HasCapacity(t *testing.T) {
	t.Parallel()

	s := DriverState{ActiveAssignments: 0, MaxConcurrent: 1}
	require.True(t, s.HasCapacity())

	s.ActiveAssignments = 1
	require.False(t, s.HasCapacity())
}
