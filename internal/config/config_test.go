package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDB_DSN(t *testing.T) {
	t.Parallel()

	db := DB{Host: "db.local", Port: "5433", User: "u", Pass: "p", Name: "dispatch"}
	require.Equal(t, "postgres://u:p@db.local:5433/dispatch?sslmode=disable", db.DSN())
}

func TestLoadDB_EnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "pg.internal")
	t.Setenv("DB_NAME", "dispatch_test")

	db := loadDB()
	require.Equal(t, "pg.internal", db.Host)
	require.Equal(t, "dispatch_test", db.Name)
	require.Equal(t, DefaultDB().User, db.User, "unset keys keep defaults")
}

func TestLoadKafka(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092 ,")
	t.Setenv("KAFKA_GROUP_ID", "test-group")

	k := loadKafka()
	require.Equal(t, []string{"b1:9092", "b2:9092"}, k.Brokers)
	require.Equal(t, "test-group", k.GroupID)
	require.Equal(t, DefaultKafka().OrdersTopic, k.OrdersTopic)
}

func TestLoadDispatch(t *testing.T) {
	t.Setenv("DISPATCH_WAVES", "2:20s:1.5,4:15s:3")
	t.Setenv("DISPATCH_ESCALATION_INTERVAL", "7s")
	t.Setenv("DISPATCH_ACCEPT_RETRIES", "5")

	d := loadDispatch()
	require.Equal(t, 2, d.Waves.MaxWave())
	w, ok := d.Waves.For(2)
	require.True(t, ok)
	require.Equal(t, 4, w.DriverCount)
	require.Equal(t, 15*time.Second, w.TTL)
	require.Equal(t, 7*time.Second, d.EscalationInterval)
	require.Equal(t, 5, d.AcceptRetryAttempts)
	require.Equal(t, DefaultDispatch().SweepInterval, d.SweepInterval)
}

func TestLoadDispatch_BadWavePlanFallsBackToDefault(t *testing.T) {
	t.Setenv("DISPATCH_WAVES", "not-a-plan")

	d := loadDispatch()
	require.Equal(t, DefaultDispatch().Waves, d.Waves)
}

func TestParseWavePlan(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		plan, err := ParseWavePlan("3:45s:2, 5:30s:3.5")
		require.NoError(t, err)
		require.Equal(t, 2, plan.MaxWave())

		w, _ := plan.For(1)
		require.Equal(t, 3, w.DriverCount)
		require.Equal(t, 45*time.Second, w.TTL)
		require.InDelta(t, 2, w.RadiusKm, 1e-9)
	})

	tests := []struct {
		name string
		raw  string
	}{
		{name: "missing field", raw: "3:45s"},
		{name: "bad count", raw: "x:45s:2"},
		{name: "bad ttl", raw: "3:soon:2"},
		{name: "bad radius", raw: "3:45s:near"},
		{name: "zero count", raw: "0:45s:2"},
		{name: "empty", raw: ""},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ParseWavePlan(tc.raw)
			require.Error(t, err)
		})
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_STR", "value")
	t.Setenv("X_INT", "42")
	t.Setenv("X_INT_BAD", "forty-two")
	t.Setenv("X_BOOL", "true")
	t.Setenv("X_DUR", "90s")
	t.Setenv("X_FLOAT", "2.5")

	require.Equal(t, "value", envStr("X_STR", "def"))
	require.Equal(t, "def", envStr("X_MISSING", "def"))
	require.Equal(t, 42, envInt("X_INT", 1))
	require.Equal(t, 1, envInt("X_INT_BAD", 1), "unparsable values keep the default")
	require.True(t, envBool("X_BOOL", false))
	require.Equal(t, 90*time.Second, envDuration("X_DUR", time.Second))
	require.InDelta(t, 2.5, envFloat("X_FLOAT", 1), 1e-9)
}

func TestDefaultWavesAreValid(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultDispatch().Waves.Validate())
}
