package loginpattern

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reasonContaining(reasons []string, substr string) bool {
	for _, r := range reasons {
		if strings.Contains(r, substr) {
			return true
		}
	}
	return false
}

func TestScoreEmptyPatternIsNeutral(t *testing.T) {
	e := NewEngine(Config{})
	rec := login(base, "Mozilla/5.0", "10.0.0.1", nil)

	s, err := e.Score(rec, UserPattern{}, nil)
	require.NoError(t, err)
	assert.Zero(t, s.Overall)
	assert.Zero(t, s.Factors)
	assert.Empty(t, s.Reasons)
	assert.False(t, s.ImpossibleTravel)
}

func TestScoreMalformedLogin(t *testing.T) {
	e := NewEngine(Config{})
	_, err := e.Score(LoginRecord{ID: "x"}, UserPattern{}, nil)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestScoreVelocitySuspiciousTier(t *testing.T) {
	e := NewEngine(Config{})

	// ~1000 km along the equator, one hour apart: inside the 900-1100 km/h
	// tier.
	prev := login(base, "ua", "ip", &GeoPoint{Lat: 0, Lon: 0})
	cur := login(base.Add(time.Hour), "ua", "ip", &GeoPoint{Lat: 0, Lon: 9.0})

	s, err := e.Score(cur, UserPattern{}, &prev)
	require.NoError(t, err)
	assert.Equal(t, 75, s.Factors.Velocity)
	assert.True(t, s.ImpossibleTravel)
	assert.True(t, reasonContaining(s.Reasons, "Suspicious"), "reasons: %v", s.Reasons)
}

func TestScoreVelocityCriticalTier(t *testing.T) {
	e := NewEngine(Config{})

	// ~2500 km in one hour.
	prev := login(base, "ua", "ip", &GeoPoint{Lat: 0, Lon: 0})
	cur := login(base.Add(time.Hour), "ua", "ip", &GeoPoint{Lat: 0, Lon: 22.5})

	s, err := e.Score(cur, UserPattern{}, &prev)
	require.NoError(t, err)
	assert.Equal(t, 100, s.Factors.Velocity)
	assert.True(t, s.ImpossibleTravel)
	assert.True(t, reasonContaining(s.Reasons, "CRITICAL"), "reasons: %v", s.Reasons)
}

func TestScoreVelocitySkipsShortHops(t *testing.T) {
	e := NewEngine(Config{})

	// ~5 km in one minute would be 300 km/h, but same-city moves are skipped.
	prev := login(base, "ua", "ip", &GeoPoint{Lat: 0, Lon: 0})
	cur := login(base.Add(time.Minute), "ua", "ip", &GeoPoint{Lat: 0, Lon: 0.045})

	s, err := e.Score(cur, UserPattern{}, &prev)
	require.NoError(t, err)
	assert.Zero(t, s.Factors.Velocity)
	assert.False(t, s.ImpossibleTravel)
}

func TestScoreMissingLocationSkipsGeoFactors(t *testing.T) {
	e := NewEngine(Config{})
	pattern := UserPattern{
		TypicalCountries: []string{"US"},
		HomeLocations:    []HomeLocation{{Lat: 40.7, Lon: -74.0, Weight: 1}},
	}
	prev := login(base, "ua", "ip", &GeoPoint{Lat: 40.7, Lon: -74.0})
	cur := login(base.Add(time.Hour), "ua", "ip", nil)

	s, err := e.Score(cur, pattern, &prev)
	require.NoError(t, err)
	assert.Zero(t, s.Factors.Location)
	assert.Zero(t, s.Factors.Velocity)
}

func TestScoreAllFactorsFired(t *testing.T) {
	e := NewEngine(Config{})
	pattern := UserPattern{
		TypicalHours:     []int{9, 10},
		TypicalDays:      []int{1, 2, 3},
		CommonDevices:    []string{"Mozilla/5.0 (Macintosh)"},
		TypicalCountries: []string{"US"},
		HomeLocations:    []HomeLocation{{Lat: 40.7128, Lon: -74.0060, Weight: 1}},
		CommonIPs:        []string{"203.0.113.7"},
	}

	// Sunday 03:00 from Tokyo, one hour after a New York login, on a new
	// device, country, and IP.
	prevTS := time.Date(2024, 3, 10, 2, 0, 0, 0, time.UTC)
	prev := login(prevTS, "Mozilla/5.0 (Macintosh)", "203.0.113.7", &GeoPoint{Country: "US", Lat: 40.7128, Lon: -74.0060})
	cur := login(prevTS.Add(time.Hour), "curl/8.0", "198.51.100.9", &GeoPoint{Country: "JP", Lat: 35.6762, Lon: 139.6503})

	s, err := e.Score(cur, pattern, &prev)
	require.NoError(t, err)

	assert.Equal(t, Factors{Time: 60, Device: 50, Location: 70, IP: 30, Velocity: 100}, s.Factors)
	// round(60*0.15 + 50*0.25 + 70*0.30 + 30*0.10 + 100*0.20) = 66
	assert.Equal(t, 66, s.Overall)
	assert.True(t, s.ImpossibleTravel)
	assert.GreaterOrEqual(t, s.Overall, 0)
	assert.LessOrEqual(t, s.Overall, 100)
	assert.Len(t, s.Reasons, 5)
}

func TestScoreDeterministic(t *testing.T) {
	e := NewEngine(Config{})
	history := dailyHistory(10, "Mozilla/5.0", "203.0.113.7",
		&GeoPoint{Country: "US", Lat: 40.7128, Lon: -74.0060})

	pattern, err := e.Learn(history)
	require.NoError(t, err)

	prev := history[len(history)-1]
	cur := login(prev.Timestamp.Add(3*time.Hour), "curl/8.0", "198.51.100.9",
		&GeoPoint{Country: "DE", Lat: 52.52, Lon: 13.405})

	first, err := e.Score(cur, pattern, &prev)
	require.NoError(t, err)
	second, err := e.Score(cur, pattern, &prev)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
