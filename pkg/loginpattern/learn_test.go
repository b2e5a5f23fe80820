package loginpattern

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC) // a Monday

func login(ts time.Time, ua, ip string, loc *GeoPoint) LoginRecord {
	return LoginRecord{
		ID:        ts.Format(time.RFC3339),
		Timestamp: ts,
		UserAgent: ua,
		IPAddress: ip,
		Location:  loc,
	}
}

func dailyHistory(n int, ua, ip string, loc *GeoPoint) []LoginRecord {
	logins := make([]LoginRecord, 0, n)
	for i := 0; i < n; i++ {
		logins = append(logins, login(base.Add(time.Duration(i)*24*time.Hour), ua, ip, loc))
	}
	return logins
}

func TestLearnInsufficientHistory(t *testing.T) {
	e := NewEngine(Config{})

	for _, n := range []int{0, 1, 2} {
		p, err := e.Learn(dailyHistory(n, "Mozilla/5.0", "10.0.0.1", nil))
		require.NoError(t, err)
		assert.True(t, p.Empty(), "history of %d records must yield an empty pattern", n)
		assert.Zero(t, p.DeviceConsistency)
		assert.Zero(t, p.LocationConsistency)
		assert.Zero(t, p.IPConsistency)
		assert.Zero(t, p.AvgLoginFrequencyHours)
	}
}

func TestLearnMalformedRecord(t *testing.T) {
	e := NewEngine(Config{})
	logins := dailyHistory(5, "Mozilla/5.0", "10.0.0.1", nil)
	logins[2].Timestamp = time.Time{}

	_, err := e.Learn(logins)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestLearnConsistentUser(t *testing.T) {
	e := NewEngine(Config{})
	nyc := &GeoPoint{City: "New York", Country: "US", Lat: 40.7128, Lon: -74.0060}
	p, err := e.Learn(dailyHistory(10, "Mozilla/5.0 (Macintosh)", "203.0.113.7", nyc))
	require.NoError(t, err)

	assert.Equal(t, []int{9}, p.TypicalHours)
	assert.Equal(t, []string{"Mozilla/5.0 (Macintosh)"}, p.CommonDevices)
	assert.Equal(t, []string{"203.0.113.7"}, p.CommonIPs)
	assert.Equal(t, []string{"US"}, p.TypicalCountries)
	assert.InDelta(t, 1.0, p.DeviceConsistency, 1e-9)
	assert.InDelta(t, 1.0, p.IPConsistency, 1e-9)
	assert.InDelta(t, 1.0, p.LocationConsistency, 1e-9)
	assert.InDelta(t, 24.0, p.AvgLoginFrequencyHours, 1e-6)

	require.Len(t, p.HomeLocations, 1)
	assert.InDelta(t, nyc.Lat, p.HomeLocations[0].Lat, 1e-9)
	assert.InDelta(t, nyc.Lon, p.HomeLocations[0].Lon, 1e-9)
	assert.InDelta(t, 1.0, p.HomeLocations[0].Weight, 1e-9)
}

func TestLearnRecencyWeightingExcludesStaleDevice(t *testing.T) {
	e := NewEngine(Config{})

	// Two old logins from device B, then eight recent ones from device A. B's
	// exponentially decayed share falls well under the 0.25 threshold.
	var logins []LoginRecord
	for i := 0; i < 2; i++ {
		logins = append(logins, login(base.Add(time.Duration(i)*24*time.Hour), "device-B", "10.0.0.2", nil))
	}
	for i := 2; i < 10; i++ {
		logins = append(logins, login(base.Add(time.Duration(i)*24*time.Hour), "device-A", "10.0.0.1", nil))
	}

	p, err := e.Learn(logins)
	require.NoError(t, err)
	assert.Equal(t, []string{"device-A"}, p.CommonDevices)
	assert.Greater(t, p.DeviceConsistency, 0.9)
	assert.Less(t, p.DeviceConsistency, 1.0)
}

func TestLearnIgnoresCallerOrder(t *testing.T) {
	e := NewEngine(Config{})
	logins := dailyHistory(8, "Mozilla/5.0", "10.0.0.1", nil)

	reversed := make([]LoginRecord, len(logins))
	for i, r := range logins {
		reversed[len(logins)-1-i] = r
	}

	p1, err := e.Learn(logins)
	require.NoError(t, err)
	p2, err := e.Learn(reversed)
	require.NoError(t, err)
	assert.Equal(t, p1, p2)
}

func TestLearnHomeLocationsRankedByWeight(t *testing.T) {
	e := NewEngine(Config{})
	office := &GeoPoint{Country: "US", Lat: 40.7128, Lon: -74.0060}
	cabin := &GeoPoint{Country: "US", Lat: 44.0, Lon: -71.5} // ~370 km away

	// Three old logins from the cabin, seven recent from the office.
	var logins []LoginRecord
	for i := 0; i < 3; i++ {
		logins = append(logins, login(base.Add(time.Duration(i)*24*time.Hour), "ua", "ip", cabin))
	}
	for i := 3; i < 10; i++ {
		logins = append(logins, login(base.Add(time.Duration(i)*24*time.Hour), "ua", "ip", office))
	}

	p, err := e.Learn(logins)
	require.NoError(t, err)
	require.Len(t, p.HomeLocations, 2)
	assert.InDelta(t, office.Lat, p.HomeLocations[0].Lat, 1e-9)
	assert.Greater(t, p.HomeLocations[0].Weight, p.HomeLocations[1].Weight)
}

func TestFrequentValueSharesMeetThreshold(t *testing.T) {
	values := []string{"a", "a", "a", "b", "c"}
	weights := []float64{0.3, 0.25, 0.2, 0.15, 0.1}

	common, consistency := frequentStrings(values, weights, 0.25)
	assert.Equal(t, []string{"a"}, common)
	assert.InDelta(t, 0.75, consistency, 1e-9)
}

func TestRecencyWeightsMonotoneAndNormalized(t *testing.T) {
	w := recencyWeights(12, 0.3)
	sum := 0.0
	for i, v := range w {
		sum += v
		if i > 0 {
			assert.Greater(t, v, w[i-1], "weights must strictly increase toward recent logins")
		}
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
