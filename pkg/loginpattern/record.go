package loginpattern

import (
	"errors"
	"fmt"
	"time"
)

// GeoPoint is a resolved login location. Lat/Lon are decimal degrees.
type GeoPoint struct {
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// LoginRecord is one historical login event, supplied by the caller and
// read-only to this package. Location is optional; a nil Location simply
// excludes the record from geographic analysis.
type LoginRecord struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	Location  *GeoPoint `json:"location,omitempty"`
}

// HomeLocation is a geographic cluster of a user's login coordinates. Weight
// is the total recency weight accumulated by the cluster's members.
type HomeLocation struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Weight float64 `json:"weight"`
}

// UserPattern is the learned baseline of a user's normal login behavior.
// "Typical"/"common" sets contain only values whose recency-weighted
// frequency share met the learning thresholds; consistency scores are
// concentration ratios in [0,1]. A zero-valued pattern means insufficient
// history.
type UserPattern struct {
	TypicalHours           []int    `json:"typical_hours"`
	TypicalDays            []int    `json:"typical_days"`
	AvgLoginFrequencyHours float64  `json:"avg_login_frequency_hours"`
	CommonDevices          []string `json:"common_devices"`
	DeviceConsistency      float64  `json:"device_consistency"`

	HomeLocations       []HomeLocation `json:"home_locations"`
	TypicalCountries    []string       `json:"typical_countries"`
	LocationConsistency float64        `json:"location_consistency"`

	CommonIPs     []string `json:"common_ips"`
	IPConsistency float64  `json:"ip_consistency"`
}

// Empty reports whether the pattern carries no learned baseline at all.
func (p UserPattern) Empty() bool {
	return len(p.TypicalHours) == 0 && len(p.TypicalDays) == 0 &&
		len(p.CommonDevices) == 0 && len(p.HomeLocations) == 0 &&
		len(p.TypicalCountries) == 0 && len(p.CommonIPs) == 0
}

// Factors are the weighted sub-scores contributing to an AnomalyScore.
type Factors struct {
	Time     int `json:"time"`
	Device   int `json:"device"`
	Location int `json:"location"`
	IP       int `json:"ip"`
	Velocity int `json:"velocity"`
}

// AnomalyScore is the result of scoring one login against a learned pattern.
// Reasons are appended in fixed evaluation order (time, device, location, ip,
// velocity) so identical inputs always yield identical output.
type AnomalyScore struct {
	Overall          int      `json:"overall"`
	Factors          Factors  `json:"factors"`
	Reasons          []string `json:"reasons"`
	ImpossibleTravel bool     `json:"is_impossible_travel"`
}

// ErrMalformedRecord marks caller-supplied records missing required fields.
var ErrMalformedRecord = errors.New("malformed login record")

func validateRecords(logins []LoginRecord) error {
	for i, r := range logins {
		if r.Timestamp.IsZero() {
			return fmt.Errorf("%w: record %q at index %d has no timestamp", ErrMalformedRecord, r.ID, i)
		}
	}
	return nil
}
