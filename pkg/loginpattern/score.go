package loginpattern

import (
	"fmt"
	"math"
	"strings"
)

// Sub-score point values. The overall score is their weighted sum (15% time,
// 25% device, 30% location, 10% ip, 20% velocity), clamped to [0,100].
const (
	pointsOffHours   = 40
	pointsOffDay     = 20
	pointsNewDevice  = 50
	pointsNewCountry = 40
	pointsFarAway    = 30
	pointsNewIP      = 30

	velocitySuspicious = 75
	velocityImprobable = 90
	velocityCritical   = 100

	// Velocity sub-scores at or above this mark the login as impossible
	// travel.
	impossibleTravelFloor = 75
)

// Score evaluates one login against a learned pattern and, when available,
// the immediately preceding login. Deterministic; identical inputs always
// yield identical output. Missing optional data (no location, no previous
// login) simply skips the affected sub-scores.
func (e *Engine) Score(login LoginRecord, pattern UserPattern, previous *LoginRecord) (AnomalyScore, error) {
	if login.Timestamp.IsZero() {
		return AnomalyScore{}, fmt.Errorf("%w: record %q has no timestamp", ErrMalformedRecord, login.ID)
	}

	var s AnomalyScore
	s.Reasons = []string{}

	s.Factors.Time = e.timeScore(login, pattern, &s.Reasons)
	s.Factors.Device = e.deviceScore(login, pattern, &s.Reasons)
	s.Factors.Location = e.locationScore(login, pattern, &s.Reasons)
	s.Factors.IP = e.ipScore(login, pattern, &s.Reasons)
	s.Factors.Velocity = e.velocityScore(login, previous, &s.Reasons)
	s.ImpossibleTravel = s.Factors.Velocity >= impossibleTravelFloor

	overall := math.Round(
		float64(s.Factors.Time)*0.15 +
			float64(s.Factors.Device)*0.25 +
			float64(s.Factors.Location)*0.30 +
			float64(s.Factors.IP)*0.10 +
			float64(s.Factors.Velocity)*0.20)
	if overall > 100 {
		overall = 100
	}
	if overall < 0 {
		overall = 0
	}
	s.Overall = int(overall)

	return s, nil
}

func (e *Engine) timeScore(login LoginRecord, pattern UserPattern, reasons *[]string) int {
	score := 0
	var parts []string
	hour := login.Timestamp.Hour()
	day := int(login.Timestamp.Weekday())

	if len(pattern.TypicalHours) > 0 && !containsInt(pattern.TypicalHours, hour) {
		score += pointsOffHours
		parts = append(parts, fmt.Sprintf("hour %02d:00", hour))
	}
	if len(pattern.TypicalDays) > 0 && !containsInt(pattern.TypicalDays, day) {
		score += pointsOffDay
		parts = append(parts, fmt.Sprintf("day %s", login.Timestamp.Weekday()))
	}
	if score > 0 {
		*reasons = append(*reasons, "Login outside typical schedule: "+strings.Join(parts, ", "))
	}
	return score
}

func (e *Engine) deviceScore(login LoginRecord, pattern UserPattern, reasons *[]string) int {
	if len(pattern.CommonDevices) == 0 {
		return 0
	}
	for _, dev := range pattern.CommonDevices {
		if strings.Contains(login.UserAgent, dev) || strings.Contains(dev, login.UserAgent) {
			return 0
		}
	}
	*reasons = append(*reasons, "Login from an unrecognized device")
	return pointsNewDevice
}

func (e *Engine) locationScore(login LoginRecord, pattern UserPattern, reasons *[]string) int {
	if login.Location == nil {
		return 0
	}
	score := 0
	var parts []string

	if len(pattern.TypicalCountries) > 0 && login.Location.Country != "" &&
		!containsString(pattern.TypicalCountries, login.Location.Country) {
		score += pointsNewCountry
		parts = append(parts, fmt.Sprintf("new country %s", login.Location.Country))
	}
	if len(pattern.HomeLocations) > 0 {
		if d := nearestHomeKm(*login.Location, pattern.HomeLocations); d > e.cfg.FarFromHomeKm {
			score += pointsFarAway
			parts = append(parts, fmt.Sprintf("%.0f km from nearest home location", d))
		}
	}
	if score > 0 {
		*reasons = append(*reasons, "Unusual login location: "+strings.Join(parts, ", "))
	}
	return score
}

func (e *Engine) ipScore(login LoginRecord, pattern UserPattern, reasons *[]string) int {
	if len(pattern.CommonIPs) == 0 || login.IPAddress == "" {
		return 0
	}
	if containsString(pattern.CommonIPs, login.IPAddress) {
		return 0
	}
	*reasons = append(*reasons, "Login from an IP address never seen before")
	return pointsNewIP
}

// velocityScore checks for implausible travel between the previous login and
// this one. Moves under MinTravelKm are skipped so same-city hops never
// trigger.
func (e *Engine) velocityScore(login LoginRecord, previous *LoginRecord, reasons *[]string) int {
	if previous == nil || login.Location == nil || previous.Location == nil {
		return 0
	}
	distKm := Haversine(*login.Location, *previous.Location)
	if distKm <= e.cfg.MinTravelKm {
		return 0
	}

	hours := login.Timestamp.Sub(previous.Timestamp).Hours()
	var speed float64
	if hours <= 0 {
		// Simultaneous logins from distant places: no finite speed explains
		// them.
		speed = math.Inf(1)
	} else {
		speed = distKm / hours
	}

	switch {
	case speed > e.cfg.CriticalSpeedKmh:
		*reasons = append(*reasons, fmt.Sprintf(
			"CRITICAL: impossible travel, %.0f km in %.1f h (%.0f km/h)", distKm, hours, speed))
		return velocityCritical
	case speed > e.cfg.ImprobableSpeedKmh:
		*reasons = append(*reasons, fmt.Sprintf(
			"Highly improbable travel speed: %.0f km in %.1f h (%.0f km/h)", distKm, hours, speed))
		return velocityImprobable
	case speed > e.cfg.SuspiciousSpeedKmh:
		*reasons = append(*reasons, fmt.Sprintf(
			"Suspicious travel speed: %.0f km in %.1f h (%.0f km/h)", distKm, hours, speed))
		return velocitySuspicious
	default:
		return 0
	}
}

func containsInt(values []int, v int) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
