package loginpattern

import (
	"cmp"
	"math"
	"sort"
)

// Config holds the learning and scoring policy constants. The velocity tiers
// in particular are heuristic policy, not physical law; deployments may tune
// them.
type Config struct {
	// Exponential decay applied to login history, newest weighted highest.
	DecayAlpha float64

	// Minimum weighted frequency share for a value to count as typical.
	TimeShareThreshold  float64 // hour-of-day and day-of-week
	ValueShareThreshold float64 // device, IP, country

	// Geography.
	ClusterRadiusKm float64 // home-location cluster radius
	FarFromHomeKm   float64 // distance past which a login is "away"
	MinTravelKm     float64 // skip velocity checks under this distance

	// Travel-speed tiers, km/h.
	SuspiciousSpeedKmh float64
	ImprobableSpeedKmh float64
	CriticalSpeedKmh   float64

	// Histories shorter than this yield an empty pattern.
	MinRecords int
}

// DefaultConfig returns the standard policy constants.
func DefaultConfig() Config {
	return Config{
		DecayAlpha:          0.3,
		TimeShareThreshold:  0.15,
		ValueShareThreshold: 0.25,
		ClusterRadiusKm:     50,
		FarFromHomeKm:       500,
		MinTravelKm:         10,
		SuspiciousSpeedKmh:  900,
		ImprobableSpeedKmh:  1100,
		CriticalSpeedKmh:    2000,
		MinRecords:          3,
	}
}

// Engine learns per-user login baselines and scores new logins against them.
// It carries no state between calls and is safe for concurrent use.
type Engine struct {
	cfg Config
}

// NewEngine creates an engine; zero-valued cfg fields fall back to defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.DecayAlpha <= 0 || cfg.DecayAlpha >= 1 {
		cfg.DecayAlpha = def.DecayAlpha
	}
	if cfg.TimeShareThreshold <= 0 {
		cfg.TimeShareThreshold = def.TimeShareThreshold
	}
	if cfg.ValueShareThreshold <= 0 {
		cfg.ValueShareThreshold = def.ValueShareThreshold
	}
	if cfg.ClusterRadiusKm <= 0 {
		cfg.ClusterRadiusKm = def.ClusterRadiusKm
	}
	if cfg.FarFromHomeKm <= 0 {
		cfg.FarFromHomeKm = def.FarFromHomeKm
	}
	if cfg.MinTravelKm <= 0 {
		cfg.MinTravelKm = def.MinTravelKm
	}
	if cfg.SuspiciousSpeedKmh <= 0 {
		cfg.SuspiciousSpeedKmh = def.SuspiciousSpeedKmh
	}
	if cfg.ImprobableSpeedKmh <= 0 {
		cfg.ImprobableSpeedKmh = def.ImprobableSpeedKmh
	}
	if cfg.CriticalSpeedKmh <= 0 {
		cfg.CriticalSpeedKmh = def.CriticalSpeedKmh
	}
	if cfg.MinRecords <= 0 {
		cfg.MinRecords = def.MinRecords
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine's effective policy.
func (e *Engine) Config() Config { return e.cfg }

// Learn compresses a user's login history into a baseline, weighting recent
// logins more heavily than old ones. Histories shorter than MinRecords return
// a zero pattern: never fabricate a baseline from noise. Records missing a
// timestamp fail fast with ErrMalformedRecord.
func (e *Engine) Learn(logins []LoginRecord) (UserPattern, error) {
	if err := validateRecords(logins); err != nil {
		return UserPattern{}, err
	}
	if len(logins) < e.cfg.MinRecords {
		return UserPattern{}, nil
	}

	// Caller order is not trusted.
	sorted := make([]LoginRecord, len(logins))
	copy(sorted, logins)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	weights := recencyWeights(len(sorted), e.cfg.DecayAlpha)

	hours := make([]int, len(sorted))
	days := make([]int, len(sorted))
	devices := make([]string, len(sorted))
	ips := make([]string, len(sorted))
	countries := make([]string, len(sorted))
	for i, r := range sorted {
		hours[i] = r.Timestamp.Hour()
		days[i] = int(r.Timestamp.Weekday())
		devices[i] = r.UserAgent
		ips[i] = r.IPAddress
		if r.Location != nil {
			countries[i] = r.Location.Country
		}
	}

	var p UserPattern
	p.TypicalHours, _ = frequentValues(hours, weights, e.cfg.TimeShareThreshold)
	p.TypicalDays, _ = frequentValues(days, weights, e.cfg.TimeShareThreshold)
	p.CommonDevices, p.DeviceConsistency = frequentStrings(devices, weights, e.cfg.ValueShareThreshold)
	p.CommonIPs, p.IPConsistency = frequentStrings(ips, weights, e.cfg.ValueShareThreshold)
	p.TypicalCountries, p.LocationConsistency = frequentStrings(countries, weights, e.cfg.ValueShareThreshold)
	p.AvgLoginFrequencyHours = weightedGapHours(sorted, weights)

	var points []weightedPoint
	for i, r := range sorted {
		if r.Location != nil {
			points = append(points, weightedPoint{lat: r.Location.Lat, lon: r.Location.Lon, weight: weights[i]})
		}
	}
	p.HomeLocations = clusterLocations(points, e.cfg.ClusterRadiusKm)

	return p, nil
}

// recencyWeights assigns (1-alpha)^(n-1-i) to the i-th record (oldest first)
// and normalizes the weights to sum to 1.
func recencyWeights(n int, alpha float64) []float64 {
	w := make([]float64, n)
	sum := 0.0
	for i := 0; i < n; i++ {
		w[i] = math.Pow(1-alpha, float64(n-1-i))
		sum += w[i]
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// frequentValues mines the values whose weighted frequency share meets the
// threshold. The second return is the concentration ratio: the share of the
// single most frequent value.
func frequentValues[T cmp.Ordered](values []T, weights []float64, threshold float64) ([]T, float64) {
	counts := make(map[T]float64)
	total := 0.0
	for i, v := range values {
		counts[v] += weights[i]
		total += weights[i]
	}
	if total == 0 {
		return nil, 0
	}

	var frequent []T
	top := 0.0
	for v, w := range counts {
		if w/total >= threshold {
			frequent = append(frequent, v)
		}
		if w > top {
			top = w
		}
	}
	sort.Slice(frequent, func(i, j int) bool { return frequent[i] < frequent[j] })
	return frequent, top / total
}

// frequentStrings is frequentValues over strings, skipping empty values.
// Shares and concentration are computed over the weight of records that
// actually carry the value, so sparse optional fields do not dilute the
// baseline.
func frequentStrings(values []string, weights []float64, threshold float64) ([]string, float64) {
	var present []string
	var presentWeights []float64
	for i, v := range values {
		if v == "" {
			continue
		}
		present = append(present, v)
		presentWeights = append(presentWeights, weights[i])
	}
	return frequentValues(present, presentWeights, threshold)
}

// weightedGapHours is the weighted mean of consecutive-login gaps in hours,
// each gap weighted by the later login of the pair.
func weightedGapHours(sorted []LoginRecord, weights []float64) float64 {
	var sum, sumW float64
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Hours()
		sum += gap * weights[i]
		sumW += weights[i]
	}
	if sumW == 0 {
		return 0
	}
	return sum / sumW
}
