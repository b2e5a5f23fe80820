package biometrics

import (
	"math"
)

// Snapshot is the immutable summary of one session's buffered input events.
// Numeric fields are rounded to whole numbers at this boundary (curvature to
// two decimals) so repeated analyses of the same buffers render identically.
type Snapshot struct {
	MoveCount  int `json:"move_count"`
	KeyCount   int `json:"key_count"`
	ClickCount int `json:"click_count"`

	// Pointer motion, px/s and radians.
	VelocityMean     float64 `json:"velocity_mean"`
	VelocityVariance float64 `json:"velocity_variance"`
	AccelerationMean float64 `json:"acceleration_mean"`
	Curvature        float64 `json:"curvature"`

	// Keystroke cadence, milliseconds.
	KeyIntervalMean     float64 `json:"key_interval_mean"`
	KeyIntervalVariance float64 `json:"key_interval_variance"`

	// Click behavior.
	TimeToFirstClickMs float64 `json:"time_to_first_click_ms"`
	ClickIntervalMean  float64 `json:"click_interval_mean"`
	ClickAccuracyPct   float64 `json:"click_accuracy_pct"`

	BotScore      int      `json:"bot_score"`
	BotIndicators []string `json:"bot_indicators"`
}

// Bot-signal point values. Each signal that fires adds its points (capped at
// 100) and appends one indicator string.
const (
	pointsConstantVelocity = 25
	pointsStraightPath     = 20
	pointsEvenCadence      = 30
	pointsInhumanTyping    = 25
	pointsInstantClick     = 20
	pointsPoorAccuracy     = 15
	pointsClicksNoMoves    = 40
)

const (
	IndicatorConstantVelocity = "Mouse velocity variance is unnaturally low"
	IndicatorStraightPath     = "Mouse path has almost no curvature"
	IndicatorEvenCadence      = "Keystroke cadence is unnaturally even"
	IndicatorInhumanTyping    = "Typing faster than plausible for a human"
	IndicatorInstantClick     = "First click fired before any perception time"
	IndicatorPoorAccuracy     = "Most clicks miss interactive elements"
	IndicatorClicksNoMoves    = "Clicks without mouse movement"
)

// reduce turns raw buffers into a Snapshot. Pure; safe on empty buffers.
func reduce(moves []moveSample, keys []int64, clicks []clickSample, origin int64) Snapshot {
	snap := Snapshot{
		MoveCount:  len(moves),
		KeyCount:   len(keys),
		ClickCount: len(clicks),
	}

	segs := pointerSegments(moves)
	velocities := make([]float64, len(segs))
	for i, s := range segs {
		velocities[i] = s.speed
	}
	velMean := mean(velocities)
	velVar := variance(velocities, velMean)
	accMean := mean(pointerAccelerations(segs))
	curv := pathCurvature(moves)

	keyIntervals := intervals(keys)
	keyMean := mean(keyIntervals)
	keyVar := variance(keyIntervals, keyMean)

	var firstClickMs float64
	if len(clicks) > 0 && origin != 0 {
		firstClickMs = float64(clicks[0].ts - origin)
	}
	clickTimes := make([]int64, len(clicks))
	onTarget := 0
	for i, c := range clicks {
		clickTimes[i] = c.ts
		if c.onTarget {
			onTarget++
		}
	}
	clickMean := mean(intervals(clickTimes))
	accuracy := 0.0
	if len(clicks) > 0 {
		accuracy = float64(onTarget) / float64(len(clicks)) * 100
	}

	score, indicators := botScore(sessionStats{
		moveCount:    len(moves),
		clickCount:   len(clicks),
		keyIntervals: len(keyIntervals),
		velVariance:  velVar,
		curvature:    curv,
		keyVariance:  keyVar,
		keyMean:      keyMean,
		firstClickMs: firstClickMs,
		accuracyPct:  accuracy,
	})

	snap.VelocityMean = math.Round(velMean)
	snap.VelocityVariance = math.Round(velVar)
	snap.AccelerationMean = math.Round(accMean)
	snap.Curvature = math.Round(curv*100) / 100
	snap.KeyIntervalMean = math.Round(keyMean)
	snap.KeyIntervalVariance = math.Round(keyVar)
	snap.TimeToFirstClickMs = math.Round(firstClickMs)
	snap.ClickIntervalMean = math.Round(clickMean)
	snap.ClickAccuracyPct = math.Round(accuracy)
	snap.BotScore = score
	snap.BotIndicators = indicators
	return snap
}

type sessionStats struct {
	moveCount    int
	clickCount   int
	keyIntervals int
	velVariance  float64
	curvature    float64
	keyVariance  float64
	keyMean      float64
	firstClickMs float64
	accuracyPct  float64
}

// botScore applies the additive heuristic point system, capped at 100.
func botScore(s sessionStats) (int, []string) {
	score := 0
	indicators := []string{}

	if s.moveCount >= 10 && s.velVariance < 100 {
		score += pointsConstantVelocity
		indicators = append(indicators, IndicatorConstantVelocity)
	}
	if s.moveCount >= 10 && s.curvature < 0.1 {
		score += pointsStraightPath
		indicators = append(indicators, IndicatorStraightPath)
	}
	if s.keyIntervals >= 5 && s.keyVariance < 100 {
		score += pointsEvenCadence
		indicators = append(indicators, IndicatorEvenCadence)
	}
	if s.keyIntervals >= 5 && s.keyMean < 50 {
		score += pointsInhumanTyping
		indicators = append(indicators, IndicatorInhumanTyping)
	}
	if s.clickCount > 0 && s.firstClickMs < 100 {
		score += pointsInstantClick
		indicators = append(indicators, IndicatorInstantClick)
	}
	if s.clickCount >= 5 && s.accuracyPct < 50 {
		score += pointsPoorAccuracy
		indicators = append(indicators, IndicatorPoorAccuracy)
	}
	if s.moveCount == 0 && s.clickCount >= 1 {
		score += pointsClicksNoMoves
		indicators = append(indicators, IndicatorClicksNoMoves)
	}

	if score > 100 {
		score = 100
	}
	return score, indicators
}

type segment struct {
	speed float64 // px/s
	dt    float64 // seconds
}

// pointerSegments derives the speed of each movement segment. Segments with
// non-positive duration carry no speed information and are dropped.
func pointerSegments(moves []moveSample) []segment {
	var out []segment
	for i := 1; i < len(moves); i++ {
		dt := float64(moves[i].ts-moves[i-1].ts) / 1000.0
		if dt <= 0 {
			continue
		}
		dx := moves[i].x - moves[i-1].x
		dy := moves[i].y - moves[i-1].y
		out = append(out, segment{speed: math.Hypot(dx, dy) / dt, dt: dt})
	}
	return out
}

// pointerAccelerations returns the absolute change in segment speed per
// second.
func pointerAccelerations(segs []segment) []float64 {
	var out []float64
	for i := 1; i < len(segs); i++ {
		out = append(out, math.Abs(segs[i].speed-segs[i-1].speed)/segs[i].dt)
	}
	return out
}

// pathCurvature is the mean absolute difference between consecutive movement
// segment angles, in radians.
func pathCurvature(moves []moveSample) float64 {
	if len(moves) < 3 {
		return 0
	}
	var sum float64
	var n int
	prev := math.NaN()
	for i := 1; i < len(moves); i++ {
		dx := moves[i].x - moves[i-1].x
		dy := moves[i].y - moves[i-1].y
		if dx == 0 && dy == 0 {
			continue
		}
		angle := math.Atan2(dy, dx)
		if !math.IsNaN(prev) {
			d := math.Abs(angle - prev)
			if d > math.Pi {
				d = 2*math.Pi - d
			}
			sum += d
			n++
		}
		prev = angle
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// intervals returns consecutive timestamp gaps in milliseconds.
func intervals(ts []int64) []float64 {
	var out []float64
	for i := 1; i < len(ts); i++ {
		out = append(out, float64(ts[i]-ts[i-1]))
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// variance is population variance: mean of squared deviations.
func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += (v - mean) * (v - mean)
	}
	return sum / float64(len(values))
}
