package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"authwatch/pkg/biometrics"
	"authwatch/pkg/loginpattern"
)

// Collector owns the HTTP surface of the service: it feeds caller-supplied
// event streams and login records through the scoring cores and persists the
// results.
type Collector struct {
	store  Store
	engine *loginpattern.Engine
	cache  *PatternCache
	alerts *AlertPublisher

	historyLimit   int
	alertThreshold int
}

func NewCollector(store Store, engine *loginpattern.Engine, cache *PatternCache, alerts *AlertPublisher) *Collector {
	return &Collector{
		store:          store,
		engine:         engine,
		cache:          cache,
		alerts:         alerts,
		historyLimit:   200,
		alertThreshold: 70,
	}
}

type telemetryRequest struct {
	SessionID string             `json:"session_id"`
	UserID    string             `json:"user_id"`
	Events    []biometrics.Event `json:"events"`
}

// CollectTelemetry replays a captured session event stream through a tracker
// and stores the resulting snapshot.
func (c *Collector) CollectTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req telemetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" || req.UserID == "" {
		http.Error(w, "Missing required fields", http.StatusBadRequest)
		return
	}

	tracker := biometrics.NewTracker(&biometrics.ReplaySource{Events: req.Events})
	tracker.Start()
	snap := tracker.Stop()

	if err := c.store.SaveSnapshot(r.Context(), req.SessionID, req.UserID, snap); err != nil {
		log.Printf("Failed to store snapshot: %v", err)
		http.Error(w, "Failed to store snapshot", http.StatusInternalServerError)
		return
	}
	snapshotsStored.Inc()
	if snap.BotScore >= c.alertThreshold {
		botSessionsDetected.Inc()
	}

	writeJSON(w, snap)
}

type loginRequest struct {
	UserID string                   `json:"user_id"`
	Login  loginpattern.LoginRecord `json:"login"`
}

type loginResponse struct {
	LoginID string                    `json:"login_id"`
	Score   loginpattern.AnomalyScore `json:"score"`
}

// RecordLogin registers a new login event, scores it against the user's
// learned baseline and previous login, stores the score, and raises an alert
// for high-risk results.
func (c *Collector) RecordLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "Missing user_id", http.StatusBadRequest)
		return
	}
	if req.Login.ID == "" {
		req.Login.ID = uuid.New().String()
	}
	if req.Login.Timestamp.IsZero() {
		req.Login.Timestamp = time.Now().UTC()
	}

	start := time.Now()
	ctx := r.Context()

	// History is fetched before the new login is saved so its tail is the
	// previous login for the velocity check.
	history, err := c.store.LoginHistory(ctx, req.UserID, c.historyLimit)
	if err != nil {
		log.Printf("Failed to load login history for %s: %v", req.UserID, err)
		http.Error(w, "Failed to load login history", http.StatusInternalServerError)
		return
	}

	pattern, err := c.learnPattern(ctx, req.UserID, history)
	if err != nil {
		log.Printf("Failed to learn pattern for %s: %v", req.UserID, err)
		http.Error(w, "Failed to learn login pattern", http.StatusInternalServerError)
		return
	}

	var previous *loginpattern.LoginRecord
	if len(history) > 0 {
		previous = &history[len(history)-1]
	}

	score, err := c.engine.Score(req.Login, pattern, previous)
	if err != nil {
		if errors.Is(err, loginpattern.ErrMalformedRecord) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "Failed to score login", http.StatusInternalServerError)
		return
	}

	if err := c.store.SaveLogin(ctx, req.UserID, req.Login); err != nil {
		log.Printf("Failed to store login: %v", err)
		http.Error(w, "Failed to store login", http.StatusInternalServerError)
		return
	}
	if err := c.store.SaveScore(ctx, req.UserID, req.Login.ID, score); err != nil {
		log.Printf("Failed to store score: %v", err)
	}
	// The cached baseline no longer reflects the full history.
	c.cache.Invalidate(ctx, req.UserID)

	scoringLatency.Observe(time.Since(start).Seconds())
	loginsScored.WithLabelValues(riskBand(score.Overall)).Inc()
	if score.ImpossibleTravel {
		impossibleTravelTotal.Inc()
	}

	if score.Overall >= c.alertThreshold || score.ImpossibleTravel {
		c.publishAlert(req.UserID, req.Login.ID, score)
	}

	writeJSON(w, loginResponse{LoginID: req.Login.ID, Score: score})
}

// GetPattern returns the user's current learned baseline.
func (c *Collector) GetPattern(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "Missing user_id parameter", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	history, err := c.store.LoginHistory(ctx, userID, c.historyLimit)
	if err != nil {
		log.Printf("Failed to load login history for %s: %v", userID, err)
		http.Error(w, "Failed to load login history", http.StatusInternalServerError)
		return
	}

	pattern, err := c.learnPattern(ctx, userID, history)
	if err != nil {
		log.Printf("Failed to learn pattern for %s: %v", userID, err)
		http.Error(w, "Failed to learn login pattern", http.StatusInternalServerError)
		return
	}

	writeJSON(w, pattern)
}

// learnPattern consults the cache before recomputing the baseline.
func (c *Collector) learnPattern(ctx context.Context, userID string, history []loginpattern.LoginRecord) (loginpattern.UserPattern, error) {
	if pattern, ok := c.cache.Get(ctx, userID); ok {
		return pattern, nil
	}
	pattern, err := c.engine.Learn(history)
	if err != nil {
		return loginpattern.UserPattern{}, err
	}
	c.cache.Put(ctx, userID, pattern)
	return pattern, nil
}

func (c *Collector) publishAlert(userID, loginID string, score loginpattern.AnomalyScore) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.alerts.Publish(ctx, RiskAlert{
		UserID:           userID,
		LoginID:          loginID,
		Overall:          score.Overall,
		ImpossibleTravel: score.ImpossibleTravel,
		Reasons:          score.Reasons,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		Source:           "loginrisk",
	})
	if err != nil {
		log.Printf("Failed to publish risk alert for %s: %v", userID, err)
	}
}

func riskBand(overall int) string {
	switch {
	case overall >= 70:
		return "high"
	case overall >= 40:
		return "elevated"
	default:
		return "low"
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
