package monitoring

import (
	"fmt"
	"os"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// Config holds New Relic configuration
type Config struct {
	LicenseKey string
	AppName    string
	Enabled    bool
	LogLevel   string
}

// NewRelicApp wraps the New Relic application. A nil or disabled app drops everything.
type NewRelicApp struct {
	*newrelic.Application
	enabled bool
}

// New creates a new New Relic application
func New(cfg Config) (*NewRelicApp, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return Disabled(), nil
	}

	opts := []newrelic.ConfigOption{
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigAppLogForwardingEnabled(true),
		newrelic.ConfigDistributedTracerEnabled(true),
	}
	if cfg.LogLevel == "debug" {
		opts = append(opts, newrelic.ConfigDebugLogger(os.Stdout))
	}

	app, err := newrelic.NewApplication(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create New Relic application: %w", err)
	}

	return &NewRelicApp{app, true}, nil
}

// Disabled returns an app that records nothing
func Disabled() *NewRelicApp {
	return &NewRelicApp{nil, false}
}

func (nr *NewRelicApp) active() bool {
	return nr != nil && nr.enabled && nr.Application != nil
}

// App returns the underlying agent, or nil when disabled
func (nr *NewRelicApp) App() *newrelic.Application {
	if !nr.active() {
		return nil
	}
	return nr.Application
}

// RecordCustomEvent records a custom event
func (nr *NewRelicApp) RecordCustomEvent(eventType string, params map[string]interface{}) {
	if !nr.active() {
		return
	}
	nr.Application.RecordCustomEvent(eventType, params)
}

// RecordCustomMetric records a custom metric
func (nr *NewRelicApp) RecordCustomMetric(name string, value float64) {
	if !nr.active() {
		return
	}
	nr.Application.RecordCustomMetric(name, value)
}

// Shutdown flushes pending data and stops the agent
func (nr *NewRelicApp) Shutdown(timeout time.Duration) {
	if !nr.active() {
		return
	}
	nr.Application.Shutdown(timeout)
}

// IsEnabled returns whether New Relic is enabled
func (nr *NewRelicApp) IsEnabled() bool {
	return nr.active()
}

// Domain helpers

// RecordTaskPublished records a new task
func (nr *NewRelicApp) RecordTaskPublished(taskID string, reward float64) {
	nr.RecordCustomEvent("TaskPublished", map[string]interface{}{
		"task_id":   taskID,
		"reward":    reward,
		"timestamp": time.Now().Unix(),
	})
	nr.RecordCustomMetric("custom/task/reward", reward)
}

// RecordTaskTransition records a lifecycle transition such as accept or cancel
func (nr *NewRelicApp) RecordTaskTransition(taskID string, event string, status string) {
	nr.RecordCustomEvent("TaskTransition", map[string]interface{}{
		"task_id": taskID,
		"event":   event,
		"status":  status,
	})
	nr.RecordCustomMetric(fmt.Sprintf("custom/task/%s", event), 1)
}

// RecordRatingChange records a rating being added or deleted and the new reputation
func (nr *NewRelicApp) RecordRatingChange(action string, userID string, score int, reputation float64) {
	nr.RecordCustomEvent("RatingChanged", map[string]interface{}{
		"action":     action,
		"user_id":    userID,
		"score":      score,
		"reputation": reputation,
	})
}

// RecordLoginThrottled records a login rejected by the attempt limiter
func (nr *NewRelicApp) RecordLoginThrottled() {
	nr.RecordCustomMetric("custom/auth/login_throttled", 1)
}

// RecordDatabasePoolStats records database connection pool statistics
func (nr *NewRelicApp) RecordDatabasePoolStats(open, inUse, idle int) {
	nr.RecordCustomMetric("custom/db/open_connections", float64(open))
	nr.RecordCustomMetric("custom/db/in_use_connections", float64(inUse))
	nr.RecordCustomMetric("custom/db/idle_connections", float64(idle))
}
