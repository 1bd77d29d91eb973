package domain

import "time"

// HealthStatus is the relay's /api/health payload.
type HealthStatus struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	APIKeyConfigured bool      `json:"apiKeyConfigured"`
}
