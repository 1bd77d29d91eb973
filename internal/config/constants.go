package config

import "time"

const (
	// AI request timeout on the relay side
	RequestTimeout = 90 * time.Second

	// Model cache duration
	ModelCacheDuration = 1 * time.Hour

	// Upload limits
	MaxImageSize       = 20 << 20
	MaxRequestBodySize = 64 << 20
	MaxMultipartMemory = 32 << 20

	// Rate limit burst per client IP
	RateLimitBurst = 5

	// Idle limiter eviction
	RateLimiterTTL = 10 * time.Minute

	// Relay server timeouts
	ReadHeaderTimeout = 10 * time.Second
	ShutdownTimeout   = 10 * time.Second

	// Client store
	StoreDriverFile        = "file"
	StoreDriverSQLite      = "sqlite"
	DefaultStoreDir        = ".mindchat"
	DefaultFileStoreName   = "sessions.json"
	DefaultSQLiteStoreName = "sessions.db"
	HistoryFileName        = "history"

	// Markdown rendering width
	RenderWordWrap = 100
)
