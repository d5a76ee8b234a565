package types

// Model represents a discoverable model on disk.
type Model struct {
	// Stable identifier for the model.
	// example: mistral-7b-4bit
	ID string `json:"id" example:"mistral-7b-4bit"`
	// Absolute path to the model directory or file on disk.
	// example: /home/user/models/mistral-7b-4bit
	Path string `json:"path" example:"/home/user/models/mistral-7b-4bit"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	// Overall service status.
	// example: healthy
	Status string `json:"status" example:"healthy"`
	// Number of models currently resident in the cache.
	// example: 1
	CachedModels int `json:"cached_models" example:"1"`
}

// ModelInfo describes one resident model for GET /v1/models.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList wraps GET /v1/models output.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// ResidentModel summarizes one cache entry for GET /status.
type ResidentModel struct {
	// Canonical identifier of the cached model.
	ID string `json:"id"`
	// Last time this entry was used (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Number of in-flight sessions currently borrowing the handle.
	// example: 1
	Borrows int `json:"borrows" example:"1"`
	// Estimated size of the loaded model in MB.
	// example: 1200
	EstSizeMB int `json:"est_size_mb" example:"1200"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Resident cache entries, most recently used first.
	Resident []ResidentModel `json:"resident"`
	// Maximum number of models held resident.
	// example: 3
	Capacity int `json:"capacity" example:"3"`
	// Total number of loader invocations.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total number of evictions.
	// example: 5
	EvictionsTotal uint64 `json:"evictions_total" example:"5"`
	// Total number of cache hits.
	// example: 40
	HitsTotal uint64 `json:"hits_total" example:"40"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	ServerTimeUnix int64 `json:"server_time_unix"`
}
