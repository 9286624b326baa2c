package chessdto

type PoolStats struct {
	Capacity      int  `json:"capacity"`
	Live          int  `json:"live"`
	Idle          int  `json:"idle"`
	Degraded      bool `json:"degraded"`
	SpawnFailures int  `json:"spawn_failures"`
}

type HealthResponse struct {
	// Status is "ok" or "degraded".
	Status   string    `json:"status"`
	Sessions int       `json:"sessions"`
	Pool     PoolStats `json:"pool"`
}

type PoolResetResponse struct {
	Status string    `json:"status"`
	Pool   PoolStats `json:"pool"`
}
