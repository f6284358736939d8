package main

import (
	"os"
	"strconv"
	"sync"
)

type Config struct {
	HashMB         int    `json:"hash_mb"`
	Threads        int    `json:"threads"`
	MoveOverheadMs int    `json:"move_overhead_ms"`
	MultiPV        int    `json:"multi_pv"`
	Style          string `json:"style"`

	LogSearchStats bool `json:"log_search_stats"`

	HTTPAddr         string `json:"http_addr"`
	AnalysisDepth    int    `json:"analysis_depth"`
	AnalysisMaxPlies int    `json:"analysis_max_plies"`
	WSInfoThrottleMs int    `json:"ws_info_throttle_ms"`
}

func DefaultConfig() Config {
	return Config{
		HashMB:         64,
		Threads:        1,
		MoveOverheadMs: 80,
		MultiPV:        1,
		Style:          "Normal",

		LogSearchStats: false,

		HTTPAddr:         ":8088",
		AnalysisDepth:    8,
		AnalysisMaxPlies: 400,
		WSInfoThrottleMs: 50,
	}
}

type ConfigStore struct {
	mu     sync.RWMutex
	config Config
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{config: DefaultConfig()}
}

func (s *ConfigStore) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

func (s *ConfigStore) Update(fn func(*Config)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.config)
}

// ApplyEnv overlays FIANCHETTO_* environment variables onto the config.
// Called after godotenv has loaded any .env file, so the file and the real
// environment both work.
func (s *ConfigStore) ApplyEnv() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v := os.Getenv("FIANCHETTO_HTTP_ADDR"); v != "" {
		s.config.HTTPAddr = v
	}
	if v := os.Getenv("FIANCHETTO_HASH_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.config.HashMB = n
		}
	}
	if v := os.Getenv("FIANCHETTO_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.config.Threads = n
		}
	}
	if v := os.Getenv("FIANCHETTO_STYLE"); v != "" {
		if _, ok := styleProfiles[v]; ok {
			s.config.Style = v
		}
	}
	if v := os.Getenv("FIANCHETTO_LOG_SEARCH_STATS"); v != "" {
		s.config.LogSearchStats = v == "1" || v == "true"
	}
	if v := os.Getenv("FIANCHETTO_ANALYSIS_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= maxSearchDepth {
			s.config.AnalysisDepth = n
		}
	}
}
