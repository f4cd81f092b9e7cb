package server

import (
	"encoding/json"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// cpuSampleWindow keeps the stats endpoint responsive while still giving a
// usable CPU reading.
const cpuSampleWindow = 100 * time.Millisecond

// SystemHandlers serves host and process statistics
type SystemHandlers struct {
	startedAt time.Time
	log       zerolog.Logger
}

// SystemStatsResponse is the body of GET /api/system/stats
type SystemStatsResponse struct {
	CPUPercent      float64 `json:"cpu_percent"`
	MemoryPercent   float64 `json:"memory_percent"`
	MemoryTotalMB   float64 `json:"memory_total_mb"`
	ProcessRSSMB    float64 `json:"process_rss_mb"`
	HeapAllocMB     float64 `json:"heap_alloc_mb"`
	Goroutines      int     `json:"goroutines"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	NumCPU          int     `json:"num_cpu"`
	GoVersion       string  `json:"go_version"`
	CollectedAtUnix int64   `json:"collected_at"`
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		startedAt: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemStats handles GET /api/system/stats
func (h *SystemHandlers) HandleSystemStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.log, http.StatusOK, map[string]interface{}{
		"data": h.collect(),
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// collect gathers host statistics. Individual probe failures are logged and
// reported as zero.
func (h *SystemHandlers) collect() SystemStatsResponse {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	stats := SystemStatsResponse{
		HeapAllocMB:     bytesToMB(ms.HeapAlloc),
		Goroutines:      runtime.NumGoroutine(),
		UptimeSeconds:   time.Since(h.startedAt).Seconds(),
		NumCPU:          runtime.NumCPU(),
		GoVersion:       runtime.Version(),
		CollectedAtUnix: time.Now().Unix(),
	}

	cpuPercent, err := cpu.Percent(cpuSampleWindow, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	} else if len(cpuPercent) > 0 {
		stats.CPUPercent = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	} else {
		stats.MemoryPercent = memStat.UsedPercent
		stats.MemoryTotalMB = bytesToMB(memStat.Total)
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err != nil {
		h.log.Warn().Err(err).Msg("Failed to open own process")
	} else if info, err := proc.MemoryInfo(); err != nil {
		h.log.Warn().Err(err).Msg("Failed to get process memory")
	} else {
		stats.ProcessRSSMB = bytesToMB(info.RSS)
	}

	return stats
}

func bytesToMB(b uint64) float64 {
	return float64(b) / 1024 / 1024
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
