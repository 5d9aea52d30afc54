package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"stockfolio-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// DBPinger is optional for health check. If nil, database is reported as disconnected.
type DBPinger interface {
	Ping() error
}

// Probe is an extra dependency check shown next to database and redis.
type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

type CollectResult struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
}

type RuntimeInfo struct {
	UptimeSeconds int64      `json:"uptimeSeconds"`
	Memory        MemoryInfo `json:"memory"`
	Goroutines    int        `json:"goroutines"`
	Platform      string     `json:"platform"`
	GoVersion     string     `json:"goVersion"`
}

type MemoryInfo struct {
	AllocMB  int `json:"allocMb"`
	HeapUsed int `json:"heapUsed"`
}

type TrafficInfo struct {
	TotalRequests   int          `json:"totalRequests"`
	SuccessCount    int          `json:"successCount"`
	FailedCount     int          `json:"failedCount"`
	SuccessRate     string       `json:"successRate"`
	AvgResponseTime string       `json:"avgResponseTime"`
	LastRequest     *LastRequest `json:"lastRequest"`
}

// LastRequest mirrors what HealthMarker stores under KeyLastReq.
type LastRequest struct {
	Time   time.Time `json:"time"`
	IP     string    `json:"ip"`
	Path   string    `json:"path"`
	Method string    `json:"method"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs"`
}

const probeTimeout = 3 * time.Second

func ping(ctx context.Context, check func(ctx context.Context) error) (string, *int64) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	start := time.Now()
	if err := check(ctx); err != nil {
		return "error", nil
	}
	ms := time.Since(start).Milliseconds()
	return "connected", &ms
}

// CollectHealth gathers dependency status and the traffic counters HealthMarker keeps in Redis.
// Status is "ok" only when database, redis and every probe are connected.
func CollectHealth(ctx context.Context, rdb *redis.Client, db DBPinger, probes ...Probe) CollectResult {
	result := CollectResult{Dependencies: make(map[string]DepStatus)}
	healthy := true

	dep := DepStatus{Status: "disconnected"}
	if db != nil {
		dep.Status, dep.PingMs = ping(ctx, func(context.Context) error { return db.Ping() })
	}
	result.Dependencies["database"] = dep
	healthy = healthy && dep.Status == "connected"

	stats := TrafficInfo{AvgResponseTime: "0", SuccessRate: "100"}
	startTimeMs := time.Now().UnixMilli()
	dep = DepStatus{Status: "disconnected"}
	if rdb != nil {
		dep.Status, dep.PingMs = ping(ctx, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
		if dep.Status == "connected" {
			startTimeMs = readTraffic(ctx, rdb, &stats, startTimeMs)
		}
	}
	result.Dependencies["redis"] = dep
	healthy = healthy && dep.Status == "connected"

	for _, p := range probes {
		d := DepStatus{}
		d.Status, d.PingMs = ping(ctx, p.Check)
		result.Dependencies[p.Name] = d
		healthy = healthy && d.Status == "connected"
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptimeSec := (time.Now().UnixMilli() - startTimeMs) / 1000
	if uptimeSec < 0 {
		uptimeSec = 0
	}
	result.Runtime = RuntimeInfo{
		UptimeSeconds: uptimeSec,
		Memory:        MemoryInfo{AllocMB: int(m.Alloc / 1024 / 1024), HeapUsed: int(m.HeapInuse / 1024 / 1024)},
		Goroutines:    runtime.NumGoroutine(),
		Platform:      runtime.GOOS + " (" + runtime.GOARCH + ")",
		GoVersion:     runtime.Version(),
	}
	result.Traffic = stats

	if healthy {
		result.Status = "ok"
	} else {
		result.Status = "issue"
	}
	return result
}

// readTraffic fills stats and returns the recorded start time, initialising it when missing.
func readTraffic(ctx context.Context, rdb *redis.Client, stats *TrafficInfo, fallbackStart int64) int64 {
	vals, err := rdb.MGet(ctx,
		middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq,
	).Result()
	if err != nil {
		return fallbackStart
	}
	str := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	startTimeMs := fallbackStart
	if t, err := strconv.ParseInt(str(4), 10, 64); err == nil {
		startTimeMs = t
	} else {
		rdb.Set(ctx, middleware.KeyStartTime, startTimeMs, 0)
	}

	stats.TotalRequests, _ = strconv.Atoi(str(0))
	stats.FailedCount, _ = strconv.Atoi(str(1))
	stats.SuccessCount = stats.TotalRequests - stats.FailedCount
	if stats.TotalRequests > 0 {
		stats.SuccessRate = strconv.FormatFloat(float64(stats.SuccessCount)/float64(stats.TotalRequests)*100, 'f', 1, 64)
	}
	timeSum, _ := strconv.ParseFloat(str(2), 64)
	countSum, _ := strconv.Atoi(str(3))
	if countSum > 0 {
		stats.AvgResponseTime = strconv.FormatFloat(timeSum/float64(countSum), 'f', 2, 64)
	}
	if s := str(5); s != "" {
		var last LastRequest
		if json.Unmarshal([]byte(s), &last) == nil {
			stats.LastRequest = &last
		}
	}
	return startTimeMs
}
