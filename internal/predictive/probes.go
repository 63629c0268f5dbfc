package predictive

import (
	"bufio"
	"context"
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/cortexmind/cortex/internal/selfheal"
)

// DiskProbe reports filesystem usage for a mount point via statfs, the way
// the memory collector parses /proc/meminfo directly rather than shelling
// out to df.
type DiskProbe struct {
	sourceID string
	path     string
	interval time.Duration
}

func NewDiskProbe(sourceID, path string, interval time.Duration) *DiskProbe {
	return &DiskProbe{sourceID: sourceID, path: path, interval: interval}
}

func (p *DiskProbe) SourceID() string                 { return p.sourceID }
func (p *DiskProbe) PollInterval() time.Duration       { return p.interval }
func (p *DiskProbe) FreshnessThreshold() time.Duration { return 5 * time.Second }

func (p *DiskProbe) Poll(ctx context.Context) selfheal.Reading {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(p.path, &stat); err != nil {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "statfs_failed"}
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bfree * uint64(stat.Bsize)
	if total == 0 {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "statfs_zero_total"}
	}
	usedPct := float64(total-free) / float64(total) * 100
	return selfheal.Reading{SourceID: p.sourceID, Available: true, Data: map[string]float64{"disk_used_pct": usedPct}}
}

// MemoryProbe parses /proc/meminfo for MemTotal/MemAvailable, grounded on
// the same key:value-per-line parsing the procfs memory collector uses.
type MemoryProbe struct {
	sourceID string
	procRoot string
	interval time.Duration
}

func NewMemoryProbe(sourceID, procRoot string, interval time.Duration) *MemoryProbe {
	return &MemoryProbe{sourceID: sourceID, procRoot: procRoot, interval: interval}
}

func (p *MemoryProbe) SourceID() string                 { return p.sourceID }
func (p *MemoryProbe) PollInterval() time.Duration       { return p.interval }
func (p *MemoryProbe) FreshnessThreshold() time.Duration { return 5 * time.Second }

func (p *MemoryProbe) Poll(ctx context.Context) selfheal.Reading {
	f, err := os.Open(filepath.Join(p.procRoot, "meminfo"))
	if err != nil {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "meminfo_unreadable"}
	}
	defer f.Close()

	var totalKB, availKB int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.SplitN(scanner.Text(), ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		valStr := strings.TrimSuffix(strings.TrimSpace(parts[1]), " kB")
		val, _ := strconv.ParseInt(strings.TrimSpace(valStr), 10, 64)
		switch key {
		case "MemTotal":
			totalKB = val
		case "MemAvailable":
			availKB = val
		}
	}
	if totalKB == 0 {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "meminfo_no_total"}
	}
	usedPct := float64(totalKB-availKB) / float64(totalKB) * 100
	return selfheal.Reading{SourceID: p.sourceID, Available: true, Data: map[string]float64{"mem_used_pct": usedPct}}
}

// ProcessHealthProbe checks liveness of a tracked PID via signal 0.
type ProcessHealthProbe struct {
	sourceID string
	pid      int
	interval time.Duration
}

func NewProcessHealthProbe(sourceID string, pid int, interval time.Duration) *ProcessHealthProbe {
	return &ProcessHealthProbe{sourceID: sourceID, pid: pid, interval: interval}
}

func (p *ProcessHealthProbe) SourceID() string                 { return p.sourceID }
func (p *ProcessHealthProbe) PollInterval() time.Duration       { return p.interval }
func (p *ProcessHealthProbe) FreshnessThreshold() time.Duration { return 2 * time.Second }

func (p *ProcessHealthProbe) Poll(ctx context.Context) selfheal.Reading {
	proc, err := os.FindProcess(p.pid)
	if err != nil {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "no_such_process"}
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "no_such_process"}
	}
	return selfheal.Reading{SourceID: p.sourceID, Available: true, Data: map[string]float64{"state": 0}}
}

// GatewayProbe checks an HTTP health endpoint's reachability and latency.
type GatewayProbe struct {
	sourceID string
	url      string
	client   *http.Client
	interval time.Duration
}

func NewGatewayProbe(sourceID, url string, interval, timeout time.Duration) *GatewayProbe {
	return &GatewayProbe{sourceID: sourceID, url: url, client: &http.Client{Timeout: timeout}, interval: interval}
}

func (p *GatewayProbe) SourceID() string                 { return p.sourceID }
func (p *GatewayProbe) PollInterval() time.Duration       { return p.interval }
func (p *GatewayProbe) FreshnessThreshold() time.Duration { return p.client.Timeout + time.Second }

func (p *GatewayProbe) Poll(ctx context.Context) selfheal.Reading {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "gateway_timeout"}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "gateway_timeout"}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "gateway_timeout"}
	}
	return selfheal.Reading{SourceID: p.sourceID, Available: true, Data: map[string]float64{"status": float64(resp.StatusCode)}}
}

// DBIntegrityProbe runs `PRAGMA integrity_check` against the brain database
// on a slow cadence, since it is comparatively expensive on a large store.
type DBIntegrityProbe struct {
	sourceID string
	db       *sql.DB
	interval time.Duration
}

func NewDBIntegrityProbe(sourceID string, db *sql.DB, interval time.Duration) *DBIntegrityProbe {
	return &DBIntegrityProbe{sourceID: sourceID, db: db, interval: interval}
}

func (p *DBIntegrityProbe) SourceID() string                 { return p.sourceID }
func (p *DBIntegrityProbe) PollInterval() time.Duration       { return p.interval }
func (p *DBIntegrityProbe) FreshnessThreshold() time.Duration { return 30 * time.Second }

func (p *DBIntegrityProbe) Poll(ctx context.Context) selfheal.Reading {
	row := p.db.QueryRowContext(ctx, "PRAGMA integrity_check")
	var result string
	if err := row.Scan(&result); err != nil {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "integrity_check_unreadable"}
	}
	failed := 0.0
	if result != "ok" {
		failed = 1.0
	}
	return selfheal.Reading{SourceID: p.sourceID, Available: true, Data: map[string]float64{"integrity_check_failed": failed}}
}

// LogBloatProbe sums the byte size of a log directory's files.
type LogBloatProbe struct {
	sourceID string
	dir      string
	interval time.Duration
}

func NewLogBloatProbe(sourceID, dir string, interval time.Duration) *LogBloatProbe {
	return &LogBloatProbe{sourceID: sourceID, dir: dir, interval: interval}
}

func (p *LogBloatProbe) SourceID() string                 { return p.sourceID }
func (p *LogBloatProbe) PollInterval() time.Duration       { return p.interval }
func (p *LogBloatProbe) FreshnessThreshold() time.Duration { return 10 * time.Second }

func (p *LogBloatProbe) Poll(ctx context.Context) selfheal.Reading {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return selfheal.Reading{SourceID: p.sourceID, Available: false, Error: "log_dir_unreadable"}
	}
	var totalBytes int64
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		totalBytes += info.Size()
	}
	return selfheal.Reading{SourceID: p.sourceID, Available: true, Data: map[string]float64{"log_size_mb": float64(totalBytes) / (1024 * 1024)}}
}
