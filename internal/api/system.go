package api

import (
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/labstack/echo/v4"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/tphakala/lyricgraph/internal/logger"
)

const bytesPerMB = 1024 * 1024

// SystemInfo describes the host and the running process.
type SystemInfo struct {
	OS           string       `json:"os"`
	Architecture string       `json:"architecture"`
	CPUModel     string       `json:"cpu_model"`
	NumCPU       int          `json:"num_cpu"`
	GoVersion    string       `json:"go_version"`
	Version      string       `json:"version"`
	AppStart     time.Time    `json:"app_start_time"`
	AppUptime    int64        `json:"app_uptime_seconds"`
	Goroutines   int          `json:"goroutines"`
	Resources    ResourceInfo `json:"resources"`
	DataDisk     *DiskInfo    `json:"data_disk,omitempty"`
}

// ResourceInfo holds memory usage of the host and the process.
type ResourceInfo struct {
	MemoryTotal uint64  `json:"memory_total"`
	MemoryUsed  uint64  `json:"memory_used"`
	MemoryUsage float64 `json:"memory_usage_percent"`
	ProcessMem  float64 `json:"process_memory_mb"`
	ProcessCPU  float64 `json:"process_cpu_percent"`
}

// DiskInfo is the usage of the filesystem holding the data directory.
type DiskInfo struct {
	Path      string  `json:"path"`
	Total     uint64  `json:"total"`
	Used      uint64  `json:"used"`
	Free      uint64  `json:"free"`
	UsagePerc float64 `json:"usage_percent"`
}

// systemInfo handles GET /api/v1/system. Host queries that fail are left
// zero and logged; the endpoint itself only fails on a broken request.
func (s *Server) systemInfo(c echo.Context) error {
	info := SystemInfo{
		OS:           runtime.GOOS,
		Architecture: runtime.GOARCH,
		CPUModel:     cpuid.CPU.BrandName,
		NumCPU:       runtime.NumCPU(),
		GoVersion:    runtime.Version(),
		Version:      s.settings.Version,
		AppStart:     s.startTime,
		AppUptime:    int64(time.Since(s.startTime).Seconds()),
		Goroutines:   runtime.NumGoroutine(),
	}

	if vm, err := mem.VirtualMemoryWithContext(c.Request().Context()); err == nil {
		info.Resources.MemoryTotal = vm.Total
		info.Resources.MemoryUsed = vm.Used
		info.Resources.MemoryUsage = vm.UsedPercent
	} else {
		s.log.Debug("memory stats unavailable", logger.Error(err))
	}

	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if pm, err := proc.MemoryInfo(); err == nil && pm != nil {
			info.Resources.ProcessMem = float64(pm.RSS) / bytesPerMB
		}
		if pc, err := proc.CPUPercent(); err == nil {
			info.Resources.ProcessCPU = pc
		}
	} else {
		s.log.Debug("process stats unavailable", logger.Error(err))
	}

	if dir := s.settings.Main.DataDir; dir != "" {
		if du, err := disk.UsageWithContext(c.Request().Context(), dir); err == nil {
			info.DataDisk = &DiskInfo{
				Path:      dir,
				Total:     du.Total,
				Used:      du.Used,
				Free:      du.Free,
				UsagePerc: du.UsedPercent,
			}
		} else {
			s.log.Debug("disk usage unavailable", logger.String("path", dir), logger.Error(err))
		}
	}

	return c.JSON(http.StatusOK, info)
}
