package system

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"strom/internal/nlu"
)

type memInfo struct {
	Total     uint64
	Available uint64
}

// readMemInfo parses MemTotal and MemAvailable (kB) from /proc/meminfo.
func readMemInfo(data []byte) (memInfo, error) {
	var mi memInfo

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 2 {
			continue
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			mi.Total = kb * 1024
		case "MemAvailable:":
			mi.Available = kb * 1024
		}
	}
	if err := sc.Err(); err != nil {
		return memInfo{}, err
	}
	if mi.Total == 0 {
		return memInfo{}, fmt.Errorf("meminfo: no MemTotal")
	}
	return mi, nil
}

func (c *Controller) readFile(base string, elem ...string) ([]byte, error) {
	return os.ReadFile(filepath.Join(append([]string{base}, elem...)...))
}

// SystemInfo reports kernel, load, memory and battery. Missing sources are
// left out of the report.
func (c *Controller) SystemInfo(ctx context.Context, _ nlu.Result) (string, error) {
	var lines []string

	osLine := "OS: " + runtime.GOOS
	if out, err := c.run.Output(ctx, "uname", "-r"); err == nil {
		if rel := strings.TrimSpace(string(out)); rel != "" {
			osLine += " " + rel
		}
	}
	lines = append(lines, osLine)

	cpu := fmt.Sprintf("CPU: %d cores", runtime.NumCPU())
	if data, err := c.readFile(c.cfg.ProcDir, "loadavg"); err == nil {
		if f := strings.Fields(string(data)); len(f) > 0 {
			cpu += ", load " + f[0]
		}
	}
	lines = append(lines, cpu)

	if data, err := c.readFile(c.cfg.ProcDir, "meminfo"); err == nil {
		if mi, err := readMemInfo(data); err == nil {
			used := mi.Total - min(mi.Available, mi.Total)
			pct := used * 100 / mi.Total
			lines = append(lines, fmt.Sprintf("Memory: %d%% used (%s of %s)",
				pct, humanize.IBytes(used), humanize.IBytes(mi.Total)))
		}
	}

	if data, err := c.readFile(c.cfg.SysDir, "class", "power_supply", "BAT0", "capacity"); err == nil {
		lines = append(lines, "Battery: "+strings.TrimSpace(string(data))+"%")
	}

	return "System status:\n" + strings.Join(lines, "\n"), nil
}
