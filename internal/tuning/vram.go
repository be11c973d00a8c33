package tuning

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DetectVRAMMB probes the GPU's total memory in megabytes. Best effort: it
// asks nvidia-smi when present and returns 0 when nothing can be detected,
// which callers map to a conservative default.
func DetectVRAMMB() int {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return 0
	}
	return parseVRAMOutput(string(out))
}

// parseVRAMOutput reads the first per-GPU line of nvidia-smi output.
func parseVRAMOutput(out string) int {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		mb, err := strconv.Atoi(line)
		if err != nil || mb <= 0 {
			return 0
		}
		return mb
	}
	return 0
}
