// Package tuning computes thread and GPU layer recommendations for locally
// spawned inference servers from the machine's CPU and VRAM capacity.
package tuning

import "runtime"

// Workload distinguishes tuning profiles by how heavy the model work is.
type Workload string

const (
	// WorkloadReasoning covers the rewrite/reasoning model server.
	WorkloadReasoning Workload = "reasoning"
	// WorkloadTranscription covers the lighter speech-to-text path.
	WorkloadTranscription Workload = "transcription"
)

type threadProfile struct {
	min            int
	max            int
	reserveAtLeast int
	reserveRatio   float64
}

var threadProfiles = map[Workload]threadProfile{
	WorkloadReasoning:     {min: 4, max: 12, reserveAtLeast: 4, reserveRatio: 0.45},
	WorkloadTranscription: {min: 2, max: 8, reserveAtLeast: 4, reserveRatio: 0.55},
}

// defaultGPULayers is used when VRAM cannot be detected.
const defaultGPULayers = 40

// Advisor derives runtime tuning values. Overrides win over detection; the
// probe functions are injectable so tests stay deterministic.
type Advisor struct {
	// ThreadsOverride, when positive, is returned verbatim by Threads.
	ThreadsOverride int
	// GPULayersOverride, when positive, is returned verbatim by GPULayers.
	GPULayersOverride int
	// NumCPU returns the logical CPU count. Defaults to runtime.NumCPU.
	NumCPU func() int
	// VRAMMB returns detected GPU memory in megabytes, 0 when unknown.
	// Defaults to DetectVRAMMB.
	VRAMMB func() int
}

func NewAdvisor(threadsOverride, gpuLayersOverride int) *Advisor {
	return &Advisor{
		ThreadsOverride:   threadsOverride,
		GPULayersOverride: gpuLayersOverride,
		NumCPU:            runtime.NumCPU,
		VRAMMB:            DetectVRAMMB,
	}
}

// Threads recommends a thread count for the workload: leave a share of the
// logical CPUs to the rest of the desktop, clamped to the profile bounds.
func (a *Advisor) Threads(w Workload) int {
	if a.ThreadsOverride > 0 {
		return a.ThreadsOverride
	}
	prof, ok := threadProfiles[w]
	if !ok {
		prof = threadProfiles[WorkloadReasoning]
	}
	cpus := a.numCPU()
	reserve := int(float64(cpus) * prof.reserveRatio)
	if reserve < prof.reserveAtLeast {
		reserve = prof.reserveAtLeast
	}
	return clamp(cpus-reserve, prof.min, prof.max)
}

// GPULayers recommends how many model layers to offload to the GPU, stepped
// by detected VRAM. Unknown VRAM gets a middle-of-the-road default rather
// than disabling offload.
func (a *Advisor) GPULayers() int {
	if a.GPULayersOverride > 0 {
		return a.GPULayersOverride
	}
	vram := a.vramMB()
	if vram <= 0 {
		return defaultGPULayers
	}
	switch {
	case vram <= 4096:
		return 16
	case vram <= 6144:
		return 24
	case vram <= 8192:
		return 32
	case vram <= 10240:
		return 40
	case vram <= 16384:
		return 60
	default:
		return 80
	}
}

func (a *Advisor) numCPU() int {
	if a.NumCPU != nil {
		return a.NumCPU()
	}
	return runtime.NumCPU()
}

func (a *Advisor) vramMB() int {
	if a.VRAMMB != nil {
		return a.VRAMMB()
	}
	return DetectVRAMMB()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
