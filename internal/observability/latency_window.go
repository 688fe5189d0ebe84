package observability

import (
	"maps"
	"math"
	"slices"
	"sync"
	"time"
)

// Stages timed on every answered turn.
const (
	StageCompletion = "completion"
	StageTurnTotal  = "turn_total"
)

// StageLatency summarizes the recent samples of one stage in milliseconds.
type StageLatency struct {
	Stage   string  `json:"stage"`
	Samples int     `json:"samples"`
	LastMS  float64 `json:"last_ms"`
	AvgMS   float64 `json:"avg_ms"`
	P50MS   float64 `json:"p50_ms"`
	P95MS   float64 `json:"p95_ms"`
	MaxMS   float64 `json:"max_ms"`
}

// LatencySnapshot is served on the perf endpoint.
type LatencySnapshot struct {
	GeneratedAt time.Time      `json:"generated_at"`
	WindowSize  int            `json:"window_size"`
	Stages      []StageLatency `json:"stages"`
	Indicators  map[string]int `json:"indicators,omitempty"`
}

// latencyWindow keeps the last size samples per stage and running counts of
// turn indicators such as empty speech or a trimmed transcript.
type latencyWindow struct {
	mu         sync.Mutex
	size       int
	rings      map[string]*ring
	indicators map[string]int
}

type ring struct {
	values []float64
	next   int
	last   float64
}

func (r *ring) add(v float64, size int) {
	r.last = v
	if len(r.values) < size {
		r.values = append(r.values, v)
		return
	}
	r.values[r.next] = v
	r.next = (r.next + 1) % size
}

func newLatencyWindow(size int) *latencyWindow {
	if size <= 0 {
		size = 256
	}
	return &latencyWindow{
		size:       size,
		rings:      make(map[string]*ring),
		indicators: make(map[string]int),
	}
}

func (w *latencyWindow) observe(stage string, d time.Duration) {
	if stage == "" || d < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	r, ok := w.rings[stage]
	if !ok {
		r = &ring{values: make([]float64, 0, w.size)}
		w.rings[stage] = r
	}
	r.add(float64(d.Microseconds())/1000, w.size)
}

func (w *latencyWindow) count(indicator string) {
	if indicator == "" {
		return
	}
	w.mu.Lock()
	w.indicators[indicator]++
	w.mu.Unlock()
}

func (w *latencyWindow) snapshot() LatencySnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := LatencySnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Stages:      make([]StageLatency, 0, len(w.rings)),
	}
	for _, stage := range slices.Sorted(maps.Keys(w.rings)) {
		r := w.rings[stage]
		sorted := slices.Sorted(slices.Values(r.values))
		sum := 0.0
		for _, v := range sorted {
			sum += v
		}
		snap.Stages = append(snap.Stages, StageLatency{
			Stage:   stage,
			Samples: len(sorted),
			LastMS:  round2(r.last),
			AvgMS:   round2(sum / float64(len(sorted))),
			P50MS:   round2(nearestRank(sorted, 0.50)),
			P95MS:   round2(nearestRank(sorted, 0.95)),
			MaxMS:   round2(sorted[len(sorted)-1]),
		})
	}
	if len(w.indicators) > 0 {
		snap.Indicators = maps.Clone(w.indicators)
	}
	return snap
}

// nearestRank expects a non-empty ascending slice.
func nearestRank(sorted []float64, q float64) float64 {
	idx := int(math.Ceil(q*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
