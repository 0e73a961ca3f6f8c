package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
)

const scenarioMethod = "scenario"

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	Mode              string                  `json:"mode"`
	StartedAt         time.Time               `json:"started_at"`
	DurationSeconds   float64                 `json:"duration_seconds"`
	Scenarios         int64                   `json:"scenarios"`
	FailedScenarios   int64                   `json:"failed_scenarios"`
	ErrorRate         float64                 `json:"error_rate"`
	RPS               float64                 `json:"rps"`
	ScenarioLatencyMs latencySummary          `json:"scenario_latency_ms"`
	Methods           map[string]methodReport `json:"methods"`
}

type samples struct {
	calls     int64
	failed    int64
	codes     map[string]int64
	latencies []float64
}

// collector копит задержки и коды ответов по методам.
type collector struct {
	mu      sync.Mutex
	methods map[string]*samples
}

func newCollector() *collector {
	return &collector{methods: make(map[string]*samples)}
}

func (c *collector) record(method string, latency time.Duration, code codes.Code) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.methods[method]
	if !ok {
		s = &samples{codes: make(map[string]int64)}
		c.methods[method] = s
	}
	s.calls++
	if code != codes.OK {
		s.failed++
	}
	s.codes[code.String()]++
	s.latencies = append(s.latencies, float64(latency.Microseconds())/1000.0)
}

func (c *collector) build(mode string, startedAt time.Time, elapsed time.Duration) report {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := report{
		Mode:            mode,
		StartedAt:       startedAt.UTC(),
		DurationSeconds: elapsed.Seconds(),
		Methods:         make(map[string]methodReport, len(c.methods)),
	}
	for name, s := range c.methods {
		codesCopy := make(map[string]int64, len(s.codes))
		for code, n := range s.codes {
			codesCopy[code] = n
		}
		mr := methodReport{
			Calls:     s.calls,
			Failed:    s.failed,
			ErrorRate: ratio(s.failed, s.calls),
			Codes:     codesCopy,
			LatencyMs: summarize(s.latencies),
		}
		if name == scenarioMethod {
			out.Scenarios = mr.Calls
			out.FailedScenarios = mr.Failed
			out.ErrorRate = mr.ErrorRate
			out.ScenarioLatencyMs = mr.LatencyMs
			continue
		}
		out.Methods[name] = mr
	}
	if elapsed > 0 {
		out.RPS = float64(out.Scenarios) / elapsed.Seconds()
	}
	return out
}

func summarize(values []float64) latencySummary {
	if len(values) == 0 {
		return latencySummary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return latencySummary{
		Min: sorted[0],
		Max: sorted[len(sorted)-1],
		Avg: sum / float64(len(sorted)),
		P50: percentile(sorted, 50),
		P95: percentile(sorted, 95),
		P99: percentile(sorted, 99),
	}
}

// percentile — линейная интерполяция между соседними рангами.
func percentile(sorted []float64, p float64) float64 {
	switch len(sorted) {
	case 0:
		return 0
	case 1:
		return sorted[0]
	}
	rank := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}
	return sorted[lower] + (sorted[upper]-sorted[lower])*(rank-float64(lower))
}

func ratio(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}

func printReport(w io.Writer, r report) {
	_, _ = fmt.Fprintf(w, "cart load test: mode=%s scenarios=%d failed=%d error_rate=%.4f\n",
		r.Mode, r.Scenarios, r.FailedScenarios, r.ErrorRate)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f p50=%.2fms p95=%.2fms p99=%.2fms\n",
		r.DurationSeconds, r.RPS, r.ScenarioLatencyMs.P50, r.ScenarioLatencyMs.P95, r.ScenarioLatencyMs.P99)

	names := make([]string, 0, len(r.Methods))
	for name := range r.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		m := r.Methods[name]
		_, _ = fmt.Fprintf(w, "  %-15s calls=%d failed=%d p95=%.2fms\n", name, m.Calls, m.Failed, m.LatencyMs.P95)
	}
}

func writeJSONReport(path string, r report) error {
	clean := filepath.Clean(path)
	if clean == "." || clean == string(filepath.Separator) {
		return errors.New("output path must point to a file")
	}
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	// #nosec G304 -- путь задаёт оператор через -output.
	file, err := os.Create(clean)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
