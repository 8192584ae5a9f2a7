// Command perf_client drives src/interpreter.Interpreter directly with
// synthetic packets and reports per-packet latency percentiles,
// adapted from the teacher's test/perf/perf_client.go gRPC load
// generator onto a single-threaded call loop — the core is
// single-threaded cooperative (spec §5), so there is no concurrency
// dimension to sweep, only throughput and tail latency of Execute
// itself.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/shayanshabanzadeh/netquery/src/config"
	"github.com/shayanshabanzadeh/netquery/src/interpreter"
	"github.com/shayanshabanzadeh/netquery/src/queryplan"
	"github.com/shayanshabanzadeh/netquery/src/tuple"
)

// TestScenario selects the synthetic traffic shape fed to the
// interpreter.
type TestScenario int

const (
	FixedKey TestScenario = iota
	VariableKey
)

func (s TestScenario) String() string {
	switch s {
	case FixedKey:
		return "fixed_key"
	case VariableKey:
		return "variable_key"
	default:
		return "unknown"
	}
}

// LatencyStats accumulates per-call durations for percentile reporting.
type LatencyStats struct {
	latencies []time.Duration
}

func (ls *LatencyStats) Add(d time.Duration) {
	ls.latencies = append(ls.latencies, d)
}

func (ls *LatencyStats) Calculate() map[string]time.Duration {
	if len(ls.latencies) == 0 {
		return nil
	}
	sorted := make([]time.Duration, len(ls.latencies))
	copy(sorted, ls.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	percentiles := map[string]float64{
		"min": 0, "p50": 0.50, "p75": 0.75, "p90": 0.90,
		"p95": 0.95, "p99": 0.99, "p999": 0.999, "max": 1.0,
	}
	results := make(map[string]time.Duration)
	for name, p := range percentiles {
		idx := int(float64(len(sorted)-1) * p)
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		results[name] = sorted[idx]
	}
	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	results["avg"] = total / time.Duration(len(sorted))
	return results
}

// JSONLatencies mirrors LatencyStats.Calculate as microsecond integers.
type JSONLatencies struct {
	MinUs  int64 `json:"min_us"`
	AvgUs  int64 `json:"avg_us"`
	P50Us  int64 `json:"p50_us"`
	P75Us  int64 `json:"p75_us"`
	P90Us  int64 `json:"p90_us"`
	P95Us  int64 `json:"p95_us"`
	P99Us  int64 `json:"p99_us"`
	P999Us int64 `json:"p999_us"`
	MaxUs  int64 `json:"max_us"`
}

// JSONResult is the machine-readable benchmark summary.
type JSONResult struct {
	QueryID       int           `json:"query_id"`
	Scenario      string        `json:"scenario"`
	TotalPackets  int64         `json:"total_packets"`
	DurationMs    int64         `json:"duration_ms"`
	PacketsPerSec float64       `json:"packets_per_sec"`
	Latencies     JSONLatencies `json:"latencies"`
}

func syntheticPacket(scenario TestScenario, rng *rand.Rand) tuple.Tuple {
	dst := "fixed-dst"
	if scenario == VariableKey {
		dst = fmt.Sprintf("dst-%d", rng.Int63())
	}
	return tuple.New().
		Set("src_ip", tuple.Text("perf-src")).
		Set("dst_ip", tuple.Text(dst)).
		Set("protocol", tuple.U8(6)).
		Set("tcp_flags", tuple.U8(2))
}

func runBenchmark(queryID int, scenario TestScenario, duration time.Duration) (*JSONResult, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	plan, err := queryplan.ByID(queryID, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to build query plan: %w", err)
	}
	it, err := interpreter.New(plan, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build interpreter: %w", err)
	}

	rng := rand.New(rand.NewSource(1))
	stats := &LatencyStats{}
	var total int64

	deadline := time.Now().Add(duration)
	start := time.Now()
	for time.Now().Before(deadline) {
		pkt := syntheticPacket(scenario, rng)
		callStart := time.Now()
		it.Execute(pkt)
		stats.Add(time.Since(callStart))
		total++
	}
	elapsed := time.Since(start)

	lat := stats.Calculate()
	return &JSONResult{
		QueryID:       queryID,
		Scenario:      scenario.String(),
		TotalPackets:  total,
		DurationMs:    elapsed.Milliseconds(),
		PacketsPerSec: float64(total) / elapsed.Seconds(),
		Latencies: JSONLatencies{
			MinUs:  lat["min"].Microseconds(),
			AvgUs:  lat["avg"].Microseconds(),
			P50Us:  lat["p50"].Microseconds(),
			P75Us:  lat["p75"].Microseconds(),
			P90Us:  lat["p90"].Microseconds(),
			P95Us:  lat["p95"].Microseconds(),
			P99Us:  lat["p99"].Microseconds(),
			P999Us: lat["p999"].Microseconds(),
			MaxUs:  lat["max"].Microseconds(),
		},
	}, nil
}

func printResult(r *JSONResult) {
	fmt.Printf("\n")
	fmt.Printf("================================================================================\n")
	fmt.Printf("  Query: %d | Scenario: %s\n", r.QueryID, r.Scenario)
	fmt.Printf("================================================================================\n\n")
	fmt.Printf("  Summary:\n")
	fmt.Printf("    Total Packets:   %d\n", r.TotalPackets)
	fmt.Printf("    Duration:        %dms\n", r.DurationMs)
	fmt.Printf("    Packets/sec:     %.2f\n\n", r.PacketsPerSec)
	fmt.Printf("  Latency Distribution (us): min=%d avg=%d p50=%d p90=%d p99=%d p999=%d max=%d\n",
		r.Latencies.MinUs, r.Latencies.AvgUs, r.Latencies.P50Us, r.Latencies.P90Us,
		r.Latencies.P99Us, r.Latencies.P999Us, r.Latencies.MaxUs)
}

func main() {
	queryID := flag.Int("query", 1, "canonical query id (1-8)")
	scenarioFlag := flag.String("scenario", "fixed_key", "fixed_key or variable_key")
	duration := flag.Duration("duration", 2*time.Second, "benchmark duration")
	asJSON := flag.Bool("json", false, "emit JSON result instead of the text report")
	flag.Parse()

	scenario := FixedKey
	if *scenarioFlag == "variable_key" {
		scenario = VariableKey
	}

	result, err := runBenchmark(*queryID, scenario, *duration)
	if err != nil {
		fmt.Println(err.Error())
		return
	}

	if *asJSON {
		enc, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(enc))
		return
	}
	printResult(result)
}
