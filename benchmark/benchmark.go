// Package benchmark - Measures postprocess pipeline latency on synthetic model outputs across
// layouts, frame sizes and worker counts.
package benchmark

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-seg/models/postprocess"
)

// Suite manages and executes benchmark scenarios
type Suite struct {
	mu        sync.RWMutex
	scenarios []Scenario
	results   []Metrics
	outputDir string
	config    postprocess.Config
	log       logrus.FieldLogger
}

// NewSuite creates a benchmark suite.
//
// Arguments:
//   - outputDir: Where SaveResults writes its files.
//   - config: The base pipeline configuration; scenarios override mask size and workers.
//   - log: Receives per-scenario progress.
//
// Returns:
//   - *Suite: The suite.
func NewSuite(outputDir string, config postprocess.Config, log logrus.FieldLogger) *Suite {
	return &Suite{outputDir: outputDir, config: config, log: log}
}

// AddScenario adds a test scenario to the benchmark suite
func (s *Suite) AddScenario(scenarios ...Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios = append(s.scenarios, scenarios...)
}

// Scenarios returns the configured scenarios.
func (s *Suite) Scenarios() []Scenario {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Scenario(nil), s.scenarios...)
}

// RunScenario executes a single benchmark scenario.
//
// Every iteration runs the full pipeline on the same synthetic frame, so latency reflects
// decode, suppression and mask compositing only.
//
// Arguments:
//   - ctx: Stops the scenario between iterations.
//   - scenario: The scenario to run.
//
// Returns:
//   - *Metrics: Latency, throughput and memory figures.
//   - error: A configuration error or ctx's error.
func (s *Suite) RunScenario(ctx context.Context, scenario Scenario) (*Metrics, error) {
	if scenario.Iterations <= 0 {
		return nil, errors.Wrapf(postprocess.ErrConfiguration, "scenario %s needs at least one iteration", scenario.Name)
	}

	layout, err := scenario.Layout()
	if err != nil {
		return nil, err
	}

	config := s.config
	if scenario.MaskSize > 0 {
		config.MaskWidth, config.MaskHeight = scenario.MaskSize, scenario.MaskSize
	}
	if scenario.Workers > 0 {
		config.Workers = scenario.Workers
		config.NMS.NumWorkers = scenario.Workers
	}

	pipeline, err := postprocess.NewPipeline(layout, config)
	if err != nil {
		return nil, err
	}

	frame := postprocess.Frame{
		ID:             scenario.Name,
		Outputs:        Synthetic{Layout: layout, Hits: scenario.Hits, Clusters: scenario.Clusters, Seed: 1}.Outputs(),
		OriginalWidth:  scenario.Resolution.Width,
		OriginalHeight: scenario.Resolution.Height,
	}

	for i := 0; i < scenario.WarmupRuns; i++ {
		if _, err := pipeline.Run(frame); err != nil {
			return nil, errors.Wrapf(err, "warmup of %s", scenario.Name)
		}
	}

	var startMem runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&startMem)

	metrics := &Metrics{Scenario: scenario, Timestamp: time.Now()}
	latencies := make([]time.Duration, 0, scenario.Iterations)
	failures := 0
	start := time.Now()

	for i := 0; i < scenario.Iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t := time.Now()
		result, err := pipeline.Run(frame)
		latencies = append(latencies, time.Since(t))
		if err != nil {
			failures++
			continue
		}
		metrics.Detections += len(result.Detections)
		metrics.Masks += len(result.Masks)
	}

	metrics.TotalDuration = time.Since(start)

	var endMem runtime.MemStats
	runtime.ReadMemStats(&endMem)

	metrics.FramesPerSecond = float64(scenario.Iterations) / metrics.TotalDuration.Seconds()
	metrics.ErrorRate = float64(failures) / float64(scenario.Iterations)
	metrics.MemoryStats = MemoryMetrics{
		AllocBytes:      endMem.Alloc,
		TotalAllocBytes: endMem.TotalAlloc - startMem.TotalAlloc,
		SysBytes:        endMem.Sys,
		NumGC:           endMem.NumGC - startMem.NumGC,
		HeapAllocBytes:  endMem.HeapAlloc,
	}
	metrics.summarize(latencies)

	return metrics, nil
}

// RunAllScenarios executes every scenario, logging and skipping failures.
//
// Returns:
//   - error: ctx's error when the run was cancelled.
func (s *Suite) RunAllScenarios(ctx context.Context) error {
	for _, scenario := range s.Scenarios() {
		metrics, err := s.RunScenario(ctx, scenario)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.WithError(err).WithField("scenario", scenario.Name).Warn("scenario failed")
			continue
		}

		s.mu.Lock()
		s.results = append(s.results, *metrics)
		s.mu.Unlock()

		s.log.WithFields(logrus.Fields{
			"scenario": scenario.Name,
			"fps":      fmt.Sprintf("%.1f", metrics.FramesPerSecond),
			"p95":      metrics.P95Latency,
		}).Info("scenario completed")
	}
	return nil
}

// Results returns all benchmark results.
func (s *Suite) Results() []Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Metrics(nil), s.results...)
}

// SaveResults writes the results as indented JSON and a CSV summary.
//
// Returns:
//   - string: The JSON file path.
//   - string: The CSV file path.
//   - error: When the directory or files cannot be written.
func (s *Suite) SaveResults() (string, string, error) {
	results := s.Results()

	if err := os.MkdirAll(s.outputDir, 0o755); err != nil {
		return "", "", errors.Wrap(err, "creating output directory")
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	resultsFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_results_%s.json", timestamp))
	summaryFile := filepath.Join(s.outputDir, fmt.Sprintf("benchmark_summary_%s.csv", timestamp))

	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", "", errors.Wrap(err, "encoding results")
	}
	if err := os.WriteFile(resultsFile, data, 0o644); err != nil {
		return "", "", errors.Wrap(err, "writing results")
	}
	if err := writeSummaryCSV(summaryFile, results); err != nil {
		return "", "", errors.Wrap(err, "writing summary")
	}

	return resultsFile, summaryFile, nil
}

func writeSummaryCSV(path string, results []Metrics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	_ = w.Write([]string{
		"scenario", "preset", "resolution", "hits", "mask_size", "workers",
		"fps", "mean_ms", "p50_ms", "p95_ms", "max_ms", "detections", "masks", "error_rate",
	})

	ms := func(d time.Duration) string { return strconv.FormatFloat(float64(d)/1e6, 'f', 3, 64) }
	for _, r := range results {
		_ = w.Write([]string{
			r.Scenario.Name,
			string(r.Scenario.Preset),
			fmt.Sprintf("%dx%d", r.Scenario.Resolution.Width, r.Scenario.Resolution.Height),
			strconv.Itoa(r.Scenario.Hits),
			strconv.Itoa(r.Scenario.MaskSize),
			strconv.Itoa(r.Scenario.Workers),
			strconv.FormatFloat(r.FramesPerSecond, 'f', 2, 64),
			ms(r.MeanLatency),
			ms(r.P50Latency),
			ms(r.P95Latency),
			ms(r.MaxLatency),
			strconv.Itoa(r.Detections),
			strconv.Itoa(r.Masks),
			strconv.FormatFloat(r.ErrorRate, 'f', 4, 64),
		})
	}

	w.Flush()
	return w.Error()
}
