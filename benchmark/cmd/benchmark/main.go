package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/go-seg/benchmark"
	"github.com/nvr-ai/go-seg/config"
	"github.com/nvr-ai/go-seg/logger"
	"github.com/nvr-ai/go-seg/models"
)

func main() {
	var (
		configFile   = flag.String("config", "", "Path to a pipeline configuration file")
		scenarioFile = flag.String("scenarios", "", "Path to a YAML scenario set")
		outputDir    = flag.String("output", "./benchmark_results", "Output directory for results")
		iterations   = flag.Int("iterations", 100, "Iterations per scenario")
		quick        = flag.Bool("quick", false, "Run one scenario per layout preset")
		resolutions  = flag.String("resolutions", "", "Compare frame sizes for this preset")
		workers      = flag.String("workers", "", "Compare comma-separated worker counts, e.g. 1,2,4,8")
		logLevel     = flag.String("log-level", "info", "Log level")
		timeout      = flag.Duration("timeout", 30*time.Minute, "Benchmark timeout duration")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	cfg.Log.Level = *logLevel

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating logger: %v\n", err)
		os.Exit(1)
	}

	suite := benchmark.NewSuite(*outputDir, cfg.Postprocess, log)

	if *scenarioFile != "" {
		set, err := benchmark.LoadScenarioSet(*scenarioFile)
		if err != nil {
			log.WithError(err).Fatal("loading scenario set")
		}
		suite.AddScenario(set.Scenarios...)
		log.WithField("count", len(set.Scenarios)).Infof("loaded scenario set %s", set.Name)
	}

	if *quick {
		suite.AddScenario(benchmark.QuickScenarios(*iterations)...)
	}

	if *resolutions != "" {
		suite.AddScenario(benchmark.ResolutionScenarios(models.PresetName(*resolutions), *iterations)...)
	}

	if *workers != "" {
		counts, err := parseCounts(*workers)
		if err != nil {
			log.WithError(err).Fatal("parsing -workers")
		}
		suite.AddScenario(benchmark.WorkerScenarios(*iterations, counts...)...)
	}

	if len(suite.Scenarios()) == 0 {
		suite.AddScenario(benchmark.QuickScenarios(*iterations)...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.WithField("scenarios", len(suite.Scenarios())).Info("starting benchmark")
	start := time.Now()

	if err := suite.RunAllScenarios(ctx); err != nil {
		log.WithError(err).Fatal("benchmark execution failed")
	}

	jsonFile, csvFile, err := suite.SaveResults()
	if err != nil {
		log.WithError(err).Fatal("saving results")
	}

	results := suite.Results()
	log.WithFields(logrus.Fields{
		"duration": time.Since(start),
		"results":  jsonFile,
		"summary":  csvFile,
	}).Info("benchmark completed")

	var best benchmark.Metrics
	for _, result := range results {
		if result.FramesPerSecond > best.FramesPerSecond {
			best = result
		}
		fmt.Printf("  %-28s %9.2f FPS  p95 %-12v %6.2f MB\n",
			result.Scenario.Name,
			result.FramesPerSecond,
			result.P95Latency,
			float64(result.MemoryStats.TotalAllocBytes)/(1024*1024))
	}
	if len(results) > 0 {
		fmt.Printf("\nBest performing scenario: %s (%.2f FPS)\n", best.Scenario.Name, best.FramesPerSecond)
	}
}

func parseCounts(s string) ([]int, error) {
	var counts []int
	for _, field := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(field))
		if err != nil || n <= 0 {
			return nil, errors.Errorf("invalid worker count %q", field)
		}
		counts = append(counts, n)
	}
	return counts, nil
}

func init() {
	flag.Usage = func() {
		name := filepath.Base(os.Args[0])
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", name)
		fmt.Fprintf(os.Stderr, "Benchmarks the postprocess pipeline on synthetic model outputs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -quick -iterations 50\n", name)
		fmt.Fprintf(os.Stderr, "  %s -resolutions yolov8-seg\n", name)
		fmt.Fprintf(os.Stderr, "  %s -workers 1,2,4,8 -config ./segpipe.yaml\n", name)
		fmt.Fprintf(os.Stderr, "  %s -scenarios ./scenarios.yaml\n", name)
	}
}
