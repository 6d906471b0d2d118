package benchmark

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/nvr-ai/go-seg/images"
	"github.com/nvr-ai/go-seg/models"
	"github.com/nvr-ai/go-seg/models/model"
)

// Scenario is one benchmark configuration: a model layout, a camera frame size and the amount
// of postprocess work per frame.
type Scenario struct {
	Name       string            `json:"name"        yaml:"name"`
	Preset     models.PresetName `json:"preset"      yaml:"preset"`
	Resolution images.Resolution `json:"resolution"  yaml:"resolution"`
	// Hits is the number of candidates above the confidence threshold per frame.
	Hits int `json:"hits" yaml:"hits"`
	// Clusters groups hits into overlapping boxes for suppression.
	Clusters   int `json:"clusters"    yaml:"clusters"`
	MaskSize   int `json:"mask_size"   yaml:"mask_size"`
	Workers    int `json:"workers"     yaml:"workers"`
	Iterations int `json:"iterations"  yaml:"iterations"`
	WarmupRuns int `json:"warmup_runs" yaml:"warmup_runs"`
}

// Layout resolves the scenario's preset.
func (s Scenario) Layout() (model.Layout, error) {
	args, err := models.Preset(s.Preset)
	if err != nil {
		return model.Layout{}, err
	}
	return model.NewLayout(args)
}

// ScenarioBuilder helps build test scenarios with fluent API
type ScenarioBuilder struct {
	scenario Scenario
}

// NewScenarioBuilder creates a new scenario builder
func NewScenarioBuilder(name string) *ScenarioBuilder {
	return &ScenarioBuilder{
		scenario: Scenario{
			Name:       name,
			Preset:     models.PresetYOLOv8Seg,
			Resolution: images.Resolution{Name: images.ResolutionFHD1080p, Width: 1920, Height: 1080},
			Hits:       20,
			Clusters:   5,
			MaskSize:   256,
			Iterations: 100,
			WarmupRuns: 10,
		},
	}
}

// WithPreset sets the model layout preset
func (sb *ScenarioBuilder) WithPreset(preset models.PresetName) *ScenarioBuilder {
	sb.scenario.Preset = preset
	return sb
}

// WithResolution sets the camera frame size
func (sb *ScenarioBuilder) WithResolution(r images.Resolution) *ScenarioBuilder {
	sb.scenario.Resolution = r
	return sb
}

// WithHits sets how many candidates pass the threshold and how many clusters they form
func (sb *ScenarioBuilder) WithHits(hits, clusters int) *ScenarioBuilder {
	sb.scenario.Hits = hits
	sb.scenario.Clusters = clusters
	return sb
}

// WithMaskSize sets the square mask resolution
func (sb *ScenarioBuilder) WithMaskSize(size int) *ScenarioBuilder {
	sb.scenario.MaskSize = size
	return sb
}

// WithWorkers sets the pipeline worker count
func (sb *ScenarioBuilder) WithWorkers(workers int) *ScenarioBuilder {
	sb.scenario.Workers = workers
	return sb
}

// WithIterations sets the number of test iterations
func (sb *ScenarioBuilder) WithIterations(iterations int) *ScenarioBuilder {
	sb.scenario.Iterations = iterations
	return sb
}

// WithWarmupRuns sets the number of warmup runs
func (sb *ScenarioBuilder) WithWarmupRuns(warmups int) *ScenarioBuilder {
	sb.scenario.WarmupRuns = warmups
	return sb
}

// Build returns the configured test scenario
func (sb *ScenarioBuilder) Build() Scenario {
	return sb.scenario
}

// QuickScenarios covers each preset once at 1080p.
func QuickScenarios(iterations int) []Scenario {
	var out []Scenario
	for _, preset := range models.PresetNames() {
		out = append(out, NewScenarioBuilder(fmt.Sprintf("quick_%s", preset)).
			WithPreset(preset).
			WithIterations(iterations).
			WithWarmupRuns(max(1, iterations/10)).
			Build())
	}
	return out
}

// ResolutionScenarios runs one preset against every known camera resolution.
func ResolutionScenarios(preset models.PresetName, iterations int) []Scenario {
	var out []Scenario
	for _, r := range images.Resolutions() {
		out = append(out, NewScenarioBuilder(fmt.Sprintf("%s_%dx%d", preset, r.Width, r.Height)).
			WithPreset(preset).
			WithResolution(r).
			WithIterations(iterations).
			Build())
	}
	return out
}

// WorkerScenarios compares worker counts on the heaviest mask workload.
func WorkerScenarios(iterations int, workers ...int) []Scenario {
	var out []Scenario
	for _, w := range workers {
		out = append(out, NewScenarioBuilder(fmt.Sprintf("workers_%d", w)).
			WithHits(100, 10).
			WithMaskSize(1024).
			WithWorkers(w).
			WithIterations(iterations).
			Build())
	}
	return out
}

// ScenarioSet is a named list of scenarios stored as YAML.
type ScenarioSet struct {
	Name      string     `json:"name"      yaml:"name"`
	Scenarios []Scenario `json:"scenarios" yaml:"scenarios"`
}

// LoadScenarioSet reads a scenario set from a YAML file.
func LoadScenarioSet(path string) (ScenarioSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ScenarioSet{}, errors.Wrapf(err, "reading scenarios %s", path)
	}
	var set ScenarioSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return ScenarioSet{}, errors.Wrapf(err, "parsing scenarios %s", path)
	}
	return set, nil
}

// SaveScenarioSet writes a scenario set as YAML.
func SaveScenarioSet(path string, set ScenarioSet) error {
	data, err := yaml.Marshal(set)
	if err != nil {
		return errors.Wrap(err, "encoding scenarios")
	}
	return errors.Wrapf(os.WriteFile(path, data, 0o644), "writing scenarios %s", path)
}
