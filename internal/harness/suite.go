package harness

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScenarioFailure describes a scenario that failed to load, run or pass.
type ScenarioFailure struct {
	Name  string // Scenario name, or the file name when it failed to load
	Path  string // Scenario file path
	Error string // Failure description
}

// SuiteResult summarizes a directory of scenarios.
type SuiteResult struct {
	Total    int
	Passed   int
	Failed   int
	Failures []ScenarioFailure
}

// LoadDir loads every *.yaml scenario in dir, sorted by file name.
// Scenario names must be unique since they name golden files.
func LoadDir(dir string) ([]*Scenario, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("read scenario dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	seen := make(map[string]string, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}
		if prev, ok := seen[s.Name]; ok {
			return nil, nil, fmt.Errorf("%s: duplicate scenario name %q (also in %s)", path, s.Name, prev)
		}
		seen[s.Name] = path
		scenarios = append(scenarios, s)
	}
	return scenarios, paths, nil
}

// RunSuite runs every scenario in dir. A file that fails to load is
// reported as a failure rather than stopping the suite.
func RunSuite(dir string) (*SuiteResult, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}

	suite := &SuiteResult{}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)
		suite.Total++

		scenario, err := LoadScenario(path)
		if err != nil {
			suite.fail(ScenarioFailure{Name: name, Path: path, Error: err.Error()})
			continue
		}
		result, err := Run(scenario)
		if err != nil {
			suite.fail(ScenarioFailure{Name: scenario.Name, Path: path, Error: err.Error()})
			continue
		}
		if !result.Pass {
			suite.fail(ScenarioFailure{Name: scenario.Name, Path: path, Error: strings.Join(result.Errors, "\n")})
			continue
		}
		suite.Passed++
	}
	return suite, nil
}

func (s *SuiteResult) fail(f ScenarioFailure) {
	s.Failed++
	s.Failures = append(s.Failures, f)
}
