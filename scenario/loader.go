package scenario

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadedScenario pairs a parsed Scenario with the file it came from, for
// readable failure messages when a directory holds many fixtures.
type LoadedScenario struct {
	File     string
	Scenario Scenario
}

// LoadDir walks dir for *.yaml fixtures and parses each into a Scenario,
// mirroring the teacher's own conformance-suite directory walk. A file
// that fails to parse is reported immediately rather than skipped — unlike
// the teacher's conformance loader, a malformed scenario fixture is a bug
// in this repo, not an upstream quirk to tolerate.
func LoadDir(dir string) ([]LoadedScenario, error) {
	var loaded []LoadedScenario
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yaml" {
			return nil
		}
		s, err := loadFile(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		loaded = append(loaded, LoadedScenario{File: path, Scenario: s})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return loaded, nil
}

func loadFile(path string) (Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scenario{}, err
	}
	return s, nil
}
