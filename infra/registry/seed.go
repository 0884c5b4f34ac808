package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/outagewatch/core/model"
)

// SeedFile is the on-disk list of facility profiles.
type SeedFile struct {
	Facilities []model.FacilityProfile `json:"facilities" yaml:"facilities"`
}

// LoadSeedFile reads profiles from a YAML or JSON file and validates them.
func LoadSeedFile(path string) ([]model.FacilityProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f SeedFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("unsupported facilities format: %s", filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	for _, p := range f.Facilities {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return f.Facilities, nil
}
