package packageconfig

import (
	"context"
	"errors"
	"fmt"

	"packit-service/pkg/forge"
)

var (
	// ErrNoConfig is returned when none of the config file names exist at the ref.
	ErrNoConfig = errors.New("package config not found")
	// ErrMalformedConfig is returned when the config file cannot be parsed.
	ErrMalformedConfig = errors.New("malformed package config")
)

// ConfigFileNames are tried in order.
var ConfigFileNames = []string{
	".packit.yaml",
	".packit.yml",
	".packit.json",
	"packit.yaml",
	"packit.yml",
	"packit.json",
}

// Loader fetches and parses a package config from a project.
type Loader struct{}

// LoadPackageConfig reads the first config file present in project at ref.
func (Loader) LoadPackageConfig(ctx context.Context, project forge.Project, ref string) (*PackageConfig, error) {
	for _, name := range ConfigFileNames {
		content, err := project.GetFileContent(ctx, name, ref)
		if errors.Is(err, forge.ErrFileNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg, err := Parse(content)
		if err != nil {
			return nil, fmt.Errorf("%s@%s %s: %w", project.FullRepoName(), ref, name, err)
		}
		return cfg, nil
	}
	return nil, fmt.Errorf("%w in %s at %s", ErrNoConfig, project.FullRepoName(), ref)
}
