// Package packageconfig loads the repository-resident file that describes
// how a project's build and release jobs are defined.
package packageconfig

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultDistGitBaseURL   = "https://src.fedoraproject.org/"
	defaultDistGitNamespace = "rpms"
)

// PackageConfig is the parsed content of a .packit.yaml file.
type PackageConfig struct {
	SpecfilePath          string      `yaml:"specfile_path" json:"specfile_path"`
	SyncedFiles           []string    `yaml:"synced_files" json:"synced_files"`
	Jobs                  []JobConfig `yaml:"jobs" json:"jobs"`
	UpstreamProjectURL    string      `yaml:"upstream_project_url" json:"upstream_project_url"`
	UpstreamPackageName   string      `yaml:"upstream_package_name" json:"upstream_package_name"`
	DownstreamPackageName string      `yaml:"downstream_package_name" json:"downstream_package_name"`
	DistGitBaseURL        string      `yaml:"dist_git_base_url" json:"dist_git_base_url"`
	DistGitNamespace      string      `yaml:"dist_git_namespace" json:"dist_git_namespace"`
	CreatePR              *bool       `yaml:"create_pr" json:"create_pr"`
}

// JobConfig is a single entry of the jobs list.
type JobConfig struct {
	Job      string                 `yaml:"job" json:"job"`
	Trigger  string                 `yaml:"trigger" json:"trigger"`
	Metadata map[string]interface{} `yaml:"metadata" json:"metadata"`
}

// Parse decodes a package config. JSON content is accepted as well.
func Parse(data []byte) (*PackageConfig, error) {
	var cfg PackageConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}
	for i, job := range cfg.Jobs {
		if strings.TrimSpace(job.Job) == "" || strings.TrimSpace(job.Trigger) == "" {
			return nil, fmt.Errorf("%w: job %d is missing job or trigger", ErrMalformedConfig, i)
		}
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// JobsFor returns the jobs configured for a trigger label such as "pull_request".
func (c *PackageConfig) JobsFor(trigger string) []JobConfig {
	if c == nil {
		return nil
	}
	var out []JobConfig
	for _, job := range c.Jobs {
		if job.Trigger == trigger {
			out = append(out, job)
		}
	}
	return out
}

// ShouldCreatePR defaults to true when create_pr is not set.
func (c *PackageConfig) ShouldCreatePR() bool {
	if c == nil || c.CreatePR == nil {
		return true
	}
	return *c.CreatePR
}

func applyDefaults(cfg *PackageConfig) {
	if cfg.DistGitBaseURL == "" {
		cfg.DistGitBaseURL = defaultDistGitBaseURL
	}
	if cfg.DistGitNamespace == "" {
		cfg.DistGitNamespace = defaultDistGitNamespace
	}
	if cfg.SpecfilePath == "" && cfg.DownstreamPackageName != "" {
		cfg.SpecfilePath = cfg.DownstreamPackageName + ".spec"
	}
}
