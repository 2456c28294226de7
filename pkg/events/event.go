// Package events defines the events the service reacts to: GitHub releases,
// pull requests and app installations, and dist-git messages from the bus.
//
// Every event carries a fixed trigger and flattens to a map of plain values
// (strings and integers) so it can travel through a queue or cache.
package events

import (
	"context"

	"packit-service/pkg/config"
	"packit-service/pkg/forge"
	"packit-service/pkg/packageconfig"
)

// Event is implemented by ReleaseEvent, PullRequestEvent, InstallationEvent
// and DistGitEvent only.
type Event interface {
	// Trigger is fixed per event kind.
	Trigger() JobTriggerType
	// Dict returns the fields as plain values, enumerations as labels.
	Dict() map[string]interface{}

	sealed()
}

// ProjectEvent is an event that points at a repository with a package config.
type ProjectEvent interface {
	Event
	GetProject(ctx context.Context, r Resolvers) (forge.Project, error)
	GetPackageConfig(ctx context.Context, r Resolvers) (*packageconfig.PackageConfig, error)
}

// GitHubResolver opens a GitHub project.
type GitHubResolver interface {
	GitHubProject(ctx context.Context, cfg config.UserConfig, repo, namespace string) (forge.Project, error)
}

// DistGitResolver opens a dist-git project.
type DistGitResolver interface {
	DistGitProject(ctx context.Context, token string, readOnly bool, repo, namespace string) (forge.Project, error)
}

// PackageConfigLoader reads the package config of a project at a ref.
type PackageConfigLoader interface {
	LoadPackageConfig(ctx context.Context, project forge.Project, ref string) (*packageconfig.PackageConfig, error)
}

// GitHubResolverFunc adapts a function to GitHubResolver.
type GitHubResolverFunc func(ctx context.Context, cfg config.UserConfig, repo, namespace string) (forge.Project, error)

func (fn GitHubResolverFunc) GitHubProject(ctx context.Context, cfg config.UserConfig, repo, namespace string) (forge.Project, error) {
	return fn(ctx, cfg, repo, namespace)
}

// DistGitResolverFunc adapts a function to DistGitResolver.
type DistGitResolverFunc func(ctx context.Context, token string, readOnly bool, repo, namespace string) (forge.Project, error)

func (fn DistGitResolverFunc) DistGitProject(ctx context.Context, token string, readOnly bool, repo, namespace string) (forge.Project, error) {
	return fn(ctx, token, readOnly, repo, namespace)
}

// PackageConfigLoaderFunc adapts a function to PackageConfigLoader.
type PackageConfigLoaderFunc func(ctx context.Context, project forge.Project, ref string) (*packageconfig.PackageConfig, error)

func (fn PackageConfigLoaderFunc) LoadPackageConfig(ctx context.Context, project forge.Project, ref string) (*packageconfig.PackageConfig, error) {
	return fn(ctx, project, ref)
}

// Resolvers bundles the configuration and collaborators that turn an event
// into a project handle and a package config.
type Resolvers struct {
	Config  config.UserConfig
	GitHub  GitHubResolver
	DistGit DistGitResolver
	Loader  PackageConfigLoader
}
