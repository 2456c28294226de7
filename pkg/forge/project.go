// Package forge describes a handle to a repository on a Git hosting service.
package forge

import (
	"context"
	"errors"
)

// ErrFileNotFound is returned (wrapped) when a file does not exist at the requested ref.
var ErrFileNotFound = errors.New("file not found")

// Project is a handle to a remote repository.
type Project interface {
	// Namespace is the owner, organization or dist-git namespace ("rpms").
	Namespace() string
	// Name is the repository name.
	Name() string
	// FullRepoName is "<namespace>/<name>".
	FullRepoName() string
	// GetFileContent returns the content of path at ref.
	GetFileContent(ctx context.Context, path, ref string) ([]byte, error)
}
