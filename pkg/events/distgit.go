package events

import (
	"context"

	"packit-service/pkg/forge"
	"packit-service/pkg/packageconfig"
)

// DistGitEvent is a message about a dist-git repository received from the bus.
type DistGitEvent struct {
	Topic         FedmsgTopic `json:"topic"`
	RepoNamespace string      `json:"repo_namespace"`
	RepoName      string      `json:"repo_name"`
	Ref           string      `json:"ref"`
	Branch        string      `json:"branch"`
	MsgID         string      `json:"msg_id"`
}

func NewDistGitEvent(topic FedmsgTopic, repoNamespace, repoName, ref, branch, msgID string) *DistGitEvent {
	return &DistGitEvent{
		Topic:         topic,
		RepoNamespace: repoNamespace,
		RepoName:      repoName,
		Ref:           ref,
		Branch:        branch,
		MsgID:         msgID,
	}
}

func (*DistGitEvent) Trigger() JobTriggerType { return TriggerCommit }

func (*DistGitEvent) sealed() {}

func (e *DistGitEvent) Dict() map[string]interface{} {
	return map[string]interface{}{
		"trigger":        TriggerCommit.String(),
		"topic":          e.Topic.String(),
		"repo_namespace": e.RepoNamespace,
		"repo_name":      e.RepoName,
		"ref":            e.Ref,
		"branch":         e.Branch,
		"msg_id":         e.MsgID,
	}
}

// GetProject opens the dist-git project with the configured Pagure token.
// Dry runs open it read-only.
func (e *DistGitEvent) GetProject(ctx context.Context, r Resolvers) (forge.Project, error) {
	if r.DistGit == nil {
		return nil, errNoDistGitResolver
	}
	return r.DistGit.DistGitProject(ctx, r.Config.PagureUserToken, r.Config.DryRun, e.RepoName, e.RepoNamespace)
}

func (e *DistGitEvent) GetPackageConfig(ctx context.Context, r Resolvers) (*packageconfig.PackageConfig, error) {
	if r.Loader == nil {
		return nil, errNoLoader
	}
	project, err := e.GetProject(ctx, r)
	if err != nil {
		return nil, err
	}
	return r.Loader.LoadPackageConfig(ctx, project, e.Ref)
}
