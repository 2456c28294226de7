package events

import (
	"context"
	"errors"

	"packit-service/pkg/forge"
	"packit-service/pkg/packageconfig"
)

var (
	errNoGitHubResolver  = errors.New("github resolver is not configured")
	errNoDistGitResolver = errors.New("dist-git resolver is not configured")
	errNoLoader          = errors.New("package config loader is not configured")
)

// ReleaseEvent is a published GitHub release.
type ReleaseEvent struct {
	RepoNamespace string `json:"repo_namespace"`
	RepoName      string `json:"repo_name"`
	TagName       string `json:"tag_name"`
	HTTPSURL      string `json:"https_url"`
}

func NewReleaseEvent(repoNamespace, repoName, tagName, httpsURL string) *ReleaseEvent {
	return &ReleaseEvent{
		RepoNamespace: repoNamespace,
		RepoName:      repoName,
		TagName:       tagName,
		HTTPSURL:      httpsURL,
	}
}

func (*ReleaseEvent) Trigger() JobTriggerType { return TriggerRelease }

func (*ReleaseEvent) sealed() {}

func (e *ReleaseEvent) Dict() map[string]interface{} {
	return map[string]interface{}{
		"trigger":        TriggerRelease.String(),
		"repo_namespace": e.RepoNamespace,
		"repo_name":      e.RepoName,
		"tag_name":       e.TagName,
		"https_url":      e.HTTPSURL,
	}
}

func (e *ReleaseEvent) GetProject(ctx context.Context, r Resolvers) (forge.Project, error) {
	if r.GitHub == nil {
		return nil, errNoGitHubResolver
	}
	return r.GitHub.GitHubProject(ctx, r.Config, e.RepoName, e.RepoNamespace)
}

// GetPackageConfig loads the config at the release tag and points its
// upstream_project_url at the repository the release came from.
func (e *ReleaseEvent) GetPackageConfig(ctx context.Context, r Resolvers) (*packageconfig.PackageConfig, error) {
	return loadUpstreamConfig(ctx, r, e, e.TagName, e.HTTPSURL)
}

// PullRequestEvent is an opened, reopened or synchronized GitHub pull request.
type PullRequestEvent struct {
	Action            PullRequestAction `json:"action"`
	PRID              int               `json:"pr_id"`
	BaseRepoNamespace string            `json:"base_repo_namespace"`
	BaseRepoName      string            `json:"base_repo_name"`
	BaseRef           string            `json:"base_ref"`
	TargetRepo        string            `json:"target_repo"`
	HTTPSURL          string            `json:"https_url"`
	CommitSHA         string            `json:"commit_sha"`
}

func NewPullRequestEvent(
	action PullRequestAction,
	prID int,
	baseRepoNamespace, baseRepoName, baseRef, targetRepo, httpsURL, commitSHA string,
) *PullRequestEvent {
	return &PullRequestEvent{
		Action:            action,
		PRID:              prID,
		BaseRepoNamespace: baseRepoNamespace,
		BaseRepoName:      baseRepoName,
		BaseRef:           baseRef,
		TargetRepo:        targetRepo,
		HTTPSURL:          httpsURL,
		CommitSHA:         commitSHA,
	}
}

func (*PullRequestEvent) Trigger() JobTriggerType { return TriggerPullRequest }

func (*PullRequestEvent) sealed() {}

func (e *PullRequestEvent) Dict() map[string]interface{} {
	return map[string]interface{}{
		"trigger":             TriggerPullRequest.String(),
		"action":              e.Action.String(),
		"pr_id":               e.PRID,
		"base_repo_namespace": e.BaseRepoNamespace,
		"base_repo_name":      e.BaseRepoName,
		"base_ref":            e.BaseRef,
		"target_repo":         e.TargetRepo,
		"https_url":           e.HTTPSURL,
		"commit_sha":          e.CommitSHA,
	}
}

func (e *PullRequestEvent) GetProject(ctx context.Context, r Resolvers) (forge.Project, error) {
	if r.GitHub == nil {
		return nil, errNoGitHubResolver
	}
	return r.GitHub.GitHubProject(ctx, r.Config, e.BaseRepoName, e.BaseRepoNamespace)
}

// GetPackageConfig loads the config at the base ref.
func (e *PullRequestEvent) GetPackageConfig(ctx context.Context, r Resolvers) (*packageconfig.PackageConfig, error) {
	return loadUpstreamConfig(ctx, r, e, e.BaseRef, e.HTTPSURL)
}

func loadUpstreamConfig(ctx context.Context, r Resolvers, e ProjectEvent, ref, httpsURL string) (*packageconfig.PackageConfig, error) {
	if r.Loader == nil {
		return nil, errNoLoader
	}
	project, err := e.GetProject(ctx, r)
	if err != nil {
		return nil, err
	}
	cfg, err := r.Loader.LoadPackageConfig(ctx, project, ref)
	if err != nil {
		return nil, err
	}
	cfg.UpstreamProjectURL = httpsURL
	return cfg, nil
}

// InstallationEvent is a GitHub App installation. Status starts as waiting
// and is moved forward by the allow-listing process.
type InstallationEvent struct {
	InstallationID int64           `json:"installation_id"`
	AccountLogin   string          `json:"account_login"`
	AccountID      int64           `json:"account_id"`
	AccountURL     string          `json:"account_url"`
	AccountType    string          `json:"account_type"`
	CreatedAt      int64           `json:"created_at"`
	SenderID       int64           `json:"sender_id"`
	SenderLogin    string          `json:"sender_login"`
	Status         WhitelistStatus `json:"status"`
}

// InstallationOption customizes a new InstallationEvent.
type InstallationOption func(*InstallationEvent)

// WithStatus overrides the default waiting status.
func WithStatus(status WhitelistStatus) InstallationOption {
	return func(e *InstallationEvent) {
		e.Status = status
	}
}

func NewInstallationEvent(
	installationID int64,
	accountLogin string,
	accountID int64,
	accountURL, accountType string,
	createdAt int64,
	senderID int64,
	senderLogin string,
	opts ...InstallationOption,
) *InstallationEvent {
	e := &InstallationEvent{
		InstallationID: installationID,
		AccountLogin:   accountLogin,
		AccountID:      accountID,
		AccountURL:     accountURL,
		AccountType:    accountType,
		CreatedAt:      createdAt,
		SenderID:       senderID,
		SenderLogin:    senderLogin,
		Status:         WhitelistWaiting,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (*InstallationEvent) Trigger() JobTriggerType { return TriggerInstallation }

func (*InstallationEvent) sealed() {}

func (e *InstallationEvent) Dict() map[string]interface{} {
	return map[string]interface{}{
		"trigger":         TriggerInstallation.String(),
		"installation_id": e.InstallationID,
		"account_login":   e.AccountLogin,
		"account_id":      e.AccountID,
		"account_url":     e.AccountURL,
		"account_type":    e.AccountType,
		"created_at":      e.CreatedAt,
		"sender_id":       e.SenderID,
		"sender_login":    e.SenderLogin,
		"status":          e.Status.String(),
	}
}

// Approve moves a waiting installation to an approved status. It reports
// false and leaves the event untouched for any other transition.
func (e *InstallationEvent) Approve(status WhitelistStatus) bool {
	if e.Status != WhitelistWaiting {
		return false
	}
	if status != WhitelistApprovedAutomatically && status != WhitelistApprovedManually {
		return false
	}
	e.Status = status
	return true
}
