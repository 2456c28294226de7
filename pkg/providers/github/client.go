package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"packit-service/pkg/config"
	"packit-service/pkg/forge"
)

const defaultBaseURL = "https://api.github.com"

// Client is the official GitHub SDK client.
type Client = gh.Client

// Resolver opens GitHub projects with the credentials from a UserConfig.
type Resolver struct {
	// Transport is the base round tripper; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// GitHubProject returns a handle to namespace/repo. With GitHub App
// credentials the repository installation is looked up first.
func (r Resolver) GitHubProject(ctx context.Context, cfg config.UserConfig, repo, namespace string) (forge.Project, error) {
	client, err := r.newClient(ctx, cfg, repo, namespace)
	if err != nil {
		return nil, err
	}
	return &Project{client: client, namespace: namespace, name: repo}, nil
}

func (r Resolver) newClient(ctx context.Context, cfg config.UserConfig, repo, namespace string) (*Client, error) {
	base := r.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	baseURL := normalizeBaseURL(cfg.GitHubBaseURL)

	switch {
	case cfg.HasGitHubApp():
		appTransport, err := ghinstallation.NewAppsTransportKeyFromFile(base, cfg.GitHubAppID, cfg.GitHubAppPrivateKeyPath)
		if err != nil {
			return nil, err
		}
		appTransport.BaseURL = baseURL
		appClient, err := newSDKClient(&http.Client{Transport: appTransport}, baseURL)
		if err != nil {
			return nil, err
		}
		installation, _, err := appClient.Apps.FindRepositoryInstallation(ctx, namespace, repo)
		if err != nil {
			return nil, err
		}
		itr := ghinstallation.NewFromAppsTransport(appTransport, installation.GetID())
		itr.BaseURL = baseURL
		return newSDKClient(&http.Client{Transport: itr}, baseURL)
	case cfg.GitHubToken != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.GitHubToken})
		httpClient := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: base}}
		return newSDKClient(httpClient, baseURL)
	default:
		return nil, errors.New("github_token or github app credentials are required")
	}
}

func newSDKClient(httpClient *http.Client, baseURL string) (*Client, error) {
	if baseURL != defaultBaseURL {
		return gh.NewEnterpriseClient(baseURL, baseURL, httpClient)
	}
	return gh.NewClient(httpClient), nil
}

// Project is a GitHub repository.
type Project struct {
	client    *Client
	namespace string
	name      string
}

func (p *Project) Namespace() string    { return p.namespace }
func (p *Project) Name() string         { return p.name }
func (p *Project) FullRepoName() string { return p.namespace + "/" + p.name }

// Client exposes the SDK client for callers that need more than file access.
func (p *Project) Client() *Client { return p.client }

// GetFileContent returns the decoded content of path at ref.
func (p *Project) GetFileContent(ctx context.Context, path, ref string) ([]byte, error) {
	file, _, resp, err := p.client.Repositories.GetContents(ctx, p.namespace, p.name, path, &gh.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, fmt.Errorf("%s@%s %s: %w", p.FullRepoName(), ref, path, forge.ErrFileNotFound)
		}
		return nil, err
	}
	if file == nil {
		return nil, fmt.Errorf("%s@%s %s is a directory: %w", p.FullRepoName(), ref, path, forge.ErrFileNotFound)
	}
	content, err := file.GetContent()
	if err != nil {
		return nil, err
	}
	return []byte(content), nil
}

func normalizeBaseURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(base, "/")
}
