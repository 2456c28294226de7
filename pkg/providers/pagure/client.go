package pagure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"packit-service/pkg/forge"
)

const defaultInstanceURL = "https://src.fedoraproject.org"

// Resolver opens dist-git projects on a Pagure instance.
type Resolver struct {
	InstanceURL string
	HTTPClient  *http.Client
	Logger      *log.Logger
}

// DistGitProject returns a handle to namespace/repo. A read-only project
// logs write calls instead of performing them.
func (r Resolver) DistGitProject(_ context.Context, token string, readOnly bool, repo, namespace string) (forge.Project, error) {
	client := r.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Project{
		instanceURL: normalizeInstanceURL(r.InstanceURL),
		token:       token,
		readOnly:    readOnly,
		namespace:   namespace,
		name:        repo,
		client:      client,
		logger:      logger,
	}, nil
}

// Project is a dist-git repository.
type Project struct {
	instanceURL string
	token       string
	readOnly    bool
	namespace   string
	name        string
	client      *http.Client
	logger      *log.Logger
}

func (p *Project) Namespace() string { return p.namespace }
func (p *Project) Name() string      { return p.name }

func (p *Project) FullRepoName() string {
	if p.namespace == "" {
		return p.name
	}
	return p.namespace + "/" + p.name
}

// ReadOnly reports whether write calls are skipped.
func (p *Project) ReadOnly() bool { return p.readOnly }

// GetFileContent fetches the raw file at ref.
func (p *Project) GetFileContent(ctx context.Context, path, ref string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/%s/raw/%s/f/%s", p.instanceURL, p.FullRepoName(), url.PathEscape(ref), strings.TrimLeft(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	p.authorize(req)
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s@%s %s: %w", p.FullRepoName(), ref, path, forge.ErrFileNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("pagure api error: %s", strings.TrimSpace(string(raw)))
	}
	return io.ReadAll(resp.Body)
}

// Flag is a CI status attached to a commit.
type Flag struct {
	Username string
	Comment  string
	URL      string
	Status   string
	UID      string
}

// SetCommitFlag sets a flag on commit. Read-only projects only log it.
func (p *Project) SetCommitFlag(ctx context.Context, commit string, flag Flag) error {
	if p.readOnly {
		p.logger.Printf("read-only: skipping flag %s=%s on %s@%s", flag.Username, flag.Status, p.FullRepoName(), commit)
		return nil
	}
	form := url.Values{}
	form.Set("username", flag.Username)
	form.Set("comment", flag.Comment)
	form.Set("url", flag.URL)
	if flag.Status != "" {
		form.Set("status", flag.Status)
	}
	if flag.UID != "" {
		form.Set("uid", flag.UID)
	}
	endpoint := fmt.Sprintf("%s/api/0/%s/c/%s/flag", p.instanceURL, p.FullRepoName(), url.PathEscape(commit))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	p.authorize(req)
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var out struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &out) == nil && out.Error != "" {
			return fmt.Errorf("pagure api error: %s", out.Error)
		}
		return fmt.Errorf("pagure api error: %s", strings.TrimSpace(string(raw)))
	}
	return nil
}

func (p *Project) authorize(req *http.Request) {
	if p.token != "" {
		req.Header.Set("Authorization", "token "+p.token)
	}
}

func normalizeInstanceURL(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return defaultInstanceURL
	}
	return strings.TrimRight(base, "/")
}
