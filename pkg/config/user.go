package config

// DefaultPagureInstanceURL is the Fedora dist-git instance.
const DefaultPagureInstanceURL = "https://src.fedoraproject.org"

// UserConfig holds the credentials and switches the service uses when it
// talks to GitHub and dist-git on behalf of an event.
type UserConfig struct {
	// GitHubToken authenticates as a user or bot account.
	GitHubToken string `yaml:"github_token"`
	// GitHubAppID and GitHubAppPrivateKeyPath authenticate as a GitHub App.
	// They take precedence over GitHubToken when both are set.
	GitHubAppID             int64  `yaml:"github_app_id"`
	GitHubAppPrivateKeyPath string `yaml:"github_app_private_key_path"`
	// GitHubBaseURL points at a GitHub Enterprise API; empty means github.com.
	GitHubBaseURL string `yaml:"github_base_url"`

	PagureUserToken   string `yaml:"pagure_user_token"`
	PagureInstanceURL string `yaml:"pagure_instance_url"`

	// DryRun opens dist-git projects read-only.
	DryRun bool `yaml:"dry_run"`
}

// HasGitHubApp reports whether GitHub App credentials are configured.
func (c UserConfig) HasGitHubApp() bool {
	return c.GitHubAppID != 0 && c.GitHubAppPrivateKeyPath != ""
}
