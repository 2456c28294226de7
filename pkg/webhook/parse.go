package webhook

import (
	gh "github.com/google/go-github/v57/github"

	"packit-service/pkg/events"
)

// ParseGitHubEvent turns a GitHub webhook payload into an event. It returns
// a nil event for payloads the service does not act on, such as a closed
// pull request or an unpublished release.
func ParseGitHubEvent(eventName string, payload []byte) (events.Event, error) {
	switch eventName {
	case "release", "pull_request", "installation":
	default:
		return nil, nil
	}

	parsed, err := gh.ParseWebHook(eventName, payload)
	if err != nil {
		return nil, err
	}

	switch e := parsed.(type) {
	case *gh.ReleaseEvent:
		if e.GetAction() != "published" {
			return nil, nil
		}
		repo := e.GetRepo()
		return events.NewReleaseEvent(
			repo.GetOwner().GetLogin(),
			repo.GetName(),
			e.GetRelease().GetTagName(),
			repo.GetCloneURL(),
		), nil
	case *gh.PullRequestEvent:
		action, err := events.ParsePullRequestAction(e.GetAction())
		if err != nil {
			return nil, nil
		}
		pr := e.GetPullRequest()
		base := pr.GetBase()
		return events.NewPullRequestEvent(
			action,
			e.GetNumber(),
			base.GetRepo().GetOwner().GetLogin(),
			base.GetRepo().GetName(),
			base.GetRef(),
			e.GetRepo().GetFullName(),
			base.GetRepo().GetCloneURL(),
			pr.GetHead().GetSHA(),
		), nil
	case *gh.InstallationEvent:
		if e.GetAction() != "created" {
			return nil, nil
		}
		installation := e.GetInstallation()
		account := installation.GetAccount()
		var createdAt int64
		if ts := installation.GetCreatedAt(); !ts.IsZero() {
			createdAt = ts.Unix()
		}
		return events.NewInstallationEvent(
			installation.GetID(),
			account.GetLogin(),
			account.GetID(),
			account.GetURL(),
			account.GetType(),
			createdAt,
			e.GetSender().GetID(),
			e.GetSender().GetLogin(),
		), nil
	default:
		return nil, nil
	}
}
