package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"packit-service/internal"
	"packit-service/pkg/events"
)

type recordingPublisher struct {
	topics []string
	envs   []internal.Envelope
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, env internal.Envelope) error {
	return p.PublishForDrivers(ctx, topic, env, nil)
}

func (p *recordingPublisher) PublishForDrivers(ctx context.Context, topic string, env internal.Envelope, drivers []string) error {
	p.topics = append(p.topics, topic)
	p.envs = append(p.envs, env)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func newTestHandler(t *testing.T, secret string, rules []internal.Rule) (*GitHubHandler, *recordingPublisher) {
	t.Helper()
	engine, err := internal.NewRuleEngine(internal.RulesConfig{Rules: rules}, "packit")
	if err != nil {
		t.Fatalf("rule engine: %v", err)
	}
	pub := &recordingPublisher{}
	handler, err := NewGitHubHandler(secret, engine, pub, nil, 1<<20)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return handler, pub
}

func githubRequest(event, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/github", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-GitHub-Event", event)
	req.Header.Set("X-GitHub-Delivery", "delivery-1")
	return req
}

func TestGitHubHandlerPublishesPullRequest(t *testing.T) {
	handler, pub := newTestHandler(t, "", []internal.Rule{
		{When: `trigger == "pull_request" && action == "opened"`, Emit: "packit.pr.opened"},
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, githubRequest("pull_request", prPayload))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") != "delivery-1" {
		t.Fatalf("expected delivery id echoed, got %q", rec.Header().Get("X-Request-Id"))
	}
	if len(pub.topics) != 1 || pub.topics[0] != "packit.pr.opened" {
		t.Fatalf("unexpected topics %v", pub.topics)
	}
	env := pub.envs[0]
	if env.Source != "github" || env.RequestID != "delivery-1" {
		t.Fatalf("unexpected envelope %+v", env)
	}
	pr, ok := env.Event.(*events.PullRequestEvent)
	if !ok || pr.PRID != 342 || pr.BaseRef != "master" {
		t.Fatalf("unexpected event %#v", env.Event)
	}
}

func TestGitHubHandlerFallsBackToTriggerTopic(t *testing.T) {
	handler, pub := newTestHandler(t, "", nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, githubRequest("pull_request", prPayload))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(pub.topics) != 1 || pub.topics[0] != "packit.pull_request" {
		t.Fatalf("unexpected topics %v", pub.topics)
	}
}

func TestGitHubHandlerIgnoresUnhandledEvent(t *testing.T) {
	handler, pub := newTestHandler(t, "", nil)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, githubRequest("push", `{}`))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(pub.topics) != 0 {
		t.Fatalf("expected nothing published, got %v", pub.topics)
	}
}

func TestGitHubHandlerIgnoresClosedPullRequest(t *testing.T) {
	handler, pub := newTestHandler(t, "", nil)

	body := strings.Replace(prPayload, `"opened"`, `"closed"`, 1)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, githubRequest("pull_request", body))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if len(pub.topics) != 0 {
		t.Fatalf("expected nothing published, got %v", pub.topics)
	}
}

func TestGitHubHandlerRejectsBadSignature(t *testing.T) {
	handler, pub := newTestHandler(t, "s3cret", nil)

	req := githubRequest("pull_request", prPayload)
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(pub.topics) != 0 {
		t.Fatalf("expected nothing published, got %v", pub.topics)
	}
}

func TestVerifyGitHubSHA1(t *testing.T) {
	body := []byte(`{"zen":"keep it logically awesome"}`)
	mac := hmac.New(sha1.New, []byte("s3cret"))
	mac.Write(body)
	sig := "sha1=" + hex.EncodeToString(mac.Sum(nil))

	if !verifyGitHubSHA1("s3cret", body, sig) {
		t.Fatalf("expected signature to verify")
	}
	if verifyGitHubSHA1("other", body, sig) {
		t.Fatalf("expected signature mismatch")
	}
	if verifyGitHubSHA1("", body, sig) {
		t.Fatalf("expected empty secret to fail")
	}
}

func TestRequestIDGenerated(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	if requestID(req) == "" {
		t.Fatalf("expected generated request id")
	}
	req.Header.Set("X-Request-Id", " abc ")
	if requestID(req) != "abc" {
		t.Fatalf("expected request id from header")
	}
}
