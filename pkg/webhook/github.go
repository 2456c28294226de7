package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/go-playground/webhooks/v6/github"

	"packit-service/internal"
)

// GitHubHandler receives GitHub webhooks and publishes the resulting events.
type GitHubHandler struct {
	hook         *github.Webhook
	fallbackHook *github.Webhook
	secret       string
	rules        *internal.RuleEngine
	publisher    internal.Publisher
	logger       *log.Logger
	maxBody      int64
}

var githubEvents = []github.Event{
	github.PingEvent,
	github.ReleaseEvent,
	github.PullRequestEvent,
	github.InstallationEvent,
}

// NewGitHubHandler creates a handler. An empty secret disables signature checks.
func NewGitHubHandler(secret string, rules *internal.RuleEngine, publisher internal.Publisher, logger *log.Logger, maxBody int64) (*GitHubHandler, error) {
	opts := []github.Option{}
	if secret != "" {
		opts = append(opts, github.Options.Secret(secret))
	}
	hook, err := github.New(opts...)
	if err != nil {
		return nil, err
	}
	fallbackHook, err := github.New()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.Default()
	}
	return &GitHubHandler{
		hook:         hook,
		fallbackHook: fallbackHook,
		secret:       secret,
		rules:        rules,
		publisher:    publisher,
		logger:       logger,
		maxBody:      maxBody,
	}, nil
}

func (h *GitHubHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	reqID := requestID(r)
	w.Header().Set("X-Request-Id", reqID)
	logger := internal.WithRequestID(h.logger, reqID)

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(rawBody))

	eventName := r.Header.Get("X-GitHub-Event")
	payload, err := h.hook.Parse(r, githubEvents...)
	if err != nil {
		if errors.Is(err, github.ErrEventNotFound) {
			logger.Printf("ignoring github event %q", eventName)
			w.WriteHeader(http.StatusAccepted)
			return
		}
		if errors.Is(err, github.ErrMissingHubSignatureHeader) && h.secret != "" {
			sha1Header := r.Header.Get("X-Hub-Signature")
			if sha1Header != "" && verifyGitHubSHA1(h.secret, rawBody, sha1Header) {
				logger.Printf("github parse warning: %v; accepted sha1 signature", err)
				r.Body = io.NopCloser(bytes.NewReader(rawBody))
				payload, err = h.fallbackHook.Parse(r, githubEvents...)
			}
		}
		if err != nil {
			logger.Printf("github parse failed: %v", err)
			internal.IncParseError("github")
			w.WriteHeader(http.StatusBadRequest)
			return
		}
	}

	if _, ok := payload.(github.PingPayload); ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	evt, err := ParseGitHubEvent(eventName, rawBody)
	if err != nil {
		logger.Printf("github %s payload rejected: %v", eventName, err)
		internal.IncParseError("github")
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if evt == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	h.emit(r, logger, internal.Envelope{Event: evt, Source: "github", RequestID: reqID})
	w.WriteHeader(http.StatusOK)
}

func (h *GitHubHandler) emit(r *http.Request, logger *log.Logger, env internal.Envelope) {
	internal.IncEvent(env.Event.Trigger().String())
	topics := h.rules.EvaluateWithLogger(env.Event, logger)
	logger.Printf("event source=%s trigger=%s topics=%v", env.Source, env.Event.Trigger(), topicNames(topics))
	for _, match := range topics {
		if err := h.publisher.PublishForDrivers(r.Context(), match.Topic, env, match.Drivers); err != nil {
			logger.Printf("publish %s failed: %v", match.Topic, err)
		}
	}
}

// Emit routes and publishes an event that did not arrive over HTTP.
func Emit(ctx context.Context, rules *internal.RuleEngine, publisher internal.Publisher, logger *log.Logger, env internal.Envelope) error {
	if logger == nil {
		logger = internal.NewLogger("webhook")
	}
	var err error
	internal.IncEvent(env.Event.Trigger().String())
	for _, match := range rules.EvaluateWithLogger(env.Event, logger) {
		err = errors.Join(err, publisher.PublishForDrivers(ctx, match.Topic, env, match.Drivers))
	}
	return err
}

func topicNames(matches []internal.Match) []string {
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Topic)
	}
	return out
}

func requestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-GitHub-Delivery")); id != "" {
		return id
	}
	if id := strings.TrimSpace(r.Header.Get("X-Request-Id")); id != "" {
		return id
	}
	return watermill.NewUUID()
}

func verifyGitHubSHA1(secret string, body []byte, signature string) bool {
	if secret == "" || len(body) == 0 || signature == "" {
		return false
	}
	signature = strings.TrimPrefix(signature, "sha1=")
	mac := hmac.New(sha1.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(signature), []byte(expected))
}
