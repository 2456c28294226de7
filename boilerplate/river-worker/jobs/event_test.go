package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"

	"packit-service/pkg/config"
	"packit-service/pkg/events"
	"packit-service/pkg/forge"
	"packit-service/pkg/packageconfig"
)

type stubProject struct{}

func (stubProject) Namespace() string    { return "org" }
func (stubProject) Name() string         { return "proj" }
func (stubProject) FullRepoName() string { return "org/proj" }
func (stubProject) GetFileContent(context.Context, string, string) ([]byte, error) {
	return nil, forge.ErrFileNotFound
}

func resolversFor(cfg *packageconfig.PackageConfig, loadErr error, refs *[]string) events.Resolvers {
	return events.Resolvers{
		GitHub: events.GitHubResolverFunc(func(context.Context, config.UserConfig, string, string) (forge.Project, error) {
			return stubProject{}, nil
		}),
		Loader: events.PackageConfigLoaderFunc(func(_ context.Context, _ forge.Project, ref string) (*packageconfig.PackageConfig, error) {
			*refs = append(*refs, ref)
			return cfg, loadErr
		}),
	}
}

func TestEventArgsKeepStoredJSON(t *testing.T) {
	raw, err := events.Marshal(events.NewReleaseEvent("org", "proj", "v1.0", "https://github.com/org/proj"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var args EventArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		t.Fatalf("unmarshal args: %v", err)
	}
	if !bytes.Equal(args.Raw, raw) {
		t.Fatalf("args changed: %s", args.Raw)
	}
	out, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	if !bytes.Equal(out, raw) {
		t.Fatalf("encoded args changed: %s", out)
	}
	if (EventArgs{}).Kind() != "packit.event" {
		t.Fatalf("unexpected kind %q", (EventArgs{}).Kind())
	}
}

func TestProcessLoadsPackageConfigAtTag(t *testing.T) {
	raw, err := events.Marshal(events.NewReleaseEvent("org", "proj", "v1.0", "https://github.com/org/proj"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var refs []string
	cfg := &packageconfig.PackageConfig{Jobs: []packageconfig.JobConfig{{Job: "propose_downstream", Trigger: "release"}}}
	var buf bytes.Buffer

	if err := Process(context.Background(), raw, resolversFor(cfg, nil, &refs), log.New(&buf, "", 0)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(refs) != 1 || refs[0] != "v1.0" {
		t.Fatalf("expected config loaded at v1.0, got %v", refs)
	}
	if !bytes.Contains(buf.Bytes(), []byte("job=propose_downstream")) {
		t.Fatalf("expected job logged, got %q", buf.String())
	}
}

func TestProcessSkipsInstallation(t *testing.T) {
	raw, err := events.Marshal(&events.InstallationEvent{InstallationID: 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var refs []string
	if err := Process(context.Background(), raw, resolversFor(nil, nil, &refs), log.New(&bytes.Buffer{}, "", 0)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(refs) != 0 {
		t.Fatalf("installation must not load a package config, got %v", refs)
	}
}

func TestProcessErrorClassification(t *testing.T) {
	release, err := events.Marshal(events.NewReleaseEvent("org", "proj", "v1.0", ""))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	transient := errors.New("github unavailable")
	cases := []struct {
		name      string
		raw       []byte
		loadErr   error
		permanent bool
	}{
		{name: "garbage", raw: []byte(`{"trigger":"nope"}`), permanent: true},
		{name: "no config", raw: release, loadErr: packageconfig.ErrNoConfig, permanent: true},
		{name: "malformed config", raw: release, loadErr: packageconfig.ErrMalformedConfig, permanent: true},
		{name: "transient", raw: release, loadErr: transient, permanent: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var refs []string
			err := Process(context.Background(), tc.raw, resolversFor(nil, tc.loadErr, &refs), log.New(&bytes.Buffer{}, "", 0))
			if err == nil {
				t.Fatalf("expected error")
			}
			if got := Permanent(err); got != tc.permanent {
				t.Fatalf("Permanent(%v) = %v, want %v", err, got, tc.permanent)
			}
		})
	}
}
