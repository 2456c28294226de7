package pagure

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"packit-service/pkg/forge"
)

func TestDistGitProjectGetFileContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rpms/python-ogr/raw/deadbeef/f/.packit.yaml" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if got := r.Header.Get("Authorization"); got != "token secret" {
			t.Errorf("unexpected authorization header %q", got)
		}
		_, _ = w.Write([]byte("downstream_package_name: python-ogr\n"))
	}))
	defer srv.Close()

	project, err := Resolver{InstanceURL: srv.URL}.DistGitProject(context.Background(), "secret", false, "python-ogr", "rpms")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	content, err := project.GetFileContent(context.Background(), ".packit.yaml", "deadbeef")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if string(content) != "downstream_package_name: python-ogr\n" {
		t.Fatalf("unexpected content %q", content)
	}

	_, err = project.GetFileContent(context.Background(), "packit.yaml", "deadbeef")
	if !errors.Is(err, forge.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestReadOnlyProjectSkipsFlag(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	var buf bytes.Buffer
	resolver := Resolver{InstanceURL: srv.URL, Logger: log.New(&buf, "", 0)}
	project, err := resolver.DistGitProject(context.Background(), "secret", true, "python-ogr", "rpms")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	flagger := project.(*Project)
	if err := flagger.SetCommitFlag(context.Background(), "deadbeef", Flag{Username: "packit", Status: "success"}); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if called {
		t.Fatalf("expected no request in read-only mode")
	}
	if !strings.Contains(buf.String(), "read-only") {
		t.Fatalf("expected read-only log line, got %q", buf.String())
	}
}

func TestSetCommitFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/0/rpms/python-ogr/c/deadbeef/flag" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if r.PostForm.Get("username") != "packit" || r.PostForm.Get("status") != "success" {
			t.Errorf("unexpected form %v", r.PostForm)
		}
		_, _ = w.Write([]byte(`{"message":"Flag added"}`))
	}))
	defer srv.Close()

	project, err := Resolver{InstanceURL: srv.URL}.DistGitProject(context.Background(), "secret", false, "python-ogr", "rpms")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if err := project.(*Project).SetCommitFlag(context.Background(), "deadbeef", Flag{Username: "packit", Status: "success"}); err != nil {
		t.Fatalf("set flag: %v", err)
	}
}
