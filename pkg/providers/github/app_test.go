package github

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"packit-service/pkg/config"
)

func writeAppKey(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	path := filepath.Join(t.TempDir(), "app.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}
	return path
}

func TestGitHubProjectWithAppCredentials(t *testing.T) {
	var (
		mu    sync.Mutex
		calls []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		auth := r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")

		switch r.URL.Path {
		case "/api/v3/repos/org/proj/installation":
			if !strings.HasPrefix(auth, "Bearer ") {
				t.Errorf("installation lookup must use the app JWT, got %q", auth)
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": 42})
		case "/api/v3/app/installations/42/access_tokens":
			if r.Method != http.MethodPost {
				t.Errorf("expected POST for access token, got %s", r.Method)
			}
			if !strings.HasPrefix(auth, "Bearer ") {
				t.Errorf("access token request must use the app JWT, got %q", auth)
			}
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"token":      "ghs_installation",
				"expires_at": time.Now().Add(time.Hour).UTC().Format(time.RFC3339),
			})
		case "/api/v3/repos/org/proj/contents/.packit.yaml":
			if !strings.HasSuffix(auth, "ghs_installation") {
				t.Errorf("contents request must use the installation token, got %q", auth)
			}
			_ = json.NewEncoder(w).Encode(map[string]string{
				"type":     "file",
				"encoding": "base64",
				"content":  base64.StdEncoding.EncodeToString([]byte("specfile_path: proj.spec\n")),
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		}
	}))
	defer srv.Close()

	project, err := Resolver{}.GitHubProject(context.Background(), config.UserConfig{
		GitHubAppID:             7,
		GitHubAppPrivateKeyPath: writeAppKey(t),
		GitHubBaseURL:           srv.URL + "/api/v3",
	}, "proj", "org")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	content, err := project.GetFileContent(context.Background(), ".packit.yaml", "main")
	if err != nil {
		t.Fatalf("get file: %v", err)
	}
	if string(content) != "specfile_path: proj.spec\n" {
		t.Fatalf("unexpected content %q", content)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{
		"GET /api/v3/repos/org/proj/installation",
		"POST /api/v3/app/installations/42/access_tokens",
		"GET /api/v3/repos/org/proj/contents/.packit.yaml",
	}
	if strings.Join(calls, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected calls:\n%s", strings.Join(calls, "\n"))
	}
}

func TestGitHubProjectAppWithoutInstallation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	_, err := Resolver{}.GitHubProject(context.Background(), config.UserConfig{
		GitHubAppID:             7,
		GitHubAppPrivateKeyPath: writeAppKey(t),
		GitHubBaseURL:           srv.URL + "/api/v3",
	}, "proj", "org")
	if err == nil {
		t.Fatalf("expected error when the app is not installed on the repository")
	}
}
