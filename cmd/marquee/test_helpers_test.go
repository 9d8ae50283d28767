package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	dataDir    string
	overrides  string
	metrics    string
	tmdb       *httptest.Server
	requests   atomic.Int64
}

// setupCLITestEnv writes a config pointing every path into a temp dir and
// the TMDB client at a local fake.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("TMDB_API_KEY", "")

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "marquee.toml"),
		dataDir:    filepath.Join(base, "data"),
		overrides:  filepath.Join(base, "classifications.json"),
		metrics:    filepath.Join(base, "metrics", "marquee.prom"),
	}
	env.tmdb = httptest.NewServer(http.HandlerFunc(env.serveTMDB))
	t.Cleanup(env.tmdb.Close)

	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
overrides_file = %q
metrics_file = %q

[tmdb]
api_key = "test-key"
base_url = %q
requests_per_second = 1000
burst = 100
max_retries = 0

[logging]
level = "error"

[merge]
fresh_floor = 2
top_block = 4

[fetch]
target_new_per_category = 0
max_pages = 3

[[categories]]
code = "ACTION"
name = "Action"
tmdb_genre_id = 28
capacity = 5

[[categories]]
code = "DRAMA"
name = "Drama"
tmdb_genre_id = 18
capacity = 5

[[categories]]
code = "FAVORITES"
name = "Favorites"
capacity = 3
`, env.dataDir, filepath.Join(base, "logs"), env.overrides, env.metrics, env.tmdb.URL)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func (e *cliTestEnv) serveTMDB(w http.ResponseWriter, r *http.Request) {
	e.requests.Add(1)
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/discover/movie":
		genre, _ := strconv.Atoi(r.URL.Query().Get("with_genres"))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var results []string
		for k := range 6 {
			id := genre*1000 + page*10 + k
			results = append(results, fmt.Sprintf(`{"id":%d,"title":"Movie %d","release_date":"2018-03-01","popularity":30,"vote_average":7.4,"vote_count":900}`, id, id))
		}
		fmt.Fprintf(w, `{"page":%d,"total_pages":3,"total_results":18,"results":[%s]}`, page, strings.Join(results, ","))
	case strings.HasPrefix(r.URL.Path, "/movie/"):
		id, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/movie/"))
		if err != nil {
			http.NotFound(w, r)
			return
		}
		fmt.Fprintf(w, `{"id":%d,"imdb_id":"tt%07d","title":"Movie %d","release_date":"2018-03-01","poster_path":"/p%d.jpg","runtime":101,"popularity":30,"vote_average":7.4,"vote_count":900,"genres":[{"id":28,"name":"Action"}],"credits":{"cast":[{"name":"Lead","order":0}],"crew":[{"name":"Someone","job":"Director"}]}}`, id, id, id, id)
	default:
		http.NotFound(w, r)
	}
}

func (e *cliTestEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), err
}
