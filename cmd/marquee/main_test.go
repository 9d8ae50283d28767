package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"

	"marquee/internal/catalog"
	"marquee/internal/overrides"
	"marquee/internal/update"
)

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, env.configPath) {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "[OK] set") {
		t.Fatalf("expected API key status, got:\n%s", out)
	}
}

func TestConfigShowRedactsKey(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if strings.Contains(out, "test-key") {
		t.Fatalf("api key leaked:\n%s", out)
	}
	if !strings.Contains(out, "FAVORITES") {
		t.Fatalf("categories missing:\n%s", out)
	}
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	env := setupCLITestEnv(t)
	target := filepath.Join(env.baseDir, "fresh", "config.toml")
	if _, err := env.run(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}
	if _, err := env.run(t, "config", "init", "--path", target); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite refusal, got %v", err)
	}
	if _, err := env.run(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestRotationJSON(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "rotation", "--date", "2026-05-14", "--days", "2", "--json")
	if err != nil {
		t.Fatalf("rotation: %v", err)
	}
	var views []rotationView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(views) != 2 {
		t.Fatalf("expected two days, got %d", len(views))
	}
	if views[0].Strategy != "BLOCKBUSTERS" || views[0].SortBy != "revenue.desc" {
		t.Fatalf("unexpected first day %+v", views[0])
	}
	if views[1].Date != "2026-05-15" || views[1].Strategy != "FRESH_RELEASES" {
		t.Fatalf("unexpected second day %+v", views[1])
	}
}

func TestRotationRejectsBadDate(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, err := env.run(t, "rotation", "--date", "14/05/2026"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestUpdateThenInspect(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "assign", "add", "501", "favorites", "--name", "Pinned"); err != nil {
		t.Fatalf("assign add: %v", err)
	}

	out, err := env.run(t, "update", "--date", "2026-05-14")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !strings.Contains(out, "BLOCKBUSTERS") || !strings.Contains(out, "ACTION") {
		t.Fatalf("unexpected update output:\n%s", out)
	}
	if env.requests.Load() == 0 {
		t.Fatal("expected TMDB traffic")
	}

	out, err = env.run(t, "catalog", "stats", "--json")
	if err != nil {
		t.Fatalf("catalog stats: %v", err)
	}
	var stats catalogStats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode stats: %v\n%s", err, out)
	}
	if stats.Total != 11 || stats.Strategy != "BLOCKBUSTERS" || stats.LastRun == nil {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.Categories) != 3 || stats.Categories[0].Code != "ACTION" || stats.Categories[2].Code != "FAVORITES" {
		t.Fatalf("categories not in configured order: %+v", stats.Categories)
	}

	out, err = env.run(t, "catalog", "show", "favorites", "--json")
	if err != nil {
		t.Fatalf("catalog show: %v", err)
	}
	var view map[string][]catalog.OutputItem
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode show: %v\n%s", err, out)
	}
	favorites := view["FAVORITES"]
	if len(favorites) != 1 || favorites[0].ID != "tt0000501" || favorites[0].Source != string(catalog.SourceManual) {
		t.Fatalf("unexpected favorites %+v", favorites)
	}

	out, err = env.run(t, "catalog", "show", "ACTION", "--limit", "2")
	if err != nil {
		t.Fatalf("catalog show table: %v", err)
	}
	if !strings.Contains(out, "Action (5)") {
		t.Fatalf("unexpected table output:\n%s", out)
	}

	out, err = env.run(t, "history", "show", "--json")
	if err != nil {
		t.Fatalf("history show: %v", err)
	}
	var history catalog.RecentHistory
	if err := json.Unmarshal([]byte(out), &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history.Runs) != 1 || history.Runs[0].Date != "2026-05-14" || len(history.Runs[0].IDs) != 11 {
		t.Fatalf("unexpected history %+v", history)
	}

	metrics, err := os.ReadFile(env.metrics)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(metrics), "marquee_last_run_success 1") {
		t.Fatalf("unexpected metrics:\n%s", metrics)
	}

	out, err = env.run(t, "catalog", "reset")
	if err != nil {
		t.Fatalf("catalog reset: %v", err)
	}
	if !strings.Contains(out, "Removed 3 catalog records") {
		t.Fatalf("unexpected reset output: %s", out)
	}
	if _, err := env.run(t, "catalog", "show"); err == nil || !strings.Contains(err.Error(), "no catalog stored") {
		t.Fatalf("expected missing catalog error, got %v", err)
	}
}

func TestUpdateDryRun(t *testing.T) {
	env := setupCLITestEnv(t)
	out, err := env.run(t, "update", "--date", "2026-05-14", "--dry-run")
	if err != nil {
		t.Fatalf("update --dry-run: %v", err)
	}
	if !strings.Contains(out, "no (dry run)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if _, err := env.run(t, "catalog", "stats"); err == nil {
		t.Fatal("dry run should leave no catalog")
	}
}

func TestUpdateRequiresAPIKey(t *testing.T) {
	env := setupCLITestEnv(t)
	data, err := os.ReadFile(env.configPath)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	stripped := strings.Replace(string(data), `api_key = "test-key"`, "", 1)
	if err := os.WriteFile(env.configPath, []byte(stripped), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := env.run(t, "update"); err == nil || !strings.Contains(err.Error(), "tmdb.api_key is required") {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestAssignListAndCheck(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, err := env.run(t, "assign", "add", "7", "unknown-code"); err == nil {
		t.Fatal("expected unknown category to be rejected")
	}
	if _, err := env.run(t, "assign", "add", "7", "drama"); err != nil {
		t.Fatalf("assign add: %v", err)
	}
	if _, err := env.run(t, "assign", "add", "8", "action", "--name", "Second"); err != nil {
		t.Fatalf("assign add: %v", err)
	}

	out, err := env.run(t, "assign", "list", "--json")
	if err != nil {
		t.Fatalf("assign list: %v", err)
	}
	var entries []overrides.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode entries: %v\n%s", err, out)
	}
	if len(entries) != 2 || entries[0].MovieID != 7 || entries[0].Code != "DRAMA" {
		t.Fatalf("unexpected entries %+v", entries)
	}

	out, err = env.run(t, "assign", "check")
	if err != nil {
		t.Fatalf("assign check: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 entries valid") {
		t.Fatalf("unexpected check output: %s", out)
	}

	bad := filepath.Join(env.baseDir, "bad.yaml")
	content := "overrides:\n  - movieId: 9\n    genreCode: WESTERN\n  - movieId: 10\n    genreCode: ACTION\n  - movieId: 10\n    genreCode: DRAMA\n"
	if err := os.WriteFile(bad, []byte(content), 0o644); err != nil {
		t.Fatalf("write bad table: %v", err)
	}
	out, err = env.run(t, "assign", "check", bad)
	if err == nil {
		t.Fatal("expected problems to fail the check")
	}
	if !strings.Contains(out, "unknown category WESTERN") || !strings.Contains(out, "DRAMA wins") {
		t.Fatalf("unexpected problems:\n%s", out)
	}
}

func TestExitCode(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"failure":     {err: errors.New("boom"), want: exitFailure},
		"locked":      {err: fmt.Errorf("%w (lock file /tmp/x.lock)", update.ErrLocked), want: exitLocked},
		"interrupted": {err: context.Canceled, want: exitInterrupted},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
