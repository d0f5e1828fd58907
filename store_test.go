package pubgarden

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testBuild(t *testing.T, mode Mode) *BuildResult {
	t.Helper()
	res, err := testBuilder(t, mode).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return res
}

func TestNewStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
	if _, err := s.LatestBuild(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("LatestBuild on empty store: err = %v, want ErrNotFound", err)
	}
}

func TestSaveBuildAndLoadRoutes(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	res := testBuild(t, ModeDevelopment)

	if err := s.SaveBuild(ctx, res); err != nil {
		t.Fatalf("SaveBuild failed: %v", err)
	}

	table, err := s.LoadRoutes(ctx)
	if err != nil {
		t.Fatalf("LoadRoutes failed: %v", err)
	}
	if table.Len() != res.Routes.Len() {
		t.Fatalf("Len() = %d, want %d", table.Len(), res.Routes.Len())
	}
	for i, r := range res.Routes.Routes {
		got := table.Routes[i]
		if got.Path != r.Path || got.Page != r.Page || got.EntryID != r.EntryID {
			t.Errorf("route %d = %+v, want %+v", i, got, r)
		}
	}
	if _, ok := table.Match("/nope"); ok {
		t.Error("unknown path should fall back to not-found")
	}

	info, err := s.LatestBuild(ctx)
	if err != nil {
		t.Fatalf("LatestBuild failed: %v", err)
	}
	if info.ID != res.ID {
		t.Errorf("ID = %q, want %q", info.ID, res.ID)
	}
	if info.Mode != ModeDevelopment {
		t.Errorf("Mode = %q, want %q", info.Mode, ModeDevelopment)
	}
	if info.RouteCount != res.Routes.Len() {
		t.Errorf("RouteCount = %d, want %d", info.RouteCount, res.Routes.Len())
	}
}

func TestGetEntry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	if err := s.SaveBuild(ctx, testBuild(t, ModeDevelopment)); err != nil {
		t.Fatalf("SaveBuild failed: %v", err)
	}

	got, err := s.GetEntry(ctx, "Post", "content/posts/hello")
	if err != nil {
		t.Fatalf("GetEntry failed: %v", err)
	}
	if got.Title != "Hello" {
		t.Errorf("Title = %q, want %q", got.Title, "Hello")
	}
	if !got.Published() {
		t.Error("Published() should survive the round trip")
	}
	if refs := got.Refs["category"]; len(refs) != 1 || refs[0] != "go" {
		t.Errorf("Refs[category] = %v, want [go]", refs)
	}

	topic, err := s.GetEntry(ctx, "Topic", "rust")
	if err != nil {
		t.Fatalf("GetEntry(Topic, rust) failed: %v", err)
	}
	if !topic.Synthetic {
		t.Error("synthesized topic should be stored as synthetic")
	}

	if _, err := s.GetEntry(ctx, "Post", "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveBuildReplacesPrevious(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if err := s.SaveBuild(ctx, testBuild(t, ModeDevelopment)); err != nil {
		t.Fatalf("SaveBuild failed: %v", err)
	}
	if err := s.SaveBuild(ctx, testBuild(t, ModeProduction)); err != nil {
		t.Fatalf("SaveBuild failed: %v", err)
	}

	posts, err := s.ListEntries(ctx, "Post")
	if err != nil {
		t.Fatalf("ListEntries failed: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("got %d posts, want 1 after the production build", len(posts))
	}
	if posts[0].ID != "content/posts/hello" {
		t.Errorf("ID = %q, want content/posts/hello", posts[0].ID)
	}
	table, err := s.LoadRoutes(ctx)
	if err != nil {
		t.Fatalf("LoadRoutes failed: %v", err)
	}
	if _, ok := table.Match("/world"); ok {
		t.Error("/world should be gone after the production build")
	}
}
