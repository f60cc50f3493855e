package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	s := Default()
	if err := s.validate(); err != nil {
		t.Fatalf("default settings invalid: %v", err)
	}
	if s.Cache.PopularTTL.Std() != 15*time.Minute {
		t.Errorf("popular TTL = %v, want 15m", s.Cache.PopularTTL)
	}
	if s.Similarity.MinCooccurrence != 3 || s.Similarity.MinScore != 0.1 {
		t.Errorf("similarity thresholds = %+v", s.Similarity)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	body := `
default_page_size: 10
similarity:
  strategy: user_overlap
  min_overlap: 5
cache:
  popular_ttl: 5m
exclusion_rules:
  - 'item.price > 10000.0'
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.DefaultPageSize != 10 {
		t.Errorf("default_page_size = %d, want 10", s.DefaultPageSize)
	}
	if s.Similarity.Strategy != "user_overlap" || s.Similarity.MinOverlap != 5 {
		t.Errorf("similarity = %+v", s.Similarity)
	}
	if s.Cache.PopularTTL.Std() != 5*time.Minute {
		t.Errorf("popular_ttl = %v, want 5m", s.Cache.PopularTTL)
	}
	// untouched settings keep defaults
	if s.MaxPageSize != 100 {
		t.Errorf("max_page_size = %d, want default 100", s.MaxPageSize)
	}
	if len(s.ExclusionRules) != 1 {
		t.Errorf("exclusion_rules = %v", s.ExclusionRules)
	}
}

func TestDurationAcceptsBareSeconds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	body := "cache:\n  personalized_ttl: 30\n  profile_ttl: 2h\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Cache.PersonalizedTTL.Std() != 30*time.Second {
		t.Errorf("personalized_ttl = %v, want 30s", s.Cache.PersonalizedTTL)
	}
	if s.Cache.ProfileTTL.Std() != 2*time.Hour {
		t.Errorf("profile_ttl = %v, want 2h", s.Cache.ProfileTTL)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache.internal:6379/2")
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.RedisURL != "redis://cache.internal:6379/2" {
		t.Errorf("redis url = %s", s.RedisURL)
	}
}

func TestLoadRejectsBadPageSizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")
	if err := os.WriteFile(path, []byte("default_page_size: 200\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error when default page size exceeds max")
	}
}
