package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore(Seed())

	got := store.Get()
	got.Languages[0].Name = "COBOL"
	got.Experience[0].Skills[0] = "Fortran"

	again := store.Get()
	if again.Languages[0].Name == "COBOL" {
		t.Fatal("mutating a returned profile leaked into the store")
	}
	if again.Experience[0].Skills[0] == "Fortran" {
		t.Fatal("mutating nested skills leaked into the store")
	}
}

func TestFirstName(t *testing.T) {
	if got := Seed().FirstName(); got != "Alex" {
		t.Fatalf("expected Alex, got %q", got)
	}
	if got := (Profile{}).FirstName(); got != "" {
		t.Fatalf("expected empty first name, got %q", got)
	}
}

func TestSocialHref(t *testing.T) {
	p := Seed()
	href, ok := p.SocialHref("LinkedIn")
	if !ok || href != "https://linkedin.com/in/alexjohnson" {
		t.Fatalf("unexpected linkedin href %q (ok=%v)", href, ok)
	}
	if _, ok := p.SocialHref("mastodon"); ok {
		t.Fatal("expected missing icon lookup to fail")
	}
}

func TestLoadFileYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	content := `name: Jamie Rivera
title: Data Engineer
location: Berlin
languages:
  - name: Go
  - name: SQL
education:
  - degree: MSc Informatics
    school: TU Berlin
    year: "2018"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile err: %v", err)
	}
	if p.Name != "Jamie Rivera" || len(p.Languages) != 2 || p.Education[0].School != "TU Berlin" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestLoadFileRequiresName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.json")
	if err := os.WriteFile(path, []byte(`{"title": "Nameless"}`), 0o600); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for profile without name")
	}
}
