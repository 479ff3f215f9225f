package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Store exposes the knowledge base to handlers and sessions.
type Store interface {
	Get() Profile
}

// MemoryStore implements Store with a profile fixed at construction.
type MemoryStore struct {
	profile Profile
}

// NewMemoryStore returns a MemoryStore holding a private copy of p.
func NewMemoryStore(p Profile) *MemoryStore {
	return &MemoryStore{profile: clone(p)}
}

// Get returns a copy so callers cannot mutate the shared record.
func (s *MemoryStore) Get() Profile {
	return clone(s.profile)
}

// LoadFile 从 YAML 或 JSON 文件读取知识库。
func LoadFile(path string) (Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile file: %w", err)
	}

	var p Profile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile file %s: %w", path, err)
	}
	if p.Name == "" {
		return Profile{}, fmt.Errorf("profile file %s: name is required", path)
	}
	return p, nil
}

func clone(p Profile) Profile {
	out := p
	out.Experience = make([]Experience, len(p.Experience))
	for i, exp := range p.Experience {
		exp.Skills = append([]string(nil), exp.Skills...)
		out.Experience[i] = exp
	}
	out.Languages = append([]Skill(nil), p.Languages...)
	out.Projects = make([]Project, len(p.Projects))
	for i, proj := range p.Projects {
		proj.Tech = append([]string(nil), proj.Tech...)
		out.Projects[i] = proj
	}
	out.SocialLinks = append([]SocialLink(nil), p.SocialLinks...)
	out.Education = append([]Education(nil), p.Education...)
	return out
}
