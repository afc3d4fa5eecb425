// Package repo gives the diff cache read access to project repositories.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

var (
	ErrRepositoryNotFound = errors.New("repository not found")
	ErrSessionClosed      = errors.New("session closed")
	ErrNoParent           = errors.New("commit has no parent")
	ErrInvalidProject     = errors.New("invalid project name")
)

// EmptyTreeHash is the id of the tree without entries. It stands in for the
// tree of the zero commit.
var EmptyTreeHash = plumbing.NewHash("4b825dc642cb6eb9a060e54bf8d69288fbee4904")

// Manager opens repositories by project name. Projects live below basePath,
// either as a working copy or as a bare "<project>.git" directory. Tests and
// embedders can register repositories that are not on disk.
type Manager struct {
	basePath string

	mu    sync.Mutex
	repos map[string]*git.Repository
}

// NewManager returns a Manager resolving projects below basePath.
func NewManager(basePath string) *Manager {
	return &Manager{
		basePath: basePath,
		repos:    make(map[string]*git.Repository),
	}
}

// Register makes r available under project.
func (m *Manager) Register(project string, r *git.Repository) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repos[project] = r
}

// Repository returns the repository of project, opening it on first use.
func (m *Manager) Repository(project string) (*git.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.repos[project]; ok {
		return r, nil
	}

	r, err := m.openLocked(project)
	if err != nil {
		return nil, err
	}
	m.repos[project] = r
	return r, nil
}

func (m *Manager) openLocked(project string) (*git.Repository, error) {
	if project == "" {
		return nil, fmt.Errorf("%w: empty project name", ErrRepositoryNotFound)
	}

	candidates, err := m.candidatePaths(project)
	if err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		r, err := git.PlainOpenWithOptions(candidate, &git.PlainOpenOptions{DetectDotGit: false})
		if err == nil {
			return r, nil
		}
		if !errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("failed to open repository %s: %w", project, err)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, project)
}

// candidatePaths lists where project may live. Names that are absolute or
// resolve outside basePath are rejected.
func (m *Manager) candidatePaths(project string) ([]string, error) {
	name := filepath.FromSlash(project)
	if filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProject, project)
	}
	rel := filepath.Clean(name)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProject, project)
	}
	base := filepath.Join(m.basePath, rel)
	return []string{base, base + ".git"}, nil
}

// Open starts a Session on project.
func (m *Manager) Open(project string) (*Session, error) {
	r, err := m.Repository(project)
	if err != nil {
		return nil, err
	}
	return NewSession(project, r), nil
}
