package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "github.com/zoonderkins/augment-lite-mcp/internal/errors"
)

// Project is one registered codebase. Name is the map key in the
// registry file, not a field of the stored value.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"-"`
	Root      string    `json:"root"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Registry is the project catalog persisted as projects.json in the data
// dir: a JSON object keyed by project name. All mutations rewrite the
// file atomically under a process mutex.
type Registry struct {
	mu   sync.Mutex
	path string
}

// NewRegistry returns a registry backed by the given file path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// ProjectID derives the stable short identifier for a name/root pair.
func ProjectID(name, root string) string {
	sum := sha256.Sum256([]byte(name + ":" + root))
	return hex.EncodeToString(sum[:])[:8]
}

func (r *Registry) load() ([]Project, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read project registry: %w", err)
	}
	var byName map[string]Project
	if err := json.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("parse project registry: %w", err)
	}
	projects := make([]Project, 0, len(byName))
	for name, p := range byName {
		p.Name = name
		projects = append(projects, p)
	}
	// map iteration order is random; callers see registration order
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}
		return projects[i].Name < projects[j].Name
	})
	return projects, nil
}

func (r *Registry) save(projects []Project) error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	byName := make(map[string]Project, len(projects))
	for _, p := range projects {
		byName[p.Name] = p
	}
	data, err := json.MarshalIndent(byName, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project registry: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write project registry: %w", err)
	}
	return os.Rename(tmp, r.path)
}

// Add registers a project. Re-adding an existing name updates its root
// instead of erroring, so repeated setup is idempotent.
func (r *Registry) Add(name, root string) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return Project{}, err
	}

	for i, p := range projects {
		if p.Name == name {
			projects[i].Root = root
			projects[i].ID = ProjectID(name, root)
			if err := r.save(projects); err != nil {
				return Project{}, err
			}
			return projects[i], nil
		}
	}

	p := Project{
		ID:        ProjectID(name, root),
		Name:      name,
		Root:      root,
		Active:    len(projects) == 0,
		CreatedAt: time.Now().UTC(),
	}
	projects = append(projects, p)
	if err := r.save(projects); err != nil {
		return Project{}, err
	}
	return p, nil
}

// List returns all registered projects.
func (r *Registry) List() ([]Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

// Get looks up a project by name.
func (r *Registry) Get(name string) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return Project{}, err
	}
	for _, p := range projects {
		if p.Name == name {
			return p, nil
		}
	}
	return Project{}, apperrors.NotFound(fmt.Sprintf("project %q is not registered", name))
}

// Remove unregisters a project by name. Index artifacts on disk are left
// for the caller to clean up.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return err
	}
	kept := projects[:0]
	found := false
	for _, p := range projects {
		if p.Name == name {
			found = true
			continue
		}
		kept = append(kept, p)
	}
	if !found {
		return apperrors.NotFound(fmt.Sprintf("project %q is not registered", name))
	}
	return r.save(kept)
}

// SetActive marks one project active and clears the flag on all others.
func (r *Registry) SetActive(name string) (Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return Project{}, err
	}
	var active Project
	found := false
	for i := range projects {
		if projects[i].Name == name {
			projects[i].Active = true
			active = projects[i]
			found = true
		} else {
			projects[i].Active = false
		}
	}
	if !found {
		return Project{}, apperrors.NotFound(fmt.Sprintf("project %q is not registered", name))
	}
	if err := r.save(projects); err != nil {
		return Project{}, err
	}
	return active, nil
}

// Resolve picks the project a request refers to. An explicit name wins.
// Otherwise resolution tries, in order: a project whose name matches the
// working directory's base name, a project whose root contains the working
// directory, and finally the active project.
func (r *Registry) Resolve(name, cwd string) (Project, error) {
	if name != "" {
		return r.Get(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	projects, err := r.load()
	if err != nil {
		return Project{}, err
	}
	if len(projects) == 0 {
		return Project{}, apperrors.NotFound("no projects registered")
	}

	if cwd != "" {
		base := filepath.Base(cwd)
		for _, p := range projects {
			if p.Name == base {
				return p, nil
			}
		}
		for _, p := range projects {
			if p.Root == cwd || isSubPath(p.Root, cwd) {
				return p, nil
			}
		}
	}
	for _, p := range projects {
		if p.Active {
			return p, nil
		}
	}
	return Project{}, apperrors.NotFound("no project matches the working directory and none is active")
}

// isSubPath reports whether child is inside root.
func isSubPath(root, child string) bool {
	rel, err := filepath.Rel(root, child)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
