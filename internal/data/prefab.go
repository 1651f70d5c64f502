package data

import (
	"fmt"
	"os"
	"time"

	"github.com/l1jgo/scenecore/internal/core/ecs"
	"github.com/l1jgo/scenecore/internal/scene"
	"gopkg.in/yaml.v3"
)

// Prefab describes an entity and the subtree it owns.
type Prefab struct {
	Name         string        `yaml:"name"`
	Eternal      bool          `yaml:"eternal"`
	Collidable   bool          `yaml:"collidable"`
	DestroyAfter time.Duration `yaml:"destroy_after"` // 0 = lives until destroyed
	Scripts      []string      `yaml:"scripts"`
	Loose        []string      `yaml:"loose"` // names of loose children anywhere in the file
	Tooltip      *Prefab       `yaml:"tooltip"`
	Children     []Prefab      `yaml:"children"`
}

// PrefabTable holds the root prefabs of a scene file.
type PrefabTable struct {
	roots []Prefab
	count int
}

// LoadPrefabTable loads a scene yaml file.
func LoadPrefabTable(path string) (*PrefabTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prefab file: %w", err)
	}
	t, err := ParsePrefabTable(raw)
	if err != nil {
		return nil, fmt.Errorf("parse prefab file %s: %w", path, err)
	}
	return t, nil
}

// ParsePrefabTable decodes and validates a scene document. Names must be
// unique so loose links can refer to them.
func ParsePrefabTable(raw []byte) (*PrefabTable, error) {
	var roots []Prefab
	if err := yaml.Unmarshal(raw, &roots); err != nil {
		return nil, err
	}
	t := &PrefabTable{roots: roots}
	names := make(map[string]bool)
	err := t.walk(func(p *Prefab) error {
		if p.Name == "" {
			return fmt.Errorf("prefab without name")
		}
		if names[p.Name] {
			return fmt.Errorf("duplicate prefab name %q", p.Name)
		}
		if p.DestroyAfter < 0 {
			return fmt.Errorf("prefab %q: negative destroy_after", p.Name)
		}
		names[p.Name] = true
		t.count++
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = t.walk(func(p *Prefab) error {
		for _, l := range p.Loose {
			if !names[l] {
				return fmt.Errorf("prefab %q: loose link to unknown %q", p.Name, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Count returns the total number of prefabs, nested ones included.
func (t *PrefabTable) Count() int {
	return t.count
}

func (t *PrefabTable) Roots() []Prefab {
	return t.roots
}

// ScriptAttacher creates the named behaviour for an entity.
type ScriptAttacher interface {
	Attach(name string, id ecs.EntityID) (scene.Script, error)
}

// Spawned maps prefab names to the entities created for them.
type Spawned map[string]ecs.EntityID

// Instantiate spawns every prefab into sc. Scripts are attached through
// attach, which may be nil when no prefab names scripts. Loose links are
// made once the whole tree exists; destroy_after timers start last.
func (t *PrefabTable) Instantiate(sc *scene.Scene, attach ScriptAttacher) (Spawned, error) {
	out := make(Spawned, t.count)
	var spawn func(p *Prefab, parent ecs.EntityID) (ecs.EntityID, error)
	spawn = func(p *Prefab, parent ecs.EntityID) (ecs.EntityID, error) {
		e := &scene.Entity{Name: p.Name, Eternal: p.Eternal}
		id := sc.Spawn(e)
		out[p.Name] = id
		if p.Collidable {
			if err := sc.SetCollidable(id, true); err != nil {
				return 0, err
			}
		}
		if !parent.IsZero() {
			if err := sc.SetParent(id, parent); err != nil {
				return 0, err
			}
		}
		for _, name := range p.Scripts {
			if attach == nil {
				return 0, fmt.Errorf("prefab %q: script %q but no script engine", p.Name, name)
			}
			s, err := attach.Attach(name, id)
			if err != nil {
				return 0, fmt.Errorf("prefab %q: %w", p.Name, err)
			}
			e.Scripts = append(e.Scripts, s)
		}
		if p.Tooltip != nil {
			tip, err := spawn(p.Tooltip, 0)
			if err != nil {
				return 0, err
			}
			if err := sc.SetTooltip(id, tip); err != nil {
				return 0, err
			}
		}
		for i := range p.Children {
			if _, err := spawn(&p.Children[i], id); err != nil {
				return 0, err
			}
		}
		return id, nil
	}
	for i := range t.roots {
		if _, err := spawn(&t.roots[i], 0); err != nil {
			return out, err
		}
	}

	err := t.walk(func(p *Prefab) error {
		for _, l := range p.Loose {
			if err := sc.AddLooseChild(out[p.Name], out[l]); err != nil {
				return fmt.Errorf("prefab %q: %w", p.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return out, err
	}
	err = t.walk(func(p *Prefab) error {
		if p.DestroyAfter > 0 {
			if _, err := sc.Destroy(out[p.Name], p.DestroyAfter); err != nil {
				return fmt.Errorf("prefab %q: %w", p.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return out, err
	}
	return out, nil
}

// walk visits every prefab depth first: the prefab, its tooltip, then its
// children.
func (t *PrefabTable) walk(fn func(p *Prefab) error) error {
	var visit func(p *Prefab) error
	visit = func(p *Prefab) error {
		if err := fn(p); err != nil {
			return err
		}
		if p.Tooltip != nil {
			if err := visit(p.Tooltip); err != nil {
				return err
			}
		}
		for i := range p.Children {
			if err := visit(&p.Children[i]); err != nil {
				return err
			}
		}
		return nil
	}
	for i := range t.roots {
		if err := visit(&t.roots[i]); err != nil {
			return err
		}
	}
	return nil
}
