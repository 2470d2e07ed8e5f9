package principal

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// MemoryDirectory es un directorio en memoria (dev, tests). Además de id y
// subject acepta campos extra por principal, para poder configurar
// principal_field con nombres como "auth0Id".
type MemoryDirectory struct {
	mu    sync.RWMutex
	items map[string]memoryEntry
}

type memoryEntry struct {
	p     Principal
	extra map[string]string
}

// NewMemoryDirectory crea un directorio con los principals dados.
func NewMemoryDirectory(ps ...Principal) *MemoryDirectory {
	d := &MemoryDirectory{items: make(map[string]memoryEntry, len(ps))}
	for _, p := range ps {
		d.Put(p, nil)
	}
	return d
}

// Put inserta o reemplaza un principal con campos extra opcionales.
func (d *MemoryDirectory) Put(p Principal, extra map[string]string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.items[p.ID] = memoryEntry{p: p, extra: extra}
}

// Get devuelve un principal por ID.
func (d *MemoryDirectory) Get(id string) (Principal, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.items[id]
	return e.p, ok
}

func (d *MemoryDirectory) Find(ctx context.Context, q Query) ([]Principal, error) {
	if q.Field == "" {
		return nil, ErrInvalidField
	}
	if q.Limit < 0 {
		return nil, ErrInvalidLimit
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	// orden estable por ID para que Limit sea determinístico
	ids := make([]string, 0, len(d.items))
	for id := range d.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []Principal
	for _, id := range ids {
		e := d.items[id]
		if v, ok := e.field(q.Field); ok && v == q.Value {
			out = append(out, e.p)
			if q.Limit > 0 && len(out) >= q.Limit {
				break
			}
		}
	}
	return out, nil
}

func (d *MemoryDirectory) Patch(ctx context.Context, id string, p Patch) (Principal, error) {
	if err := ctx.Err(); err != nil {
		return Principal{}, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.items[id]
	if !ok {
		return Principal{}, ErrNotFound
	}
	e.p.CurrentToken = p.CurrentToken
	d.items[id] = e
	return e.p, nil
}

func (e memoryEntry) field(name string) (string, bool) {
	switch name {
	case FieldID:
		return e.p.ID, true
	case FieldSubject:
		return e.p.Subject, true
	}
	v, ok := e.extra[name]
	return v, ok
}

// seedFile es el formato YAML de principals.seed_file.
type seedFile struct {
	Principals []struct {
		P      Principal         `yaml:",inline"`
		Fields map[string]string `yaml:"fields"`
	} `yaml:"principals"`
}

// LoadSeed carga principals desde un YAML.
//
//	principals:
//	  - id: u1
//	    subject: "auth0|abc"
//	    fields: {auth0Id: "auth0|abc"}
func (d *MemoryDirectory) LoadSeed(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var sf seedFile
	if err := yaml.Unmarshal(b, &sf); err != nil {
		return 0, fmt.Errorf("principal: seed %s: %w", path, err)
	}
	for _, e := range sf.Principals {
		if e.P.ID == "" {
			return 0, fmt.Errorf("principal: seed %s: entry without id", path)
		}
		d.Put(e.P, e.Fields)
	}
	return len(sf.Principals), nil
}
