package tools

import (
	"fmt"
	"io/ioutil"
	"sync"

	"github.com/amansk/librelink-mcp-server/defs"
	"gopkg.in/yaml.v3"
)

// TargetStore holds the active target range and persists updates back to the
// config file. An empty path disables persistence.
type TargetStore struct {
	mu   sync.Mutex
	path string
	cfg  defs.Config
}

func NewTargetStore(path string, cfg defs.Config) *TargetStore {
	return &TargetStore{path: path, cfg: cfg}
}

func (ts *TargetStore) Range() defs.TargetRange {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.cfg.Glucose.Range()
}

func (ts *TargetStore) Update(low, high float64) (defs.TargetRange, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	gc := defs.GlucoseConfig{TargetLow: low, TargetHigh: high}
	if err := gc.Validate(); err != nil {
		return defs.TargetRange{}, err
	}

	ts.cfg.Glucose = gc
	if ts.path != "" {
		cfg := ts.cfg
		cfg.Logger = nil
		data, err := yaml.Marshal(&cfg)
		if err != nil {
			return defs.TargetRange{}, err
		}
		if err := ioutil.WriteFile(ts.path, data, 0600); err != nil {
			return defs.TargetRange{}, fmt.Errorf("unable to persist targets: %w", err)
		}
	}

	return gc.Range(), nil
}
