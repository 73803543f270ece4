package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/policechief/server/internal/platform/logger"
)

// Loader reads content packs from a data directory and publishes immutable
// Snapshots. Reload builds a complete new snapshot before swapping it in, so
// in-flight operations keep using the generation they started with.
type Loader struct {
	dataDir   string
	schemaDir string
	logger    *logger.Logger

	current atomic.Pointer[Snapshot]
}

// NewLoader creates a content loader rooted at the given directories.
func NewLoader(dataDir, schemaDir string, log *logger.Logger) *Loader {
	return &Loader{
		dataDir:   dataDir,
		schemaDir: schemaDir,
		logger:    log,
	}
}

// Current returns the active catalog snapshot. Nil until the first Load.
func (l *Loader) Current() *Snapshot {
	return l.current.Load()
}

// Load reads, validates and atomically publishes all content packs.
// On any error the previous snapshot stays active.
func (l *Loader) Load() error {
	snap := &Snapshot{
		Missions:  make(map[string]*MissionDef),
		Vehicles:  make(map[string]*VehicleDef),
		Districts: make(map[string]*DistrictDef),
		Staff:     make(map[string]*StaffDef),
		Upgrades:  make(map[string]*UpgradeDef),
		Policies:  make(map[string]*PolicyDef),
	}

	if err := loadPack(l, "missions_*.json", "mission.schema.json", "missions", func(raw json.RawMessage) error {
		var m MissionDef
		if err := json.Unmarshal(raw, &m); err != nil {
			return err
		}
		if _, dup := snap.Missions[m.ID]; !dup {
			snap.MissionOrder = append(snap.MissionOrder, m.ID)
		}
		snap.Missions[m.ID] = &m
		return nil
	}); err != nil {
		return err
	}

	if err := loadPack(l, "vehicles_*.json", "vehicle.schema.json", "vehicles", func(raw json.RawMessage) error {
		var v VehicleDef
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		if _, dup := snap.Vehicles[v.ID]; !dup {
			snap.VehicleOrder = append(snap.VehicleOrder, v.ID)
		}
		snap.Vehicles[v.ID] = &v
		return nil
	}); err != nil {
		return err
	}

	if err := loadPack(l, "districts_*.json", "district.schema.json", "districts", func(raw json.RawMessage) error {
		var d DistrictDef
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		snap.Districts[d.ID] = &d
		return nil
	}); err != nil {
		return err
	}

	if err := loadPack(l, "staff_*.json", "staff.schema.json", "staff", func(raw json.RawMessage) error {
		var st StaffDef
		if err := json.Unmarshal(raw, &st); err != nil {
			return err
		}
		if _, dup := snap.Staff[st.ID]; !dup {
			snap.StaffOrder = append(snap.StaffOrder, st.ID)
		}
		snap.Staff[st.ID] = &st
		return nil
	}); err != nil {
		return err
	}

	if err := loadPack(l, "upgrades_*.json", "upgrade.schema.json", "upgrades", func(raw json.RawMessage) error {
		var u UpgradeDef
		if err := json.Unmarshal(raw, &u); err != nil {
			return err
		}
		snap.Upgrades[u.ID] = &u
		return nil
	}); err != nil {
		return err
	}

	if err := loadPack(l, "policies_*.json", "policy.schema.json", "policies", func(raw json.RawMessage) error {
		var p PolicyDef
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		snap.Policies[p.ID] = &p
		return nil
	}); err != nil {
		return err
	}

	l.current.Store(snap)
	l.logger.Info("Loaded content: %d missions, %d vehicles, %d districts, %d staff types, %d upgrades, %d policies",
		len(snap.Missions), len(snap.Vehicles), len(snap.Districts),
		len(snap.Staff), len(snap.Upgrades), len(snap.Policies))
	return nil
}

// loadPack reads every pack file matching pattern, validates it against the
// schema and feeds each entry under topKey to add. Files are processed in
// lexical order so insertion order is deterministic across reloads.
func loadPack(l *Loader, pattern, schemaFile, topKey string, add func(json.RawMessage) error) error {
	schema, err := jsonschema.Compile(filepath.Join(l.schemaDir, schemaFile))
	if err != nil {
		return fmt.Errorf("compile schema %s: %w", schemaFile, err)
	}

	files, err := filepath.Glob(filepath.Join(l.dataDir, pattern))
	if err != nil {
		return fmt.Errorf("glob %s: %w", pattern, err)
	}
	sort.Strings(files)

	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("read pack %s: %w", file, err)
		}

		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return fmt.Errorf("parse pack %s: %w", file, err)
		}
		if err := schema.Validate(generic); err != nil {
			return fmt.Errorf("validate pack %s: %w", file, err)
		}

		var pack map[string][]json.RawMessage
		if err := json.Unmarshal(raw, &pack); err != nil {
			return fmt.Errorf("parse pack %s: %w", file, err)
		}

		loaded := 0
		for _, entry := range pack[topKey] {
			if err := add(entry); err != nil {
				return fmt.Errorf("load entry from %s: %w", filepath.Base(file), err)
			}
			loaded++
		}
		l.logger.Info("Loaded %s: %d %s", filepath.Base(file), loaded, topKey)
	}
	return nil
}
