package prefs

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CurrentDefaultsVersion marks preferences that have been through the
// one-time "select every calendar" upgrade.
const CurrentDefaultsVersion = 1

// Prefs is the durable client-side state.
type Prefs struct {
	SelectedCalendarIDs []string `yaml:"selected_calendar_ids"`
	DefaultsVersion     int      `yaml:"defaults_version"`
}

// Selected reports whether id is in the selection.
func (p Prefs) Selected(id string) bool {
	for _, s := range p.SelectedCalendarIDs {
		if s == id {
			return true
		}
	}
	return false
}

// Toggle adds or removes id from the selection.
func (p Prefs) Toggle(id string) Prefs {
	out := Prefs{DefaultsVersion: p.DefaultsVersion}
	found := false
	for _, s := range p.SelectedCalendarIDs {
		if s == id {
			found = true
			continue
		}
		out.SelectedCalendarIDs = append(out.SelectedCalendarIDs, s)
	}
	if !found {
		out.SelectedCalendarIDs = append(out.SelectedCalendarIDs, id)
	}
	return out
}

// Upgrade selects every calendar when the stored preferences predate the
// current defaults version. The second result reports whether anything
// changed and should be saved.
func Upgrade(p Prefs, allIDs []string) (Prefs, bool) {
	if p.DefaultsVersion >= CurrentDefaultsVersion {
		return p, false
	}
	ids := make([]string, len(allIDs))
	copy(ids, allIDs)
	return Prefs{SelectedCalendarIDs: ids, DefaultsVersion: CurrentDefaultsVersion}, true
}

// Store persists Prefs as YAML.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string {
	return s.path
}

// Load returns zero Prefs when the file does not exist yet.
func (s *Store) Load() (Prefs, error) {
	var p Prefs
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return p, nil
		}
		return p, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Prefs{}, err
	}
	return p, nil
}

// Save writes atomically via a temp file in the same directory.
func (s *Store) Save(p Prefs) error {
	if s.path == "" {
		return errors.New("prefs path is empty")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".cinemacal-prefs-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, s.path)
}
