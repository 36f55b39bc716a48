// Package assets mirrors listing photos from remote storage to local disk.
package assets

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
)

// Entry records one mirrored asset.
type Entry struct {
	URL          string    `json:"url"`
	LocalPath    string    `json:"local_path"`
	Bytes        int64     `json:"bytes"`
	DownloadedAt time.Time `json:"downloaded_at"`
}

// State tracks which assets have already been mirrored so repeated runs
// only fetch what is missing.
type State struct {
	Entries map[string]Entry `json:"entries"`
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Entries: make(map[string]Entry)}
}

// Has reports whether the URL has been mirrored and the local file still exists.
func (s *State) Has(url string) bool {
	e, ok := s.Entries[url]
	if !ok {
		return false
	}
	if _, err := os.Stat(e.LocalPath); err != nil {
		return false
	}
	return true
}

// Record marks the URL as mirrored.
func (s *State) Record(e Entry) {
	s.Entries[e.URL] = e
}

// LoadState reads the state file. A missing file yields an empty state.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewState(), nil
		}
		return nil, eris.Wrapf(err, "assets: read state %s", path)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, eris.Wrapf(err, "assets: decode state %s", path)
	}
	if st.Entries == nil {
		st.Entries = make(map[string]Entry)
	}
	return &st, nil
}

// SaveState writes the state file atomically via a temp file and rename.
func SaveState(path string, st *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrap(err, "assets: create state dir")
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return eris.Wrap(err, "assets: encode state")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return eris.Wrap(err, "assets: write state temp")
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrap(err, "assets: rename state")
	}
	return nil
}
