// Package snapshot persists crawl output as a directory of JSON files and
// loads it back for the render phase.
//
// Layout:
//
//	<dir>/meta.json
//	<dir>/user.json
//	<dir>/stats.json
//	<dir>/activity.json
//	<dir>/repos/<name>.json
//
// Files are written atomically (temp file + rename); meta.json is written
// last so its presence implies a complete snapshot.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"go.uber.org/zap"

	"github.com/profileforge/profileforge/internal/models"
)

const (
	metaFile     = "meta.json"
	userFile     = "user.json"
	statsFile    = "stats.json"
	activityFile = "activity.json"
	reposDir     = "repos"
)

// Store reads and writes a snapshot directory.
type Store struct {
	dir string
	log *zap.Logger
}

// NewStore creates the snapshot directory (and its repos/ subdirectory)
// if needed.
func NewStore(dir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(dir, reposDir), 0755); err != nil {
		return nil, fmt.Errorf("create snapshot directory: %w", err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Dir returns the snapshot root directory.
func (s *Store) Dir() string {
	return s.dir
}

// WriteRepo stores one repository file. Names come from the API; the
// path must stay under the repos directory and match how Load globs it.
func (s *Store) WriteRepo(repo models.Repo) error {
	reposRoot := filepath.Join(s.dir, reposDir)
	path, err := securejoin.SecureJoin(reposRoot, normalizeName(repo.Name)+".json")
	if err != nil {
		return fmt.Errorf("resolve repo path for %q: %w", repo.Name, err)
	}
	return s.writeJSON(path, repo)
}

// WriteUser stores the profile owner facts.
func (s *Store) WriteUser(user models.User) error {
	return s.writeJSON(filepath.Join(s.dir, userFile), user)
}

// WriteStats stores the contribution counters.
func (s *Store) WriteStats(stats models.ContributionStats) error {
	return s.writeJSON(filepath.Join(s.dir, statsFile), stats)
}

// WriteActivity stores the per-day event counts.
func (s *Store) WriteActivity(activity []models.DailyActivity) error {
	return s.writeJSON(filepath.Join(s.dir, activityFile), activity)
}

// WriteMeta stores the crawl run metadata. Written last so a complete
// meta.json implies a complete snapshot.
func (s *Store) WriteMeta(meta models.Meta) error {
	return s.writeJSON(filepath.Join(s.dir, metaFile), meta)
}

// Load reads the snapshot back. A missing meta.json means no crawl has
// completed in this directory. Individual corrupt repo files are logged
// and skipped; everything else must parse.
func (s *Store) Load() (*models.Snapshot, error) {
	var snap models.Snapshot

	if err := s.readJSON(filepath.Join(s.dir, metaFile), &snap.Meta); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no snapshot in %s: run crawl first", s.dir)
		}
		return nil, fmt.Errorf("read meta: %w", err)
	}
	if err := s.readJSON(filepath.Join(s.dir, userFile), &snap.User); err != nil {
		return nil, fmt.Errorf("read user: %w", err)
	}
	if err := s.readJSON(filepath.Join(s.dir, statsFile), &snap.Stats); err != nil {
		return nil, fmt.Errorf("read stats: %w", err)
	}
	if err := s.readJSON(filepath.Join(s.dir, activityFile), &snap.Activity); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read activity: %w", err)
	}

	files, err := filepath.Glob(filepath.Join(s.dir, reposDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list repo files: %w", err)
	}
	sort.Strings(files)

	for _, f := range files {
		var repo models.Repo
		if err := s.readJSON(f, &repo); err != nil {
			s.log.Warn("skipping unreadable repo file",
				zap.String("file", f),
				zap.Error(err))
			continue
		}
		snap.Repos = append(snap.Repos, repo)
	}

	return &snap, nil
}

// writeJSON writes via a temp file and rename so readers never observe a
// partial file.
func (s *Store) writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *Store) readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func normalizeName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "/", "-")
}
