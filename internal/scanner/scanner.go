package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/jasperwreed/recall/internal/models"
)

// SessionRef identifies one discovered session file and its change
// fingerprint. A scan is a point-in-time snapshot of directory state; the
// producer may keep appending while we hold the ref.
type SessionRef struct {
	ID          string
	Path        string
	Project     string
	Fingerprint models.Fingerprint
}

// Scanner enumerates candidate session files under the configured roots.
type Scanner struct {
	roots     []string
	overrides map[string]string // project dir name -> display label
}

func New(roots []string, overrides map[string]string) *Scanner {
	return &Scanner{roots: roots, overrides: overrides}
}

// Scan walks every root and returns the session files found, plus the
// errors for entries that could not be read. Unreadable entries never abort
// the walk.
func (s *Scanner) Scan() ([]SessionRef, []error) {
	var refs []SessionRef
	var errs []error

	for _, root := range s.roots {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				errs = append(errs, fmt.Errorf("scan %s: %w", path, err))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".jsonl") {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				errs = append(errs, fmt.Errorf("stat %s: %w", path, err))
				return nil
			}
			refs = append(refs, SessionRef{
				ID:      SessionID(path),
				Path:    path,
				Project: s.projectLabel(path),
				Fingerprint: models.Fingerprint{
					Size:    info.Size(),
					ModTime: info.ModTime(),
				},
			})
			return nil
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("scan root %s: %w", root, err))
		}
	}

	return refs, errs
}

// Lookup scans for a single session by id.
func (s *Scanner) Lookup(id string) (SessionRef, bool) {
	refs, _ := s.Scan()
	for _, ref := range refs {
		if ref.ID == id {
			return ref, true
		}
	}
	return SessionRef{}, false
}

// SessionID derives a stable id from a session file path. Claude Code names
// session files <uuid>.jsonl; anything else gets a UUIDv5 of its path so the
// id survives reindexing.
func SessionID(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), ".jsonl")
	if _, err := uuid.Parse(stem); err == nil {
		return stem
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(path)).String()
}

func (s *Scanner) projectLabel(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if label, ok := s.overrides[dir]; ok {
		return label
	}
	return projectNameFromDir(dir)
}

// projectNameFromDir undoes the path mangling Claude Code applies to project
// directory names ("-Users-jane-src-app" -> "app").
func projectNameFromDir(dirName string) string {
	name := strings.ReplaceAll(dirName, "-", "/")
	if strings.HasPrefix(name, "/") {
		parts := strings.Split(name, "/")
		if last := parts[len(parts)-1]; last != "" {
			return last
		}
	}
	return dirName
}
