package security

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Manager enforces the filesystem allow-list for the local workbook backend.
// It stores canonical absolute roots and validates that requested workbook
// paths resolve inside them with a supported extension.
type Manager struct {
	allowedDirs []string
	allowedExts map[string]struct{}
}

// ErrNotAllowed indicates the requested path is outside the allow-list roots.
var ErrNotAllowed = errors.New("security: path not allowed")

// ErrUnsupportedExtension indicates the requested file extension is not supported.
var ErrUnsupportedExtension = errors.New("security: unsupported file extension")

// ErrNotFound indicates the requested file does not exist or is not accessible.
var ErrNotFound = errors.New("security: file not found")

// DefaultExtensions are the workbook formats excelize can read.
var DefaultExtensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm"}

// NewManager constructs a security manager given an allow-list of directories
// and a list of allowed file extensions (case-insensitive, with leading dot).
// Directories are canonicalized (absolute + EvalSymlinks) and validated.
func NewManager(allowDirs []string, allowedExtensions []string) (*Manager, error) {
	if len(allowedExtensions) == 0 {
		allowedExtensions = DefaultExtensions
	}

	exts := make(map[string]struct{}, len(allowedExtensions))
	for _, e := range allowedExtensions {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || !strings.HasPrefix(e, ".") {
			return nil, fmt.Errorf("security: invalid extension: %q", e)
		}
		exts[e] = struct{}{}
	}

	canonical := make([]string, 0, len(allowDirs))
	seen := make(map[string]bool, len(allowDirs))
	for _, d := range allowDirs {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		real, err := canonicalize(d)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(real)
		if err != nil {
			return nil, fmt.Errorf("security: stat %q: %w", real, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("security: allow-list entry is not a directory: %q", real)
		}
		if !seen[real] {
			seen[real] = true
			canonical = append(canonical, real)
		}
	}

	return &Manager{allowedDirs: canonical, allowedExts: exts}, nil
}

func canonicalize(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("security: resolve abs for %q: %w", p, err)
	}
	// EvalSymlinks so that symlinked roots cannot be used to escape later.
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("security: eval symlinks for %q: %w", abs, err)
	}
	return filepath.Clean(real), nil
}

// AllowedDirectories returns the canonical allow-list roots.
func (m *Manager) AllowedDirectories() []string {
	out := make([]string, len(m.allowedDirs))
	copy(out, m.allowedDirs)
	return out
}

// ValidateConfig returns an error when no allow-list entries are configured.
func (m *Manager) ValidateConfig() error {
	if len(m.allowedDirs) == 0 {
		return errors.New("security: no allowed directories configured")
	}
	return nil
}

// ValidateOpenPath ensures the input path refers to an existing file with an
// allowed extension inside one of the configured allow-list directories.
// Relative inputs resolve against each root in order. It returns the
// canonical absolute path suitable for opening.
func (m *Manager) ValidateOpenPath(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", ErrNotAllowed
	}
	if !m.supported(input) {
		return "", ErrUnsupportedExtension
	}

	candidates := []string{input}
	if !filepath.IsAbs(input) {
		candidates = candidates[:0]
		for _, root := range m.allowedDirs {
			candidates = append(candidates, filepath.Join(root, input))
		}
	}

	notFound := true
	for _, c := range candidates {
		real, err := filepath.EvalSymlinks(c)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return "", fmt.Errorf("security: eval symlinks: %w", err)
		}
		notFound = false
		info, err := os.Stat(real)
		if err != nil {
			return "", fmt.Errorf("security: stat: %w", err)
		}
		if info.IsDir() {
			continue
		}
		if m.contains(real) && m.supported(real) {
			return real, nil
		}
	}
	if notFound {
		return "", ErrNotFound
	}
	return "", ErrNotAllowed
}

// File describes one workbook found under the allow-list roots.
type File struct {
	Path string
	Info fs.FileInfo
}

// Walk lists every supported workbook under the allow-list roots, sorted by
// canonical path. Symlinks are not followed; unreadable subtrees are skipped.
func (m *Manager) Walk() ([]File, error) {
	var out []File
	seen := make(map[string]bool)
	for _, root := range m.allowedDirs {
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if d != nil && d.IsDir() && p != root {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				// Lock files and hidden folders (e.g. .git) never hold user workbooks.
				if p != root && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), "~$") || !m.supported(p) {
				return nil
			}
			if seen[p] {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			seen[p] = true
			out = append(out, File{Path: p, Info: info})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("security: walk %q: %w", root, err)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *Manager) supported(p string) bool {
	_, ok := m.allowedExts[strings.ToLower(filepath.Ext(p))]
	return ok
}

// contains reports whether real lies strictly inside one of the roots.
func (m *Manager) contains(real string) bool {
	for _, root := range m.allowedDirs {
		rel, err := filepath.Rel(root, real)
		if err != nil || rel == "." {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
