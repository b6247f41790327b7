package workbooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/vinodismyname/mcpsheets/config"
)

// Handle is a cached, read-only workbook paired with metadata for TTL eviction.
type Handle struct {
	ID       string
	Path     string
	File     *excelize.File
	ModTime  time.Time
	LoadedAt time.Time

	// expires holds the idle deadline in unix nanoseconds. Touches update it
	// without taking mu so they never wait on readers.
	expires atomic.Int64
	mu      sync.RWMutex
}

// WorkbookGate coordinates capacity for open workbook handles (backed by runtime.Controller).
type WorkbookGate interface {
	AcquireWorkbook(ctx context.Context) error
	ReleaseWorkbook()
}

// PathValidator abstracts filesystem path validation. Implementations
// return a canonical absolute path if allowed, or an error when denied.
type PathValidator interface {
	ValidateOpenPath(path string) (string, error)
}

// ErrHandleNotFound indicates an unknown or expired handle ID.
var ErrHandleNotFound = errors.New("workbooks: handle not found")

// Manager caches open workbooks by canonical path so that consecutive pages of
// get_sheet_names and list_tables do not reparse the file.
type Manager struct {
	mu           sync.RWMutex
	handles      map[string]*Handle
	byPath       map[string]string
	ttl          time.Duration
	cleanupEvery time.Duration
	maxOpen      int
	clock        func() time.Time
	gate         WorkbookGate
	validator    PathValidator
	stopCh       chan struct{}
	stopOnce     sync.Once
	cleanupWG    sync.WaitGroup
}

// Options configures a Manager. Zero values fall back to config defaults; a
// nil Gate or Validator disables that check, and Clock defaults to time.Now.
type Options struct {
	TTL          time.Duration
	CleanupEvery time.Duration
	MaxOpen      int
	Gate         WorkbookGate
	Validator    PathValidator
	Clock        func() time.Time
}

// NewManager constructs a lifecycle manager with a TTL-bearing handle cache.
func NewManager(opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = config.DefaultWorkbookIdleTTL
	}
	if opts.CleanupEvery <= 0 {
		opts.CleanupEvery = config.DefaultWorkbookCleanupPeriod
	}
	if opts.MaxOpen <= 0 {
		opts.MaxOpen = config.DefaultMaxOpenWorkbooks
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Manager{
		handles:      make(map[string]*Handle),
		byPath:       make(map[string]string),
		ttl:          opts.TTL,
		cleanupEvery: opts.CleanupEvery,
		maxOpen:      opts.MaxOpen,
		clock:        opts.Clock,
		gate:         opts.Gate,
		validator:    opts.Validator,
		stopCh:       make(chan struct{}),
	}
}

// Start launches periodic eviction of expired handles.
func (m *Manager) Start() {
	m.cleanupWG.Add(1)
	ticker := time.NewTicker(m.cleanupEvery)
	go func() {
		defer m.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.EvictExpired()
			}
		}
	}()
}

// Close stops background cleanup and closes all open handles.
func (m *Manager) Close(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopCh) })
	done := make(chan struct{})
	go func() { m.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	m.mu.Lock()
	hs := make([]*Handle, 0, len(m.handles))
	for _, h := range m.handles {
		hs = append(hs, h)
	}
	m.handles = make(map[string]*Handle)
	m.byPath = make(map[string]string)
	m.mu.Unlock()

	for _, h := range hs {
		m.closeHandle(h)
	}
	return nil
}

// Open returns the handle ID for the workbook at path, reusing a cached
// handle when the file has not changed on disk since it was loaded.
func (m *Manager) Open(ctx context.Context, path string) (string, error) {
	if m.validator != nil {
		canonical, err := m.validator.ValidateOpenPath(path)
		if err != nil {
			return "", err
		}
		path = canonical
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("workbooks: stat %s: %w", path, err)
	}

	m.mu.RLock()
	id, ok := m.byPath[path]
	var cached *Handle
	if ok {
		cached = m.handles[id]
	}
	m.mu.RUnlock()
	if cached != nil {
		if cached.ModTime.Equal(info.ModTime()) {
			m.touch(cached)
			return cached.ID, nil
		}
		// Stale: the file was rewritten after it was loaded.
		m.remove(cached)
	}

	m.evictForCapacity()
	if err := m.acquire(ctx); err != nil {
		return "", err
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		m.release()
		return "", fmt.Errorf("workbooks: open %s: %w", path, err)
	}
	now := m.clock()
	h := &Handle{
		ID:       uuid.NewString(),
		Path:     path,
		File:     f,
		ModTime:  info.ModTime(),
		LoadedAt: now,
	}
	h.expires.Store(now.Add(m.ttl).UnixNano())

	m.mu.Lock()
	if otherID, raced := m.byPath[path]; raced {
		// Another request loaded the same file first; keep theirs.
		other := m.handles[otherID]
		m.mu.Unlock()
		_ = f.Close()
		m.release()
		m.touch(other)
		return other.ID, nil
	}
	m.handles[h.ID] = h
	m.byPath[path] = h.ID
	m.mu.Unlock()
	return h.ID, nil
}

// Get returns the handle when present and refreshes its TTL.
func (m *Manager) Get(id string) (*Handle, bool) {
	m.mu.RLock()
	h, ok := m.handles[id]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	m.touch(h)
	return h, true
}

// WithRead obtains a shared read lock for the handle and executes fn.
func (m *Manager) WithRead(id string, fn func(*excelize.File) error) error {
	h, ok := m.Get(id)
	if !ok {
		return ErrHandleNotFound
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return fn(h.File)
}

// CloseHandle closes and removes a handle by ID, releasing capacity via the gate.
func (m *Manager) CloseHandle(id string) error {
	m.mu.RLock()
	h, ok := m.handles[id]
	m.mu.RUnlock()
	if !ok {
		return ErrHandleNotFound
	}
	m.remove(h)
	return nil
}

// EvictExpired scans for expired handles and closes them.
func (m *Manager) EvictExpired() {
	now := m.clock()
	var expired []*Handle
	m.mu.RLock()
	for _, h := range m.handles {
		if h.Expired(now) {
			expired = append(expired, h)
		}
	}
	m.mu.RUnlock()
	for _, h := range expired {
		m.remove(h)
	}
}

// Count returns the current number of cached handles.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handles)
}

// evictForCapacity drops the least recently used handle when the cache is
// full, so that idle workbooks never starve a new open.
func (m *Manager) evictForCapacity() {
	m.mu.RLock()
	if len(m.handles) < m.maxOpen {
		m.mu.RUnlock()
		return
	}
	var lru *Handle
	for _, h := range m.handles {
		if lru == nil || h.expires.Load() < lru.expires.Load() {
			lru = h
		}
	}
	m.mu.RUnlock()
	if lru != nil {
		m.remove(lru)
	}
}

// remove unregisters h and closes it once in-flight readers finish. It is a
// no-op when h was already removed.
func (m *Manager) remove(h *Handle) {
	m.mu.Lock()
	if cur, ok := m.handles[h.ID]; !ok || cur != h {
		m.mu.Unlock()
		return
	}
	delete(m.handles, h.ID)
	if m.byPath[h.Path] == h.ID {
		delete(m.byPath, h.Path)
	}
	m.mu.Unlock()
	m.closeHandle(h)
}

func (m *Manager) closeHandle(h *Handle) {
	h.mu.Lock()
	_ = h.File.Close()
	h.mu.Unlock()
	m.release()
}

func (m *Manager) touch(h *Handle) {
	h.expires.Store(m.clock().Add(m.ttl).UnixNano())
}

func (m *Manager) acquire(ctx context.Context) error {
	if m.gate == nil {
		return nil
	}
	return m.gate.AcquireWorkbook(ctx)
}

func (m *Manager) release() {
	if m.gate == nil {
		return
	}
	m.gate.ReleaseWorkbook()
}

// ExpiresAt returns the current idle deadline.
func (h *Handle) ExpiresAt() time.Time { return time.Unix(0, h.expires.Load()) }

// Expired reports whether the handle has reached its TTL.
func (h *Handle) Expired(now time.Time) bool {
	return now.After(h.ExpiresAt())
}
