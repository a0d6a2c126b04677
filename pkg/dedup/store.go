package dedup

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"insightminer/pkg/logger"
)

// Record is one fingerprint entry. It survives until an explicit operator
// reset; duplicate hits only bump the counters.
type Record struct {
	CombinedHash     string    `json:"combined_hash"`
	OriginalFilename string    `json:"original_filename"`
	Category         string    `json:"category,omitempty"`
	Confidence       float64   `json:"confidence,omitempty"`
	Summary          string    `json:"summary,omitempty"`
	FirstSeen        time.Time `json:"first_seen"`
	LastSeen         time.Time `json:"last_seen"`
	DuplicateCount   int       `json:"duplicate_count"`
}

// Metadata carries the caller-provided fields recorded with a new
// fingerprint
type Metadata struct {
	OriginalFilename string
	Category         string
	Confidence       float64
	Summary          string
}

// Stats summarizes the store for operator surfaces
type Stats struct {
	UniqueCount       int `json:"unique_count"`
	DuplicatesBlocked int `json:"duplicates_blocked"`
}

// Store is the file-backed fingerprint map. The whole map lives in memory
// and the backing file is rewritten on every mutation. All access is
// serialized behind a store-level mutex; the design assumes a single
// process owns the file.
type Store struct {
	path    string
	mu      sync.Mutex
	records map[string]*Record
	logger  logger.Logger
}

// NewStore creates a fingerprint store backed by the given file path.
// Call Load before first use.
func NewStore(path string, log logger.Logger) *Store {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Store{
		path:    path,
		records: make(map[string]*Record),
		logger:  log,
	}
}

// Load reads the persisted map into memory. A missing file starts empty.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.records = make(map[string]*Record)
			return nil
		}
		return fmt.Errorf("failed to read fingerprint store: %w", err)
	}

	records := make(map[string]*Record)
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse fingerprint store: %w", err)
	}

	s.records = records
	s.logger.DebugWithFields("fingerprint store loaded", map[string]interface{}{
		"path":    s.path,
		"records": len(records),
	})

	return nil
}

// Save rewrites the backing file from the in-memory map. The write goes
// through a temp file and rename so a crash cannot tear the store.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal fingerprint store: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write fingerprint store: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace fingerprint store: %w", err)
	}

	return nil
}

// CheckAndRecord is the single mutation point for the store. A miss inserts
// a fresh record and reports no duplicate; a hit bumps the duplicate count,
// refreshes last-seen, and returns the original record so the caller can
// reuse its stored category and summary.
func (s *Store) CheckAndRecord(hash string, meta Metadata) (bool, *Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	if existing, ok := s.records[hash]; ok {
		existing.DuplicateCount++
		existing.LastSeen = now
		if err := s.saveLocked(); err != nil {
			return true, nil, err
		}

		copied := *existing
		logger.LogDuplicate(hash, existing.OriginalFilename, existing.DuplicateCount)
		return true, &copied, nil
	}

	s.records[hash] = &Record{
		CombinedHash:     hash,
		OriginalFilename: meta.OriginalFilename,
		Category:         meta.Category,
		Confidence:       meta.Confidence,
		Summary:          meta.Summary,
		FirstSeen:        now,
		LastSeen:         now,
		DuplicateCount:   0,
	}

	if err := s.saveLocked(); err != nil {
		delete(s.records, hash)
		return false, nil, err
	}

	return false, nil, nil
}

// Get returns a copy of a record, if present
func (s *Store) Get(hash string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[hash]
	if !ok {
		return nil, false
	}
	copied := *record
	return &copied, true
}

// UpdateAnalysis attaches downstream analysis results to an existing record
func (s *Store) UpdateAnalysis(hash, category, summary string, confidence float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[hash]
	if !ok {
		return fmt.Errorf("no fingerprint record for hash %s", hash)
	}

	record.Category = category
	record.Summary = summary
	record.Confidence = confidence

	return s.saveLocked()
}

// Stats reports unique fingerprints and total duplicates blocked
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := Stats{UniqueCount: len(s.records)}
	for _, record := range s.records {
		stats.DuplicatesBlocked += record.DuplicateCount
	}
	return stats
}

// Reset clears the store. Explicit operator action only.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*Record)
	return s.saveLocked()
}
