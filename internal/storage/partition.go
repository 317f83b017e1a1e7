package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrInvalidPrice indicates an observation carrying a non-positive price.
	ErrInvalidPrice = errors.New("storage: observation price must be positive")
)

const (
	partitionPrefix = "prices_"
	partitionSuffix = ".json"
)

// Store is the append-only, date-partitioned observation log. One file per
// calendar day maps product_id to the ordered list of observations for that
// product. All writes funnel through a single mutex so two same-day appends
// never lose either observation.
type Store struct {
	dir    string
	logger zerolog.Logger
	now    func() time.Time

	mu sync.Mutex
}

// NewStore opens (creating if needed) the partition directory.
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage: data dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{
		dir:    dir,
		logger: logger.With().Str("component", "store").Logger(),
		now:    time.Now,
	}, nil
}

// WithNow overrides the store's clock. Test hook.
func (s *Store) WithNow(now func() time.Time) *Store {
	s.now = now
	return s
}

// Today returns the partition date for the current clock reading.
func (s *Store) Today() Date {
	return DateOf(s.now())
}

// Append adds an observation to the partition identified by its ScrapedAt
// date. No dedup: multiple scrapes of the same (product, retailer) per day
// are meaningful price-over-time data.
func (s *Store) Append(obs Observation) error {
	if obs.Price.Sign() <= 0 {
		return ErrInvalidPrice
	}
	if obs.ProductID == "" || obs.Retailer == "" {
		return fmt.Errorf("storage: product id and retailer are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	date := DateOf(obs.ScrapedAt)
	partition := s.loadForWrite(date)
	partition[obs.ProductID] = append(partition[obs.ProductID], obs)

	if err := s.persist(date, partition); err != nil {
		return err
	}

	s.logger.Debug().
		Str("product", obs.ProductID).
		Str("retailer", obs.Retailer).
		Str("price", obs.Price.String()).
		Str("date", string(date)).
		Msg("observation appended")
	return nil
}

// ReadPartition returns one day's observations grouped by product in
// insertion order. An absent partition is an empty map, not an error: first
// run and quiet days are normal. An unreadable partition is logged and
// likewise treated as empty so one bad day cannot block the others.
func (s *Store) ReadPartition(date Date) map[string][]Observation {
	data, err := os.ReadFile(s.partitionPath(date))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error().Err(err).Str("date", string(date)).Msg("failed to read partition")
		}
		return map[string][]Observation{}
	}

	var raw map[string][]Observation
	if err := json.Unmarshal(data, &raw); err != nil {
		s.logger.Error().Err(err).Str("date", string(date)).Msg("corrupt partition treated as empty")
		return map[string][]Observation{}
	}

	for productID, entries := range raw {
		for i := range entries {
			entries[i].ProductID = productID
		}
		raw[productID] = entries
	}
	return raw
}

// PartitionDates lists existing partition dates, oldest first.
func (s *Store) PartitionDates() []Date {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list partitions")
		return nil
	}

	dates := make([]Date, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, partitionPrefix) || !strings.HasSuffix(name, partitionSuffix) {
			continue
		}
		date := Date(strings.TrimSuffix(strings.TrimPrefix(name, partitionPrefix), partitionSuffix))
		if date.valid() {
			dates = append(dates, date)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}

// LatestPartitionDate reports the most recent partition on disk, if any.
func (s *Store) LatestPartitionDate() (Date, bool) {
	dates := s.PartitionDates()
	if len(dates) == 0 {
		return "", false
	}
	return dates[len(dates)-1], true
}

// loadForWrite reads the partition that is about to be extended. Unlike the
// read path, an unreadable file here is moved aside before the rewrite:
// treating it as empty is fine for queries but must never destroy whatever
// bytes are still on disk.
func (s *Store) loadForWrite(date Date) map[string][]Observation {
	path := s.partitionPath(date)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error().Err(err).Str("date", string(date)).Msg("failed to read partition for append")
		}
		return map[string][]Observation{}
	}

	var raw map[string][]Observation
	if err := json.Unmarshal(data, &raw); err != nil {
		backup := path + ".corrupt"
		if renameErr := os.Rename(path, backup); renameErr != nil {
			s.logger.Error().Err(renameErr).Str("date", string(date)).Msg("failed to move corrupt partition aside")
		} else {
			s.logger.Warn().Err(err).Str("date", string(date)).Str("backup", backup).Msg("corrupt partition moved aside; starting fresh")
		}
		return map[string][]Observation{}
	}

	for productID, entries := range raw {
		for i := range entries {
			entries[i].ProductID = productID
		}
		raw[productID] = entries
	}
	return raw
}

// persist writes the whole partition to a temp file and renames it into
// place, so readers and a killed run only ever see complete files.
func (s *Store) persist(date Date, partition map[string][]Observation) error {
	data, err := json.MarshalIndent(partition, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal partition %s: %w", date, err)
	}

	tmp, err := os.CreateTemp(s.dir, string(date)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp partition file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write partition %s: %w", date, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close partition %s: %w", date, err)
	}

	if err := os.Rename(tmpName, s.partitionPath(date)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace partition %s: %w", date, err)
	}
	return nil
}

func (s *Store) partitionPath(date Date) string {
	return filepath.Join(s.dir, partitionPrefix+string(date)+partitionSuffix)
}
