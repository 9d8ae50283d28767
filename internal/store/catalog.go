package store

import (
	"context"
	"fmt"

	"marquee/internal/catalog"
)

// Well-known keys.
const (
	KeyCatalog         = "catalog"
	KeyCatalogPrevious = "catalog-previous"
	KeyMetadata        = "metadata"
	KeyRecent          = "recent-movies"
	detailKeyPrefix    = "movie:"
)

// DetailKey names the cached detail record for a source id.
func DetailKey(id int64) string {
	return fmt.Sprintf("%s%d", detailKeyPrefix, id)
}

// DetailKeyPrefix is shared by every detail record.
func DetailKeyPrefix() string {
	return detailKeyPrefix
}

// LoadSnapshot reads the snapshot under key. A missing key returns nil
// with no error. A record that decodes but has the wrong shape returns an
// error wrapping catalog.ErrMalformedSnapshot.
func (s *Store) LoadSnapshot(ctx context.Context, key string) (*catalog.Snapshot, error) {
	var snap catalog.Snapshot
	ok, err := s.Get(ctx, key, &snap)
	if err != nil {
		if ok {
			return nil, fmt.Errorf("%w: %v", catalog.ErrMalformedSnapshot, err)
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// SaveSnapshot writes snap under key.
func (s *Store) SaveSnapshot(ctx context.Context, key string, snap *catalog.Snapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return s.Put(ctx, key, snap)
}

// LoadHistory reads the recent-history record. A missing record yields
// empty history; an undecodable one yields empty history together with an
// error wrapping ErrMalformedRecord.
func (s *Store) LoadHistory(ctx context.Context) (*catalog.RecentHistory, error) {
	var history catalog.RecentHistory
	ok, err := s.Get(ctx, KeyRecent, &history)
	if err != nil && !ok {
		return nil, err
	}
	if err != nil {
		return &catalog.RecentHistory{}, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return &history, nil
}

// LoadMetadata reads the last run summary, or nil when none was stored.
func (s *Store) LoadMetadata(ctx context.Context) (*catalog.RunMetadata, error) {
	var meta catalog.RunMetadata
	ok, err := s.Get(ctx, KeyMetadata, &meta)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &meta, nil
}

// ResetCatalog removes every catalog record except cached details.
func (s *Store) ResetCatalog(ctx context.Context) (int64, error) {
	return s.Delete(ctx, KeyCatalog, KeyCatalogPrevious, KeyMetadata, KeyRecent)
}
