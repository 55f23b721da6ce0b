package storage

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// FallbackStore writes every record to a primary and a secondary backend.
// Reads try the primary first and fall back to the secondary.
type FallbackStore struct {
	primary   ResultStore
	secondary ResultStore
	log       zerolog.Logger
}

// NewFallbackStore creates a store that mirrors writes into both backends.
func NewFallbackStore(primary, secondary ResultStore, log zerolog.Logger) *FallbackStore {
	return &FallbackStore{
		primary:   primary,
		secondary: secondary,
		log:       log.With().Str("component", "result-store").Logger(),
	}
}

// Save writes to both backends. Both writes are always attempted. A primary
// failure is returned even when the secondary copy succeeded; a secondary
// failure alone is only logged.
func (s *FallbackStore) Save(ctx context.Context, id string, doc []byte) error {
	perr := s.primary.Save(ctx, id, doc)
	serr := s.secondary.Save(ctx, id, doc)

	if serr != nil {
		s.log.Warn().Err(serr).Str("run_id", id).Str("backend", s.secondary.Type()).Msg("fallback write failed")
	}
	if perr == nil {
		return nil
	}
	s.log.Error().Err(perr).Str("run_id", id).Str("backend", s.primary.Type()).
		Bool("fallback_ok", serr == nil).Msg("primary write failed")
	if serr != nil {
		return errors.Join(perr, serr)
	}
	return perr
}

// Load returns the record from the primary, or from the secondary when the
// primary misses or errors. Backend errors are logged and reported as
// ErrNotFound. A secondary hit after a primary miss is copied back to the
// primary best-effort.
func (s *FallbackStore) Load(ctx context.Context, id string) ([]byte, error) {
	doc, err := s.primary.Load(ctx, id)
	if err == nil {
		return doc, nil
	}
	primaryMissed := errors.Is(err, ErrNotFound)
	if !primaryMissed {
		s.log.Warn().Err(err).Str("run_id", id).Str("backend", s.primary.Type()).Msg("primary read failed, trying fallback")
	}

	doc, err = s.secondary.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Warn().Err(err).Str("run_id", id).Str("backend", s.secondary.Type()).Msg("fallback read failed")
		}
		return nil, ErrNotFound
	}

	if primaryMissed {
		if err := s.primary.Save(ctx, id, doc); err != nil {
			s.log.Warn().Err(err).Str("run_id", id).Msg("failed to copy fallback record to primary")
		}
	}
	return doc, nil
}

func (s *FallbackStore) Type() string { return "fallback" }
