package roster

import (
	"context"
	"log/slog"
	"time"

	"github.com/stormlight-clan/stormlight-hub/internal/domain/clan"
	"github.com/stormlight-clan/stormlight-hub/pkg/logger"
)

// Service fetches one clan's roster and keeps the last good snapshot.
type Service struct {
	clanName string
	source   RosterSource
	store    clan.RosterStore
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithServiceClock replaces time.Now.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService creates a roster Service for clanName.
func NewService(clanName string, source RosterSource, store clan.RosterStore, log *slog.Logger, opts ...ServiceOption) *Service {
	if log == nil {
		log = slog.Default()
	}
	s := &Service{
		clanName: clanName,
		source:   source,
		store:    store,
		logger:   log.With(logger.Component("roster"), logger.Clan(clanName)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClanName returns the clan this service reads.
func (s *Service) ClanName() string { return s.clanName }

// Fetch downloads the roster, stamps every member with the fetch time and
// replaces the stored snapshot.
func (s *Service) Fetch(ctx context.Context) ([]clan.RosterMember, error) {
	members, err := s.source.GetRoster(ctx, s.clanName)
	if err != nil {
		return nil, err
	}

	fetchedAt := s.now()
	for i := range members {
		members[i].LastUpdated = fetchedAt
	}

	if err := s.store.Replace(ctx, s.clanName, members); err != nil {
		s.logger.WarnContext(ctx, "roster store write failed", logger.Err(err))
	}

	s.logger.DebugContext(ctx, "fetched roster", logger.Count("members", len(members)))
	return members, nil
}

// GetRoster returns the filtered, sorted member list. When the upstream fetch
// fails the last stored snapshot is served; with no snapshot the list is empty.
func (s *Service) GetRoster(ctx context.Context, search string, sortBy clan.SortBy) []clan.RosterMember {
	members, err := s.Fetch(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "roster fetch failed, serving stored snapshot", logger.Err(err))
		members = s.snapshot(ctx)
	}

	out := clan.FilterMembers(members, search)
	clan.SortMembers(out, sortBy)
	return out
}

func (s *Service) snapshot(ctx context.Context) []clan.RosterMember {
	members, ok, err := s.store.Get(ctx, s.clanName)
	if err != nil {
		s.logger.WarnContext(ctx, "roster store read failed", logger.Err(err))
		return nil
	}
	if !ok {
		return nil
	}
	return members
}
