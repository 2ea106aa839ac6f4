package tickets

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"diwan-bot/internal/clock"
	"diwan-bot/internal/storage"
)

// ErrInvalidType rejects unknown ticket categories.
var ErrInvalidType = errors.New("tickets: unknown ticket type")

const refreshInterval = 5 * time.Minute

// Service guards ticket transitions. Validity is enforced twice: the
// cache answers fast-path questions and the storage layer has the final
// word through its row predicates and the one-open-per-user index.
type Service struct {
	store  *storage.Store
	clock  clock.Clock
	logger *zap.Logger

	mu   sync.RWMutex
	open map[string]map[string]int64 // guildID -> userID -> ticket id
}

func NewService(store *storage.Store, c clock.Clock, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		clock:  c,
		logger: logger,
		open:   make(map[string]map[string]int64),
	}
}

// Refresh rebuilds the open-ticket cache for one guild from storage.
func (s *Service) Refresh(ctx context.Context, guildID string) error {
	tickets, err := s.store.ListOpenTickets(ctx, guildID)
	if err != nil {
		return fmt.Errorf("refresh tickets for guild %s: %w", guildID, err)
	}

	byUser := make(map[string]int64, len(tickets))
	for _, t := range tickets {
		byUser[t.UserID] = t.ID
	}

	s.mu.Lock()
	s.open[guildID] = byUser
	s.mu.Unlock()
	return nil
}

// RunRefresher re-syncs the cache for the given guilds every five
// minutes until the context is cancelled.
func (s *Service) RunRefresher(ctx context.Context, guilds func() []string) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, guildID := range guilds() {
				if err := s.Refresh(ctx, guildID); err != nil {
					s.logger.Warn("ticket cache refresh failed",
						zap.String("guild_id", guildID), zap.Error(err))
				}
			}
		}
	}
}

// HasOpen answers from the cache only.
func (s *Service) HasOpen(guildID, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.open[guildID][userID]
	return ok
}

// Create opens a ticket. A user with an open ticket gets ErrConflict,
// from the cache when it knows, from the unique index otherwise.
func (s *Service) Create(ctx context.Context, guildID, channelID, userID string, ticketType Type) (storage.Ticket, error) {
	if !ticketType.Valid() {
		return storage.Ticket{}, fmt.Errorf("%w: %q", ErrInvalidType, ticketType)
	}
	if s.HasOpen(guildID, userID) {
		return storage.Ticket{}, fmt.Errorf("open ticket exists for user %s: %w", userID, storage.ErrConflict)
	}

	ticket, err := s.store.CreateTicket(ctx, guildID, channelID, userID, string(ticketType), s.clock.Now())
	if err != nil {
		return storage.Ticket{}, err
	}
	s.cacheOpen(guildID, userID, ticket.ID)
	return ticket, nil
}

// Claim assigns an unclaimed open ticket to a staff member. Claiming an
// already claimed or non-open ticket returns ErrNotFound.
func (s *Service) Claim(ctx context.Context, id int64, staffID string) error {
	return s.store.ClaimTicket(ctx, id, staffID, s.clock.Now())
}

// Close moves an open ticket to closed and stores the transcript.
func (s *Service) Close(ctx context.Context, id int64, closedBy, transcript string) error {
	ticket, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.CloseTicket(ctx, id, closedBy, transcript, s.clock.Now()); err != nil {
		return err
	}
	s.dropOpen(ticket.GuildID, ticket.UserID)
	return nil
}

// Reopen moves a closed ticket back to open. Fails with ErrConflict if
// the opener already has another open ticket.
func (s *Service) Reopen(ctx context.Context, id int64, reopenedBy string) error {
	ticket, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.ReopenTicket(ctx, id, reopenedBy, s.clock.Now()); err != nil {
		return err
	}
	s.cacheOpen(ticket.GuildID, ticket.UserID, id)
	return nil
}

// Delete tombstones an open or closed ticket, keeping the transcript.
func (s *Service) Delete(ctx context.Context, id int64, deletedBy, transcript string) error {
	ticket, err := s.store.GetTicket(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTicket(ctx, id, deletedBy, transcript, s.clock.Now()); err != nil {
		return err
	}
	s.dropOpen(ticket.GuildID, ticket.UserID)
	return nil
}

func (s *Service) ByChannel(ctx context.Context, channelID string) (storage.Ticket, error) {
	return s.store.GetTicketByChannel(ctx, channelID)
}

func (s *Service) Search(ctx context.Context, guildID, userID string, ticketType Type, status string, limit int) ([]storage.Ticket, error) {
	return s.store.SearchTickets(ctx, guildID, userID, string(ticketType), status, limit)
}

func (s *Service) Stats(ctx context.Context, guildID string) (storage.TicketStats, error) {
	return s.store.GetTicketStats(ctx, guildID)
}

func (s *Service) cacheOpen(guildID, userID string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open[guildID] == nil {
		s.open[guildID] = make(map[string]int64)
	}
	s.open[guildID][userID] = id
}

func (s *Service) dropOpen(guildID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.open[guildID], userID)
}
