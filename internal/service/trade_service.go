package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calebzhan/fflbot/internal/domain"
)

// TradeService manages pick-swap proposals between participants of the same
// league. Ownership moves only when the counterparty accepts, and only for
// unresolved picks.
type TradeService struct {
	leagues   domain.LeagueStore
	picks     domain.PickStore
	proposals domain.TradeProposalStore
	audit     domain.AuditStore
	logger    *slog.Logger

	proposalTTL time.Duration
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	leagues domain.LeagueStore,
	picks domain.PickStore,
	proposals domain.TradeProposalStore,
	audit domain.AuditStore,
	logger *slog.Logger,
	proposalTTL time.Duration,
) *TradeService {
	return &TradeService{
		leagues:     leagues,
		picks:       picks,
		proposals:   proposals,
		audit:       audit,
		logger:      logger,
		proposalTTL: proposalTTL,
	}
}

// Propose creates a pending trade proposal offering one of the proposer's
// picks to a counterparty, optionally asking for one of theirs in return.
func (s *TradeService) Propose(ctx context.Context, leagueID int64, proposer, counterparty string, offeredPickID int64, wantedPickID *int64) (domain.TradeProposal, error) {
	if proposer == counterparty {
		return domain.TradeProposal{}, fmt.Errorf("trade_service: %w: cannot trade with yourself", domain.ErrValidation)
	}

	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return domain.TradeProposal{}, fmt.Errorf("trade_service: propose: %w", err)
	}
	if league.Status == domain.LeagueStatusCompleted {
		return domain.TradeProposal{}, fmt.Errorf("trade_service: propose: %w: league is completed", domain.ErrConflict)
	}

	offered, err := s.pickTradable(ctx, leagueID, offeredPickID, proposer)
	if err != nil {
		return domain.TradeProposal{}, fmt.Errorf("trade_service: propose: offered pick: %w", err)
	}
	if wantedPickID != nil {
		if _, err := s.pickTradable(ctx, leagueID, *wantedPickID, counterparty); err != nil {
			return domain.TradeProposal{}, fmt.Errorf("trade_service: propose: wanted pick: %w", err)
		}
	}

	now := time.Now().UTC()
	proposal := domain.TradeProposal{
		ID:            uuid.New().String(),
		LeagueID:      leagueID,
		Proposer:      proposer,
		Counterparty:  counterparty,
		OfferedPickID: offered.ID,
		WantedPickID:  wantedPickID,
		Status:        domain.TradeProposalPending,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.proposalTTL),
	}
	if err := s.proposals.Create(ctx, proposal); err != nil {
		return domain.TradeProposal{}, fmt.Errorf("trade_service: propose: %w", err)
	}

	s.logger.InfoContext(ctx, "trade proposed",
		slog.String("proposal_id", proposal.ID),
		slog.Int64("league_id", leagueID),
		slog.String("proposer", proposer),
		slog.String("counterparty", counterparty),
	)
	return proposal, nil
}

// Accept executes a pending proposal: the counterparty takes ownership of the
// offered pick and, for two-way trades, the proposer takes the wanted pick.
// Only the counterparty may accept. The PENDING to ACCEPTED transition is
// one-shot, so a racing accept and reject cannot both win.
func (s *TradeService) Accept(ctx context.Context, proposalID, caller string) error {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return fmt.Errorf("trade_service: accept %s: %w", proposalID, err)
	}
	if caller != proposal.Counterparty {
		return fmt.Errorf("trade_service: accept %s: %w: only the counterparty may accept",
			proposalID, domain.ErrUnauthorized)
	}

	now := time.Now().UTC()
	if now.After(proposal.ExpiresAt) {
		if err := s.proposals.Decide(ctx, proposalID, domain.TradeProposalExpired, now); err != nil {
			return fmt.Errorf("trade_service: accept %s: expire: %w", proposalID, err)
		}
		return fmt.Errorf("trade_service: accept %s: %w: proposal expired", proposalID, domain.ErrConflict)
	}

	// Both picks must still be transferable at decision time.
	if _, err := s.pickTradable(ctx, proposal.LeagueID, proposal.OfferedPickID, proposal.Proposer); err != nil {
		return fmt.Errorf("trade_service: accept %s: offered pick: %w", proposalID, err)
	}
	if proposal.WantedPickID != nil {
		if _, err := s.pickTradable(ctx, proposal.LeagueID, *proposal.WantedPickID, proposal.Counterparty); err != nil {
			return fmt.Errorf("trade_service: accept %s: wanted pick: %w", proposalID, err)
		}
	}

	if err := s.proposals.Decide(ctx, proposalID, domain.TradeProposalAccepted, now); err != nil {
		return fmt.Errorf("trade_service: accept %s: %w", proposalID, err)
	}

	if err := s.picks.UpdateOwner(ctx, proposal.OfferedPickID, proposal.Counterparty); err != nil {
		return fmt.Errorf("trade_service: accept %s: transfer offered pick: %w", proposalID, err)
	}
	if proposal.WantedPickID != nil {
		if err := s.picks.UpdateOwner(ctx, *proposal.WantedPickID, proposal.Proposer); err != nil {
			return fmt.Errorf("trade_service: accept %s: transfer wanted pick: %w", proposalID, err)
		}
	}

	if err := s.audit.Log(ctx, "trade.accepted", map[string]any{
		"proposal_id": proposalID,
		"league_id":   proposal.LeagueID,
		"proposer":    proposal.Proposer,
		"counterparty": proposal.Counterparty,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "trade accepted", slog.String("proposal_id", proposalID))
	return nil
}

// Reject declines a pending proposal. Either party may reject.
func (s *TradeService) Reject(ctx context.Context, proposalID, caller string) error {
	proposal, err := s.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return fmt.Errorf("trade_service: reject %s: %w", proposalID, err)
	}
	if caller != proposal.Counterparty && caller != proposal.Proposer {
		return fmt.Errorf("trade_service: reject %s: %w", proposalID, domain.ErrUnauthorized)
	}

	if err := s.proposals.Decide(ctx, proposalID, domain.TradeProposalRejected, time.Now().UTC()); err != nil {
		return fmt.Errorf("trade_service: reject %s: %w", proposalID, err)
	}

	s.logger.InfoContext(ctx, "trade rejected", slog.String("proposal_id", proposalID))
	return nil
}

// List returns a league's trade proposals, newest first.
func (s *TradeService) List(ctx context.Context, leagueID int64) ([]domain.TradeProposal, error) {
	proposals, err := s.proposals.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list %d: %w", leagueID, err)
	}
	return proposals, nil
}

// pickTradable checks that a pick belongs to the given league and owner and
// has not resolved yet.
func (s *TradeService) pickTradable(ctx context.Context, leagueID, pickID int64, owner string) (domain.DraftPick, error) {
	pick, err := s.picks.GetByID(ctx, pickID)
	if err != nil {
		return domain.DraftPick{}, err
	}
	if pick.LeagueID != leagueID {
		return domain.DraftPick{}, fmt.Errorf("%w: pick %d belongs to another league", domain.ErrValidation, pickID)
	}
	if pick.Player != owner {
		return domain.DraftPick{}, fmt.Errorf("%w: pick %d is not owned by %s", domain.ErrConflict, pickID, owner)
	}
	if pick.IsResolved {
		return domain.DraftPick{}, fmt.Errorf("%w: pick %d already resolved", domain.ErrConflict, pickID)
	}
	return pick, nil
}
