package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
)

// In-memory store fakes mirroring the conditional-update semantics of the
// real Postgres implementations.

type fakeLeagueStore struct {
	mu      sync.Mutex
	nextID  int64
	leagues map[int64]domain.League
}

func newFakeLeagueStore() *fakeLeagueStore {
	return &fakeLeagueStore{nextID: 1, leagues: map[int64]domain.League{}}
}

func (s *fakeLeagueStore) put(l domain.League) domain.League {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l.ID == 0 {
		l.ID = s.nextID
		s.nextID++
	} else if l.ID >= s.nextID {
		s.nextID = l.ID + 1
	}
	s.leagues[l.ID] = l
	return l
}

func (s *fakeLeagueStore) Create(ctx context.Context, l domain.League) (domain.League, error) {
	return s.put(l), nil
}

func (s *fakeLeagueStore) GetByID(ctx context.Context, id int64) (domain.League, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[id]
	if !ok {
		return domain.League{}, domain.ErrNotFound
	}
	return l, nil
}

func (s *fakeLeagueStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.League, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.League, 0, len(s.leagues))
	for _, l := range s.leagues {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *fakeLeagueStore) StartDraft(ctx context.Context, id int64, order []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.Status != domain.LeagueStatusSetup {
		return domain.ErrConflict
	}
	l.Status = domain.LeagueStatusDrafting
	l.DraftOrder = order
	l.CurrentSession = 1
	s.leagues[id] = l
	return nil
}

func (s *fakeLeagueStore) UpdateStatus(ctx context.Context, id int64, status domain.LeagueStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.Status = status
	s.leagues[id] = l
	return nil
}

func (s *fakeLeagueStore) SetCurrentSession(ctx context.Context, id int64, session int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[id]
	if !ok {
		return domain.ErrNotFound
	}
	l.CurrentSession = session
	s.leagues[id] = l
	return nil
}

func (s *fakeLeagueStore) Complete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leagues[id]
	if !ok {
		return domain.ErrNotFound
	}
	if l.Status == domain.LeagueStatusCompleted {
		return domain.ErrAlreadySettled
	}
	l.Status = domain.LeagueStatusCompleted
	s.leagues[id] = l
	return nil
}

type sessionKey struct {
	leagueID int64
	index    int
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[sessionKey]domain.Session
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[sessionKey]domain.Session{}}
}

func (s *fakeSessionStore) Create(ctx context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{sess.LeagueID, sess.Index}
	if _, ok := s.sessions[key]; ok {
		return domain.ErrAlreadyExists
	}
	s.sessions[key] = sess
	return nil
}

func (s *fakeSessionStore) Get(ctx context.Context, leagueID int64, index int) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionKey{leagueID, index}]
	if !ok {
		return domain.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *fakeSessionStore) UpdateStatus(ctx context.Context, leagueID int64, index int, status domain.SessionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{leagueID, index}
	sess, ok := s.sessions[key]
	if !ok {
		return domain.ErrNotFound
	}
	sess.Status = status
	s.sessions[key] = sess
	return nil
}

func (s *fakeSessionStore) Complete(ctx context.Context, leagueID int64, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sessionKey{leagueID, index}
	sess, ok := s.sessions[key]
	if !ok {
		return domain.ErrNotFound
	}
	if sess.Status == domain.SessionStatusComplete {
		return domain.ErrAlreadySettled
	}
	sess.Status = domain.SessionStatusComplete
	s.sessions[key] = sess
	return nil
}

type playerKey struct {
	leagueID int64
	address  string
}

type fakePlayerStore struct {
	mu      sync.Mutex
	nextID  int64
	players map[playerKey]domain.PlayerStats
}

func newFakePlayerStore() *fakePlayerStore {
	return &fakePlayerStore{nextID: 1, players: map[playerKey]domain.PlayerStats{}}
}

func (s *fakePlayerStore) Create(ctx context.Context, p domain.PlayerStats) (domain.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := playerKey{p.LeagueID, p.Address}
	if _, ok := s.players[key]; ok {
		return domain.PlayerStats{}, domain.ErrAlreadyExists
	}
	p.ID = s.nextID
	s.nextID++
	p.JoinedAt = time.Now().UTC()
	s.players[key] = p
	return p, nil
}

func (s *fakePlayerStore) Get(ctx context.Context, leagueID int64, address string) (domain.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[playerKey{leagueID, address}]
	if !ok {
		return domain.PlayerStats{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakePlayerStore) ListByLeague(ctx context.Context, leagueID int64) ([]domain.PlayerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.PlayerStats{}
	for _, p := range s.players {
		if p.LeagueID == leagueID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Address < out[j].Address
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (s *fakePlayerStore) Count(ctx context.Context, leagueID int64) (int, error) {
	players, _ := s.ListByLeague(ctx, leagueID)
	return len(players), nil
}

func (s *fakePlayerStore) AddPoints(ctx context.Context, leagueID int64, address string, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := playerKey{leagueID, address}
	p, ok := s.players[key]
	if !ok {
		return domain.ErrNotFound
	}
	p.Points += delta
	s.players[key] = p
	return nil
}

type fakeMarketStore struct {
	mu      sync.Mutex
	markets map[string]domain.Market
	picks   *fakePickStore // optional, for ListOpenMarketIDs
}

func newFakeMarketStore() *fakeMarketStore {
	return &fakeMarketStore{markets: map[string]domain.Market{}}
}

func (s *fakeMarketStore) Upsert(ctx context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.markets[m.ID]; ok {
		m.Resolution = existing.Resolution
		m.ResolvedAt = existing.ResolvedAt
	}
	s.markets[m.ID] = m
	return nil
}

func (s *fakeMarketStore) GetByID(ctx context.Context, id string) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *fakeMarketStore) UpdatePrices(ctx context.Context, id string, priceYes, priceNo float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	m.CurrentPriceYes = &priceYes
	m.CurrentPriceNo = &priceNo
	s.markets[id] = m
	return nil
}

func (s *fakeMarketStore) SetResolution(ctx context.Context, id string, outcome domain.Outcome, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.ErrNotFound
	}
	if m.Resolution != nil {
		return domain.ErrAlreadyResolved
	}
	m.Resolution = &outcome
	m.ResolvedAt = &at
	s.markets[id] = m
	return nil
}

func (s *fakeMarketStore) ListOpenMarketIDs(ctx context.Context) ([]string, error) {
	if s.picks == nil {
		return nil, nil
	}
	s.picks.mu.Lock()
	defer s.picks.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, p := range s.picks.picks {
		if !p.IsResolved && !seen[p.MarketID] {
			seen[p.MarketID] = true
			out = append(out, p.MarketID)
		}
	}
	sort.Strings(out)
	return out, nil
}

type pickSlotKey struct {
	leagueID int64
	session  int
	index    int
}

type pickMarketKey struct {
	leagueID int64
	session  int
	marketID string
	side     domain.Side
}

type fakePickStore struct {
	mu      sync.Mutex
	nextID  int64
	picks   map[int64]domain.DraftPick
	slots   map[pickSlotKey]bool
	sides   map[pickMarketKey]bool
	players *fakePlayerStore // stats updated by ResolveAndScore
}

func newFakePickStore(players *fakePlayerStore) *fakePickStore {
	return &fakePickStore{
		nextID:  1,
		picks:   map[int64]domain.DraftPick{},
		slots:   map[pickSlotKey]bool{},
		sides:   map[pickMarketKey]bool{},
		players: players,
	}
}

func (s *fakePickStore) Create(ctx context.Context, p domain.DraftPick) (domain.DraftPick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slot := pickSlotKey{p.LeagueID, p.Session, p.PickIndex}
	side := pickMarketKey{p.LeagueID, p.Session, p.MarketID, p.Prediction}
	if s.slots[slot] || s.sides[side] {
		return domain.DraftPick{}, domain.ErrConflict
	}
	p.ID = s.nextID
	s.nextID++
	p.CreatedAt = time.Now().UTC()
	s.picks[p.ID] = p
	s.slots[slot] = true
	s.sides[side] = true
	return p, nil
}

func (s *fakePickStore) GetByID(ctx context.Context, id int64) (domain.DraftPick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.picks[id]
	if !ok {
		return domain.DraftPick{}, domain.ErrNotFound
	}
	return p, nil
}

func (s *fakePickStore) list(filter func(domain.DraftPick) bool) []domain.DraftPick {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.DraftPick{}
	for _, p := range s.picks {
		if filter(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *fakePickStore) ListByLeague(ctx context.Context, leagueID int64, session *int) ([]domain.DraftPick, error) {
	return s.list(func(p domain.DraftPick) bool {
		return p.LeagueID == leagueID && (session == nil || p.Session == *session)
	}), nil
}

func (s *fakePickStore) ListOpenByLeague(ctx context.Context, leagueID int64, session *int) ([]domain.DraftPick, error) {
	return s.list(func(p domain.DraftPick) bool {
		return p.LeagueID == leagueID && !p.IsResolved && (session == nil || p.Session == *session)
	}), nil
}

func (s *fakePickStore) ListByMarket(ctx context.Context, marketID string) ([]domain.DraftPick, error) {
	return s.list(func(p domain.DraftPick) bool {
		return p.MarketID == marketID
	}), nil
}

func (s *fakePickStore) CountBySession(ctx context.Context, leagueID int64, session int) (int, error) {
	return len(s.list(func(p domain.DraftPick) bool {
		return p.LeagueID == leagueID && p.Session == session
	})), nil
}

func (s *fakePickStore) CountByPlayer(ctx context.Context, leagueID int64, session int, player string) (int, error) {
	return len(s.list(func(p domain.DraftPick) bool {
		return p.LeagueID == leagueID && p.Session == session && p.Player == player
	})), nil
}

func (s *fakePickStore) CountUnresolved(ctx context.Context, leagueID int64, session int) (int, error) {
	return len(s.list(func(p domain.DraftPick) bool {
		return p.LeagueID == leagueID && p.Session == session && !p.IsResolved
	})), nil
}

func (s *fakePickStore) ResolveAndScore(ctx context.Context, pickID int64, points int64, correct bool) (bool, error) {
	s.mu.Lock()
	p, ok := s.picks[pickID]
	if !ok {
		s.mu.Unlock()
		return false, domain.ErrNotFound
	}
	if p.IsResolved {
		s.mu.Unlock()
		return false, nil
	}
	p.IsResolved = true
	p.Points = &points
	s.picks[pickID] = p
	s.mu.Unlock()

	s.players.mu.Lock()
	defer s.players.mu.Unlock()
	key := playerKey{p.LeagueID, p.Player}
	stats, ok := s.players.players[key]
	if !ok {
		return false, fmt.Errorf("no stats for %s", p.Player)
	}
	stats.Points += points
	if correct {
		stats.Streak++
	} else {
		stats.Streak = 0
	}
	s.players.players[key] = stats
	return true, nil
}

func (s *fakePickStore) UpdateOwner(ctx context.Context, pickID int64, newOwner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.picks[pickID]
	if !ok {
		return domain.ErrNotFound
	}
	if p.IsResolved {
		return domain.ErrConflict
	}
	p.Player = newOwner
	s.picks[pickID] = p
	return nil
}

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]domain.UserProfile
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: map[string]domain.UserProfile{}}
}

func (s *fakeProfileStore) Get(ctx context.Context, address string) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[address]
	if !ok {
		return domain.UserProfile{Address: address, Elo: domain.BaseElo}, nil
	}
	return p, nil
}

func (s *fakeProfileStore) ApplyMatchResult(ctx context.Context, winner, loser string, k int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.profiles[winner]
	if !ok {
		w = domain.UserProfile{Address: winner, Elo: domain.BaseElo}
	}
	l, ok := s.profiles[loser]
	if !ok {
		l = domain.UserProfile{Address: loser, Elo: domain.BaseElo}
	}
	w.Elo += k
	w.Wins++
	l.Elo -= k
	l.Losses++
	s.profiles[winner] = w
	s.profiles[loser] = l
	return nil
}

func (s *fakeProfileStore) Leaderboard(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Elo != out[j].Elo {
			return out[i].Elo > out[j].Elo
		}
		return out[i].Wins > out[j].Wins
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePayoutStore struct {
	mu        sync.Mutex
	payouts   []domain.Payout
	createErr map[string]error // injected per-player insert failures
}

func (s *fakePayoutStore) Create(ctx context.Context, p domain.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.createErr[p.Player]; err != nil {
		return err
	}
	s.payouts = append(s.payouts, p)
	return nil
}

func (s *fakePayoutStore) ListByLeague(ctx context.Context, leagueID int64) ([]domain.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Payout{}
	for _, p := range s.payouts {
		if p.LeagueID == leagueID {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeProposalStore struct {
	mu        sync.Mutex
	proposals map[string]domain.TradeProposal
}

func newFakeProposalStore() *fakeProposalStore {
	return &fakeProposalStore{proposals: map[string]domain.TradeProposal{}}
}

func (s *fakeProposalStore) Create(ctx context.Context, t domain.TradeProposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.proposals[t.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.proposals[t.ID] = t
	return nil
}

func (s *fakeProposalStore) GetByID(ctx context.Context, id string) (domain.TradeProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.proposals[id]
	if !ok {
		return domain.TradeProposal{}, domain.ErrNotFound
	}
	return t, nil
}

func (s *fakeProposalStore) ListByLeague(ctx context.Context, leagueID int64) ([]domain.TradeProposal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.TradeProposal{}
	for _, t := range s.proposals {
		if t.LeagueID == leagueID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeProposalStore) Decide(ctx context.Context, id string, status domain.TradeProposalStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.proposals[id]
	if !ok {
		return domain.ErrNotFound
	}
	if t.Status != domain.TradeProposalPending {
		return domain.ErrConflict
	}
	t.Status = status
	t.DecidedAt = &at
	s.proposals[id] = t
	return nil
}

type fakeAuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (s *fakeAuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.AuditEntry{
		ID:        int64(len(s.entries) + 1),
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *fakeAuditStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

type busMessage struct {
	channel string
	payload []byte
}

type fakeSignalBus struct {
	mu        sync.Mutex
	published []busMessage
	streamed  []busMessage
}

func (b *fakeSignalBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, busMessage{channel, payload})
	return nil
}

func (b *fakeSignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeSignalBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.streamed = append(b.streamed, busMessage{stream, payload})
	return nil
}

func (b *fakeSignalBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	return nil, nil
}

// eventTypes returns the type field of every published event, in order.
func (b *fakeSignalBus) eventTypes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.published))
	for _, m := range b.published {
		var ev struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(m.payload, &ev); err == nil {
			out = append(out, ev.Type)
		}
	}
	return out
}

type fakeLockManager struct {
	mu       sync.Mutex
	acquired []string
}

func (l *fakeLockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquired = append(l.acquired, key)
	return func() {}, nil
}

type fakePriceCache struct {
	mu     sync.Mutex
	prices map[string]float64 // YES price per market
}

func newFakePriceCache() *fakePriceCache {
	return &fakePriceCache{prices: map[string]float64{}}
}

func (c *fakePriceCache) SetPrice(ctx context.Context, marketID string, priceYes, priceNo float64, ts time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[marketID] = priceYes
	return nil
}

func (c *fakePriceCache) GetPrice(ctx context.Context, marketID string) (float64, float64, time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	yes, ok := c.prices[marketID]
	if !ok {
		return 0, 0, time.Time{}, domain.ErrNotFound
	}
	return yes, 1 - yes, time.Now().UTC(), nil
}

func (c *fakePriceCache) GetPrices(ctx context.Context, marketIDs []string) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string]float64{}
	for _, id := range marketIDs {
		if yes, ok := c.prices[id]; ok {
			out[id] = yes
		}
	}
	return out, nil
}

type ledgerCall struct {
	leagueID int64
	player   string
	amount   float64
}

type fakeLedger struct {
	mu      sync.Mutex
	err     error
	payouts []ledgerCall
	stakes  []ledgerCall
}

func (l *fakeLedger) Payout(ctx context.Context, intent domain.PayoutIntent) (domain.LedgerReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return domain.LedgerReceipt{}, l.err
	}
	l.payouts = append(l.payouts, ledgerCall{intent.LeagueID, intent.Player, intent.Amount})
	return domain.LedgerReceipt{TxRef: fmt.Sprintf("0xtx%d", len(l.payouts)), SubmittedAt: time.Now().UTC()}, nil
}

func (l *fakeLedger) ConfirmStake(ctx context.Context, leagueID int64, player string, amount float64) (domain.LedgerReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return domain.LedgerReceipt{}, l.err
	}
	l.stakes = append(l.stakes, ledgerCall{leagueID, player, amount})
	return domain.LedgerReceipt{TxRef: fmt.Sprintf("0xstake%d", len(l.stakes)), SubmittedAt: time.Now().UTC()}, nil
}

type fakeProvider struct {
	mu      sync.Mutex
	listed  []domain.Market
	listErr error
	quotes  map[string]domain.MarketQuote
}

func (p *fakeProvider) ListMarkets(ctx context.Context, limit, offset int) ([]domain.Market, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.listed, nil
}

func (p *fakeProvider) GetQuote(ctx context.Context, marketID string) (domain.MarketQuote, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	quote, ok := p.quotes[marketID]
	if !ok {
		return domain.MarketQuote{}, domain.ErrNotFound
	}
	return quote, nil
}

type fakeLeaderboardCache struct {
	mu      sync.Mutex
	entries map[int64][]byte
}

func newFakeLeaderboardCache() *fakeLeaderboardCache {
	return &fakeLeaderboardCache{entries: map[int64][]byte{}}
}

func (c *fakeLeaderboardCache) Set(ctx context.Context, leagueID int64, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[leagueID] = payload
	return nil
}

func (c *fakeLeaderboardCache) Get(ctx context.Context, leagueID int64) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[leagueID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (c *fakeLeaderboardCache) Invalidate(ctx context.Context, leagueID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, leagueID)
	return nil
}

type fakeBlobReader struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (r *fakeBlobReader) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (r *fakeBlobReader) List(ctx context.Context, prefix string) ([]domain.BlobInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.BlobInfo
	for path, data := range r.objects {
		if strings.HasPrefix(path, prefix) {
			out = append(out, domain.BlobInfo{Path: path, Size: int64(len(data))})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (r *fakeBlobReader) Exists(ctx context.Context, path string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.objects[path]
	return ok, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture bundles one in-memory instance of every store and cache.
type fixture struct {
	leagues   *fakeLeagueStore
	sessions  *fakeSessionStore
	players   *fakePlayerStore
	markets   *fakeMarketStore
	picks     *fakePickStore
	profiles  *fakeProfileStore
	payouts   *fakePayoutStore
	proposals *fakeProposalStore
	audit     *fakeAuditStore
	bus       *fakeSignalBus
	locks     *fakeLockManager
	prices    *fakePriceCache
}

func newFixture() *fixture {
	players := newFakePlayerStore()
	picks := newFakePickStore(players)
	markets := newFakeMarketStore()
	markets.picks = picks
	return &fixture{
		leagues:   newFakeLeagueStore(),
		sessions:  newFakeSessionStore(),
		players:   players,
		markets:   markets,
		picks:     picks,
		profiles:  newFakeProfileStore(),
		payouts:   &fakePayoutStore{},
		proposals: newFakeProposalStore(),
		audit:     &fakeAuditStore{},
		bus:       &fakeSignalBus{},
		locks:     &fakeLockManager{},
		prices:    newFakePriceCache(),
	}
}

func (f *fixture) addMarket(id string, priceYes float64) {
	no := 1 - priceYes
	f.markets.mu.Lock()
	defer f.markets.mu.Unlock()
	f.markets.markets[id] = domain.Market{
		ID:              id,
		Title:           id,
		Active:          true,
		CurrentPriceYes: &priceYes,
		CurrentPriceNo:  &no,
	}
}

func (f *fixture) addResolvedMarket(id string, outcome domain.Outcome) {
	f.addMarket(id, 0.5)
	f.markets.mu.Lock()
	defer f.markets.mu.Unlock()
	m := f.markets.markets[id]
	now := time.Now().UTC()
	m.Resolution = &outcome
	m.ResolvedAt = &now
	f.markets.markets[id] = m
}

func (f *fixture) addPlayer(t *testing.T, leagueID int64, address string) {
	t.Helper()
	if _, err := f.players.Create(context.Background(), domain.PlayerStats{
		LeagueID: leagueID,
		Address:  address,
	}); err != nil {
		t.Fatalf("add player %s: %v", address, err)
	}
}

func (f *fixture) setStats(leagueID int64, address string, points int64, streak int) {
	f.players.mu.Lock()
	defer f.players.mu.Unlock()
	key := playerKey{leagueID, address}
	p := f.players.players[key]
	p.LeagueID = leagueID
	p.Address = address
	p.Points = points
	p.Streak = streak
	f.players.players[key] = p
}

func (f *fixture) addPick(t *testing.T, p domain.DraftPick) domain.DraftPick {
	t.Helper()
	created, err := f.picks.Create(context.Background(), p)
	if err != nil {
		t.Fatalf("add pick: %v", err)
	}
	return created
}
