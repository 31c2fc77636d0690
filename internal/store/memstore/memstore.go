// Package memstore provides an in-memory store.Store for tests. It mirrors
// the Postgres implementation's keying so orchestrator tests exercise the
// same idempotency guarantees without a database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kadromedya/statsync/internal/store"
)

// Store is a thread-safe in-memory implementation of store.Store.
type Store struct {
	mu sync.Mutex

	Athletes []store.Athlete

	dailyUpdates    map[string]store.DailyUpdate // athleteID|date
	seasonStats     map[string]store.SeasonStats // athleteID|season|competition
	upcomingMatches map[int64][]store.UpcomingMatch
	liveMatches     map[int64]store.LiveMatch
	transfers       map[string]store.Transfer
	injuries        map[string]store.Injury
	marketValues    map[string]store.MarketValue
	rankings        map[string][]store.EfficiencyRanking // athleteID|month
	newsItems       map[string]store.NewsItem
	syncLogs        []store.SyncLog
	admins          map[string]bool

	// FailNext, when set, makes the named method return an error once.
	FailNext map[string]error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		dailyUpdates:    make(map[string]store.DailyUpdate),
		seasonStats:     make(map[string]store.SeasonStats),
		upcomingMatches: make(map[int64][]store.UpcomingMatch),
		liveMatches:     make(map[int64]store.LiveMatch),
		transfers:       make(map[string]store.Transfer),
		injuries:        make(map[string]store.Injury),
		marketValues:    make(map[string]store.MarketValue),
		rankings:        make(map[string][]store.EfficiencyRanking),
		newsItems:       make(map[string]store.NewsItem),
		admins:          make(map[string]bool),
		FailNext:        make(map[string]error),
	}
}

func (s *Store) failNext(method string) error {
	if err, ok := s.FailNext[method]; ok {
		delete(s.FailNext, method)
		return err
	}
	return nil
}

// --------------------------------------------------------------------------
// Roster
// --------------------------------------------------------------------------

func (s *Store) ListAthletes(_ context.Context, sport store.Sport) ([]store.Athlete, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("ListAthletes"); err != nil {
		return nil, err
	}
	var out []store.Athlete
	for _, a := range s.Athletes {
		if sport == "" || a.Sport == sport {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) SetAthleteExternalID(_ context.Context, athleteID int64, source store.ExternalSource, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.Athletes {
		if s.Athletes[i].ID != athleteID {
			continue
		}
		switch source {
		case store.SourceAPIFootball:
			n := atoi(id)
			s.Athletes[i].FootballAPIID = &n
		case store.SourceBDL:
			n := atoi(id)
			s.Athletes[i].BDLAPIID = &n
		case store.SourceTransfermarkt:
			v := id
			s.Athletes[i].TransfermarktID = &v
		default:
			return fmt.Errorf("unknown external source %q", source)
		}
		return nil
	}
	return fmt.Errorf("athlete %d not found", athleteID)
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// --------------------------------------------------------------------------
// Stats
// --------------------------------------------------------------------------

func (s *Store) UpsertDailyUpdate(_ context.Context, u store.DailyUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("UpsertDailyUpdate"); err != nil {
		return err
	}
	key := fmt.Sprintf("%d|%s", u.AthleteID, u.Date.Format("2006-01-02"))
	s.dailyUpdates[key] = u
	return nil
}

// DailyUpdates returns all stored rows, ordered by key.
func (s *Store) DailyUpdates() []store.DailyUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.dailyUpdates))
	for k := range s.dailyUpdates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]store.DailyUpdate, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.dailyUpdates[k])
	}
	return out
}

func (s *Store) UpsertSeasonStats(_ context.Context, st store.SeasonStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("UpsertSeasonStats"); err != nil {
		return err
	}
	key := fmt.Sprintf("%d|%s|%s", st.AthleteID, st.Season, st.Competition)
	s.seasonStats[key] = st
	return nil
}

// SeasonStatsRows returns all stored season stats rows.
func (s *Store) SeasonStatsRows() []store.SeasonStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.seasonStats))
	for k := range s.seasonStats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]store.SeasonStats, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.seasonStats[k])
	}
	return out
}

// --------------------------------------------------------------------------
// Schedule
// --------------------------------------------------------------------------

func (s *Store) ReplaceUpcomingMatches(_ context.Context, athleteID int64, matches []store.UpcomingMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("ReplaceUpcomingMatches"); err != nil {
		return err
	}
	s.upcomingMatches[athleteID] = append([]store.UpcomingMatch(nil), matches...)
	return nil
}

func (s *Store) ListUpcomingMatches(_ context.Context, from, to time.Time) ([]store.UpcomingMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("ListUpcomingMatches"); err != nil {
		return nil, err
	}
	var out []store.UpcomingMatch
	for _, matches := range s.upcomingMatches {
		for _, m := range matches {
			if !m.KickoffAt.Before(from) && !m.KickoffAt.After(to) {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].KickoffAt.Before(out[j].KickoffAt) })
	return out, nil
}

// UpcomingMatches returns the stored schedule snapshot for one athlete.
func (s *Store) UpcomingMatches(athleteID int64) []store.UpcomingMatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.UpcomingMatch(nil), s.upcomingMatches[athleteID]...)
}

// --------------------------------------------------------------------------
// Live
// --------------------------------------------------------------------------

func (s *Store) UpsertLiveMatch(_ context.Context, m store.LiveMatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("UpsertLiveMatch"); err != nil {
		return err
	}
	s.liveMatches[m.AthleteID] = m
	return nil
}

func (s *Store) ListLiveMatches(_ context.Context, status string) ([]store.LiveMatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.LiveMatch
	for _, m := range s.liveMatches {
		if status == "" || m.Status == status {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AthleteID < out[j].AthleteID })
	return out, nil
}

func (s *Store) FinishLiveMatch(_ context.Context, athleteID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.liveMatches[athleteID]
	if !ok {
		return nil
	}
	m.Status = store.LiveStatusFinished
	s.liveMatches[athleteID] = m
	return nil
}

// LiveMatch returns the current live row for an athlete, if any.
func (s *Store) LiveMatch(athleteID int64) (store.LiveMatch, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.liveMatches[athleteID]
	return m, ok
}

// --------------------------------------------------------------------------
// Market data
// --------------------------------------------------------------------------

func (s *Store) UpsertTransfer(_ context.Context, t store.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d|%s|%s|%s", t.AthleteID, t.TransferDate.Format("2006-01-02"), t.FromClub, t.ToClub)
	s.transfers[key] = t
	return nil
}

// Transfers returns all stored transfer rows.
func (s *Store) Transfers() []store.Transfer {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TransferDate.Before(out[j].TransferDate) })
	return out
}

func (s *Store) UpsertInjury(_ context.Context, i store.Injury) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d|%s|%s", i.AthleteID, i.InjuryType, i.StartDate.Format("2006-01-02"))
	s.injuries[key] = i
	return nil
}

func (s *Store) LatestOpenInjury(_ context.Context, athleteID int64) (*store.Injury, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("LatestOpenInjury"); err != nil {
		return nil, err
	}
	var latest *store.Injury
	for _, i := range s.injuries {
		if i.AthleteID != athleteID || i.EndDate != nil {
			continue
		}
		if latest == nil || i.StartDate.After(latest.StartDate) {
			cur := i
			latest = &cur
		}
	}
	return latest, nil
}

func (s *Store) UpsertMarketValue(_ context.Context, v store.MarketValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d|%s", v.AthleteID, v.RecordedDate.Format("2006-01-02"))
	s.marketValues[key] = v
	return nil
}

// MarketValues returns all stored market value rows.
func (s *Store) MarketValues() []store.MarketValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.MarketValue, 0, len(s.marketValues))
	for _, v := range s.marketValues {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedDate.Before(out[j].RecordedDate) })
	return out
}

// --------------------------------------------------------------------------
// Leaderboards
// --------------------------------------------------------------------------

func (s *Store) ReplaceEfficiencyRankings(_ context.Context, athleteID int64, month string, rankings []store.EfficiencyRanking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := fmt.Sprintf("%d|%s", athleteID, month)
	s.rankings[key] = append([]store.EfficiencyRanking(nil), rankings...)
	return nil
}

// EfficiencyRankings returns the snapshot for (athlete, month).
func (s *Store) EfficiencyRankings(athleteID int64, month string) []store.EfficiencyRanking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.EfficiencyRanking(nil), s.rankings[fmt.Sprintf("%d|%s", athleteID, month)]...)
}

// --------------------------------------------------------------------------
// News
// --------------------------------------------------------------------------

func (s *Store) UpsertNewsItem(_ context.Context, n store.NewsItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newsItems[fmt.Sprintf("%d|%s", n.AthleteID, n.URL)] = n
	return nil
}

// NewsItems returns all stored news rows.
func (s *Store) NewsItems() []store.NewsItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]store.NewsItem, 0, len(s.newsItems))
	for _, n := range s.newsItems {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// --------------------------------------------------------------------------
// Audit log
// --------------------------------------------------------------------------

func (s *Store) InsertSyncLog(_ context.Context, l store.SyncLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("InsertSyncLog"); err != nil {
		return err
	}
	s.syncLogs = append(s.syncLogs, l)
	return nil
}

func (s *Store) LatestSuccessfulSync(_ context.Context, syncType string) (*store.SyncLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("LatestSuccessfulSync"); err != nil {
		return nil, err
	}
	for i := len(s.syncLogs) - 1; i >= 0; i-- {
		l := s.syncLogs[i]
		if l.SyncType == syncType && l.Status == store.SyncStatusSuccess {
			return &l, nil
		}
	}
	return nil, nil
}

func (s *Store) ListSyncLogs(_ context.Context, syncType string, limit int) ([]store.SyncLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 20
	}
	var out []store.SyncLog
	for i := len(s.syncLogs) - 1; i >= 0 && len(out) < limit; i-- {
		if syncType == "" || s.syncLogs[i].SyncType == syncType {
			out = append(out, s.syncLogs[i])
		}
	}
	return out, nil
}

// SyncLogs returns every stored log row in insertion order.
func (s *Store) SyncLogs() []store.SyncLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.SyncLog(nil), s.syncLogs...)
}

// --------------------------------------------------------------------------
// Roles
// --------------------------------------------------------------------------

// SetAdmin marks a user id as an admin for AuthGate tests.
func (s *Store) SetAdmin(userID string, isAdmin bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[userID] = isAdmin
}

func (s *Store) IsAdmin(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext("IsAdmin"); err != nil {
		return false, err
	}
	return s.admins[userID], nil
}
