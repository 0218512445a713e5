package service

import (
	"alcyxob/exercise-tracker/internal/domain"
	"alcyxob/exercise-tracker/internal/repository"
	"alcyxob/exercise-tracker/internal/timewindow"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/coder/quartz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

var (
	ErrRankNotFound = errors.New("caller has no rank in the leaderboard")
	ErrInvalidPage  = errors.New("page must be >= 0 and size > 0")
)

// rankingConcurrency bounds the per-member total lookups of one ranking.
const rankingConcurrency = 8

// RankingEngine orders members by their exercise time on a logical day.
type RankingEngine struct {
	members  repository.MemberRepository
	sessions repository.SessionRepository
	history  repository.HistoryRepository
	tx       repository.Transactor
	calc     timewindow.Calculator
	clock    quartz.Clock
}

// NewRankingEngine creates a RankingEngine.
func NewRankingEngine(
	members repository.MemberRepository,
	sessions repository.SessionRepository,
	history repository.HistoryRepository,
	tx repository.Transactor,
	calc timewindow.Calculator,
	clock quartz.Clock,
) *RankingEngine {
	return &RankingEngine{
		members:  members,
		sessions: sessions,
		history:  history,
		tx:       tx,
		calc:     calc,
		clock:    clock,
	}
}

// Rank returns the leaderboard of memberIDs for the logical day named by date. For
// today the totals are live committed time plus records already archived today; for
// other days they come from history alone. Members are ordered by total, descending;
// equal totals keep the order of memberIDs. Ranks are 1..n with no gaps or sharing.
func (e *RankingEngine) Rank(ctx context.Context, memberIDs []primitive.ObjectID, date time.Time) ([]domain.RankingEntry, error) {
	today := e.calc.IsToday(date, e.clock.Now())
	day := e.calc.DayOf(date)

	entries := make([]domain.RankingEntry, len(memberIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rankingConcurrency)
	for i, memberID := range memberIDs {
		g.Go(func() error {
			member, err := e.members.GetByID(gctx, memberID)
			if err != nil {
				return fmt.Errorf("load member %s: %w", memberID.Hex(), err)
			}
			total, err := e.memberTotal(gctx, memberID, day, today)
			if err != nil {
				return fmt.Errorf("total of member %s: %w", memberID.Hex(), err)
			}
			entries[i] = domain.RankingEntry{Name: member.Name, Total: total}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(a, b int) bool {
		return entries[a].Total > entries[b].Total
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (e *RankingEngine) memberTotal(ctx context.Context, memberID primitive.ObjectID, day timewindow.Window, today bool) (time.Duration, error) {
	var total time.Duration
	err := e.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		records, err := e.history.ListByMemberAndWindow(ctx, memberID, day.Start, day.End)
		if err != nil {
			return err
		}
		total = domain.SumDurations(records)
		if !today {
			return nil
		}
		sessions, err := e.sessions.ListByMember(ctx, memberID)
		if err != nil {
			return err
		}
		total += liveTotal(sessions)
		return nil
	})
	return total, err
}

// Paginate cuts page number page (0-based) of the given size out of a ranked
// leaderboard and attaches the caller's own entry, found by display name. A page past
// the end has no entries.
func Paginate(entries []domain.RankingEntry, callerName string, page, size int) (*domain.RankingPage, error) {
	if page < 0 || size <= 0 {
		return nil, ErrInvalidPage
	}
	result := &domain.RankingPage{
		Page:    page,
		Size:    size,
		Entries: []domain.RankingEntry{},
	}

	found := false
	for _, entry := range entries {
		if entry.Name == callerName {
			result.MyRank = entry.Rank
			result.MyName = entry.Name
			result.MyTotal = entry.Total
			found = true
			break
		}
	}
	if !found {
		return nil, ErrRankNotFound
	}

	// Compare before multiplying so huge pages cannot overflow. n > 0 once the caller is found.
	n := len(entries)
	if page > (n-1)/size {
		return result, nil
	}
	start := page * size
	end := start + min(size, n-start)
	result.Entries = append(result.Entries, entries[start:end]...)
	result.HasNext = end < n
	return result, nil
}
