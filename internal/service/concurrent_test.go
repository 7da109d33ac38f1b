package service_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evetabi/betleague/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TestConcurrentMemberDebits runs 60 goroutines each debiting 20 from a member
// holding 1000, serialised by a mutex standing in for the member row lock.
// Exactly 50 debits succeed and the balance never goes negative.
func TestConcurrentMemberDebits(t *testing.T) {
	const workers = 60
	stake := decimal.NewFromInt(20)

	member := domain.Member{LeagueID: uuid.New(), UserID: uuid.New(), Balance: decimal.NewFromInt(1000)}
	var (
		mu       sync.Mutex
		accepted int64
		rejected int64
		wg       sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mu.Lock()
			defer mu.Unlock()

			after, err := member.Debit(stake)
			if errors.Is(err, domain.ErrInsufficientFunds) {
				atomic.AddInt64(&rejected, 1)
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			member = after
			atomic.AddInt64(&accepted, 1)
		}()
	}
	wg.Wait()

	if accepted != 50 || rejected != 10 {
		t.Errorf("accepted=%d rejected=%d, want 50/10", accepted, rejected)
	}
	if !member.Balance.IsZero() {
		t.Errorf("final balance should be 0, got %s", member.Balance)
	}
}

// TestConcurrentResolveGuard verifies that with the ticket row lock held for
// the whole resolution, exactly one of N concurrent resolutions succeeds.
func TestConcurrentResolveGuard(t *testing.T) {
	const workers = 20
	ticket, err := domain.NewMoneylineTicket(uuid.New(), uuid.New(), "Team A vs Team B", "",
		[]domain.OptionInput{
			{Text: "Team A", Odds: decimal.NewFromInt(2)},
			{Text: "Team B", Odds: decimal.RequireFromString("1.5")},
		}, nil, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	var (
		mu     sync.Mutex
		wins   int64
		losses int64
		wg     sync.WaitGroup
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mu.Lock()
			defer mu.Unlock()

			if err := ticket.Resolve("Team A", time.Now()); err != nil {
				if !errors.Is(err, domain.ErrInvalidTransition) {
					t.Errorf("unexpected error: %v", err)
				}
				atomic.AddInt64(&losses, 1)
				return
			}
			atomic.AddInt64(&wins, 1)
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("expected exactly 1 successful resolution, got %d", wins)
	}
	if losses != workers-1 {
		t.Errorf("expected %d rejected resolutions, got %d", workers-1, losses)
	}
}
