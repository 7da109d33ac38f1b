package domain_test

import (
	"errors"
	"testing"

	"github.com/evetabi/betleague/internal/domain"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// TestPayout_StakeTimesOdds checks payout == stake × odds with no rounding.
func TestPayout_StakeTimesOdds(t *testing.T) {
	cases := []struct {
		stake, odds, want string
	}{
		{"100", "2.0", "200"},
		{"50", "1.5", "75"},
		{"10", "1", "10"},
		{"33.33", "3.03", "100.9899"},
		{"0.01", "100", "1"},
	}
	for _, tc := range cases {
		got, err := domain.Payout(d(tc.stake), d(tc.odds))
		if err != nil {
			t.Fatalf("Payout(%s, %s) unexpected error: %v", tc.stake, tc.odds, err)
		}
		if !got.Equal(d(tc.want)) {
			t.Errorf("Payout(%s, %s) = %s, want %s", tc.stake, tc.odds, got, tc.want)
		}
	}
}

func TestPayout_Rejections(t *testing.T) {
	if _, err := domain.Payout(d("100"), d("0.99")); !errors.Is(err, domain.ErrInvalidOdds) {
		t.Errorf("odds < 1: err = %v, want ErrInvalidOdds", err)
	}
	if _, err := domain.Payout(d("0"), d("2")); !errors.Is(err, domain.ErrInvalidStake) {
		t.Errorf("stake 0: err = %v, want ErrInvalidStake", err)
	}
	if _, err := domain.Payout(d("-5"), d("2")); !errors.Is(err, domain.ErrInvalidStake) {
		t.Errorf("negative stake: err = %v, want ErrInvalidStake", err)
	}
	if _, err := domain.Payout(d("10.00005"), d("2")); !errors.Is(err, domain.ErrInvalidStake) {
		t.Errorf("sub-cent stake: err = %v, want ErrInvalidStake", err)
	}
	if _, err := domain.Payout(d("10.500"), d("2")); err != nil {
		t.Errorf("trailing zeros: err = %v, want nil", err)
	}
}

func TestWithinPlaces(t *testing.T) {
	cases := []struct {
		v    string
		want bool
	}{
		{"10", true},
		{"10.5", true},
		{"10.25", true},
		{"10.2500", true},
		{"10.255", false},
		{"10.00005", false},
	}
	for _, tc := range cases {
		if got := domain.WithinPlaces(d(tc.v), domain.MoneyPlaces); got != tc.want {
			t.Errorf("WithinPlaces(%s) = %v, want %v", tc.v, got, tc.want)
		}
	}
}

func TestValidateOdds_AuthoringRange(t *testing.T) {
	for _, ok := range []string{"1.01", "2", "100"} {
		if err := domain.ValidateOdds(d(ok)); err != nil {
			t.Errorf("ValidateOdds(%s) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"1", "1.009", "100.01", "1.555", "2.0001"} {
		if err := domain.ValidateOdds(d(bad)); !errors.Is(err, domain.ErrInvalidOdds) {
			t.Errorf("ValidateOdds(%s) = %v, want ErrInvalidOdds", bad, err)
		}
	}
}

func TestRoundMoney(t *testing.T) {
	if got := domain.RoundMoney(d("100.9899")); !got.Equal(d("100.99")) {
		t.Errorf("RoundMoney = %s, want 100.99", got)
	}
}

// TestAmericanOddsConversion covers the display-only conversion helpers.
//
//	+150 ↔ 2.50
//	-200 ↔ 1.50
func TestAmericanOddsConversion(t *testing.T) {
	dec, err := domain.AmericanToDecimal(150)
	if err != nil || !dec.Equal(d("2.5")) {
		t.Errorf("AmericanToDecimal(150) = %s, %v; want 2.5", dec, err)
	}
	dec, err = domain.AmericanToDecimal(-200)
	if err != nil || !dec.Equal(d("1.5")) {
		t.Errorf("AmericanToDecimal(-200) = %s, %v; want 1.5", dec, err)
	}
	if _, err := domain.AmericanToDecimal(0); !errors.Is(err, domain.ErrInvalidOdds) {
		t.Errorf("AmericanToDecimal(0) err = %v, want ErrInvalidOdds", err)
	}

	if am, ok := domain.DecimalToAmerican(d("2.5")); !ok || am != 150 {
		t.Errorf("DecimalToAmerican(2.5) = %d, %v; want 150", am, ok)
	}
	if am, ok := domain.DecimalToAmerican(d("1.5")); !ok || am != -200 {
		t.Errorf("DecimalToAmerican(1.5) = %d, %v; want -200", am, ok)
	}
	if _, ok := domain.DecimalToAmerican(d("1")); ok {
		t.Error("DecimalToAmerican(1) should report ok=false")
	}
}
