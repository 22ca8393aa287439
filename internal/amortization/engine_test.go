package amortization

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeFlatSchedule(t *testing.T) {
	plan, err := ComputeFlatSchedule(d("5000000"), d("21"), 12)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !plan.TotalInterest.Equal(d("1050000")) {
		t.Errorf("TotalInterest = %s, want 1050000", plan.TotalInterest)
	}
	if !plan.TotalPayment.Equal(d("6050000")) {
		t.Errorf("TotalPayment = %s, want 6050000", plan.TotalPayment)
	}
	if !plan.MonthlyInstallment.Equal(d("504167")) {
		t.Errorf("MonthlyInstallment = %s, want 504167", plan.MonthlyInstallment)
	}
	if plan.Convention != Flat || plan.RateUnit != Annual {
		t.Errorf("unexpected tags %s/%s", plan.Convention, plan.RateUnit)
	}
	if len(plan.Schedule) != 12 {
		t.Fatalf("schedule length = %d, want 12", len(plan.Schedule))
	}
	for i, row := range plan.Schedule {
		if row.Month != i+1 {
			t.Errorf("row %d has month %d", i, row.Month)
		}
		if !row.PrincipalPayment.Equal(d("416667")) {
			t.Errorf("month %d principal = %s, want 416667", row.Month, row.PrincipalPayment)
		}
		if !row.InterestPayment.Equal(d("87500")) {
			t.Errorf("month %d interest = %s, want 87500", row.Month, row.InterestPayment)
		}
	}
	if got := plan.Schedule[0].RemainingBalance; !got.Equal(d("4583333")) {
		t.Errorf("month 1 remaining = %s, want 4583333", got)
	}
	if got := plan.Schedule[11].RemainingBalance; !got.IsZero() {
		t.Errorf("month 12 remaining = %s, want 0", got)
	}
}

func TestComputeFlatSchedule_SingleMonth(t *testing.T) {
	plan, err := ComputeFlatSchedule(d("1200000"), d("12"), 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Schedule) != 1 {
		t.Fatalf("schedule length = %d, want 1", len(plan.Schedule))
	}
	if !plan.Schedule[0].RemainingBalance.IsZero() {
		t.Errorf("remaining = %s, want 0", plan.Schedule[0].RemainingBalance)
	}
	if !plan.TotalInterest.Equal(d("12000")) {
		t.Errorf("TotalInterest = %s, want 12000", plan.TotalInterest)
	}
}

func TestComputeAnnuitySchedule(t *testing.T) {
	plan, err := ComputeAnnuitySchedule(d("1000000"), d("1.75"), 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !plan.MonthlyInstallment.Equal(d("177023")) {
		t.Fatalf("MonthlyInstallment = %s, want 177023", plan.MonthlyInstallment)
	}
	if !plan.TotalPayment.Equal(d("1062138")) {
		t.Errorf("TotalPayment = %s, want 1062138", plan.TotalPayment)
	}
	if !plan.TotalInterest.Equal(d("62138")) {
		t.Errorf("TotalInterest = %s, want 62138", plan.TotalInterest)
	}

	want := []struct{ interest, principal, remaining string }{
		{"17500", "159523", "840477"},
		{"14708", "162315", "678162"},
		{"11868", "165155", "513007"},
		{"8978", "168045", "344962"},
		{"6037", "170986", "173976"},
		{"3045", "173978", "-2"},
	}
	for i, w := range want {
		row := plan.Schedule[i]
		if !row.InterestPayment.Equal(d(w.interest)) ||
			!row.PrincipalPayment.Equal(d(w.principal)) ||
			!row.RemainingBalance.Equal(d(w.remaining)) {
			t.Errorf("month %d = (%s, %s, %s), want (%s, %s, %s)", row.Month,
				row.InterestPayment, row.PrincipalPayment, row.RemainingBalance,
				w.interest, w.principal, w.remaining)
		}
	}
}

func TestZeroRate(t *testing.T) {
	for _, c := range Conventions() {
		t.Run(string(c), func(t *testing.T) {
			calc, err := GetCalculator(c)
			if err != nil {
				t.Fatalf("GetCalculator: %v", err)
			}
			plan, err := calc.Compute(d("1000000"), decimal.Zero, 3)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !plan.MonthlyInstallment.Equal(d("333333")) {
				t.Errorf("MonthlyInstallment = %s, want 333333", plan.MonthlyInstallment)
			}
			if !plan.TotalInterest.IsZero() {
				t.Errorf("TotalInterest = %s, want 0", plan.TotalInterest)
			}
			for _, row := range plan.Schedule {
				if !row.InterestPayment.IsZero() {
					t.Errorf("month %d interest = %s, want 0", row.Month, row.InterestPayment)
				}
			}
		})
	}
}

func TestInvalidArguments(t *testing.T) {
	tests := []struct {
		name      string
		principal decimal.Decimal
		rate      decimal.Decimal
		tenor     int
	}{
		{"zero principal", decimal.Zero, d("10"), 12},
		{"negative principal", d("-1"), d("10"), 12},
		{"negative rate", d("1000"), d("-0.5"), 12},
		{"zero tenor", d("1000"), d("10"), 0},
		{"negative tenor", d("1000"), d("10"), -3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ComputeFlatSchedule(tt.principal, tt.rate, tt.tenor); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("flat: expected ErrInvalidArgument, got %v", err)
			}
			if _, err := ComputeAnnuitySchedule(tt.principal, tt.rate, tt.tenor); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("annuity: expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestFlatScheduleIdentities(t *testing.T) {
	principals := []string{"999", "1000000", "1234567", "7500000.5"}
	rates := []string{"0", "12", "21.5", "36"}
	for _, p := range principals {
		for _, r := range rates {
			for n := 1; n <= 24; n++ {
				plan, err := ComputeFlatSchedule(d(p), d(r), n)
				if err != nil {
					t.Fatalf("(%s, %s, %d): %v", p, r, n, err)
				}
				tolerance := decimal.NewFromInt(int64(n))

				sumPrincipal, sumInterest := decimal.Zero, decimal.Zero
				for _, row := range plan.Schedule {
					sumPrincipal = sumPrincipal.Add(row.PrincipalPayment)
					sumInterest = sumInterest.Add(row.InterestPayment)
				}
				if sumPrincipal.Sub(plan.Principal).Abs().GreaterThan(tolerance) {
					t.Errorf("(%s, %s, %d): principal sum %s drifts from %s", p, r, n, sumPrincipal, plan.Principal)
				}
				if sumInterest.Sub(plan.TotalInterest).Abs().GreaterThan(tolerance) {
					t.Errorf("(%s, %s, %d): interest sum %s drifts from %s", p, r, n, sumInterest, plan.TotalInterest)
				}
				if last := plan.Schedule[n-1].RemainingBalance; !last.IsZero() {
					t.Errorf("(%s, %s, %d): terminal balance %s, want 0", p, r, n, last)
				}
			}
		}
	}
}

func TestAnnuityScheduleIdentities(t *testing.T) {
	principals := []string{"50000", "1000000", "1234567", "25000000"}
	rates := []string{"0", "0.5", "1.75", "2"}
	for _, p := range principals {
		for _, r := range rates {
			for n := 1; n <= 24; n++ {
				plan, err := ComputeAnnuitySchedule(d(p), d(r), n)
				if err != nil {
					t.Fatalf("(%s, %s, %d): %v", p, r, n, err)
				}
				for _, row := range plan.Schedule {
					if total := row.PrincipalPayment.Add(row.InterestPayment); !total.Equal(plan.MonthlyInstallment) {
						t.Errorf("(%s, %s, %d): month %d pays %s, want %s", p, r, n, row.Month, total, plan.MonthlyInstallment)
					}
				}
				tolerance := decimal.NewFromInt(int64(2 * n))
				if last := plan.Schedule[n-1].RemainingBalance; last.Abs().GreaterThan(tolerance) {
					t.Errorf("(%s, %s, %d): terminal balance %s outside tolerance", p, r, n, last)
				}
			}
		}
	}
}

func TestComputeDoesNotShareState(t *testing.T) {
	a, _ := ComputeAnnuitySchedule(d("1000000"), d("1.75"), 6)
	b, _ := ComputeAnnuitySchedule(d("1000000"), d("1.75"), 6)
	a.Schedule[0].RemainingBalance = d("1")
	if b.Schedule[0].RemainingBalance.Equal(d("1")) {
		t.Fatal("schedules share backing storage")
	}
}
