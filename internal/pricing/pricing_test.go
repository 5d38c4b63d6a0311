package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/phenrril/posvariantes/internal/domain"
)

func base(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestCalculateKnownPrices(t *testing.T) {
	cases := []struct {
		name      string
		base      string
		adj       []Adjustment
		wantAdj   string
		wantFinal string
	}{
		{"two fixed extras", "100.0", []Adjustment{Fixed(decimal.NewFromInt(20)), Fixed(decimal.NewFromInt(10))}, "30", "130"},
		{"no extras", "1500.0", nil, "0", "1500"},
		{"percentage over base", "200", []Adjustment{Percentage(decimal.NewFromInt(15))}, "30", "230"},
		{"mixed", "80", []Adjustment{Fixed(decimal.NewFromInt(5)), Percentage(decimal.RequireFromString("12.5"))}, "15", "95"},
		{"negative fixed is a discount", "50", []Adjustment{Fixed(decimal.NewFromInt(-10))}, "-10", "40"},
		{"zero base", "0", []Adjustment{Percentage(decimal.NewFromInt(50)), Fixed(decimal.NewFromInt(3))}, "3", "3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Calculate(base(tc.base), tc.adj)
			if err != nil {
				t.Fatalf("calculate: %v", err)
			}
			if !got.AdjustmentTotal.Equal(decimal.RequireFromString(tc.wantAdj)) {
				t.Fatalf("adjustment total = %s, want %s", got.AdjustmentTotal, tc.wantAdj)
			}
			if !got.FinalPrice.Equal(decimal.RequireFromString(tc.wantFinal)) {
				t.Fatalf("final price = %s, want %s", got.FinalPrice, tc.wantFinal)
			}
			if !got.BasePrice.Equal(decimal.RequireFromString(tc.base)) {
				t.Fatalf("base price = %s, want %s", got.BasePrice, tc.base)
			}
		})
	}
}

func TestCalculateLaw(t *testing.T) {
	for b := int64(0); b <= 500; b += 37 {
		for f := int64(-20); f <= 40; f += 13 {
			for p := int64(0); p <= 30; p += 7 {
				bp := decimal.New(b*100+99, -2)
				adj := []Adjustment{
					Fixed(decimal.NewFromInt(f)),
					Percentage(decimal.NewFromInt(p)),
					Fixed(decimal.New(25, -2)),
				}
				got, err := Calculate(decimal.NewNullDecimal(bp), adj)
				if err != nil {
					t.Fatalf("calculate: %v", err)
				}
				want := bp.Add(decimal.NewFromInt(f)).Add(decimal.New(25, -2)).Add(bp.Mul(decimal.NewFromInt(p)).Div(decimal.NewFromInt(100)))
				if !got.FinalPrice.Equal(want) {
					t.Fatalf("base=%s f=%d p=%d: final %s, want %s", bp, f, p, got.FinalPrice, want)
				}
				if !got.FinalPrice.Equal(got.BasePrice.Add(got.AdjustmentTotal)) {
					t.Fatalf("final != base + adjustments")
				}
			}
		}
	}
}

func TestCalculateIdentity(t *testing.T) {
	for _, s := range []string{"0", "0.01", "19.99", "1500", "123456.789"} {
		got, err := Calculate(base(s), []Adjustment{})
		if err != nil {
			t.Fatalf("calculate: %v", err)
		}
		if !got.FinalPrice.Equal(decimal.RequireFromString(s)) || !got.AdjustmentTotal.IsZero() {
			t.Fatalf("identity broken for %s: %+v", s, got)
		}
	}
}

func TestCalculateRejectsBadBase(t *testing.T) {
	if _, err := Calculate(decimal.NullDecimal{}, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("null base: got %v", err)
	}
	if _, err := Calculate(base("-1"), nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("negative base: got %v", err)
	}
	if _, err := Calculate(base("10"), []Adjustment{{Amount: decimal.NewFromInt(1), Kind: "bogus"}}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("unknown kind: got %v", err)
	}
}

func TestRoundedOnlyAtTheEdge(t *testing.T) {
	got, err := Calculate(base("9.99"), []Adjustment{Percentage(decimal.NewFromInt(33)), Percentage(decimal.NewFromInt(33))})
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	// 9.99 * 0.66 = 6.5934
	if !got.AdjustmentTotal.Equal(decimal.RequireFromString("6.5934")) {
		t.Fatalf("unrounded total = %s", got.AdjustmentTotal)
	}
	r := got.Rounded()
	if !r.FinalPrice.Equal(decimal.RequireFromString("16.58")) {
		t.Fatalf("rounded final = %s", r.FinalPrice)
	}
}

func TestFromLineValuesDefaultsToFixed(t *testing.T) {
	adj := FromLineValues([]domain.ProductAttributeLineValue{
		{PriceExtra: decimal.NewFromInt(5)},
		{PriceExtra: decimal.NewFromInt(10), PriceExtraType: domain.AdjustPercentage},
	})
	if adj[0].Kind != domain.AdjustFixed || adj[1].Kind != domain.AdjustPercentage {
		t.Fatalf("kinds = %v %v", adj[0].Kind, adj[1].Kind)
	}
}
