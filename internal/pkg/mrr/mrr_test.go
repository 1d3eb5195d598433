package mrr

import "testing"

func monthlyItem(cents, qty int64) Item {
	return Item{
		UnitAmountCents: cents,
		Quantity:        qty,
		Recurring:       &Recurring{Interval: IntervalMonth, IntervalCount: 1},
	}
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name string
		subs []Subscription
		want int64
	}{
		{
			name: "empty",
			subs: nil,
			want: 0,
		},
		{
			name: "single monthly item",
			subs: []Subscription{{Items: []Item{monthlyItem(10000, 1)}}},
			want: 100,
		},
		{
			name: "annual divided by twelve",
			subs: []Subscription{{Items: []Item{{
				UnitAmountCents: 120000,
				Quantity:        1,
				Recurring:       &Recurring{Interval: IntervalYear, IntervalCount: 1},
			}}}},
			want: 100,
		},
		{
			name: "quantity multiplies",
			subs: []Subscription{{Items: []Item{monthlyItem(5000, 3)}}},
			want: 150,
		},
		{
			name: "weekly uses 52/12",
			subs: []Subscription{{Items: []Item{{
				UnitAmountCents: 300,
				Quantity:        1,
				Recurring:       &Recurring{Interval: IntervalWeek, IntervalCount: 1},
			}}}},
			// round(300 * 4.3333...) = 1300 cents -> 13 dollars
			want: 13,
		},
		{
			name: "daily times thirty",
			subs: []Subscription{{Items: []Item{{
				UnitAmountCents: 100,
				Quantity:        1,
				Recurring:       &Recurring{Interval: IntervalDay, IntervalCount: 1},
			}}}},
			want: 30,
		},
		{
			name: "interval count divides",
			subs: []Subscription{{Items: []Item{{
				UnitAmountCents: 6000,
				Quantity:        1,
				Recurring:       &Recurring{Interval: IntervalMonth, IntervalCount: 3},
			}}}},
			want: 20,
		},
		{
			name: "one-time item excluded",
			subs: []Subscription{{Items: []Item{
				{UnitAmountCents: 99999, Quantity: 1, Recurring: nil},
				monthlyItem(2500, 1),
			}}},
			want: 25,
		},
		{
			name: "unknown interval excluded",
			subs: []Subscription{{Items: []Item{{
				UnitAmountCents: 5000,
				Quantity:        1,
				Recurring:       &Recurring{Interval: "fortnight", IntervalCount: 1},
			}}}},
			want: 0,
		},
		{
			name: "zero amount contributes nothing",
			subs: []Subscription{{Items: []Item{monthlyItem(0, 5)}}},
			want: 0,
		},
		{
			name: "missing quantity defaults to one",
			subs: []Subscription{{Items: []Item{{
				UnitAmountCents: 10000,
				Recurring:       &Recurring{Interval: IntervalMonth, IntervalCount: 1},
			}}}},
			want: 100,
		},
		{
			name: "missing interval count defaults to one",
			subs: []Subscription{{Items: []Item{{
				UnitAmountCents: 10000,
				Quantity:        1,
				Recurring:       &Recurring{Interval: IntervalMonth},
			}}}},
			want: 100,
		},
		{
			name: "multiple subscriptions sum",
			subs: []Subscription{
				{Items: []Item{monthlyItem(10000, 1)}},
				{Items: []Item{monthlyItem(4900, 2)}},
			},
			want: 198,
		},
	}

	for _, tt := range tests {
		if got := Compute(tt.subs); got != tt.want {
			t.Fatalf("%s: Compute() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestComputeOrderInvariant(t *testing.T) {
	a := Subscription{Items: []Item{monthlyItem(1234, 1)}}
	b := Subscription{Items: []Item{{
		UnitAmountCents: 777,
		Quantity:        2,
		Recurring:       &Recurring{Interval: IntervalWeek, IntervalCount: 2},
	}}}
	c := Subscription{Items: []Item{{
		UnitAmountCents: 99999,
		Quantity:        1,
		Recurring:       &Recurring{Interval: IntervalYear, IntervalCount: 1},
	}}}

	if Compute([]Subscription{a, b, c}) != Compute([]Subscription{c, a, b}) {
		t.Fatalf("expected Compute to be invariant to subscription order")
	}
}

func TestComputePerItemRounding(t *testing.T) {
	// Two items at 50¢/year each: per-item monthly cents round(50/12)=4,
	// so the total is 8 cents -> 0 dollars. Aggregate-then-round would
	// also give 0 here, so pin a case where the policies diverge:
	// 150¢/year rounds to 13 per item; three of them give 39 cents,
	// while rounding the exact sum (37.5) once would give 38.
	item := Item{
		UnitAmountCents: 150,
		Quantity:        1,
		Recurring:       &Recurring{Interval: IntervalYear, IntervalCount: 1},
	}
	subs := []Subscription{{Items: []Item{item, item, item}}}
	if got := Compute(subs); got != 0 {
		t.Fatalf("Compute() = %d, want 0", got)
	}

	// Same divergence made visible in dollars: 4450¢/year per item rounds
	// to 371 monthly cents; 27 items -> 10017 cents -> 100 dollars.
	big := Item{
		UnitAmountCents: 4450,
		Quantity:        1,
		Recurring:       &Recurring{Interval: IntervalYear, IntervalCount: 1},
	}
	items := make([]Item, 27)
	for i := range items {
		items[i] = big
	}
	if got := Compute([]Subscription{{Items: items}}); got != 100 {
		t.Fatalf("Compute() = %d, want 100", got)
	}
}
