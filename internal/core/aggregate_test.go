package core

import (
	"math"
	"testing"
)

func TestComputeRowMatchesFormula(t *testing.T) {
	m := [12]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	got := ComputeRow(m)

	q1 := (m[0] + m[1] + m[2] + 1) / 3
	q2 := (m[3] + m[4] + m[5] + 1) / 3
	q3 := (m[6] + m[7] + m[8] + 1) / 3
	q4 := (m[9] + m[10] + m[11] + 1) / 3
	ytd := (q1 + q2 + q3 + q4 + 1) / 4
	want := Aggregates{Q1: q1, Q2: q2, Q3: q3, Q4: q4, YTD: ytd}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}

	approx := []struct {
		name      string
		got, want float64
	}{
		{"q1", got.Q1, 7.0 / 3},
		{"q2", got.Q2, 16.0 / 3},
		{"q3", got.Q3, 25.0 / 3},
		{"q4", got.Q4, 34.0 / 3},
		{"ytd", got.YTD, 85.0 / 12},
	}
	for _, tc := range approx {
		if math.Abs(tc.got-tc.want) > 1e-12 {
			t.Errorf("%s = %v, want %v", tc.name, tc.got, tc.want)
		}
	}
}

func TestComputeRowMissingMonthsAreZero(t *testing.T) {
	got := ComputeRow([12]float64{})
	third := 1.0 / 3
	if got.Q1 != third || got.Q4 != third {
		t.Fatalf("empty quarters should be 1/3, got %+v", got)
	}
	if want := (4*third + 1) / 4; math.Abs(got.YTD-want) > 1e-15 {
		t.Fatalf("ytd = %v, want %v", got.YTD, want)
	}
}

func TestComputeRowIsPure(t *testing.T) {
	m := [12]float64{3.5, 0, -2, 7, 0, 0, 1, 1, 1, 0, 0, 9}
	if ComputeRow(m) != ComputeRow(m) {
		t.Fatalf("same input produced different output")
	}
}

func TestRound2(t *testing.T) {
	cases := []struct {
		in, want float64
	}{
		{7.0 / 3, 2.33},
		{16.0 / 3, 5.33},
		{2.675, 2.68},
		{-1.005, -1.01},
		{10, 10},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAggregatesValue(t *testing.T) {
	a := Aggregates{Q1: 1, Q2: 2, Q3: 3, Q4: 4, YTD: 5}
	for col, want := range map[Column]float64{ColQ1: 1, ColQ2: 2, ColQ3: 3, ColQ4: 4, ColYTD: 5} {
		if got, ok := a.Value(col); !ok || got != want {
			t.Errorf("Value(%s) = %v,%v", col, got, ok)
		}
	}
	if _, ok := a.Value(ColJan); ok {
		t.Errorf("jan is not an aggregate")
	}
}
