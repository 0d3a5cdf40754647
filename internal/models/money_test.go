package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{name: "whole dollars", in: "30", want: 3000},
		{name: "two decimals", in: "30.00", want: 3000},
		{name: "cents", in: "0.01", want: 1},
		{name: "large", in: "10000.00", want: 1000000},
		{name: "negative", in: "-5.25", want: -525},
		{name: "sub-cent rejected", in: "1.005", wantErr: true},
		{name: "many decimals rejected", in: "0.001", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d, err := decimal.NewFromString(tc.in)
			if err != nil {
				t.Fatalf("bad test input %q: %v", tc.in, err)
			}
			got, err := ToMinorUnits(d)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %d", tc.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ToMinorUnits(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormatMinor(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{3000, "30.00"},
		{1, "0.01"},
		{0, "0.00"},
		{1000000, "10000.00"},
		{-525, "-5.25"},
	}

	for _, tc := range cases {
		if got := FormatMinor(tc.in); got != tc.want {
			t.Errorf("FormatMinor(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, v := range []int64{0, 1, 99, 100, 123456789} {
		got, err := ToMinorUnits(FromMinorUnits(v))
		if err != nil {
			t.Fatalf("unexpected error for %d: %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip of %d produced %d", v, got)
		}
	}
}
