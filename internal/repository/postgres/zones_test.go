package postgres

import "testing"

func TestParseZones(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ok   bool
		last float64
	}{
		{name: "plain", raw: "10,20,30,40,50,60,70,80,90,100", ok: true, last: 100},
		{name: "bracketed with spaces", raw: " [1, 2, 3, 4, 5, 6, 7, 8, 9, 0.5] ", ok: true, last: 0.5},
		{name: "empty", raw: "", ok: false},
		{name: "too short", raw: "1,2,3", ok: false},
		{name: "too long", raw: "1,2,3,4,5,6,7,8,9,10,11", ok: false},
		{name: "not a number", raw: "1,2,3,4,5,x,7,8,9,10", ok: false},
		{name: "non finite", raw: "1,2,3,4,5,NaN,7,8,9,10", ok: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseZones(tc.raw)
			if ok != tc.ok {
				t.Fatalf("expected ok=%v, got %v", tc.ok, ok)
			}
			if ok && got[9] != tc.last {
				t.Fatalf("expected last zone %v, got %v", tc.last, got[9])
			}
		})
	}
}
