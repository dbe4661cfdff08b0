package duration

import "testing"

func TestParseHours(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"PT4H", 4},
		{"PT8H", 8},
		{"P1D", 24},
		{"P1DT2H", 26},
		{"P2DT12H", 60},
		{"PT30M", 0},
		{"", 0},
		{"garbage", 0},
		{"P", 0},
	}
	for _, tc := range cases {
		if got := ParseHours(tc.in); got != tc.want {
			t.Errorf("ParseHours(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestBucketLabel(t *testing.T) {
	cases := []struct {
		hours int
		want  string
	}{
		{0, BucketUnder1},
		{1, BucketUnder1},
		{2, Bucket2to4},
		{4, Bucket2to4},
		{5, Bucket5to8},
		{8, Bucket5to8},
		{9, Bucket9to12},
		{12, Bucket9to12},
		{13, BucketOver12},
		{500, BucketOver12},
	}
	for _, tc := range cases {
		if got := BucketLabel(tc.hours); got != tc.want {
			t.Errorf("BucketLabel(%d) = %q, want %q", tc.hours, got, tc.want)
		}
	}
}

// Every non-negative hour count must land in exactly one bucket, and bucket
// transitions must happen exactly at the documented boundaries.
func TestBucketLabel_Partition(t *testing.T) {
	prev := BucketLabel(0)
	transitions := 0
	for h := 1; h <= 100; h++ {
		cur := BucketLabel(h)
		if cur != prev {
			transitions++
			prev = cur
		}
	}
	if transitions != 4 {
		t.Errorf("expected 4 bucket transitions over [0,100], got %d", transitions)
	}
}

func TestCompactLabel(t *testing.T) {
	cases := []struct {
		hours int
		want  string
	}{
		{0, "<1h"},
		{1, "1h"},
		{8, "8h"},
		{24, "24h"},
		{25, "1d"},
		{36, "2d"},
		{48, "2d"},
		{72, "3d"},
	}
	for _, tc := range cases {
		if got := CompactLabel(tc.hours); got != tc.want {
			t.Errorf("CompactLabel(%d) = %q, want %q", tc.hours, got, tc.want)
		}
	}
}
