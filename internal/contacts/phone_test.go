package contacts

import "testing"

func TestToE164(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"07700900123", "+447700900123"},
		{"+447700900123", "+447700900123"},
		{"447700900123", "+447700900123"},
		{"07700 900123", "+447700900123"},
		{"(0)7700-900123", "+447700900123"},
		{"12125551234", "+12125551234"},
		{"", ""},
		{"abc", ""},
	}
	for _, tc := range cases {
		if got := ToE164(tc.in); got != tc.want {
			t.Fatalf("ToE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsE164(t *testing.T) {
	if !IsE164("+447700900123") {
		t.Fatalf("expected valid")
	}
	if IsE164("447700900123") {
		t.Fatalf("expected invalid without +")
	}
	if IsE164("+0447700900123") {
		t.Fatalf("expected invalid with leading zero country code")
	}
}

func TestFormatForDisplay_UKMobile(t *testing.T) {
	if got := FormatForDisplay("+447700900123"); got != "07700 900123" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatForDisplay_NonUKPassthrough(t *testing.T) {
	if got := FormatForDisplay("+12125551234"); got != "+12125551234" {
		t.Fatalf("got %q", got)
	}
}

func TestDedupeHash_Deterministic(t *testing.T) {
	a := DedupeHash("+447700900123")
	b := DedupeHash("+447700900123")
	if a != b {
		t.Fatalf("hash not deterministic")
	}
	if a == DedupeHash("+447700900124") {
		t.Fatalf("distinct phones must not collide")
	}
}
