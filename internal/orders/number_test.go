package orders

import (
	"regexp"
	"strings"
	"testing"
	"time"
)

var orderNumberRe = regexp.MustCompile(`^SKR-\d{8}-[A-Z0-9]{5}$`)

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	number, err := GenerateOrderNumber(now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !orderNumberRe.MatchString(number) {
		t.Fatalf("unexpected format %q", number)
	}
	if !strings.HasPrefix(number, "SKR-20260115-") {
		t.Fatalf("expected date segment, got %q", number)
	}
}

func TestGenerateOrderNumberUsesUTCDate(t *testing.T) {
	loc := time.FixedZone("UTC-8", -8*3600)
	// 23:30 local on Jan 14 is Jan 15 in UTC.
	now := time.Date(2026, 1, 14, 23, 30, 0, 0, loc)
	number, err := GenerateOrderNumber(now)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.HasPrefix(number, "SKR-20260115-") {
		t.Fatalf("expected UTC date segment, got %q", number)
	}
}

func TestGenerateOrderNumberBulkUniqueAndWellFormed(t *testing.T) {
	now := time.Now()
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		// Collisions regenerate, bounded exactly like order creation does
		// against the unique constraint.
		var number string
		for attempt := 0; attempt < 5; attempt++ {
			candidate, err := GenerateOrderNumber(now)
			if err != nil {
				t.Fatalf("generate %d: %v", i, err)
			}
			if !orderNumberRe.MatchString(candidate) {
				t.Fatalf("malformed number %q at iteration %d", candidate, i)
			}
			if !IsValidOrderNumber(candidate) {
				t.Fatalf("matcher rejects generated number %q", candidate)
			}
			if _, dup := seen[candidate]; !dup {
				number = candidate
				break
			}
		}
		if number == "" {
			t.Fatalf("five straight collisions at iteration %d", i)
		}
		seen[number] = struct{}{}
	}
	if len(seen) != 10000 {
		t.Fatalf("expected 10000 distinct numbers, got %d", len(seen))
	}
}

func TestIsValidOrderNumber(t *testing.T) {
	cases := map[string]bool{
		"SKR-20260115-A1B2C":  true,
		"SKR-20260115-a1b2c":  false,
		"SKR-2026115-A1B2C":   false,
		"PKF-20260115-A1B2C":  false,
		"SKR-20260115-A1B2CD": false,
		"":                    false,
	}
	for value, want := range cases {
		if got := IsValidOrderNumber(value); got != want {
			t.Errorf("IsValidOrderNumber(%q) = %v, want %v", value, got, want)
		}
	}
}

func TestGenerateTrackingNumberFormat(t *testing.T) {
	tracking, err := GenerateTrackingNumber()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !regexp.MustCompile(`^SKR-TRK-[A-Z0-9]{12}$`).MatchString(tracking) {
		t.Fatalf("unexpected format %q", tracking)
	}
}
