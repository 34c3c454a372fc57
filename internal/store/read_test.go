package store

import (
	"context"
	"errors"
	"testing"
)

func TestCount_Empty(t *testing.T) {
	s := createTestStore(t)

	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	insertTestQuotes(t, s, createTestRecord(1, "first"), createTestRecord(2, "second"))

	q, err := s.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if q.ID != 2 || q.Minute != 2 || q.Text != "second" {
		t.Errorf("Get(2) = %+v", q)
	}
	if q.Author != "Test Author" || q.Book != "Test Book" {
		t.Errorf("Get(2) author/book = %q/%q", q.Author, q.Book)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Get(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestAll_OrderedByID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	insertTestQuotes(t, s,
		createTestRecord(900, "c"),
		createTestRecord(10, "a"),
		createTestRecord(500, "b"),
	)

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("All() returned %d quotes, want 3", len(all))
	}

	wantMinutes := []int{900, 10, 500}
	for i, q := range all {
		if q.ID != int64(i+1) {
			t.Errorf("all[%d].ID = %d, want %d", i, q.ID, i+1)
		}
		if q.Minute != wantMinutes[i] {
			t.Errorf("all[%d].Minute = %d, want %d", i, q.Minute, wantMinutes[i])
		}
	}
}

func TestAll_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	all, err := s.All(context.Background())
	if err != nil {
		t.Fatalf("All() failed: %v", err)
	}
	if all == nil {
		t.Error("All() returned nil, want empty slice")
	}
}

func TestRandomAt(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	insertTestQuotes(t, s,
		createTestRecord(495, "a"),
		createTestRecord(495, "b"),
		createTestRecord(496, "c"),
	)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		q, err := s.RandomAt(ctx, 495)
		if err != nil {
			t.Fatalf("RandomAt() failed: %v", err)
		}
		if q.Minute != 495 {
			t.Fatalf("RandomAt(495) returned minute %d", q.Minute)
		}
		seen[q.Text] = true
	}
	if seen["c"] {
		t.Error("RandomAt(495) returned a quote for another minute")
	}
	if !seen["a"] && !seen["b"] {
		t.Error("RandomAt(495) never returned a candidate")
	}
}

func TestRandomAt_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.RandomAt(context.Background(), 100)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("RandomAt() error = %v, want ErrNotFound", err)
	}
}

func TestLookup(t *testing.T) {
	s := createTestStore(t)
	insertTestQuotes(t, s,
		createTestRecord(0, "midnight"),
		createTestRecord(480, "eight"),
		createTestRecord(1435, "five to midnight"),
	)

	tests := []struct {
		name       string
		minute     int
		fallback   int
		wantMinute int
		wantErr    bool
	}{
		{"exact", 480, 0, 480, false},
		{"exact with fallback", 480, 20, 480, false},
		{"falls back to earlier minute", 495, 20, 480, false},
		{"fallback too short", 495, 10, 0, true},
		{"fallback exhausted exactly", 500, 20, 480, false},
		{"fallback one short", 501, 20, 0, true},
		{"wraps at midnight", 3, 5, 0, false},
		{"negative fallback means exact only", 495, -1, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := s.Lookup(context.Background(), tt.minute, tt.fallback)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("Lookup() error = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Lookup() failed: %v", err)
			}
			if q.Minute != tt.wantMinute {
				t.Errorf("Lookup() minute = %d, want %d", q.Minute, tt.wantMinute)
			}
		})
	}
}

func TestLookup_WrapsPastMidnight(t *testing.T) {
	s := createTestStore(t)
	insertTestQuotes(t, s, createTestRecord(1438, "two to midnight"))

	q, err := s.Lookup(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("Lookup() failed: %v", err)
	}
	if q.Minute != 1438 {
		t.Errorf("Lookup() minute = %d, want 1438", q.Minute)
	}
}

func TestCoverage(t *testing.T) {
	s := createTestStore(t)
	insertTestQuotes(t, s,
		createTestRecord(0, "a"),
		createTestRecord(0, "b"),
		createTestRecord(720, "c"),
		createTestRecord(1570, "no range checks on import"),
	)

	c, err := s.Coverage(context.Background())
	if err != nil {
		t.Fatalf("Coverage() failed: %v", err)
	}

	if c.Total != 4 {
		t.Errorf("Total = %d, want 4", c.Total)
	}
	if c.PerMinute[0] != 2 || c.PerMinute[720] != 1 {
		t.Errorf("PerMinute[0]=%d PerMinute[720]=%d, want 2 and 1", c.PerMinute[0], c.PerMinute[720])
	}
	if c.OutOfRange != 1 {
		t.Errorf("OutOfRange = %d, want 1", c.OutOfRange)
	}
	if c.Covered() != 2 {
		t.Errorf("Covered() = %d, want 2", c.Covered())
	}
	if len(c.Missing) != 1438 {
		t.Errorf("len(Missing) = %d, want 1438", len(c.Missing))
	}
	if c.Missing[0] != 1 || c.Missing[len(c.Missing)-1] != 1439 {
		t.Errorf("Missing spans %d..%d, want 1..1439", c.Missing[0], c.Missing[len(c.Missing)-1])
	}
}

func TestCoverage_Empty(t *testing.T) {
	s := createTestStore(t)

	c, err := s.Coverage(context.Background())
	if err != nil {
		t.Fatalf("Coverage() failed: %v", err)
	}
	if c.Total != 0 || c.Covered() != 0 || len(c.Missing) != 1440 {
		t.Errorf("Coverage() on empty store = total %d, covered %d, missing %d",
			c.Total, c.Covered(), len(c.Missing))
	}
}
