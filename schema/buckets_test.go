package schema

import "testing"

func Test_FormatDate(t *testing.T) {
	if got := FormatDate("2024-03-14"); got != "20240314" {
		t.Fatalf("Expected 20240314 got %s", got)
	}
	if got := FormatDate("20240314"); got != "20240314" {
		t.Fatalf("Expected passthrough for already formatted date, got %s", got)
	}
}

func Test_DailyDocID(t *testing.T) {
	if got := DailyDocID("2024-03-14"); got != "20240314_20240315" {
		t.Fatalf("Expected 20240314_20240315 got %s", got)
	}
	// month boundary
	if got := DailyDocID("2024-01-31"); got != "20240131_20240201" {
		t.Fatalf("Expected 20240131_20240201 got %s", got)
	}
	// leap day
	if got := DailyDocID("2024-02-28"); got != "20240228_20240229" {
		t.Fatalf("Expected 20240228_20240229 got %s", got)
	}
}

func Test_SleepDocIDs(t *testing.T) {
	ids := SleepDocIDs("2024-03-14")
	if ids[0] != "20240313_20240314" {
		t.Fatalf("Expected 20240313_20240314 got %s", ids[0])
	}
	if ids[1] != "20240314_20240314" {
		t.Fatalf("Expected 20240314_20240314 got %s", ids[1])
	}
}

func Test_SleepDocIDs_NeverCollideWithDailyDocID(t *testing.T) {
	dates := []string{"2024-03-14", "2024-01-01", "2023-12-31", "2024-02-29"}
	for _, date := range dates {
		daily := DailyDocID(date)
		ids := SleepDocIDs(date)
		if ids[0] == daily || ids[1] == daily {
			t.Fatalf("Sleep bucket collides with daily bucket for %s: %v vs %s", date, ids, daily)
		}
	}
}

func Test_Buckets_MalformedDate(t *testing.T) {
	// a date that does not parse still yields a deterministic ID that
	// matches no stored document
	if got := DailyDocID("not-a-date"); got != "notadate_notadate" {
		t.Fatalf("unexpected malformed daily ID %s", got)
	}
	ids := SleepDocIDs("not-a-date")
	if ids[0] != "notadate_notadate" || ids[1] != "notadate_notadate" {
		t.Fatalf("unexpected malformed sleep IDs %v", ids)
	}
}
