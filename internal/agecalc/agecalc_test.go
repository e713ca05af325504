package agecalc

import "testing"

func TestLabel(t *testing.T) {
	cases := []struct {
		name    string
		birth   string
		capture string
		want    string
	}{
		{"five months", "2024-01-15", "2024-06-15", "5 months"},
		{"day before month boundary", "2024-01-15", "2024-06-14", "4 months"},
		{"single month", "2024-01-15", "2024-02-15", "1 month"},
		{"days", "2024-01-15", "2024-01-27", "12 days"},
		{"single day", "2024-01-15", "2024-01-16", "1 day"},
		{"birthday itself", "2024-01-15", "2024-01-15", "0 days"},
		{"exactly one year", "2024-01-15", "2025-01-15", "1 year"},
		{"year and months", "2024-01-15", "2025-04-20", "1 year 3 months"},
		{"two years", "2023-03-01", "2025-03-01", "2 years"},
		{"before birth", "2024-01-15", "2023-12-31", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Label(tc.birth, tc.capture)
			if err != nil {
				t.Fatalf("Label: %v", err)
			}
			if got != tc.want {
				t.Errorf("Label(%s, %s) = %q, want %q", tc.birth, tc.capture, got, tc.want)
			}
		})
	}
}

func TestLabelDeterministic(t *testing.T) {
	first, err := Label("2024-01-15", "2024-06-15")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		got, err := Label("2024-01-15", "2024-06-15")
		if err != nil {
			t.Fatal(err)
		}
		if got != first {
			t.Fatalf("run %d: %q != %q", i, got, first)
		}
	}
}

func TestLabelBadInput(t *testing.T) {
	if _, err := Label("not-a-date", "2024-06-15"); err == nil {
		t.Error("expected error for bad birth date")
	}
	if _, err := Label("2024-01-15", "15/06/2024"); err == nil {
		t.Error("expected error for bad capture date")
	}
}
