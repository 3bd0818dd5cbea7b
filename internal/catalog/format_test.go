package catalog

import "testing"

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		amount int64
		want   string
	}{
		{0, "Rp 0"},
		{999, "Rp 999"},
		{60000, "Rp 60.000"},
		{165000, "Rp 165.000"},
		{200000, "Rp 200.000"},
		{1250000, "Rp 1.250.000"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.amount); got != tt.want {
			t.Fatalf("FormatPrice(%d): expected %q, got %q", tt.amount, tt.want, got)
		}
	}
}

func TestFormatMonthlyPrice(t *testing.T) {
	if got := FormatMonthlyPrice(200000); got != "Rp 200.000/bulan" {
		t.Fatalf("expected %q, got %q", "Rp 200.000/bulan", got)
	}
	// Same input, same locale, same output.
	if FormatMonthlyPrice(165000) != FormatMonthlyPrice(165000) {
		t.Fatal("expected deterministic formatting")
	}
}
