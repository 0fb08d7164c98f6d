package checkout

import "testing"

func TestDiscountedPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		discount float64
		want     float64
	}{
		{"ten percent off", 100, 10, 90},
		{"no discount", 100, 0, 100},
		{"discount amount rounds up", 99, 10, 89},
		{"fractional discount rounds up", 150, 12.5, 131},
		{"full discount", 80, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DiscountedPrice(tt.price, tt.discount); got != tt.want {
				t.Fatalf("DiscountedPrice(%v, %v) = %v, want %v", tt.price, tt.discount, got, tt.want)
			}
		})
	}
}
