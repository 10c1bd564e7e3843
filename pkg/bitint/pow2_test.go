// SPDX-License-Identifier: MIT
package bitint

import (
	"fmt"
	"testing"
)

func TestNextPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected int
	}{
		{-10, 1},     // Negative number
		{0, 1},       // Zero
		{8, 8},       // Already power of two
		{10, 16},     // Not power of two
		{1000, 1024}, // Large number
		{2047, 2048}, // Just below the default analyzer window
		{3, 4},       // Small non-power
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.n, tt.expected), func(t *testing.T) {
			result := NextPowerOfTwo(tt.n)
			if result != tt.expected {
				t.Errorf("NextPowerOfTwo(%d) = %d, expected %d", tt.n, result, tt.expected)
			}
		})
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	tests := []struct {
		n        int
		expected bool
	}{
		{-2, false},     // Negative number
		{0, false},      // Zero
		{1, true},       // One
		{8, true},       // Power of two
		{10, false},     // Not power of two
		{1 << 20, true}, // Large power of two
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%t", tt.n, tt.expected), func(t *testing.T) {
			result := IsPowerOfTwo(tt.n)
			if result != tt.expected {
				t.Errorf("IsPowerOfTwo(%d) = %v, expected %v", tt.n, result, tt.expected)
			}
		})
	}
}

func TestOrder(t *testing.T) {
	tests := []struct {
		n      int
		order  int
		wantOK bool
	}{
		{1, 0, true},
		{2, 1, true},
		{2048, 11, true},
		{1 << 16, 16, true},
		{0, 0, false},
		{-4, 0, false},
		{1000, 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.n), func(t *testing.T) {
			order, ok := Order(tt.n)
			if ok != tt.wantOK || order != tt.order {
				t.Errorf("Order(%d) = (%d, %v), expected (%d, %v)", tt.n, order, ok, tt.order, tt.wantOK)
			}
		})
	}
}

func TestFromOrder(t *testing.T) {
	tests := []struct {
		order    int
		expected int
	}{
		{-1, 1},
		{0, 1},
		{11, 2048},
		{MaxOrder + 5, 1 << MaxOrder},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d→%d", tt.order, tt.expected), func(t *testing.T) {
			if got := FromOrder(tt.order); got != tt.expected {
				t.Errorf("FromOrder(%d) = %d, expected %d", tt.order, got, tt.expected)
			}
		})
	}
}

func TestOrderRoundTrip(t *testing.T) {
	for order := 0; order <= MaxOrder; order++ {
		got, ok := Order(FromOrder(order))
		if !ok || got != order {
			t.Fatalf("Order(FromOrder(%d)) = (%d, %v)", order, got, ok)
		}
	}
}

func BenchmarkNextPowerOfTwo(b *testing.B) {
	var i int
	b.ReportAllocs()
	for b.Loop() {
		NextPowerOfTwo(i % 10000)
		i++
	}
}

func BenchmarkIsPowerOfTwo(b *testing.B) {
	var i int
	b.ReportAllocs()
	for b.Loop() {
		IsPowerOfTwo(i % 10000)
		i++
	}
}
