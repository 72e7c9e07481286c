package infra

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		retryCount int
		expected   time.Duration
	}{
		{-1, 1 * time.Second},
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{3, 8 * time.Second},
		{6, 60 * time.Second}, // capped
		{31, 60 * time.Second},
	}

	for _, tt := range tests {
		if got := CalculateBackoff(tt.retryCount); got != tt.expected {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.retryCount, got, tt.expected)
		}
	}
}
