package am

import (
	"encoding/binary"
	"math"
	"testing"
)

func ikey(v int32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(v))
	return b
}

func decodeIKey(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

func fkey(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func TestCompareInt(t *testing.T) {
	tests := []struct {
		a, b int32
		want int
	}{
		{1, 2, -1},
		{2, 1, 1},
		{7, 7, 0},
		{-5, 3, -1},
		{-1, -2, 1},
		{math.MinInt32, math.MaxInt32, -1},
	}
	for _, tt := range tests {
		if got := Compare(ikey(tt.a), AttrInt, 4, ikey(tt.b)); got != tt.want {
			t.Errorf("Compare(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareFloat(t *testing.T) {
	tests := []struct {
		a, b float32
		want int
	}{
		{1.5, 2.5, -1},
		{2.5, 1.5, 1},
		{0.25, 0.25, 0},
		{-3.5, 0, -1},
	}
	for _, tt := range tests {
		if got := Compare(fkey(tt.a), AttrFloat, 4, fkey(tt.b)); got != tt.want {
			t.Errorf("Compare(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareChar(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"abc", "abd", -1},
		{"abd", "abc", 1},
		{"abc", "abc", 0},
		{"ab\x00", "abc", -1},
	}
	for _, tt := range tests {
		if got := Compare([]byte(tt.a), AttrChar, 3, []byte(tt.b)); got != tt.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFanOutArithmetic(t *testing.T) {
	// Leaf capacity is rounded down to an even count.
	if got := leafMaxKeys(4); got != 508 {
		t.Errorf("leafMaxKeys(4) = %d, want 508", got)
	}
	if got := leafMaxKeys(4) % 2; got != 0 {
		t.Errorf("leaf fan-out must be even")
	}
	for l := 1; l <= 255; l++ {
		if leafMaxKeys(l)%2 != 0 {
			t.Fatalf("leafMaxKeys(%d) = %d is odd", l, leafMaxKeys(l))
		}
	}
	if got := internalMaxKeys(4); got != 510 {
		t.Errorf("internalMaxKeys(4) = %d, want 510", got)
	}
}
