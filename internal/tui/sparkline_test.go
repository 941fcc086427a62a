package tui

import (
	"testing"
)

func TestRingBuffer(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		push     []float64
		want     []float64
	}{
		{"Empty", 3, nil, nil},
		{"Partial", 3, []float64{1, 2}, []float64{1, 2}},
		{"Exactly full", 3, []float64{1, 2, 3}, []float64{1, 2, 3}},
		{"Wraps", 3, []float64{1, 2, 3, 4, 5}, []float64{3, 4, 5}},
		{"Zero capacity holds one", 0, []float64{7, 8}, []float64{8}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := NewRingBuffer(tt.capacity)
			for _, v := range tt.push {
				rb.Push(v)
			}
			got := rb.Slice()
			if len(got) != len(tt.want) || rb.Len() != len(tt.want) {
				t.Fatalf("Slice() = %v (Len %d), want %v", got, rb.Len(), tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Slice()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
			wantLast := 0.0
			if len(tt.want) > 0 {
				wantLast = tt.want[len(tt.want)-1]
			}
			if rb.Last() != wantLast {
				t.Errorf("Last() = %v, want %v", rb.Last(), wantLast)
			}
		})
	}
}

func TestRenderSparkline(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   string
	}{
		{"Empty", nil, ""},
		{"Floor", []float64{0, 0}, "▁▁"},
		{"Ceiling", []float64{100}, "█"},
		{"Gradient", []float64{0, 50, 100}, "▁▄█"},
		{"Clamped", []float64{-20, 140}, "▁█"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderSparkline(tt.values); got != tt.want {
				t.Errorf("RenderSparkline(%v) = %q, want %q", tt.values, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	got := Normalize([]float64{0, 5, 10, -1})
	want := []float64{0, 50, 100, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %f, want %f", i, got[i], want[i])
		}
	}
	for _, v := range Normalize([]float64{0, 0}) {
		if v != 0 {
			t.Errorf("all-zero input should stay zero, got %f", v)
		}
	}
}

func TestRenderBrailleChart(t *testing.T) {
	if RenderBrailleChart(nil, 10, 2) != nil {
		t.Error("expected nil for empty values")
	}
	if RenderBrailleChart([]float64{50}, 0, 2) != nil {
		t.Error("expected nil for zero width")
	}

	rows := RenderBrailleChart([]float64{0, 100}, 4, 2)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	for i, r := range rows {
		if n := len([]rune(r)); n != 4 {
			t.Errorf("row %d has %d cells, want 4", i, n)
		}
	}
	// 100 lands in the top row, 0 in the bottom row, both in the last cell.
	top := []rune(rows[0])
	bottom := []rune(rows[1])
	if top[3] == 0x2800 {
		t.Error("expected a dot in the top-right cell")
	}
	if bottom[3] == 0x2800 {
		t.Error("expected a dot in the bottom-right cell")
	}
	if top[0] != 0x2800 || bottom[0] != 0x2800 {
		t.Error("expected the left cells to stay empty")
	}
}
