package sysmon

import (
	"os"
	"runtime"
	"testing"
)

func TestSample_ReturnsValidRanges(t *testing.T) {
	s := NewSampler().Sample()
	if s.CPUPercent < 0 || s.CPUPercent > 100 {
		t.Errorf("CPUPercent out of range: %f", s.CPUPercent)
	}
	if s.MemPercent < 0 || s.MemPercent > 100 {
		t.Errorf("MemPercent out of range: %f", s.MemPercent)
	}
}

func TestSample_MemPercentNonZero(t *testing.T) {
	s := NewSampler().Sample()
	if s.MemPercent == 0 {
		t.Error("expected non-zero MemPercent on a running system")
	}
}

func TestSample_OpenFilesTracksDescriptors(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("descriptor counts are only checked on linux")
	}
	sampler := NewSampler()
	before := sampler.Sample().OpenFiles
	if before <= 0 {
		t.Fatalf("OpenFiles = %d, want a positive count", before)
	}

	f, err := os.Open(os.Args[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if after := sampler.Sample().OpenFiles; after <= before {
		t.Errorf("OpenFiles after opening a file = %d, want more than %d", after, before)
	}
}

func TestSample_NilSampler(t *testing.T) {
	var s *Sampler
	if got := s.Sample().OpenFiles; got != -1 {
		t.Errorf("nil sampler OpenFiles = %d, want -1", got)
	}
}
