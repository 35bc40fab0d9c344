package ui

import (
	"errors"
	"testing"
)

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		bytesPerSec float64
		expected    string
	}{
		{500, "500 B/s"},
		{1024, "1.00 KB/s"},
		{2048, "2.00 KB/s"},
		{1048576, "1.00 MB/s"},
		{1572864, "1.50 MB/s"},
		{1073741824, "1.00 GB/s"},
	}

	for _, tt := range tests {
		result := formatSpeed(tt.bytesPerSec)
		if result != tt.expected {
			t.Errorf("formatSpeed(%v) = %v; want %v", tt.bytesPerSec, result, tt.expected)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n        int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.00 KB"},
		{1536, "1.50 KB"},
		{1048576, "1.00 MB"},
		{1073741824, "1.00 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.n)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %v; want %v", tt.n, result, tt.expected)
		}
	}
}

func TestStateProgress(t *testing.T) {
	s := NewState("/home/*.csv", "my-bucket", "buffered", 2)

	// First file transfers in two reports; the second completes it.
	s.Progress(512, 1024)
	snap := s.snapshot()
	if snap.CurrentBytes != 512 || snap.CurrentTotal != 1024 {
		t.Errorf("expected current 512/1024, got %d/%d", snap.CurrentBytes, snap.CurrentTotal)
	}
	if snap.FilesCompleted != 0 {
		t.Errorf("expected 0 completed files, got %d", snap.FilesCompleted)
	}

	s.Progress(1024, 1024)
	snap = s.snapshot()
	if snap.FilesCompleted != 1 {
		t.Errorf("expected 1 completed file, got %d", snap.FilesCompleted)
	}
	if snap.SessionBytes != 1024 {
		t.Errorf("expected 1024 session bytes, got %d", snap.SessionBytes)
	}
	if snap.CurrentBytes != 0 {
		t.Errorf("expected current counter reset, got %d", snap.CurrentBytes)
	}

	// Second file completes in one report.
	s.Progress(2048, 2048)
	snap = s.snapshot()
	if snap.FilesCompleted != 2 {
		t.Errorf("expected 2 completed files, got %d", snap.FilesCompleted)
	}
	if snap.SessionBytes != 3072 {
		t.Errorf("expected 3072 session bytes, got %d", snap.SessionBytes)
	}
}

func TestStateFinish(t *testing.T) {
	s := NewState("/home/data.csv", "my-bucket", "getfo", 1)

	boom := errors.New("transfer failed")
	s.Finish(boom)

	snap := s.snapshot()
	if !snap.Done {
		t.Error("expected Done after Finish")
	}
	if !errors.Is(snap.Err, boom) {
		t.Errorf("expected the finish error to be retained, got %v", snap.Err)
	}
}
