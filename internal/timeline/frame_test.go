package timeline

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestNewFrameTimelineSortsAndClamps(t *testing.T) {
	tl := NewFrameTimeline([]FrameSample{
		{FrameIndex: 20, CaptureSeconds: 2.0},
		{FrameIndex: 0, CaptureSeconds: 0.0},
		{FrameIndex: 10, CaptureSeconds: 1.2},
	})

	samples := tl.Samples()
	if len(samples) != 3 {
		t.Fatalf("Expected 3 samples, got %d", len(samples))
	}
	for i := 1; i < len(samples); i++ {
		if samples[i].FrameIndex < samples[i-1].FrameIndex {
			t.Errorf("Samples not sorted by frame index at %d", i)
		}
	}

	// A capture-time regression is clamped, not rejected
	tl = NewFrameTimeline([]FrameSample{
		{FrameIndex: 0, CaptureSeconds: 1.0},
		{FrameIndex: 1, CaptureSeconds: 0.5},
		{FrameIndex: 2, CaptureSeconds: 2.0},
	})
	samples = tl.Samples()
	if samples[1].CaptureSeconds != 1.0 {
		t.Errorf("Expected regression clamped to 1.0, got %v", samples[1].CaptureSeconds)
	}
	if samples[2].CaptureSeconds != 2.0 {
		t.Errorf("Expected later sample untouched, got %v", samples[2].CaptureSeconds)
	}
}

func TestToTimelineInterpolation(t *testing.T) {
	tl := NewFrameTimeline([]FrameSample{
		{FrameIndex: 0, CaptureSeconds: 0.0},
		{FrameIndex: 10, CaptureSeconds: 1.2},
		{FrameIndex: 20, CaptureSeconds: 2.0},
	})

	tests := []struct {
		name         string
		videoSeconds float64
		duration     float64
		want         float64
	}{
		{name: "start", videoSeconds: 0.0, duration: 2.0, want: 0.0},
		{name: "midpoint lands on middle sample", videoSeconds: 1.0, duration: 2.0, want: 1.2},
		{name: "end", videoSeconds: 2.0, duration: 2.0, want: 2.0},
		{name: "quarter interpolates first pair", videoSeconds: 0.5, duration: 2.0, want: 0.6},
		{name: "negative clamps to start", videoSeconds: -1.0, duration: 2.0, want: 0.0},
		{name: "past end clamps to last", videoSeconds: 5.0, duration: 2.0, want: 2.0},
		{name: "zero duration falls back to last capture time", videoSeconds: 1.0, duration: 0, want: 1.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tl.ToTimeline(tt.videoSeconds, tt.duration)
			if !almostEqual(got, tt.want) {
				t.Errorf("ToTimeline(%v, %v) = %v, want %v", tt.videoSeconds, tt.duration, got, tt.want)
			}
		})
	}
}

func TestToVideoInverse(t *testing.T) {
	tl := NewFrameTimeline([]FrameSample{
		{FrameIndex: 0, CaptureSeconds: 0.0},
		{FrameIndex: 10, CaptureSeconds: 1.2},
		{FrameIndex: 20, CaptureSeconds: 2.0},
	})

	tests := []struct {
		name            string
		timelineSeconds float64
		duration        float64
		want            float64
	}{
		{name: "first sample maps to zero", timelineSeconds: 0.0, duration: 2.0, want: 0.0},
		{name: "middle sample maps to midpoint", timelineSeconds: 1.2, duration: 2.0, want: 1.0},
		{name: "last sample maps to duration", timelineSeconds: 2.0, duration: 2.0, want: 2.0},
		{name: "before first clamps to zero", timelineSeconds: -3.0, duration: 2.0, want: 0.0},
		{name: "after last clamps to duration", timelineSeconds: 9.0, duration: 2.0, want: 2.0},
		{name: "between samples interpolates", timelineSeconds: 0.6, duration: 2.0, want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tl.ToVideo(tt.timelineSeconds, tt.duration)
			if !almostEqual(got, tt.want) {
				t.Errorf("ToVideo(%v, %v) = %v, want %v", tt.timelineSeconds, tt.duration, got, tt.want)
			}
		})
	}
}

func TestRoundTripThroughInterior(t *testing.T) {
	tl := NewFrameTimeline([]FrameSample{
		{FrameIndex: 0, CaptureSeconds: 0.0},
		{FrameIndex: 5, CaptureSeconds: 0.4},
		{FrameIndex: 10, CaptureSeconds: 1.2},
		{FrameIndex: 15, CaptureSeconds: 1.5},
		{FrameIndex: 20, CaptureSeconds: 2.0},
	})
	const duration = 3.5

	for _, v := range []float64{0, 0.35, 0.875, 1.75, 2.1, 3.5} {
		back := tl.ToVideo(tl.ToTimeline(v, duration), duration)
		if !almostEqual(back, v) {
			t.Errorf("Round trip of %v came back as %v", v, back)
		}
	}
}

func TestToTimelineMonotonic(t *testing.T) {
	tl := NewFrameTimeline([]FrameSample{
		{FrameIndex: 0, CaptureSeconds: 0.0},
		{FrameIndex: 3, CaptureSeconds: 0.1},
		{FrameIndex: 7, CaptureSeconds: 0.1},
		{FrameIndex: 12, CaptureSeconds: 1.9},
		{FrameIndex: 20, CaptureSeconds: 2.0},
	})
	const duration = 2.0

	prev := math.Inf(-1)
	for v := 0.0; v <= duration; v += 0.01 {
		got := tl.ToTimeline(v, duration)
		if got < prev {
			t.Fatalf("ToTimeline regressed at %v: %v < %v", v, got, prev)
		}
		prev = got
	}
}

func TestDegenerateTimelines(t *testing.T) {
	empty := NewFrameTimeline(nil)
	if got := empty.ToTimeline(1.5, 2.0); got != 1.5 {
		t.Errorf("Empty timeline should be identity, got %v", got)
	}
	if got := empty.ToVideo(1.5, 2.0); got != 1.5 {
		t.Errorf("Empty timeline inverse should be identity, got %v", got)
	}
	if got := empty.ToVideo(-1.0, 2.0); got != 0 {
		t.Errorf("Empty timeline inverse should clamp below zero, got %v", got)
	}
	if _, ok := empty.Duration(); ok {
		t.Error("Empty timeline should report no duration")
	}

	single := NewFrameTimeline([]FrameSample{{FrameIndex: 0, CaptureSeconds: 0.7}})
	if got := single.ToTimeline(1.5, 2.0); got != 0.7 {
		t.Errorf("Single-sample timeline should pin to its capture time, got %v", got)
	}
	if got := single.ToVideo(5.0, 2.0); got != 2.0 {
		t.Errorf("Single-sample inverse should clamp to duration, got %v", got)
	}

	// Duplicate capture times must not divide by a zero span
	flat := NewFrameTimeline([]FrameSample{
		{FrameIndex: 0, CaptureSeconds: 0.0},
		{FrameIndex: 1, CaptureSeconds: 1.0},
		{FrameIndex: 2, CaptureSeconds: 1.0},
		{FrameIndex: 3, CaptureSeconds: 2.0},
	})
	got := flat.ToVideo(1.0, 3.0)
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("Zero-span bracket produced %v", got)
	}
	if got < 0 || got > 3.0 {
		t.Errorf("ToVideo left the playback axis: %v", got)
	}
}
