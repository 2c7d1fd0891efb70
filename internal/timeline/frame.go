// Package timeline maps between a media player's continuous playback axis,
// the irregular frame-capture timeline recorded alongside it, and wall-clock
// time. All operations are pure: they never fail and never perform I/O;
// missing data degrades to identity or clamped behavior.
package timeline

import (
	"math"
	"sort"
)

// FrameSample is one recorded (frame index, capture time) pair.
// CaptureSeconds is measured from the video's own start.
type FrameSample struct {
	FrameIndex     int     `json:"frame_index"`
	CaptureSeconds float64 `json:"capture_seconds"`
}

// FrameTimeline is an immutable, sorted sequence of frame samples.
// Capture is frame-accurate but not time-uniform: frames can be dropped or
// duplicated under load, so the player's own duration is treated as ground
// truth and the sample sequence as a non-uniform re-parameterization of it.
type FrameTimeline struct {
	samples []FrameSample
}

// NewFrameTimeline builds a timeline from raw samples. The input is sorted
// defensively by frame index so a malformed metadata response degrades into
// an ordinary timeline instead of breaking the interpolation invariants.
func NewFrameTimeline(samples []FrameSample) *FrameTimeline {
	owned := make([]FrameSample, len(samples))
	copy(owned, samples)
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].FrameIndex < owned[j].FrameIndex
	})
	// Capture timestamps must be non-decreasing; clamp regressions to the
	// running maximum rather than rejecting the whole timeline.
	maxSeen := math.Inf(-1)
	for i := range owned {
		if owned[i].CaptureSeconds < maxSeen {
			owned[i].CaptureSeconds = maxSeen
		} else {
			maxSeen = owned[i].CaptureSeconds
		}
	}
	return &FrameTimeline{samples: owned}
}

// Len returns the number of samples.
func (t *FrameTimeline) Len() int {
	return len(t.samples)
}

// Samples returns a copy of the underlying samples.
func (t *FrameTimeline) Samples() []FrameSample {
	out := make([]FrameSample, len(t.samples))
	copy(out, t.samples)
	return out
}

// Duration returns the last sample's capture time, or false if the timeline
// is empty.
func (t *FrameTimeline) Duration() (float64, bool) {
	if len(t.samples) == 0 {
		return 0, false
	}
	return t.samples[len(t.samples)-1].CaptureSeconds, true
}

// ToTimeline maps a position on the player's own 0..videoDuration axis to the
// corresponding capture-timeline position. With fewer than two samples there
// is no interpolation information: zero samples return videoSeconds
// unchanged, one sample returns that sample's capture time.
func (t *FrameTimeline) ToTimeline(videoSeconds, videoDuration float64) float64 {
	n := len(t.samples)
	if n == 0 {
		return videoSeconds
	}
	if n == 1 {
		return t.samples[0].CaptureSeconds
	}

	duration := videoDuration
	if !(duration > 0) || math.IsInf(duration, 0) || math.IsNaN(duration) {
		duration = t.samples[n-1].CaptureSeconds
	}
	if !(duration > 0) {
		return t.samples[0].CaptureSeconds
	}

	fraction := videoSeconds / duration
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	// Map the fraction linearly onto sample index space and interpolate the
	// capture time between the two bracketing samples.
	position := fraction * float64(n-1)
	lo := int(math.Floor(position))
	hi := int(math.Ceil(position))
	if lo < 0 {
		lo = 0
	}
	if hi > n-1 {
		hi = n - 1
	}
	if lo == hi {
		return t.samples[lo].CaptureSeconds
	}
	frac := position - float64(lo)
	a := t.samples[lo].CaptureSeconds
	b := t.samples[hi].CaptureSeconds
	return a + (b-a)*frac
}

// ToVideo is the inverse of ToTimeline: it maps a capture-timeline position
// back to the player's own axis, used when seeking by a target capture time.
func (t *FrameTimeline) ToVideo(timelineSeconds, videoDuration float64) float64 {
	n := len(t.samples)
	if n == 0 {
		return math.Max(0, timelineSeconds)
	}
	if n == 1 {
		if videoDuration > 0 && !math.IsInf(videoDuration, 0) {
			return clamp(timelineSeconds, 0, videoDuration)
		}
		return math.Max(0, timelineSeconds)
	}
	if !(videoDuration > 0) || math.IsInf(videoDuration, 0) || math.IsNaN(videoDuration) {
		// Cannot scale the sample index space without a duration.
		return math.Max(0, timelineSeconds)
	}

	first := t.samples[0].CaptureSeconds
	last := t.samples[n-1].CaptureSeconds
	if timelineSeconds <= first {
		return 0
	}
	if timelineSeconds >= last {
		return videoDuration
	}

	// Binary search for the bracketing pair of samples.
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		mv := t.samples[mid].CaptureSeconds
		switch {
		case mv == timelineSeconds:
			return float64(mid) / float64(n-1) * videoDuration
		case mv < timelineSeconds:
			lo = mid
		default:
			hi = mid
		}
	}

	span := t.samples[hi].CaptureSeconds - t.samples[lo].CaptureSeconds
	if span <= 0 {
		span = 1
	}
	frac := (timelineSeconds - t.samples[lo].CaptureSeconds) / span
	loPos := float64(lo) / float64(n-1) * videoDuration
	hiPos := float64(hi) / float64(n-1) * videoDuration
	return loPos + (hiPos-loPos)*frac
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
