package timeline

import "math"

// ClockOffset composes an origin wall-clock instant with the named offsets
// involved in audio/video alignment into a single scalar seconds offset.
// OriginWallMs anchors timeline zero to an absolute wall-clock instant,
// typically the video file's inferred start time. The two conversions are
// exact inverses by construction; callers clamp against frame-timeline or
// segment bounds as needed.
type ClockOffset struct {
	OriginWallMs        int64   `json:"origin_wall_ms"`
	AudioOffsetSeconds  float64 `json:"audio_offset_seconds"`
	ManualOffsetSeconds float64 `json:"manual_offset_seconds"`
}

// EffectiveOffset returns the combined audio and manual correction offset.
func (c ClockOffset) EffectiveOffset() float64 {
	return c.AudioOffsetSeconds + c.ManualOffsetSeconds
}

// ToWallMs converts a capture-timeline position to absolute wall-clock
// milliseconds.
func (c ClockOffset) ToWallMs(timelineSeconds float64) int64 {
	return c.OriginWallMs + int64(math.Round((timelineSeconds+c.EffectiveOffset())*1000))
}

// ToTimelineSeconds converts absolute wall-clock milliseconds back to a
// capture-timeline position.
func (c ClockOffset) ToTimelineSeconds(wallMs int64) float64 {
	return float64(wallMs-c.OriginWallMs)/1000 - c.EffectiveOffset()
}
