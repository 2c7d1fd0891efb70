package timeline

import (
	"encoding/json"
	"fmt"
	"time"
)

// Manifest is the alignment metadata returned by the frame metadata source
// for a (video, audio) pair.
type Manifest struct {
	Video     ManifestVideo     `json:"video"`
	Audio     ManifestAudio     `json:"audio"`
	Alignment ManifestAlignment `json:"alignment"`
	Frames    []ManifestFrame   `json:"frames"`
}

// ManifestVideo describes the video side of the pair.
type ManifestVideo struct {
	Path           string  `json:"path"`
	FrameCount     int     `json:"frame_count"`
	FirstTimestamp string  `json:"first_timestamp"`
	LastTimestamp  string  `json:"last_timestamp"`
	Duration       float64 `json:"duration,omitempty"`
}

// ManifestAudio describes the audio side of the pair.
type ManifestAudio struct {
	Path            string  `json:"path"`
	SessionID       *string `json:"session_id"`
	StartTimestamp  string  `json:"start_timestamp"`
	EndTimestamp    string  `json:"end_timestamp"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ManifestAlignment carries the composed audio/video offsets.
type ManifestAlignment struct {
	OriginTimestamp      string  `json:"origin_timestamp"`
	TimelineEndTimestamp string  `json:"timeline_end_timestamp"`
	AudioOffsetSeconds   float64 `json:"audio_offset_seconds"`
	AudioLeadSeconds     float64 `json:"audio_lead_seconds"`
	AudioDelaySeconds    float64 `json:"audio_delay_seconds"`
}

// ManifestFrame is one frame record from the metadata source. The capture
// offset can be absent when the upstream index lacked per-frame timestamps.
type ManifestFrame struct {
	OffsetIndex           int      `json:"offset_index"`
	Timestamp             string   `json:"timestamp"`
	SecondsFromVideoStart *float64 `json:"seconds_from_video_start"`
}

// ParseManifest decodes a frame metadata response.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse alignment manifest: %w", err)
	}
	return &m, nil
}

// FrameTimeline builds the capture timeline from the manifest's frame
// records. Frames without a capture offset are skipped.
func (m *Manifest) FrameTimeline() *FrameTimeline {
	samples := make([]FrameSample, 0, len(m.Frames))
	for _, f := range m.Frames {
		if f.SecondsFromVideoStart == nil {
			continue
		}
		samples = append(samples, FrameSample{
			FrameIndex:     f.OffsetIndex,
			CaptureSeconds: *f.SecondsFromVideoStart,
		})
	}
	return NewFrameTimeline(samples)
}

// ClockOffset derives the playback clock offset from the manifest, anchoring
// timeline zero at the alignment origin. manualOffsetSeconds carries any user
// correction on top of the computed audio offset.
func (m *Manifest) ClockOffset(manualOffsetSeconds float64) (ClockOffset, error) {
	origin, err := parseWallTimestamp(m.Alignment.OriginTimestamp)
	if err != nil {
		return ClockOffset{}, fmt.Errorf("failed to parse origin timestamp: %w", err)
	}
	return ClockOffset{
		OriginWallMs:        origin.UnixMilli(),
		AudioOffsetSeconds:  m.Alignment.AudioOffsetSeconds,
		ManualOffsetSeconds: manualOffsetSeconds,
	}, nil
}

// parseWallTimestamp accepts the ISO timestamp variants the metadata sources
// emit, with and without timezone.
func parseWallTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp: %q", s)
}
