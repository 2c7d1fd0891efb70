// Package playback ties a segment schedule, a frame timeline, and a clock
// offset together into the mutable cursor that answers "what wall-clock time
// is the player at" and "seek the player to wall-clock time T", including
// hand-off across segment boundaries.
package playback

import (
	"errors"
	"math"
	"sync"

	"github.com/timestone/timestone/internal/logger"
	"github.com/timestone/timestone/internal/schedule"
	"github.com/timestone/timestone/internal/timeline"
)

// ErrNoSegmentForTime is reported when a seek target falls in a gap or
// outside the recording; the cursor state is left unchanged.
var ErrNoSegmentForTime = errors.New("no segment for time")

// State is the cursor's lifecycle state.
type State int

const (
	// StateIdle means no segment is loaded.
	StateIdle State = iota
	// StateLoading means a segment is selected but its media metadata is
	// not yet known.
	StateLoading
	// StateReady means the duration is known and positions can be computed.
	StateReady
	// StatePlaying and StatePaused are sub-states of Ready driven by the
	// external player.
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Player is the external media backend the cursor drives. Load begins
// loading a segment's media; the backend reports metadata later through
// Cursor.MetadataReady. Seek positions the player on its own 0..duration
// axis and requires metadata to be known.
type Player interface {
	Load(segment schedule.VideoSegment)
	Seek(seconds float64)
	Play()
	Pause()
}

// pendingSeek is a seek armed while a segment's metadata is still loading,
// applied once the segment becomes ready.
type pendingSeek struct {
	wallMs int64
	resume bool
}

// Cursor is the playback state machine. All methods are safe for concurrent
// use; mutations from the player's position callback, the live poll loop,
// and user seeks serialize on one mutex.
type Cursor struct {
	mu sync.Mutex

	player   Player
	sched    *schedule.Schedule
	active   *schedule.VideoSegment
	state    State
	duration float64
	position float64

	// Frame timeline and clock offset for the active segment; nil when the
	// segment has no capture metadata.
	frames *timeline.FrameTimeline
	clock  *timeline.ClockOffset

	pending *pendingSeek
}

// NewCursor creates an idle cursor over the given schedule.
func NewCursor(player Player, sched *schedule.Schedule) *Cursor {
	return &Cursor{
		player: player,
		sched:  sched,
		state:  StateIdle,
	}
}

// SetSchedule replaces the schedule wholesale, e.g. after a folder rescan or
// filter change. The active segment and any pending seek are kept only if
// the active segment still exists in the new schedule.
func (c *Cursor) SetSchedule(sched *schedule.Schedule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sched = sched
	if c.active != nil && sched.FindByID(c.active.ID) == nil {
		c.active = nil
		c.pending = nil
		c.frames = nil
		c.clock = nil
		c.state = StateIdle
	}
}

// AttachTimeline attaches the active segment's frame timeline and clock
// offset. Passing nils detaches, falling back to linear segment-relative
// mapping.
func (c *Cursor) AttachTimeline(frames *timeline.FrameTimeline, clock *timeline.ClockOffset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = frames
	c.clock = clock
}

// State returns the current state.
func (c *Cursor) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ActiveSegment returns the selected segment, or nil when idle.
func (c *Cursor) ActiveSegment() *schedule.VideoSegment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	out := *c.active
	return &out
}

// CurrentWallMs computes the wall-clock time the player is at. It is defined
// only in Ready/Playing/Paused.
func (c *Cursor) CurrentWallMs() (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentWallMsLocked()
}

func (c *Cursor) currentWallMsLocked() (int64, bool) {
	if c.state < StateReady || c.active == nil || c.active.StartWallMs == nil {
		return 0, false
	}
	if c.frames != nil && c.clock != nil {
		return c.clock.ToWallMs(c.frames.ToTimeline(c.position, c.duration)), true
	}
	return *c.active.StartWallMs + int64(math.Round(c.position*1000)), true
}

// wallToPlayerSecondsLocked inverts currentWallMsLocked for a seek target
// inside the active segment.
func (c *Cursor) wallToPlayerSecondsLocked(wallMs int64) float64 {
	if c.frames != nil && c.clock != nil {
		return c.frames.ToVideo(c.clock.ToTimelineSeconds(wallMs), c.duration)
	}
	if c.active != nil && c.active.StartWallMs != nil {
		return float64(wallMs-*c.active.StartWallMs) / 1000
	}
	return 0
}

// SeekToWallMs seeks to an absolute wall-clock time. A target inside the
// active segment seeks the player directly and supersedes any in-flight
// segment switch; a target in another segment transitions to Loading with an
// armed pending seek applied once that segment's metadata arrives. The most
// recent call always wins.
func (c *Cursor) SeekToWallMs(target int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sched == nil {
		return ErrNoSegmentForTime
	}
	seg := c.sched.SegmentAt(target)
	if seg == nil {
		logger.Debug().Int64("wall_ms", target).Msg("Seek target has no segment")
		return ErrNoSegmentForTime
	}

	wasPlaying := c.state == StatePlaying || (c.pending != nil && c.pending.resume)

	if c.active != nil && c.active.ID == seg.ID {
		if c.state >= StateReady {
			// The target is inside the segment the player already has;
			// discard any pending switch rather than hand off.
			c.pending = nil
			c.player.Seek(c.wallToPlayerSecondsLocked(target))
			c.position = c.wallToPlayerSecondsLocked(target)
			return nil
		}
		// Still loading this segment; re-arm the seek.
		c.pending = &pendingSeek{wallMs: target, resume: wasPlaying}
		return nil
	}

	c.beginLoadingLocked(*seg, &pendingSeek{wallMs: target, resume: wasPlaying})
	return nil
}

// OnSegmentTimeExhausted is called when playback reaches the active
// segment's end, by natural completion or by the monitored duration being
// reached. The cursor hands off to the next segment with a zero-offset
// pending seek, resuming playback if it was active; without a next segment
// it stays Ready at end of media.
func (c *Cursor) OnSegmentTimeExhausted() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil || c.sched == nil {
		return
	}
	next := c.sched.NextSegment(c.active.ID)
	if next == nil {
		if c.state == StatePlaying {
			c.player.Pause()
		}
		c.state = StateReady
		return
	}

	resume := c.state == StatePlaying
	var target int64
	if next.StartWallMs != nil {
		target = *next.StartWallMs
	}
	logger.Debug().
		Str("from", c.active.ID).
		Str("to", next.ID).
		Bool("resume", resume).
		Msg("Segment exhausted, handing off")
	c.beginLoadingLocked(*next, &pendingSeek{wallMs: target, resume: resume})
}

func (c *Cursor) beginLoadingLocked(seg schedule.VideoSegment, p *pendingSeek) {
	c.active = &seg
	c.state = StateLoading
	c.duration = 0
	c.position = 0
	c.frames = nil
	c.clock = nil
	c.pending = p
	c.player.Load(seg)
}

// MetadataReady reports the active segment's media duration, transitioning
// Loading to Ready and applying any armed pending seek.
func (c *Cursor) MetadataReady(durationSeconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return
	}
	c.duration = durationSeconds
	c.state = StateReady

	if c.pending != nil {
		p := c.pending
		c.pending = nil
		secs := c.wallToPlayerSecondsLocked(p.wallMs)
		if secs < 0 {
			secs = 0
		}
		if c.duration > 0 && secs > c.duration {
			secs = c.duration
		}
		c.position = secs
		c.player.Seek(secs)
		if p.resume {
			c.state = StatePlaying
			c.player.Play()
		}
	}
}

// PositionChanged is the player's periodic position callback.
func (c *Cursor) PositionChanged(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state < StateReady {
		return
	}
	c.position = seconds
}

// Play records that the external player started playing.
func (c *Cursor) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state >= StateReady {
		c.state = StatePlaying
		c.player.Play()
	}
}

// Pause records that the external player paused.
func (c *Cursor) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state >= StateReady {
		c.state = StatePaused
		c.player.Pause()
	}
}
