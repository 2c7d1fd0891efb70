package playback

import (
	"testing"

	"github.com/timestone/timestone/internal/schedule"
	"github.com/timestone/timestone/internal/timeline"
)

// fakePlayer records the calls the cursor makes to the media backend.
type fakePlayer struct {
	loaded []string
	seeks  []float64
	plays  int
	pauses int
}

func (p *fakePlayer) Load(seg schedule.VideoSegment) { p.loaded = append(p.loaded, seg.ID) }
func (p *fakePlayer) Seek(seconds float64)           { p.seeks = append(p.seeks, seconds) }
func (p *fakePlayer) Play()                          { p.plays++ }
func (p *fakePlayer) Pause()                         { p.pauses++ }

func (p *fakePlayer) lastSeek() float64 {
	if len(p.seeks) == 0 {
		return -1
	}
	return p.seeks[len(p.seeks)-1]
}

func i64(v int64) *int64 { return &v }

func testSchedule() *schedule.Schedule {
	return schedule.New([]schedule.VideoSegment{
		{ID: "a", StartWallMs: i64(0), EndWallMs: i64(100_000)},
		{ID: "b", StartWallMs: i64(100_000), EndWallMs: i64(200_000)},
	})
}

func TestSeekIntoGapLeavesStateUnchanged(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	if err := c.SeekToWallMs(500_000); err != ErrNoSegmentForTime {
		t.Fatalf("Expected ErrNoSegmentForTime, got %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("State = %v, want idle", c.State())
	}
	if len(player.loaded) != 0 {
		t.Errorf("Player loaded %v for a failed seek", player.loaded)
	}
}

func TestSeekLoadsSegmentAndAppliesPending(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	if err := c.SeekToWallMs(30_000); err != nil {
		t.Fatalf("Seek failed: %v", err)
	}
	if c.State() != StateLoading {
		t.Fatalf("State = %v, want loading", c.State())
	}
	if len(player.loaded) != 1 || player.loaded[0] != "a" {
		t.Fatalf("Loaded = %v, want [a]", player.loaded)
	}
	// No seek until metadata arrives
	if len(player.seeks) != 0 {
		t.Fatalf("Player seeked before metadata: %v", player.seeks)
	}

	c.MetadataReady(100.0)
	if c.State() != StateReady {
		t.Errorf("State = %v, want ready", c.State())
	}
	if got := player.lastSeek(); got != 30.0 {
		t.Errorf("Seek position = %v, want 30.0", got)
	}

	wall, ok := c.CurrentWallMs()
	if !ok || wall != 30_000 {
		t.Errorf("CurrentWallMs = %d, %v; want 30000", wall, ok)
	}
}

func TestLatestSeekWins(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	// Two seeks into the same still-loading segment: only the second
	// applies when metadata arrives.
	_ = c.SeekToWallMs(10_000)
	_ = c.SeekToWallMs(40_000)
	if len(player.loaded) != 1 {
		t.Fatalf("Segment reloaded for a re-armed seek: %v", player.loaded)
	}

	c.MetadataReady(100.0)
	if len(player.seeks) != 1 || player.lastSeek() != 40.0 {
		t.Errorf("Seeks = %v, want exactly [40.0]", player.seeks)
	}
}

func TestSeekAcrossSegmentsSupersedesPending(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	_ = c.SeekToWallMs(30_000)  // loads a
	_ = c.SeekToWallMs(150_000) // switches to b before a is ready

	if len(player.loaded) != 2 || player.loaded[1] != "b" {
		t.Fatalf("Loaded = %v, want [a b]", player.loaded)
	}

	c.MetadataReady(100.0)
	if got := player.lastSeek(); got != 50.0 {
		t.Errorf("Seek position = %v, want 50.0 into b", got)
	}
	if seg := c.ActiveSegment(); seg == nil || seg.ID != "b" {
		t.Errorf("Active = %v, want b", seg)
	}
}

func TestSeekWithinActiveSegmentIsDirect(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	_ = c.SeekToWallMs(30_000)
	c.MetadataReady(100.0)

	_ = c.SeekToWallMs(60_000)
	if len(player.loaded) != 1 {
		t.Errorf("Segment reloaded for an in-segment seek: %v", player.loaded)
	}
	if got := player.lastSeek(); got != 60.0 {
		t.Errorf("Seek position = %v, want 60.0", got)
	}
}

func TestHandOffResumesPlayback(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	_ = c.SeekToWallMs(90_000)
	c.MetadataReady(100.0)
	c.Play()
	if c.State() != StatePlaying {
		t.Fatalf("State = %v, want playing", c.State())
	}

	c.OnSegmentTimeExhausted()
	if c.State() != StateLoading {
		t.Fatalf("State = %v, want loading during hand-off", c.State())
	}
	if len(player.loaded) != 2 || player.loaded[1] != "b" {
		t.Fatalf("Loaded = %v, want hand-off to b", player.loaded)
	}

	plays := player.plays
	c.MetadataReady(100.0)
	if c.State() != StatePlaying {
		t.Errorf("State = %v, want playing after hand-off", c.State())
	}
	if player.plays != plays+1 {
		t.Error("Player was not resumed after hand-off")
	}
	if got := player.lastSeek(); got != 0.0 {
		t.Errorf("Hand-off seek = %v, want 0.0 (start of b)", got)
	}
}

func TestHandOffWhilePausedStaysPaused(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	_ = c.SeekToWallMs(90_000)
	c.MetadataReady(100.0)
	// Never played

	c.OnSegmentTimeExhausted()
	c.MetadataReady(100.0)
	if c.State() != StateReady {
		t.Errorf("State = %v, want ready", c.State())
	}
	if player.plays != 0 {
		t.Error("Player started playing without a resume")
	}
}

func TestLastSegmentExhaustionPauses(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	_ = c.SeekToWallMs(150_000)
	c.MetadataReady(100.0)
	c.Play()

	c.OnSegmentTimeExhausted()
	if c.State() != StateReady {
		t.Errorf("State = %v, want ready at end of media", c.State())
	}
	if player.pauses == 0 {
		t.Error("Player was not paused at end of media")
	}
	if len(player.loaded) != 1 {
		t.Errorf("Loaded = %v, nothing further should load", player.loaded)
	}
}

func TestCurrentWallMsWithFrameTimeline(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	_ = c.SeekToWallMs(0)
	c.MetadataReady(2.0)

	frames := timeline.NewFrameTimeline([]timeline.FrameSample{
		{FrameIndex: 0, CaptureSeconds: 0.0},
		{FrameIndex: 10, CaptureSeconds: 1.2},
		{FrameIndex: 20, CaptureSeconds: 2.0},
	})
	clock := &timeline.ClockOffset{OriginWallMs: 1_000_000}
	c.AttachTimeline(frames, clock)

	c.PositionChanged(1.0)
	wall, ok := c.CurrentWallMs()
	if !ok {
		t.Fatal("CurrentWallMs undefined in ready state")
	}
	// Player midpoint maps through the frame timeline to 1.2s
	if wall != 1_001_200 {
		t.Errorf("CurrentWallMs = %d, want 1001200", wall)
	}
}

func TestSetScheduleDropsVanishedSegment(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	_ = c.SeekToWallMs(30_000)
	c.MetadataReady(100.0)

	c.SetSchedule(schedule.New([]schedule.VideoSegment{
		{ID: "z", StartWallMs: i64(0), EndWallMs: i64(50_000)},
	}))
	if c.State() != StateIdle {
		t.Errorf("State = %v, want idle after active segment vanished", c.State())
	}
	if seg := c.ActiveSegment(); seg != nil {
		t.Errorf("Active = %v, want nil", seg)
	}
}

func TestPendingSeekClampedToDuration(t *testing.T) {
	player := &fakePlayer{}
	c := NewCursor(player, testSchedule())

	_ = c.SeekToWallMs(90_000)
	// The file turned out shorter than the scheduled window
	c.MetadataReady(60.0)
	if got := player.lastSeek(); got != 60.0 {
		t.Errorf("Seek position = %v, want clamped to 60.0", got)
	}
}
