package notify

import (
	"sync"
	"testing"
	"time"
)

// --- モック定義 ---

// fakeScheduler はタイマーを発火させずに捕捉し、テストから手動で進められる。
type fakeScheduler struct {
	mu      sync.Mutex
	pending []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.stopped = true
	return true
}

func (s *fakeScheduler) after(d time.Duration, f func()) interface{ Stop() bool } {
	s.mu.Lock()
	defer s.mu.Unlock()
	timer := &fakeTimer{d: d, f: f}
	s.pending = append(s.pending, timer)
	return timer
}

// fireAll は未停止の全タイマーを発火させる。
func (s *fakeScheduler) fireAll() {
	s.mu.Lock()
	timers := append([]*fakeTimer(nil), s.pending...)
	s.pending = nil
	s.mu.Unlock()

	for _, t := range timers {
		if !t.stopped {
			t.f()
		}
	}
}

// recordingSink は表示・削除の呼び出しを記録する。
type recordingSink struct {
	mu      sync.Mutex
	shown   []Notification
	removed []string
}

func (s *recordingSink) Show(n Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, n)
}

func (s *recordingSink) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, id)
}

// compile-time interface check
var _ Sink = (*recordingSink)(nil)

// --- テスト ---

func TestNotifyShowsAndSchedulesRemoval(t *testing.T) {
	sched := &fakeScheduler{}
	sink := &recordingSink{}
	c := NewCenter(sink, WithScheduler(sched.after))

	id := c.Notify("Signed in as Abel.", LevelSuccess)

	if len(sink.shown) != 1 {
		t.Fatalf("expected 1 shown notification, got %d", len(sink.shown))
	}
	if sink.shown[0].ID != id || sink.shown[0].Message != "Signed in as Abel." || sink.shown[0].Level != LevelSuccess {
		t.Errorf("unexpected notification: %+v", sink.shown[0])
	}
	if len(sched.pending) != 1 || sched.pending[0].d != DefaultDisplayWindow {
		t.Errorf("removal should be scheduled at the display window (%v)", DefaultDisplayWindow)
	}

	// タイマー発火で自動削除される
	sched.fireAll()
	if c.ActiveCount() != 0 {
		t.Error("notification should be gone after the window elapses")
	}
	if len(sink.removed) != 1 || sink.removed[0] != id {
		t.Errorf("sink should receive the removal, got %v", sink.removed)
	}
}

func TestNotificationsStackIndependently(t *testing.T) {
	sched := &fakeScheduler{}
	sink := &recordingSink{}
	c := NewCenter(sink, WithScheduler(sched.after))

	id1 := c.Notify("first", LevelInfo)
	id2 := c.Notify("second", LevelWarning)
	id3 := c.Notify("third", LevelError)

	if id1 == id2 || id2 == id3 || id1 == id3 {
		t.Error("notification IDs must be unique")
	}
	if c.ActiveCount() != 3 {
		t.Errorf("expected 3 stacked notifications, got %d", c.ActiveCount())
	}
	if len(sched.pending) != 3 {
		t.Errorf("each notification should have its own timer, got %d", len(sched.pending))
	}

	// 2件目だけを先に消しても他は残る
	c.Dismiss(id2)
	if c.ActiveCount() != 2 {
		t.Errorf("expected 2 remaining, got %d", c.ActiveCount())
	}

	sched.fireAll()
	if c.ActiveCount() != 0 {
		t.Errorf("all notifications should be gone, got %d", c.ActiveCount())
	}
}

func TestDismissIsIdempotent(t *testing.T) {
	sched := &fakeScheduler{}
	sink := &recordingSink{}
	c := NewCenter(sink, WithScheduler(sched.after))

	id := c.Notify("once", LevelInfo)
	c.Dismiss(id)
	c.Dismiss(id)
	sched.fireAll()

	if len(sink.removed) != 1 {
		t.Errorf("removal should happen exactly once, got %d", len(sink.removed))
	}
}

func TestNotifyWithCustomWindow(t *testing.T) {
	sched := &fakeScheduler{}
	c := NewCenter(nil, WithScheduler(sched.after), WithWindow(2*time.Second))

	c.Notify("short-lived", LevelInfo)

	if len(sched.pending) != 1 || sched.pending[0].d != 2*time.Second {
		t.Error("custom window should drive the removal timer")
	}
}

func TestNotifyUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)
	sched := &fakeScheduler{}
	sink := &recordingSink{}
	c := NewCenter(sink, WithScheduler(sched.after), WithClock(func() time.Time { return fixed }))

	c.Notify("clocked", LevelInfo)

	if !sink.shown[0].CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", sink.shown[0].CreatedAt, fixed)
	}
}

func TestNotifyRealTimerRemoves(t *testing.T) {
	// 実タイマーでも自動削除されることを短い表示時間で確認する
	sink := &recordingSink{}
	c := NewCenter(sink, WithWindow(10*time.Millisecond))

	c.Notify("ephemeral", LevelInfo)

	deadline := time.Now().Add(2 * time.Second)
	for c.ActiveCount() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.ActiveCount() != 0 {
		t.Error("notification should self-remove after the window")
	}
}
