// Package notify は画面右上に積み重なる通知トーストのライフサイクルを管理する。
// 各通知は固定の表示時間の後に自動的に消え、互いに独立したタイマーを持つ。
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level は通知の重要度。表示色の選択にのみ使用され、寿命には影響しない。
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// DefaultDisplayWindow は通知1件の表示時間。
const DefaultDisplayWindow = 4 * time.Second

// Notification は表示中の通知1件を表す。
type Notification struct {
	ID        string
	Message   string
	Level     Level
	CreatedAt time.Time
}

// Sink は通知の表示先。UIレイヤーが実装する。
type Sink interface {
	// Show は通知を表示リストに追加する。
	Show(n Notification)
	// Remove は通知を表示リストから取り除く。
	Remove(id string)
}

// stopper はスケジュールされた削除のキャンセルハンドル。
type stopper interface {
	Stop() bool
}

// Center は通知の生成とタイマー管理を行う。
// 複数の通知は積み重なり、それぞれ独立したタイマーで消える。
type Center struct {
	mu      sync.Mutex
	sink    Sink
	window  time.Duration
	active  map[string]Notification
	timers  map[string]stopper
	now     func() time.Time
	afterFn func(d time.Duration, f func()) stopper
}

// Option はCenterの生成時オプション。
type Option func(*Center)

// WithWindow は表示時間を変更する。
func WithWindow(d time.Duration) Option {
	return func(c *Center) {
		c.window = d
	}
}

// WithClock は現在時刻の取得関数を差し替える。テスト用。
func WithClock(now func() time.Time) Option {
	return func(c *Center) {
		c.now = now
	}
}

// WithScheduler はタイマーのスケジュール関数を差し替える。テスト用。
func WithScheduler(afterFn func(d time.Duration, f func()) interface{ Stop() bool }) Option {
	return func(c *Center) {
		c.afterFn = func(d time.Duration, f func()) stopper {
			return afterFn(d, f)
		}
	}
}

// NewCenter はCenterを生成する。sinkはnil許容（nilの場合は状態管理のみ行う）。
func NewCenter(sink Sink, opts ...Option) *Center {
	c := &Center{
		sink:   sink,
		window: DefaultDisplayWindow,
		active: make(map[string]Notification),
		timers: make(map[string]stopper),
		now:    time.Now,
		afterFn: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Notify は通知を表示し、表示時間経過後の自動削除をスケジュールする。
// 生成された通知IDを返す。
func (c *Center) Notify(message string, level Level) string {
	n := Notification{
		ID:        uuid.New().String(),
		Message:   message,
		Level:     level,
		CreatedAt: c.now(),
	}

	c.mu.Lock()
	c.active[n.ID] = n
	c.timers[n.ID] = c.afterFn(c.window, func() {
		c.Dismiss(n.ID)
	})
	c.mu.Unlock()

	if c.sink != nil {
		c.sink.Show(n)
	}

	return n.ID
}

// Dismiss は通知を即座に取り除く。タイマー満了時にも内部から呼ばれる。
// 既に取り除かれている場合は何もしない。
func (c *Center) Dismiss(id string) {
	c.mu.Lock()
	_, exists := c.active[id]
	if !exists {
		c.mu.Unlock()
		return
	}
	delete(c.active, id)
	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	c.mu.Unlock()

	if c.sink != nil {
		c.sink.Remove(id)
	}
}

// Active は表示中の通知一覧を返す。順序は保証しない。
func (c *Center) Active() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := make([]Notification, 0, len(c.active))
	for _, n := range c.active {
		list = append(list, n)
	}
	return list
}

// ActiveCount は表示中の通知数を返す。
func (c *Center) ActiveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active)
}

// Window は表示時間を返す。
func (c *Center) Window() time.Duration {
	return c.window
}
