package notify

import "time"

// Phase は通知のフェードフェーズ。
// 表示時間のうち最初の10%がフェードイン、最後の10%がフェードアウト、
// 中間の80%が完全表示となる。
type Phase string

const (
	PhaseFadeIn  Phase = "fade-in"
	PhaseVisible Phase = "visible"
	PhaseFadeOut Phase = "fade-out"
	PhaseGone    Phase = "gone"
)

// fadeFraction はフェードイン・フェードアウトそれぞれが表示時間に占める割合。
const fadeFraction = 0.10

// PhaseAt は表示開始からの経過時間に対するフェーズを返す。
func PhaseAt(elapsed, window time.Duration) Phase {
	if window <= 0 || elapsed >= window {
		return PhaseGone
	}
	if elapsed < 0 {
		elapsed = 0
	}

	frac := float64(elapsed) / float64(window)
	switch {
	case frac < fadeFraction:
		return PhaseFadeIn
	case frac < 1.0-fadeFraction:
		return PhaseVisible
	default:
		return PhaseFadeOut
	}
}

// OpacityAt は表示開始からの経過時間に対する不透明度（0.0〜1.0）を返す。
// フェードイン中は線形に上昇し、フェードアウト中は線形に下降する。
func OpacityAt(elapsed, window time.Duration) float64 {
	if window <= 0 || elapsed >= window {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}

	frac := float64(elapsed) / float64(window)
	switch {
	case frac < fadeFraction:
		return frac / fadeFraction
	case frac < 1.0-fadeFraction:
		return 1.0
	default:
		return (1.0 - frac) / fadeFraction
	}
}
