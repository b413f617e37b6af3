// Package trust turns seller signals scraped from a listing page into an
// advisory shown alongside the assessment.
package trust

import (
	"fmt"
	"strconv"
)

const (
	// MinRating is the lowest positive feedback percentage considered safe.
	MinRating = 95.0
	// NewAccountYears is how many years back a join date counts as a new account.
	NewAccountYears = 1
)

// Level is the severity of an advisory.
type Level int

const (
	Good Level = iota
	Warning
	Danger
)

func (l Level) String() string {
	switch l {
	case Danger:
		return "danger"
	case Warning:
		return "warning"
	default:
		return "good"
	}
}

// Advisory is the outcome of the seller trust heuristic.
type Advisory struct {
	Level    Level
	Rating   *float64 // Set for Danger, and for Good when known
	JoinYear *int     // Set for Warning
}

// Evaluate applies the seller trust heuristic. The first matching rule wins:
// a rating below MinRating is Danger, otherwise a join year within
// NewAccountYears of currentYear is Warning, otherwise Good. It returns false
// when neither signal is known, in which case no advisory should be shown.
func Evaluate(rating *float64, joinYear *int, currentYear int) (Advisory, bool) {
	if rating == nil && joinYear == nil {
		return Advisory{}, false
	}

	if rating != nil && *rating < MinRating {
		return Advisory{Level: Danger, Rating: rating}, true
	}
	if joinYear != nil && currentYear-*joinYear <= NewAccountYears {
		return Advisory{Level: Warning, JoinYear: joinYear}, true
	}
	return Advisory{Level: Good, Rating: rating}, true
}

// Class returns the CSS class of the advisory banner.
func (a Advisory) Class() string {
	switch a.Level {
	case Danger:
		return "alert-danger"
	case Warning:
		return "alert-warning"
	default:
		return "alert-success"
	}
}

// Icon returns the emoji shown in front of the headline.
func (a Advisory) Icon() string {
	switch a.Level {
	case Danger:
		return "⚠️"
	case Warning:
		return "🚩"
	default:
		return "✅"
	}
}

// Headline returns the short, emphasised part of the advisory.
func (a Advisory) Headline() string {
	switch a.Level {
	case Danger:
		return "警告：評價較低！"
	case Warning:
		return "提醒：新帳號"
	default:
		return "賣家信用良好"
	}
}

// Detail returns the explanatory line under the headline.
func (a Advisory) Detail() string {
	switch a.Level {
	case Danger:
		return fmt.Sprintf("賣家好評率僅 %s%%。", formatRating(a.Rating))
	case Warning:
		return fmt.Sprintf("賣家於 %d 年加入。", *a.JoinYear)
	default:
		return fmt.Sprintf("(%s%%)", formatRating(a.Rating))
	}
}

// Inline reports whether the detail belongs on the headline's line rather
// than below it.
func (a Advisory) Inline() bool {
	return a.Level == Good
}

func formatRating(rating *float64) string {
	if rating == nil {
		return "--"
	}
	return strconv.FormatFloat(*rating, 'f', -1, 64)
}
