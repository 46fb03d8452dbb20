// Package view models the report screen's tab/scroll synchronization as a
// pure reducer so it stays independent of any particular UI layer. Inputs
// are tab clicks, scroll-intersection events, print-mode toggles, and the
// cross-fade tick; the reducer never triggers data fetches.
package view

import "github.com/shelftest/shelftest/internal/insight"

type TabID string

const (
	TabTestDetails     TabID = "test_details"
	TabSummary         TabID = "summary"
	TabPurchaseDrivers TabID = "purchase_drivers"
	TabCompetitive     TabID = "competitive"
	TabComments        TabID = "comments"
	TabRecommendations TabID = "recommendations"
)

// Tabs is the fixed tab order of the report screen.
var Tabs = []TabID{TabTestDetails, TabSummary, TabPurchaseDrivers, TabCompetitive, TabComments, TabRecommendations}

// State is the report screen's tab state. DisplayedTab trails ActiveTab by
// one Tick so the cross-fade can complete before content swaps; data
// availability is never gated on it.
type State struct {
	ActiveTab    TabID
	DisplayedTab TabID
	Printing     bool
	ScrollTarget TabID // section to scroll into view, "" when none pending
}

type EventKind string

const (
	EventTabClick        EventKind = "tab_click"
	EventScrollIntersect EventKind = "scroll_intersect"
	EventPrintMode       EventKind = "print_mode"
	EventTick            EventKind = "tick"
)

type Event struct {
	Kind EventKind
	Tab  TabID
	// Ratio is the fraction of the viewport the section occupies; only
	// intersections at or above half the viewport drive the active tab.
	Ratio float64
	On    bool
}

func NewState() State {
	return State{ActiveTab: TabTestDetails, DisplayedTab: TabTestDetails}
}

// Reduce applies one event. Scroll drives the active tab one way only
// (scroll -> tab, never the reverse) to avoid feedback loops, and the
// intersection observer is disabled entirely while printing so PDF export
// does not perturb on-screen state.
func Reduce(s State, e Event) State {
	switch e.Kind {
	case EventTabClick:
		if !validTab(e.Tab) {
			return s
		}
		s.ActiveTab = e.Tab
		s.ScrollTarget = e.Tab
	case EventScrollIntersect:
		if s.Printing || e.Ratio < 0.5 || !validTab(e.Tab) {
			return s
		}
		s.ActiveTab = e.Tab
	case EventPrintMode:
		s.Printing = e.On
	case EventTick:
		// One frame behind: the fade finishes, then content swaps.
		s.DisplayedTab = s.ActiveTab
		s.ScrollTarget = ""
	}
	return s
}

// EnabledTabs applies the draft-status gate: on a draft test, everything but
// test details is disabled unless the viewer is elevated. This is a display
// gate only, not a security boundary.
func EnabledTabs(status insight.TestStatus, elevated bool) []TabID {
	if status == insight.StatusDraft && !elevated {
		return []TabID{TabTestDetails}
	}
	out := make([]TabID, len(Tabs))
	copy(out, Tabs)
	return out
}

func validTab(t TabID) bool {
	for _, tab := range Tabs {
		if tab == t {
			return true
		}
	}
	return false
}
