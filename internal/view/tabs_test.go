package view

import (
	"testing"

	"github.com/shelftest/shelftest/internal/insight"
)

func TestTabClickSetsActiveAndScroll(t *testing.T) {
	s := Reduce(NewState(), Event{Kind: EventTabClick, Tab: TabSummary})
	if s.ActiveTab != TabSummary {
		t.Fatalf("active tab = %s", s.ActiveTab)
	}
	if s.ScrollTarget != TabSummary {
		t.Fatalf("click must request a scroll, got %q", s.ScrollTarget)
	}
	// Displayed tab trails until the fade tick.
	if s.DisplayedTab != TabTestDetails {
		t.Fatalf("displayed tab must lag one tick, got %s", s.DisplayedTab)
	}
	s = Reduce(s, Event{Kind: EventTick})
	if s.DisplayedTab != TabSummary || s.ScrollTarget != "" {
		t.Fatalf("tick should settle the fade: %+v", s)
	}
}

func TestScrollDrivesActiveTabOneWay(t *testing.T) {
	s := NewState()
	s = Reduce(s, Event{Kind: EventScrollIntersect, Tab: TabCompetitive, Ratio: 0.7})
	if s.ActiveTab != TabCompetitive {
		t.Fatalf("scroll at >=50%% must set the active tab, got %s", s.ActiveTab)
	}
	// Scroll-driven changes never queue a scroll back, or the two would loop.
	if s.ScrollTarget != "" {
		t.Fatalf("scroll sync must be one-way, got target %q", s.ScrollTarget)
	}
}

func TestScrollBelowHalfViewportIgnored(t *testing.T) {
	s := NewState()
	s = Reduce(s, Event{Kind: EventScrollIntersect, Tab: TabComments, Ratio: 0.4})
	if s.ActiveTab != TabTestDetails {
		t.Fatalf("intersection below half viewport must not switch tabs, got %s", s.ActiveTab)
	}
}

func TestPrintModeDisablesObserver(t *testing.T) {
	s := NewState()
	s = Reduce(s, Event{Kind: EventPrintMode, On: true})
	s = Reduce(s, Event{Kind: EventScrollIntersect, Tab: TabComments, Ratio: 1.0})
	if s.ActiveTab != TabTestDetails {
		t.Fatalf("observer must be disabled while printing, got %s", s.ActiveTab)
	}

	s = Reduce(s, Event{Kind: EventPrintMode, On: false})
	s = Reduce(s, Event{Kind: EventScrollIntersect, Tab: TabComments, Ratio: 1.0})
	if s.ActiveTab != TabComments {
		t.Fatalf("observer should resume after printing, got %s", s.ActiveTab)
	}
}

func TestClicksStillWorkWhilePrinting(t *testing.T) {
	s := Reduce(NewState(), Event{Kind: EventPrintMode, On: true})
	s = Reduce(s, Event{Kind: EventTabClick, Tab: TabSummary})
	if s.ActiveTab != TabSummary {
		t.Fatalf("explicit clicks are not gated by print mode, got %s", s.ActiveTab)
	}
}

func TestInvalidTabIgnored(t *testing.T) {
	s := Reduce(NewState(), Event{Kind: EventTabClick, Tab: "bogus"})
	if s.ActiveTab != TabTestDetails {
		t.Fatalf("unknown tab must be ignored, got %s", s.ActiveTab)
	}
}

func TestDraftGating(t *testing.T) {
	got := EnabledTabs(insight.StatusDraft, false)
	if len(got) != 1 || got[0] != TabTestDetails {
		t.Fatalf("draft tests expose only test details, got %v", got)
	}
	if len(EnabledTabs(insight.StatusDraft, true)) != len(Tabs) {
		t.Fatal("elevated viewers see every tab on drafts")
	}
	if len(EnabledTabs(insight.StatusComplete, false)) != len(Tabs) {
		t.Fatal("complete tests expose every tab")
	}
}
