package profile

import (
	"math"
	"testing"
	"time"

	"github.com/khanglvm/persona-search/internal/storage"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func query(id, text string, at time.Time) storage.QueryEvent {
	return storage.QueryEvent{ID: id, UserID: "alice", RawText: text, Timestamp: at}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSegment(t *testing.T) {
	window := 30 * time.Minute
	tests := []struct {
		name     string
		gap      time.Duration
		sessions int
	}{
		{"29 minutes apart", 29 * time.Minute, 1},
		{"exactly the window", 30 * time.Minute, 1},
		{"31 minutes apart", 31 * time.Minute, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := []storage.QueryEvent{
				query("q1", "a", testNow),
				query("q2", "b", testNow.Add(tt.gap)),
			}
			if got := len(Segment(events, window)); got != tt.sessions {
				t.Errorf("sessions = %d, want %d", got, tt.sessions)
			}
		})
	}
}

func TestSegmentSortsAndChains(t *testing.T) {
	events := []storage.QueryEvent{
		query("q3", "c", testNow.Add(50*time.Minute)),
		query("q1", "a", testNow),
		query("q2", "b", testNow.Add(25*time.Minute)),
		query("q4", "d", testNow.Add(3*time.Hour)),
	}

	sessions := Segment(events, 30*time.Minute)
	if len(sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(sessions))
	}
	if len(sessions[0].Events) != 3 {
		t.Errorf("first session has %d events, want 3", len(sessions[0].Events))
	}
	if sessions[0].Events[0].ID != "q1" || sessions[0].Events[2].ID != "q3" {
		t.Errorf("first session not in time order: %+v", sessions[0].Events)
	}
	if sessions[1].Events[0].ID != "q4" {
		t.Errorf("second session = %+v", sessions[1].Events)
	}

	if Segment(nil, time.Minute) != nil {
		t.Error("no events should give no sessions")
	}
}

func TestAggregateQueriesRepetitionBoost(t *testing.T) {
	p := DefaultParams()

	once, _ := AggregateQueries([]storage.QueryEvent{
		query("q1", "golang", testNow),
	}, testNow, p, nil)

	thrice, _ := AggregateQueries([]storage.QueryEvent{
		query("q1", "golang", testNow),
		query("q2", "golang", testNow),
		query("q3", "golang", testNow),
	}, testNow, p, nil)

	if thrice["golang"] <= once["golang"] {
		t.Fatalf("3 occurrences (%v) should outscore 1 (%v)", thrice["golang"], once["golang"])
	}

	// count * (1 + 0.5*(count-1)) * recency(0) * boost
	if !almostEqual(once["golang"], 1*1*1*1.5) {
		t.Errorf("once = %v, want 1.5", once["golang"])
	}
	if !almostEqual(thrice["golang"], 3*2*1*1.5) {
		t.Errorf("thrice = %v, want 9", thrice["golang"])
	}
}

func TestAggregateQueriesDecayAndSessions(t *testing.T) {
	p := DefaultParams()
	old := testNow.Add(-30 * 24 * time.Hour)

	scores, seen := AggregateQueries([]storage.QueryEvent{
		query("q1", "rust", old),
		query("q2", "rust golang", testNow.Add(-10*time.Minute)),
	}, testNow, p, nil)

	// Old session: 1 * exp(-1) with no boost. Recent session: 1 * ~1 * 1.5.
	recentRecency := math.Exp(-(10.0 / (24 * 60)) / 30)
	wantRust := math.Exp(-1) + 1.5*recentRecency
	if !almostEqual(scores["rust"], wantRust) {
		t.Errorf("rust = %v, want %v", scores["rust"], wantRust)
	}
	if !almostEqual(scores["golang"], 1.5*recentRecency) {
		t.Errorf("golang = %v, want %v", scores["golang"], 1.5*recentRecency)
	}

	if len(seen) != 2 || seen[0] != "golang" || seen[1] != "rust" {
		t.Errorf("seen = %v, want [golang rust]", seen)
	}
}

func TestAggregateQueriesSessionBoostWindow(t *testing.T) {
	p := DefaultParams()

	inside, _ := AggregateQueries([]storage.QueryEvent{
		query("q1", "golang", testNow.Add(-480*time.Minute)),
	}, testNow, p, nil)
	outside, _ := AggregateQueries([]storage.QueryEvent{
		query("q1", "golang", testNow.Add(-481*time.Minute)),
	}, testNow, p, nil)

	if inside["golang"] < 1.4 {
		t.Errorf("event 480 minutes old should be boosted, got %v", inside["golang"])
	}
	if outside["golang"] > 1 {
		t.Errorf("event 481 minutes old should not be boosted, got %v", outside["golang"])
	}
}

func TestDomainKey(t *testing.T) {
	tests := map[string]string{
		"https://www.Example.com/docs/page?x=1": "example.com/docs",
		"a.com/p":                              "a.com/p",
		"http://a.com":                         "a.com",
		"http://a.com/":                        "a.com",
		"https://sub.a.com:8080/x/y":           "sub.a.com/x",
		"www.go.dev":                           "go.dev",
		"":                                     "",
		"   ":                                  "",
	}
	for in, want := range tests {
		if got := DomainKey(in); got != want {
			t.Errorf("DomainKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRankWeight(t *testing.T) {
	tests := []struct {
		rank int
		want float64
	}{
		{1, 1.0},
		{5, 0.6},
		{10, 0.1},
		{11, 0.1},
		{50, 0.1},
		{0, 1.0},
		{-3, 1.0},
	}
	for _, tt := range tests {
		if got := RankWeight(tt.rank, 0.1); !almostEqual(got, tt.want) {
			t.Errorf("RankWeight(%d) = %v, want %v", tt.rank, got, tt.want)
		}
	}
}

func TestAggregateClicks(t *testing.T) {
	p := DefaultParams()
	click := func(url string, rank int, action storage.ActionType, at time.Time) storage.InteractionEvent {
		return storage.InteractionEvent{UserID: "alice", ClickedURL: url, Rank: rank, ActionType: action, Timestamp: at}
	}

	scores, keys := AggregateClicks([]storage.InteractionEvent{
		click("https://a.com/p/1", 1, storage.ActionClick, testNow),
		click("https://www.a.com/p/2", 5, storage.ActionPositiveFeedback, testNow),
		click("https://b.com/q", 1, storage.ActionNegativeFeedback, testNow),
		click("https://c.com", 1, storage.ActionClick, testNow.Add(-10*24*time.Hour)),
	}, testNow, p)

	if !almostEqual(scores["a.com/p"], (1.0+0.6)*1.5) {
		t.Errorf("a.com/p = %v, want %v", scores["a.com/p"], 1.6*1.5)
	}
	if _, ok := scores["b.com/q"]; ok {
		t.Error("negative feedback should not score")
	}
	if !almostEqual(scores["c.com"], math.Exp(-10.0/30)) {
		t.Errorf("c.com = %v, want %v", scores["c.com"], math.Exp(-10.0/30))
	}
	if len(keys) != 2 || keys[0] != "a.com/p" || keys[1] != "c.com" {
		t.Errorf("keys = %v", keys)
	}
}
