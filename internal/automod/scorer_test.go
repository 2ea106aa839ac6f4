package automod

import (
	"fmt"
	"testing"
	"time"

	"diwan-bot/internal/guildcfg"
)

func testSnapshot() *guildcfg.Snapshot {
	return &guildcfg.Snapshot{
		GuildID:        "g1",
		AutomodEnabled: true,
		SpamThreshold:  5,
		SpamInterval:   5 * time.Second,
		MaxMentions:    5,
		BannedWords:    []string{"badword"},
		BannedLinks:    map[string]struct{}{"bad.com": {}},
		AllowedLinks:   map[string]struct{}{},
	}
}

func msg(content string) Message {
	return Message{GuildID: "g1", AuthorID: "u1", Content: content}
}

func TestSpamByVolume(t *testing.T) {
	scorer := NewScorer()
	snap := testSnapshot()
	now := time.Unix(1000, 0)

	for i := 0; i < 4; i++ {
		if v := scorer.Check(snap, msg(fmt.Sprintf("msg %d", i)), now.Add(time.Duration(i)*500*time.Millisecond)); v != nil {
			t.Fatalf("message %d should be clean, got %+v", i, v)
		}
	}
	v := scorer.Check(snap, msg("msg 4"), now.Add(3*time.Second))
	if v == nil || v.Kind != KindSpam {
		t.Fatalf("5th message inside window should be spam, got %+v", v)
	}
	if v.Reason != "Spam detected: 5 messages in 5 seconds" {
		t.Fatalf("unexpected reason: %q", v.Reason)
	}
}

func TestSpamWindowExpires(t *testing.T) {
	scorer := NewScorer()
	snap := testSnapshot()
	now := time.Unix(1000, 0)

	for i := 0; i < 4; i++ {
		scorer.Check(snap, msg("x"), now.Add(time.Duration(i)*time.Second))
	}
	// 5th message arrives after the first four left the window.
	if v := scorer.Check(snap, msg("x"), now.Add(20*time.Second)); v != nil {
		t.Fatalf("message outside window flagged: %+v", v)
	}
}

func TestSpamBySimilarity(t *testing.T) {
	scorer := NewScorer()
	snap := testSnapshot()
	snap.SpamThreshold = 0 // isolate the similarity rule
	snap.SpamSimilarity = true
	now := time.Unix(1000, 0)

	var v *Violation
	for i := 0; i < 10; i++ {
		v = scorer.Check(snap, msg("same thing"), now.Add(time.Duration(i)*time.Minute))
	}
	if v == nil || v.Kind != KindSpam {
		t.Fatalf("10 identical messages should be similarity spam, got %+v", v)
	}

	varied := NewScorer()
	for i := 0; i < 10; i++ {
		v = varied.Check(snap, msg(fmt.Sprintf("different %d", i)), now.Add(time.Duration(i)*time.Minute))
	}
	if v != nil {
		t.Fatalf("varied content flagged: %+v", v)
	}
}

func TestMassMentions(t *testing.T) {
	scorer := NewScorer()
	snap := testSnapshot()
	m := msg("hello everyone")
	m.MentionCount = 6
	v := scorer.Check(snap, m, time.Unix(1000, 0))
	if v == nil || v.Kind != KindMassMentions {
		t.Fatalf("expected mass_mentions, got %+v", v)
	}
	m.MentionCount = 5
	m.AuthorID = "u2"
	if v := scorer.Check(snap, m, time.Unix(1000, 0)); v != nil {
		t.Fatalf("5 mentions at max 5 flagged: %+v", v)
	}
}

func TestBannedWordCaseInsensitive(t *testing.T) {
	scorer := NewScorer()
	v := scorer.Check(testSnapshot(), msg("hello BadWord!"), time.Unix(1000, 0))
	if v == nil || v.Kind != KindBannedWord || v.Detail != "badword" {
		t.Fatalf("expected banned_word badword, got %+v", v)
	}
}

func TestEmptyContentNeverTripsWordOrLinkRules(t *testing.T) {
	scorer := NewScorer()
	snap := testSnapshot()
	if v := scorer.Check(snap, msg(""), time.Unix(1000, 0)); v != nil {
		t.Fatalf("empty message flagged: %+v", v)
	}
}

func TestBannedLink(t *testing.T) {
	scorer := NewScorer()
	v := scorer.Check(testSnapshot(), msg("look https://bad.com/page"), time.Unix(1000, 0))
	if v == nil || v.Kind != KindBannedLink || v.Detail != "bad.com" {
		t.Fatalf("expected banned_link bad.com, got %+v", v)
	}
}

func TestAllowlistStrictVariant(t *testing.T) {
	scorer := NewScorer()
	snap := testSnapshot()
	snap.AllowedLinks = map[string]struct{}{"good.com": {}}

	if v := scorer.Check(snap, msg("see https://good.com/x"), time.Unix(1000, 0)); v != nil {
		t.Fatalf("allowlisted link flagged: %+v", v)
	}
	m := msg("see https://other.com/x")
	m.AuthorID = "u2"
	v := scorer.Check(snap, m, time.Unix(1000, 0))
	if v == nil || v.Kind != KindBannedLink {
		t.Fatalf("unlisted link with allowlist active should violate, got %+v", v)
	}
}

func TestMalformedURLDoesNotPanic(t *testing.T) {
	scorer := NewScorer()
	if v := scorer.Check(testSnapshot(), msg("https:// http://%zz"), time.Unix(1000, 0)); v != nil {
		t.Fatalf("malformed URLs flagged: %+v", v)
	}
}

func TestInviteRequiresPermission(t *testing.T) {
	scorer := NewScorer()
	snap := testSnapshot()

	m := msg("join https://discord.gg/abc")
	v := scorer.Check(snap, m, time.Unix(1000, 0))
	if v == nil || v.Kind != KindBannedLink {
		t.Fatalf("invite without permission should violate, got %+v", v)
	}

	m.AuthorID = "u2"
	m.CanCreateInvite = true
	if v := scorer.Check(snap, m, time.Unix(1000, 0)); v != nil {
		t.Fatalf("invite with permission flagged: %+v", v)
	}
}

func TestBotAuthorAndDisabledAutomodSkip(t *testing.T) {
	scorer := NewScorer()
	snap := testSnapshot()

	m := msg("hello badword")
	m.AuthorIsBot = true
	if v := scorer.Check(snap, m, time.Unix(1000, 0)); v != nil {
		t.Fatalf("bot author flagged: %+v", v)
	}

	snap.AutomodEnabled = false
	if v := scorer.Check(snap, msg("hello badword"), time.Unix(1000, 0)); v != nil {
		t.Fatalf("disabled automod flagged: %+v", v)
	}
}

func TestCommandInvocationsAreScored(t *testing.T) {
	scorer := NewScorer()
	snap := testSnapshot()

	v := scorer.Check(snap, msg("!tag badword"), time.Unix(1000, 0))
	if v == nil || v.Kind != KindBannedWord {
		t.Fatalf("command-prefixed banned word should violate, got %+v", v)
	}

	// Command invocations also count toward the spam window.
	burst := NewScorer()
	now := time.Unix(2000, 0)
	var last *Violation
	for i := 0; i < 5; i++ {
		last = burst.Check(snap, msg("!rank"), now.Add(time.Duration(i)*500*time.Millisecond))
	}
	if last == nil || last.Kind != KindSpam {
		t.Fatalf("command burst should be spam, got %+v", last)
	}
}
