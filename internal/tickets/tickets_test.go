package tickets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"diwan-bot/internal/clock"
	"diwan-bot/internal/storage"
)

type fakeClock struct{ now time.Time }

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) AfterFunc(d time.Duration, fn func()) clock.Timer { return fakeTimer{} }

type fakeTimer struct{}

func (fakeTimer) Stop() bool { return true }

func newService(t *testing.T) (*Service, *fakeClock) {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	fake := &fakeClock{now: time.Unix(1000, 0)}
	return NewService(store, fake, zap.NewNop()), fake
}

func TestSecondOpenTicketRejected(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "g1", "c1", "u1", TypeHealth); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := svc.Create(ctx, "g1", "c2", "u1", TypeFeedback); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Other users and other guilds are unaffected.
	if _, err := svc.Create(ctx, "g1", "c3", "u2", TypeHealth); err != nil {
		t.Fatalf("other user: %v", err)
	}
	if _, err := svc.Create(ctx, "g2", "c4", "u1", TypeHealth); err != nil {
		t.Fatalf("other guild: %v", err)
	}
}

func TestCacheMissStillRejectsSecondTicket(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "g1", "c1", "u1", TypeHealth); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Fresh service over the same store: empty cache, the unique index
	// still refuses.
	cold := NewService(svc.store, svc.clock, zap.NewNop())
	if _, err := cold.Create(ctx, "g1", "c2", "u1", TypeHealth); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("expected ErrConflict from index, got %v", err)
	}

	if err := cold.Refresh(ctx, "g1"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if !cold.HasOpen("g1", "u1") {
		t.Fatal("refresh did not pick up open ticket")
	}
}

func TestLifecycleCloseReopenDelete(t *testing.T) {
	svc, fake := newService(t)
	ctx := context.Background()

	ticket, err := svc.Create(ctx, "g1", "c1", "u1", TypePlayerReport)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := svc.Claim(ctx, ticket.ID, "staff1"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	// Claim is first-wins.
	if err := svc.Claim(ctx, ticket.ID, "staff2"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("second claim: %v", err)
	}

	fake.now = fake.now.Add(time.Minute)
	if err := svc.Close(ctx, ticket.ID, "staff1", "transcript body"); err != nil {
		t.Fatalf("close: %v", err)
	}
	if svc.HasOpen("g1", "u1") {
		t.Fatal("cache still reports open after close")
	}
	// Closing twice fails.
	if err := svc.Close(ctx, ticket.ID, "staff1", ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("double close: %v", err)
	}

	// The user may open a new ticket once the first is closed.
	second, err := svc.Create(ctx, "g1", "c2", "u1", TypeFeedback)
	if err != nil {
		t.Fatalf("create after close: %v", err)
	}

	// Reopening the first while the second is open trips the index.
	if err := svc.Reopen(ctx, ticket.ID, "staff1"); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("reopen with open ticket: %v", err)
	}

	if err := svc.Delete(ctx, second.ID, "staff1", "second transcript"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Reopen(ctx, ticket.ID, "staff1"); err != nil {
		t.Fatalf("reopen after delete: %v", err)
	}
	if !svc.HasOpen("g1", "u1") {
		t.Fatal("cache missing reopened ticket")
	}

	stored, err := svc.store.GetTicket(ctx, second.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != storage.TicketStatusDeleted || stored.Transcript != "second transcript" {
		t.Fatalf("deleted ticket row wrong: %+v", stored)
	}
}

func TestCreateRejectsUnknownType(t *testing.T) {
	svc, _ := newService(t)
	if _, err := svc.Create(context.Background(), "g1", "c1", "u1", Type("payroll")); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
}

func TestChannelName(t *testing.T) {
	got := ChannelName(TypeHealth, "Abu Fahad_99")
	want := "🏥-health-abu-fahad-99"
	if got != want {
		t.Fatalf("channel name = %q, want %q", got, want)
	}
	if got := ChannelName(TypePlayerReport, "وليد"); got != "🚨-player-report-user" {
		t.Fatalf("non-latin opener: %q", got)
	}
}

func TestRenderTranscriptOrdersOldestFirst(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	messages := []*discordgo.Message{
		{
			Author:    &discordgo.User{Username: "staff"},
			Content:   "closing now",
			Timestamp: base.Add(time.Minute),
		},
		{
			Author:    &discordgo.User{Username: "opener"},
			Content:   "need help",
			Timestamp: base,
			Attachments: []*discordgo.MessageAttachment{
				{URL: "https://cdn.example/shot.png"},
			},
		},
	}

	out := RenderTranscript(messages)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "[2026-03-01 12:00:00] opener: need help") {
		t.Fatalf("first line: %q", lines[0])
	}
	if !strings.Contains(lines[0], "[attachment: https://cdn.example/shot.png]") {
		t.Fatalf("attachment missing: %q", lines[0])
	}
	if !strings.Contains(lines[1], "staff: closing now") {
		t.Fatalf("second line: %q", lines[1])
	}
}

func TestFetchHistoryPaginatesFullHistory(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var history []*discordgo.Message // newest first, like the API returns
	for i := 250; i >= 1; i-- {
		history = append(history, &discordgo.Message{
			ID:        fmt.Sprintf("%03d", i),
			Author:    &discordgo.User{Username: "u"},
			Content:   fmt.Sprintf("m%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
	}

	var cursors []string
	fetch := func(beforeID string) ([]*discordgo.Message, error) {
		cursors = append(cursors, beforeID)
		start := 0
		if beforeID != "" {
			for idx, m := range history {
				if m.ID == beforeID {
					start = idx + 1
					break
				}
			}
		}
		end := start + 100
		if end > len(history) {
			end = len(history)
		}
		return history[start:end], nil
	}

	all, err := FetchHistory(fetch)
	if err != nil {
		t.Fatalf("fetch history: %v", err)
	}
	if len(all) != 250 {
		t.Fatalf("expected 250 messages, got %d", len(all))
	}
	want := []string{"", "151", "051"}
	if len(cursors) != len(want) {
		t.Fatalf("expected %d pages, got cursors %v", len(want), cursors)
	}
	for i, cursor := range want {
		if cursors[i] != cursor {
			t.Fatalf("page %d cursor = %q, want %q", i, cursors[i], cursor)
		}
	}

	lines := strings.Split(strings.TrimRight(RenderTranscript(all), "\n"), "\n")
	if len(lines) != 250 {
		t.Fatalf("expected 250 transcript lines, got %d", len(lines))
	}
	if !strings.HasSuffix(lines[0], "u: m1") {
		t.Fatalf("first line should be the oldest message: %q", lines[0])
	}
	if !strings.HasSuffix(lines[249], "u: m250") {
		t.Fatalf("last line should be the newest message: %q", lines[249])
	}
}

func TestFetchHistoryPropagatesFetchError(t *testing.T) {
	boom := errors.New("boom")
	if _, err := FetchHistory(func(string) ([]*discordgo.Message, error) {
		return nil, boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}
