package service

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mentiond/mentiond/pkg/db"
	"github.com/mentiond/mentiond/pkg/models"
)

func newTestStore(t *testing.T) *StoreService {
	t.Helper()
	gdb, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	return NewStoreService(gdb)
}

func testMention(ts time.Time, channel, user, clientID string) models.Mention {
	return models.Mention{
		Timestamp: ts.Format(time.RFC3339),
		Channel:   channel,
		User:      user,
		Text:      "@you can you review this?",
		ClientID:  clientID,
	}
}

func TestAddMention_DuplicateAbsorbed(t *testing.T) {
	store := newTestStore(t)
	m := testMention(time.Now(), "eng", "Bob", "host-A")

	outcome, err := store.AddMention(m)
	if err != nil {
		t.Fatalf("first AddMention() error = %v", err)
	}
	if outcome != MentionInserted {
		t.Fatalf("first AddMention() = %v, want %v", outcome, MentionInserted)
	}

	outcome, err = store.AddMention(m)
	if err != nil {
		t.Fatalf("second AddMention() error = %v", err)
	}
	if outcome != MentionDuplicate {
		t.Fatalf("second AddMention() = %v, want %v", outcome, MentionDuplicate)
	}

	rows, err := store.GetRecentMentions(24, "", 100)
	if err != nil {
		t.Fatalf("GetRecentMentions() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one durable row, got %d", len(rows))
	}
}

func TestAddMention_SameSecondDifferentUserKept(t *testing.T) {
	store := newTestStore(t)
	ts := time.Now()

	if _, err := store.AddMention(testMention(ts, "eng", "Bob", "host-A")); err != nil {
		t.Fatalf("AddMention() error = %v", err)
	}
	if _, err := store.AddMention(testMention(ts, "eng", "Carol", "host-A")); err != nil {
		t.Fatalf("AddMention() error = %v", err)
	}

	rows, err := store.GetRecentMentions(24, "", 100)
	if err != nil {
		t.Fatalf("GetRecentMentions() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestGetRecentMentions_OrderFilterLimit(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	for i, spec := range []struct {
		age    time.Duration
		client string
	}{
		{3 * time.Hour, "host-A"},
		{2 * time.Hour, "host-B"},
		{1 * time.Hour, "host-A"},
		{30 * time.Hour, "host-A"}, // outside the 24h window
	} {
		m := testMention(now.Add(-spec.age), "eng", "Bob", spec.client)
		m.Text = m.Text + string(rune('a'+i))
		if _, err := store.AddMention(m); err != nil {
			t.Fatalf("AddMention() error = %v", err)
		}
	}

	rows, err := store.GetRecentMentions(24, "", 100)
	if err != nil {
		t.Fatalf("GetRecentMentions() error = %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows within 24h, got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Timestamp.After(rows[i-1].Timestamp) {
			t.Fatalf("rows not in descending timestamp order")
		}
	}

	rows, err = store.GetRecentMentions(24, "host-A", 100)
	if err != nil {
		t.Fatalf("GetRecentMentions() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 host-A rows, got %d", len(rows))
	}

	rows, err = store.GetRecentMentions(24, "", 1)
	if err != nil {
		t.Fatalf("GetRecentMentions() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected limit to cap rows, got %d", len(rows))
	}
}

func TestMarkResponded_Idempotent(t *testing.T) {
	store := newTestStore(t)
	ts := time.Now()
	m := testMention(ts, "eng", "Bob", "host-A")
	if _, err := store.AddMention(m); err != nil {
		t.Fatalf("AddMention() error = %v", err)
	}

	key := models.MentionKey{
		Timestamp: m.Timestamp,
		Channel:   m.Channel,
		User:      m.User,
		ClientID:  m.ClientID,
	}
	if err := store.MarkResponded(key); err != nil {
		t.Fatalf("MarkResponded() error = %v", err)
	}
	if err := store.MarkResponded(key); err != nil {
		t.Fatalf("second MarkResponded() error = %v", err)
	}

	unread, err := store.GetUnreadMentions("")
	if err != nil {
		t.Fatalf("GetUnreadMentions() error = %v", err)
	}
	if len(unread) != 0 {
		t.Fatalf("expected no unread mentions, got %d", len(unread))
	}

	// Still visible in the recent window.
	rows, err := store.GetRecentMentions(24, "", 100)
	if err != nil {
		t.Fatalf("GetRecentMentions() error = %v", err)
	}
	if len(rows) != 1 || !rows[0].Responded {
		t.Fatalf("expected one responded row, got %+v", rows)
	}

	// Unknown key is a no-op, not an error.
	unknown := key
	unknown.User = "Nobody"
	if err := store.MarkResponded(unknown); err != nil {
		t.Fatalf("MarkResponded(unknown) error = %v", err)
	}
}

func TestUpsertChannelActivity_Accumulates(t *testing.T) {
	store := newTestStore(t)
	date := time.Now().Format("2006-01-02")

	for _, count := range []int{2, 3, 5} {
		if err := store.UpsertChannelActivity("eng", count, 14, date, "host-A"); err != nil {
			t.Fatalf("UpsertChannelActivity() error = %v", err)
		}
	}

	rows, err := store.GetChannelActivity(24, "host-A")
	if err != nil {
		t.Fatalf("GetChannelActivity() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected a single accumulated row, got %d", len(rows))
	}
	if rows[0].MessageCount != 10 {
		t.Fatalf("MessageCount = %d, want 10", rows[0].MessageCount)
	}
}

func TestTouchClient_PreservesHostname(t *testing.T) {
	store := newTestStore(t)

	if err := store.TouchClient("host-A", "alice-laptop"); err != nil {
		t.Fatalf("TouchClient() error = %v", err)
	}
	if err := store.TouchClient("host-A", ""); err != nil {
		t.Fatalf("second TouchClient() error = %v", err)
	}

	clients, err := store.GetActiveClients(10)
	if err != nil {
		t.Fatalf("GetActiveClients() error = %v", err)
	}
	if len(clients) != 1 {
		t.Fatalf("expected one active client, got %d", len(clients))
	}
	if clients[0].Hostname != "alice-laptop" {
		t.Fatalf("Hostname = %q, want %q", clients[0].Hostname, "alice-laptop")
	}
	if clients[0].FirstSeen.IsZero() || clients[0].LastSeen.IsZero() {
		t.Fatalf("expected first_seen and last_seen to be set")
	}
}

func TestGetActiveClients_RecencyWindow(t *testing.T) {
	store := newTestStore(t)

	if err := store.TouchClient("host-stale", ""); err != nil {
		t.Fatalf("TouchClient() error = %v", err)
	}
	if err := store.TouchClient("host-fresh", ""); err != nil {
		t.Fatalf("TouchClient() error = %v", err)
	}

	// Backdate the stale client past the window.
	res := store.db.Model(&db.Client{}).
		Where("client_id = ?", "host-stale").
		Update("last_seen", time.Now().Add(-11*time.Minute))
	if res.Error != nil {
		t.Fatalf("backdate client: %v", res.Error)
	}

	clients, err := store.GetActiveClients(10)
	if err != nil {
		t.Fatalf("GetActiveClients() error = %v", err)
	}
	if len(clients) != 1 || clients[0].ClientID != "host-fresh" {
		t.Fatalf("expected only host-fresh active, got %+v", clients)
	}
}

func TestCleanup_ZeroDaysWipesMentions(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	for _, age := range []time.Duration{time.Hour, 48 * time.Hour, 200 * time.Hour} {
		if _, err := store.AddMention(testMention(now.Add(-age), "eng", "Bob", "host-A")); err != nil {
			t.Fatalf("AddMention() error = %v", err)
		}
	}
	if err := store.UpsertChannelActivity("eng", 4, 9, now.AddDate(0, 0, -3).Format("2006-01-02"), "host-A"); err != nil {
		t.Fatalf("UpsertChannelActivity() error = %v", err)
	}

	result, err := store.Cleanup(0)
	if err != nil {
		t.Fatalf("Cleanup(0) error = %v", err)
	}
	if result.MentionsDeleted != 3 {
		t.Fatalf("MentionsDeleted = %d, want 3", result.MentionsDeleted)
	}
	if result.ActivityDeleted != 1 {
		t.Fatalf("ActivityDeleted = %d, want 1", result.ActivityDeleted)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalMentions != 0 {
		t.Fatalf("TotalMentions = %d, want 0", stats.TotalMentions)
	}
}

func TestCleanup_RetainsFreshData(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	if _, err := store.AddMention(testMention(now.Add(-time.Hour), "eng", "Bob", "host-A")); err != nil {
		t.Fatalf("AddMention() error = %v", err)
	}
	if _, err := store.AddMention(testMention(now.Add(-10*24*time.Hour), "eng", "Bob", "host-A")); err != nil {
		t.Fatalf("AddMention() error = %v", err)
	}

	result, err := store.Cleanup(7)
	if err != nil {
		t.Fatalf("Cleanup(7) error = %v", err)
	}
	if result.MentionsDeleted != 1 {
		t.Fatalf("MentionsDeleted = %d, want 1", result.MentionsDeleted)
	}

	rows, err := store.GetRecentMentions(24, "", 100)
	if err != nil {
		t.Fatalf("GetRecentMentions() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected the fresh mention retained, got %d rows", len(rows))
	}
}

func TestStats_Counters(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	if _, err := store.AddMention(testMention(now, "eng", "Bob", "host-A")); err != nil {
		t.Fatalf("AddMention() error = %v", err)
	}
	old := testMention(now.Add(-48*time.Hour), "eng", "Carol", "host-A")
	old.Responded = true
	if _, err := store.AddMention(old); err != nil {
		t.Fatalf("AddMention() error = %v", err)
	}
	if err := store.TouchClient("host-A", ""); err != nil {
		t.Fatalf("TouchClient() error = %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalMentions != 2 {
		t.Fatalf("TotalMentions = %d, want 2", stats.TotalMentions)
	}
	if stats.UnreadMentions != 1 {
		t.Fatalf("UnreadMentions = %d, want 1", stats.UnreadMentions)
	}
	if stats.TotalClients != 1 || stats.ActiveClients != 1 {
		t.Fatalf("client counts = %d/%d, want 1/1", stats.TotalClients, stats.ActiveClients)
	}
	if stats.MentionsLast24h != 1 {
		t.Fatalf("MentionsLast24h = %d, want 1", stats.MentionsLast24h)
	}
}
