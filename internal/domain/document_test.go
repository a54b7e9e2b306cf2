package domain

import (
	"testing"
	"time"
)

func testDefaults() DocumentDefaults {
	return DocumentDefaults{
		BossName:        "The DBMS Final",
		BossMaxHP:       500,
		TeamMaxHP:       100,
		DurationSeconds: 1500,
	}
}

func TestNewSharedDocumentSeedsBothRoles(t *testing.T) {
	doc := NewSharedDocument("", testDefaults())
	if doc.Scope != GlobalScope {
		t.Fatalf("scope=%q want global", doc.Scope)
	}
	for _, role := range Roles() {
		entry, ok := doc.Presence[role]
		if !ok {
			t.Fatalf("missing presence entry for %s", role)
		}
		if entry.DurationSeconds != 1500 || entry.Status != StatusNotStudying {
			t.Fatalf("unexpected seed entry for %s: %+v", role, entry)
		}
	}
	if doc.Quest.BossHP != 500 || doc.Quest.TeamHP != 100 {
		t.Fatalf("unexpected seed quest: %+v", doc.Quest)
	}
}

func TestNormalizeBackfillsMissingEntriesAndDropsStrays(t *testing.T) {
	doc := &SharedDocument{
		Presence: map[Role]PresenceEntry{
			Role("mallory"): {Status: StatusActive},
		},
		Quest: QuestState{BossHP: -20, BossMaxHP: 500, TeamHP: 300, TeamMaxHP: 100},
	}
	doc.Normalize(testDefaults())

	if _, ok := doc.Presence[Role("mallory")]; ok {
		t.Fatal("stray role survived normalize")
	}
	for _, role := range Roles() {
		if _, ok := doc.Presence[role]; !ok {
			t.Fatalf("normalize did not backfill %s", role)
		}
	}
	if doc.Quest.BossHP != 0 || doc.Quest.TeamHP != 100 {
		t.Fatalf("quest not clamped: %+v", doc.Quest)
	}
	if doc.Quest.Status != QuestWon {
		t.Fatalf("status=%s want won", doc.Quest.Status)
	}
}

func TestResolveAllOnlyTouchesExpiredTimers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := NewSharedDocument(GlobalScope, testDefaults())

	belal := doc.Entry(RoleBelal)
	belal.Start(now.Add(-time.Hour))
	doc.SetEntry(RoleBelal, belal)

	rutbah := doc.Entry(RoleRutbah)
	rutbah.Start(now)
	doc.SetEntry(RoleRutbah, rutbah)

	if !doc.ResolveAll(now) {
		t.Fatal("expired timer must flag the document as changed")
	}
	if got := doc.Entry(RoleBelal); got.IsRunning || got.RemainingSeconds != 0 || got.Status != StatusBreak {
		t.Fatalf("belal not resolved: %+v", got)
	}
	if got := doc.Entry(RoleRutbah); !got.IsRunning {
		t.Fatalf("rutbah timer must still be running: %+v", got)
	}

	if doc.ResolveAll(now) {
		t.Fatal("second resolve must be a no-op")
	}
}

func TestPresenceViewsDeriveRemainingFromClock(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	doc := NewSharedDocument(GlobalScope, testDefaults())
	entry := doc.Entry(RoleBelal)
	entry.Start(now)
	doc.SetEntry(RoleBelal, entry)

	views := doc.PresenceViews(now.Add(1499 * time.Second))
	if views[RoleBelal].RemainingSeconds != 1 {
		t.Fatalf("belal view remaining=%d want 1", views[RoleBelal].RemainingSeconds)
	}
	if views[RoleRutbah].RemainingSeconds != 1500 {
		t.Fatalf("rutbah view remaining=%d want 1500", views[RoleRutbah].RemainingSeconds)
	}
}
