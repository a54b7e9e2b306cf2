package domain

import "time"

// GlobalScope is the single shared document key: both roles address the same
// record, there is no per-session isolation.
const GlobalScope = "global"

// SharedDocument is the one persisted aggregate: both presence entries plus
// the quest, with an optimistic-concurrency version bumped on every save.
type SharedDocument struct {
	Scope     string                 `json:"scope"`
	Presence  map[Role]PresenceEntry `json:"presence"`
	Quest     QuestState             `json:"quest"`
	Version   int64                  `json:"version"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// DocumentDefaults seeds a freshly created shared document.
type DocumentDefaults struct {
	BossName        string
	BossMaxHP       int
	TeamMaxHP       int
	DurationSeconds int
}

func NewSharedDocument(scope string, d DocumentDefaults) *SharedDocument {
	if scope == "" {
		scope = GlobalScope
	}
	doc := &SharedDocument{
		Scope:    scope,
		Presence: make(map[Role]PresenceEntry, 2),
		Quest:    NewQuestState(d.BossName, d.BossMaxHP, d.TeamMaxHP),
	}
	for _, role := range Roles() {
		doc.Presence[role] = NewPresenceEntry(d.DurationSeconds)
	}
	return doc
}

// Normalize migrates a stored document into a valid shape: missing or
// malformed presence entries are replaced, HP and timers are clamped.
func (d *SharedDocument) Normalize(defaults DocumentDefaults) {
	if d.Scope == "" {
		d.Scope = GlobalScope
	}
	if d.Presence == nil {
		d.Presence = make(map[Role]PresenceEntry, 2)
	}
	for _, role := range Roles() {
		entry, ok := d.Presence[role]
		if !ok {
			entry = NewPresenceEntry(defaults.DurationSeconds)
		}
		entry.Normalize()
		d.Presence[role] = entry
	}
	for role := range d.Presence {
		if !role.Valid() {
			delete(d.Presence, role)
		}
	}
	d.Quest.Normalize()
}

// Entry returns a copy of the role's presence entry.
func (d *SharedDocument) Entry(role Role) PresenceEntry {
	return d.Presence[role]
}

// SetEntry stores the role's presence entry back into the document.
func (d *SharedDocument) SetEntry(role Role, entry PresenceEntry) {
	d.Presence[role] = entry
}

// ResolveAll applies the lazy expiry transition to every entry, reporting
// whether anything changed and therefore needs persisting.
func (d *SharedDocument) ResolveAll(now time.Time) bool {
	changed := false
	for _, role := range Roles() {
		entry := d.Presence[role]
		if entry.Resolve(now) {
			d.Presence[role] = entry
			changed = true
		}
	}
	return changed
}

// PresenceViews serializes every entry with clock-derived remaining time.
func (d *SharedDocument) PresenceViews(now time.Time) map[Role]PresenceView {
	views := make(map[Role]PresenceView, len(d.Presence))
	for _, role := range Roles() {
		views[role] = d.Presence[role].View(now)
	}
	return views
}
