// Package guildcfg holds the immutable per-guild configuration snapshot.
// Writers build a new Snapshot, persist it, then publish; readers capture
// the pointer once per event and never observe partial state.
package guildcfg

import (
	"context"
	"sync"
	"time"

	"diwan-bot/internal/storage"
)

type Snapshot struct {
	GuildID string

	AutomodEnabled bool
	BannedWords    []string
	BannedLinks    map[string]struct{}
	AllowedLinks   map[string]struct{}
	SpamThreshold  int
	SpamInterval   time.Duration
	SpamSimilarity bool
	MaxMentions    int

	RaidThreshold int
	RaidInterval  time.Duration
	RaidRecovery  time.Duration

	Action       string
	MuteDuration time.Duration

	LevelingEnabled bool
	XPPerMessage    int
	XPCooldown      time.Duration
	LevelUpChannel  string
	LevelUpMessage  string
	RoleRewards     map[int]string

	VisaRoleID      string
	VisaIssuerRoles map[string]struct{}
	VisaRevokeRole  string
	TicketCategory  string
	TicketStaffRole string
	AuditChannel    string
}

// Build assembles a snapshot from the persisted rows.
func Build(automod storage.AutomodConfig, leveling storage.LevelingConfig, settings storage.GuildSettings) *Snapshot {
	snap := &Snapshot{
		GuildID:        automod.GuildID,
		AutomodEnabled: automod.Enabled,
		BannedWords:    append([]string(nil), automod.BannedWords...),
		BannedLinks:    toSet(automod.BannedLinks),
		AllowedLinks:   toSet(automod.AllowedLinks),
		SpamThreshold:  automod.SpamThreshold,
		SpamInterval:   time.Duration(automod.SpamInterval) * time.Second,
		SpamSimilarity: automod.SpamSimilarity,
		MaxMentions:    automod.MaxMentions,
		RaidThreshold:  automod.RaidThreshold,
		RaidInterval:   time.Duration(automod.RaidInterval) * time.Second,
		RaidRecovery:   time.Duration(automod.RaidRecovery) * time.Second,
		Action:         automod.ActionType,
		MuteDuration:   time.Duration(automod.MuteSeconds) * time.Second,

		LevelingEnabled: leveling.Enabled,
		XPPerMessage:    leveling.XPPerMessage,
		XPCooldown:      time.Duration(leveling.XPCooldown) * time.Second,
		LevelUpChannel:  leveling.LevelUpChannel,
		LevelUpMessage:  leveling.LevelUpMessage,
		RoleRewards:     copyRewards(leveling.RoleRewards),

		VisaRoleID:      settings.VisaRoleID,
		VisaIssuerRoles: toSet(settings.VisaIssuerRoles),
		VisaRevokeRole:  settings.VisaRevokeRole,
		TicketCategory:  settings.TicketCategory,
		TicketStaffRole: settings.TicketStaffRole,
		AuditChannel:    settings.AuditChannel,
	}
	return snap
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}

func copyRewards(rewards map[int]string) map[int]string {
	out := make(map[int]string, len(rewards))
	for level, roleID := range rewards {
		out[level] = roleID
	}
	return out
}

// Registry maps guild ID to the current snapshot pointer.
type Registry struct {
	mu        sync.RWMutex
	store     *storage.Store
	automod   storage.AutomodConfig
	leveling  storage.LevelingConfig
	snapshots map[string]*Snapshot
}

// NewRegistry takes the process-level defaults applied to guilds without
// persisted rows.
func NewRegistry(store *storage.Store, automodDefaults storage.AutomodConfig, levelingDefaults storage.LevelingConfig) *Registry {
	return &Registry{
		store:     store,
		automod:   automodDefaults,
		leveling:  levelingDefaults,
		snapshots: make(map[string]*Snapshot),
	}
}

// Get returns the current snapshot, loading from storage on first sight
// of a guild.
func (r *Registry) Get(ctx context.Context, guildID string) (*Snapshot, error) {
	r.mu.RLock()
	snap := r.snapshots[guildID]
	r.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}
	return r.Reload(ctx, guildID)
}

// Reload rebuilds the snapshot from storage and publishes it.
func (r *Registry) Reload(ctx context.Context, guildID string) (*Snapshot, error) {
	automod, err := r.store.GetAutomodConfig(ctx, guildID, r.automod)
	if err != nil {
		return nil, err
	}
	leveling, err := r.store.GetLevelingConfig(ctx, guildID, r.leveling)
	if err != nil {
		return nil, err
	}
	settings, err := r.store.GetGuildSettings(ctx, guildID)
	if err != nil {
		return nil, err
	}
	snap := Build(automod, leveling, settings)
	r.Publish(snap)
	return snap, nil
}

// Publish atomically swaps the pointer for the snapshot's guild.
func (r *Registry) Publish(snap *Snapshot) {
	r.mu.Lock()
	r.snapshots[snap.GuildID] = snap
	r.mu.Unlock()
}
