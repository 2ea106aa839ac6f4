// Package automod scores inbound messages against the guild rule set.
// The scorer only decides; dispatching the resulting action is the bot's
// job.
package automod

import (
	"strings"
	"time"

	"diwan-bot/internal/guildcfg"
	"diwan-bot/internal/utils"
)

// Message is the slice of a platform message the rules need.
type Message struct {
	GuildID         string
	AuthorID        string
	AuthorIsBot     bool
	Content         string
	MentionCount    int
	CanCreateInvite bool
}

type Scorer struct {
	windows *windows
}

func NewScorer() *Scorer {
	return &Scorer{windows: newWindows()}
}

// Check runs the rule chain; first match wins. A nil result means the
// message is clean. Preconditions (bot author, missing guild, automod
// disabled) short-circuit to clean.
func (s *Scorer) Check(snap *guildcfg.Snapshot, msg Message, now time.Time) *Violation {
	if msg.AuthorIsBot || msg.GuildID == "" || !snap.AutomodEnabled {
		return nil
	}

	window := s.windows.get(msg.GuildID + ":" + msg.AuthorID)
	window.add(msg.Content, now)

	if snap.SpamThreshold > 0 && snap.SpamInterval > 0 {
		count := window.countSince(now.Add(-snap.SpamInterval))
		if count >= snap.SpamThreshold {
			return spamViolation(snap.SpamThreshold, int(snap.SpamInterval/time.Second))
		}
	}

	if snap.SpamSimilarity {
		if distinct, total := window.distinctContents(); total == windowCapacity && distinct <= 2 {
			return similarityViolation()
		}
	}

	if snap.MaxMentions > 0 && msg.MentionCount > snap.MaxMentions {
		return mentionViolation(msg.MentionCount, snap.MaxMentions)
	}

	// Empty or embed-only messages never trip word or link rules.
	if msg.Content == "" {
		return nil
	}

	lower := strings.ToLower(msg.Content)
	for _, phrase := range snap.BannedWords {
		if phrase == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(phrase)) {
			return wordViolation(phrase)
		}
	}

	return s.checkLinks(snap, msg)
}

func (s *Scorer) checkLinks(snap *guildcfg.Snapshot, msg Message) *Violation {
	for _, raw := range utils.ExtractURLs(msg.Content) {
		if utils.IsInvite(raw) {
			if !msg.CanCreateInvite {
				return linkViolation("discord.gg")
			}
			continue
		}
		host, ok := utils.ExtractHost(raw)
		if !ok {
			continue
		}
		if _, banned := snap.BannedLinks[host]; banned {
			return linkViolation(host)
		}
		// With a non-empty allowlist every unlisted host violates.
		if len(snap.AllowedLinks) > 0 {
			if _, allowed := snap.AllowedLinks[host]; !allowed {
				return linkViolation(host)
			}
		}
	}
	return nil
}
