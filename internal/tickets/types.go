// Package tickets runs the support ticket lifecycle on top of the
// storage layer and keeps a cache of open tickets per guild.
package tickets

import (
	"fmt"
	"strings"
)

// Type is one of the fixed ticket categories offered on the panel.
type Type string

const (
	TypePlayerReport Type = "player_report"
	TypeHealth       Type = "health"
	TypeInterior     Type = "interior"
	TypeFeedback     Type = "feedback"
)

// AllTypes in panel display order.
var AllTypes = []Type{TypePlayerReport, TypeHealth, TypeInterior, TypeFeedback}

func (t Type) Valid() bool {
	switch t {
	case TypePlayerReport, TypeHealth, TypeInterior, TypeFeedback:
		return true
	}
	return false
}

// Emoji is the marker shown on the panel button and in the channel name.
func (t Type) Emoji() string {
	switch t {
	case TypePlayerReport:
		return "🚨"
	case TypeHealth:
		return "🏥"
	case TypeInterior:
		return "🏠"
	case TypeFeedback:
		return "💡"
	}
	return "🎫"
}

// Label is the Arabic button caption.
func (t Type) Label() string {
	switch t {
	case TypePlayerReport:
		return "شكوى على لاعب"
	case TypeHealth:
		return "الصحة"
	case TypeInterior:
		return "الداخلية"
	case TypeFeedback:
		return "اقتراح"
	}
	return string(t)
}

// ChannelName builds the ticket channel name from the type and the
// opener's username. Discord lowercases channel names and strips most
// punctuation, so the opener part is sanitized up front.
func ChannelName(t Type, opener string) string {
	opener = strings.ToLower(opener)
	opener = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			return r
		case r == ' ' || r == '_' || r == '.':
			return '-'
		}
		return -1
	}, opener)
	opener = strings.Trim(opener, "-")
	if opener == "" {
		opener = "user"
	}
	return fmt.Sprintf("%s-%s-%s", t.Emoji(), strings.ReplaceAll(string(t), "_", "-"), opener)
}
