package automod

import "fmt"

type Kind string

const (
	KindSpam         Kind = "spam"
	KindMassMentions Kind = "mass_mentions"
	KindBannedWord   Kind = "banned_word"
	KindBannedLink   Kind = "banned_link"
)

// Violation is the tagged reason the scorer emits; the dispatcher turns
// it into a platform action.
type Violation struct {
	Kind   Kind
	Detail string
	Reason string
}

func spamViolation(count, intervalSeconds int) *Violation {
	return &Violation{
		Kind:   KindSpam,
		Reason: fmt.Sprintf("Spam detected: %d messages in %d seconds", count, intervalSeconds),
	}
}

func similarityViolation() *Violation {
	return &Violation{
		Kind:   KindSpam,
		Detail: "repeated content",
		Reason: "Spam detected: repeated message content",
	}
}

func mentionViolation(count, max int) *Violation {
	return &Violation{
		Kind:   KindMassMentions,
		Detail: fmt.Sprintf("%d mentions", count),
		Reason: fmt.Sprintf("Mass mentions: %d (max %d)", count, max),
	}
}

func wordViolation(phrase string) *Violation {
	return &Violation{
		Kind:   KindBannedWord,
		Detail: phrase,
		Reason: fmt.Sprintf("Banned word: %s", phrase),
	}
}

func linkViolation(domain string) *Violation {
	return &Violation{
		Kind:   KindBannedLink,
		Detail: domain,
		Reason: fmt.Sprintf("Banned link: %s", domain),
	}
}
