package tickets

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const historyPageSize = 100

// FetchHistory pulls the complete channel history newest first, paging
// backwards with the before-ID cursor until a short page marks the
// start of the channel.
func FetchHistory(fetch func(beforeID string) ([]*discordgo.Message, error)) ([]*discordgo.Message, error) {
	var all []*discordgo.Message
	beforeID := ""
	for {
		page, err := fetch(beforeID)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < historyPageSize {
			return all, nil
		}
		beforeID = page[len(page)-1].ID
	}
}

// RenderTranscript flattens the channel history into one line per
// message, oldest first. Discord returns history newest first, so the
// slice is walked backwards. Embeds and attachments are inlined so the
// transcript stays useful after the channel is gone.
func RenderTranscript(messages []*discordgo.Message) string {
	var b strings.Builder
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Author == nil {
			continue
		}
		ts := m.Timestamp.UTC().Format("2006-01-02 15:04:05")
		content := m.Content
		for _, embed := range m.Embeds {
			if embed.Title != "" {
				content += " [embed: " + embed.Title + "]"
			} else if embed.Description != "" {
				content += " [embed: " + embed.Description + "]"
			}
		}
		for _, att := range m.Attachments {
			content += " [attachment: " + att.URL + "]"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", ts, m.Author.Username, strings.TrimSpace(content))
	}
	return b.String()
}
