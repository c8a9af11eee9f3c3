package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/Mindburn-Labs/gauntlet/pkg/controller"
)

// CanvasTitle is the title under which the rule book canvas is upserted.
const CanvasTitle = "House Rules"

// RenderRuleBook produces the markdown rule book for the channel canvas.
// Every catalog rule appears so players can see what might come into play;
// the ones currently in force are checked.
func RenderRuleBook(desc controller.Description) string {
	var b strings.Builder

	b.WriteString("# " + CanvasTitle + "\n\n")
	fmt.Fprintf(&b, "Difficulty **%d**, in force since %s.\n\n",
		desc.Difficulty, desc.Since.UTC().Format("2006-01-02 15:04 UTC"))

	b.WriteString("## Rules\n\n")
	for _, r := range desc.Rules {
		mark := " "
		if r.Active {
			mark = "x"
		}
		fmt.Fprintf(&b, "- [%s] **%s** (weight %d)", mark, r.Name, r.Weight)
		if r.Description != "" {
			b.WriteString(": " + r.Description)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nRuleset `%s`\n", desc.Fingerprint)
	return b.String()
}

// PublishRuleBook renders the rule book and upserts it as the channel canvas.
func PublishRuleBook(ctx context.Context, client *Client, channel string, desc controller.Description) error {
	return client.UpsertCanvas(ctx, channel, CanvasTitle, RenderRuleBook(desc))
}
