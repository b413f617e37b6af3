package bot

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lithammer/dedent"
)

// maxMessageLength is Telegram's limit for message text, in characters.
const maxMessageLength = 4096

var urlRe = regexp.MustCompile(`https?://\S+`)

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

func parseCommand(s string) (string, []string) {
	parts := strings.Fields(s)
	if len(parts) == 0 {
		return "", nil
	}
	// Commands in groups may be addressed as /evaluate@botname
	cmd, _, _ := strings.Cut(parts[0], "@")
	return cmd, parts[1:]
}

// findURL returns the first http(s) URL in text.
func findURL(text string) string {
	return urlRe.FindString(text)
}

// splitMessage splits text into chunks of at most limit characters,
// breaking on line boundaries. Lines longer than limit are hard-split.
func splitMessage(text string, limit int) []string {
	var chunks []string
	var current []rune

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, string(current))
			current = current[:0]
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		if len(current)+len(r) <= limit {
			current = append(current, r...)
			continue
		}
		flush()
		for len(r) > limit {
			chunks = append(chunks, string(r[:limit]))
			r = r[limit:]
		}
		current = append(current, r...)
	}
	flush()

	out := chunks[:0]
	for _, c := range chunks {
		if c = strings.TrimRight(c, "\n"); c != "" {
			out = append(out, c)
		}
	}
	return out
}
