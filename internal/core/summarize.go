package core

import (
	"regexp"
	"strings"

	"gwi.com/photo-search-assistant/internal/store"
)

const (
	summaryMinMessages   = 4 // shorter histories get no summary
	summaryRecentQueries = 2
)

var (
	subjectVocabulary = regexp.MustCompile(`\b(sunset|beach|mountain|forest|city|portrait|landscape|nature|architecture|food|fashion|business|technology|abstract|vintage|modern|minimalist|colorful|dark|bright|moody)\b`)
	styleVocabulary   = regexp.MustCompile(`\b(vintage|modern|minimalist|artistic|creative|professional|casual|dramatic|soft|bold|elegant|rustic|industrial|organic)\b`)
)

// orderedSet keeps first-seen order so summaries are deterministic.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
}

// SummarizeConversation condenses a transcript into a short labeled digest of
// subjects, styles, constraints and recent searches. It returns "" for short
// histories, when the current request is the only user message, and when
// nothing matched.
func SummarizeConversation(history []store.Message) string {
	if len(history) < summaryMinMessages {
		return ""
	}

	var userTexts []string
	var recentQueries []string
	for _, m := range history {
		switch m.Kind {
		case store.KindUser:
			userTexts = append(userTexts, m.Text)
		case store.KindSearchSummary:
			if m.Search != nil && strings.TrimSpace(m.Search.Query) != "" {
				recentQueries = append(recentQueries, m.Search.Query)
			}
		}
	}
	if len(userTexts) < 2 {
		return "" // the newest user message is the current request
	}
	userTexts = userTexts[:len(userTexts)-1]
	if len(recentQueries) > summaryRecentQueries {
		recentQueries = recentQueries[len(recentQueries)-summaryRecentQueries:]
	}

	subjects := newOrderedSet()
	styles := newOrderedSet()
	constraints := newOrderedSet()
	for _, text := range userTexts {
		content := strings.ToLower(text)
		for _, w := range subjectVocabulary.FindAllString(content, -1) {
			subjects.add(w)
		}
		for _, w := range styleVocabulary.FindAllString(content, -1) {
			styles.add(w)
		}
		if strings.Contains(content, "vertical") || strings.Contains(content, "portrait") {
			constraints.add("vertical orientation")
		}
		if strings.Contains(content, "horizontal") || strings.Contains(content, "landscape") {
			constraints.add("horizontal orientation")
		}
		if strings.Contains(content, "bright") {
			constraints.add("bright lighting")
		}
		if strings.Contains(content, "dark") || strings.Contains(content, "moody") {
			constraints.add("dark/moody")
		}
	}

	var b strings.Builder
	if len(subjects.items) > 0 {
		b.WriteString("Previous subjects discussed: " + strings.Join(subjects.items, ", ") + "\n")
	}
	if len(styles.items) > 0 {
		b.WriteString("Style preferences mentioned: " + strings.Join(styles.items, ", ") + "\n")
	}
	if len(constraints.items) > 0 {
		b.WriteString("Constraints noted: " + strings.Join(constraints.items, ", ") + "\n")
	}
	if len(recentQueries) > 0 {
		b.WriteString("Recent searches: " + strings.Join(recentQueries, ", ") + "\n")
	}
	if b.Len() == 0 {
		return ""
	}
	return "CONVERSATION CONTEXT:\n" + b.String()
}
