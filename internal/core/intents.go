package core

import "strings"

type promptTarget int

const (
	targetSystem promptTarget = iota
	targetUser
)

// intentRule adds an instruction fragment to a prompt when the current message
// contains any of its triggers. New trigger phrases only need a table edit.
type intentRule struct {
	name               string
	triggers           []string
	target             promptTarget
	needProjectContext bool
	instruction        string
}

var intentRules = []intentRule{
	{
		name:               "inspiration",
		triggers:           []string{"inspiration", "based on", "project context"},
		target:             targetSystem,
		needProjectContext: true,
		instruction: "SPECIAL INSTRUCTION: The user is asking for inspiration based on their project context. " +
			"Extract visual themes, subjects, moods, and styles from the project context to create search keywords. " +
			"Do NOT use the user's request words literally.",
	},
	{
		name:     "referential",
		triggers: []string{"like the first", "similar to", "more like"},
		target:   targetUser,
		instruction: "This appears to be a follow-up request referencing previous searches. " +
			"Use the conversation history to understand what they're referring to.",
	},
	{
		name:        "modification",
		triggers:    []string{"moodier", "brighter", "darker", "lighter"},
		target:      targetUser,
		instruction: "This is a modification request. Apply the requested changes to the most recent search context.",
	},
}

// matchIntents returns the rules triggered by message, in table order.
func matchIntents(message string, hasProjectContext bool) []intentRule {
	lower := strings.ToLower(message)
	var matched []intentRule
	for _, rule := range intentRules {
		if rule.needProjectContext && !hasProjectContext {
			continue
		}
		for _, trigger := range rule.triggers {
			if strings.Contains(lower, trigger) {
				matched = append(matched, rule)
				break
			}
		}
	}
	return matched
}
