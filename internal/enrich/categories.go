package enrich

import "strings"

// CategoryStyle pairs a display name with the accent color the UI uses
// for that category.
type CategoryStyle struct {
	Display string
	Color   string
}

// neutralColor is used for the fallback "Other" category.
const neutralColor = "#9CA3AF"

// categoryStyles is the closed set of categories the classifier may
// emit. Anything outside this table maps to "Other".
var categoryStyles = map[string]CategoryStyle{
	"work":         {Display: "Work", Color: "#3B82F6"},
	"personal":     {Display: "Personal", Color: "#10B981"},
	"finance":      {Display: "Finance", Color: "#F59E0B"},
	"shopping":     {Display: "Shopping", Color: "#EC4899"},
	"travel":       {Display: "Travel", Color: "#8B5CF6"},
	"social":       {Display: "Social", Color: "#06B6D4"},
	"newsletter":   {Display: "Newsletter", Color: "#6366F1"},
	"promotion":    {Display: "Promotion", Color: "#F97316"},
	"notification": {Display: "Notification", Color: "#14B8A6"},
	"other":        {Display: "Other", Color: neutralColor},
}

// categoryNames lists the valid category keys in a stable order for
// prompt construction.
var categoryNames = []string{
	"work", "personal", "finance", "shopping", "travel",
	"social", "newsletter", "promotion", "notification", "other",
}

// Categories returns the closed category table in its stable order.
func Categories() []CategoryStyle {
	out := make([]CategoryStyle, 0, len(categoryNames))
	for _, name := range categoryNames {
		out = append(out, categoryStyles[name])
	}
	return out
}

// styleFor resolves a model-reported category to its display style,
// falling back to "Other" for anything unrecognized.
func styleFor(category string) CategoryStyle {
	if style, ok := categoryStyles[strings.ToLower(strings.TrimSpace(category))]; ok {
		return style
	}
	return categoryStyles["other"]
}
