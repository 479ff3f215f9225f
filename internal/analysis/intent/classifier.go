package intent

import "strings"

// Label 表示用户消息所属的意图类别。
type Label string

const (
	Greeting     Label = "greeting"
	Gratitude    Label = "gratitude"
	Help         Label = "help"
	Experience   Label = "experience"
	Skills       Label = "skills"
	Projects     Label = "projects"
	Contact      Label = "contact"
	Availability Label = "availability"
	Technologies Label = "technologies"
	About        Label = "about"
	Education    Label = "education"
	SmallTalk    Label = "smalltalk"
	Fallback     Label = "fallback"
)

type keywordGroup struct {
	label    Label
	keywords []string
}

// cascade is checked top to bottom and the first hit wins. "work" is listed
// under both experience and availability; experience comes first and takes it.
var cascade = []keywordGroup{
	{Greeting, []string{"hello", "hi", "hey"}},
	{Gratitude, []string{"thank", "thanks"}},
	{Help, []string{"help"}},
	{Experience, []string{"experience", "work"}},
	{Skills, []string{"skill", "tech"}},
	{Projects, []string{"project", "portfolio"}},
	{Contact, []string{"contact", "email", "linkedin"}},
	{Availability, []string{"available", "hire", "work"}},
	{Technologies, []string{"technology", "stack", "tool"}},
	{About, []string{"about", "yourself"}},
	{Education, []string{"education", "school", "degree"}},
	{SmallTalk, []string{"weather", "time"}},
}

// Classify maps raw input to exactly one label. Matching is plain substring
// containment on the lower-cased input.
func Classify(raw string) Label {
	normalized := strings.ToLower(raw)
	for _, group := range cascade {
		for _, word := range group.keywords {
			if strings.Contains(normalized, word) {
				return group.label
			}
		}
	}
	return Fallback
}

// Labels returns the taxonomy in priority order, fallback last.
func Labels() []Label {
	labels := make([]Label, 0, len(cascade)+1)
	for _, group := range cascade {
		labels = append(labels, group.label)
	}
	return append(labels, Fallback)
}

// Keywords returns a copy of the keywords registered for label.
func Keywords(label Label) []string {
	for _, group := range cascade {
		if group.label == label {
			return append([]string(nil), group.keywords...)
		}
	}
	return nil
}
