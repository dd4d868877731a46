package profile

import "strings"

// Sentence templates. Order of emission is fixed: interests, vibe tags,
// hangout spot, preferences, then prompts in slot order.
const (
	interestTemplate   = "I like "
	vibeTemplate       = "My Vibe is "
	hangoutTemplate    = "I love to hangout at "
	preferenceTemplate = "I am looking for "
)

var promptTemplates = [PromptSlots]string{
	PromptFirstDate: "My ideal first date would be ",
	PromptBeverage:  "Between chai and coffee i would go for ",
	PromptSong:      "The song I love is ",
}

// Sentences renders the profile into the ordered natural-language sentences
// fed to the embedding model. Blank values never produce a sentence.
func (p *Profile) Sentences() []string {
	out := make([]string, 0, len(p.Interests)+len(p.VibeTags)+2+PromptSlots)

	for _, interest := range p.Interests {
		out = appendSentence(out, interestTemplate, interest)
	}
	for _, tag := range p.VibeTags {
		out = appendSentence(out, vibeTemplate, tag)
	}
	out = appendSentence(out, hangoutTemplate, p.HangoutSpot)
	out = appendSentence(out, preferenceTemplate, p.Preferences)

	for i, answer := range p.Prompts {
		out = appendSentence(out, promptTemplates[i], answer)
	}
	return out
}

func appendSentence(out []string, template, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return out
	}
	return append(out, template+value)
}
