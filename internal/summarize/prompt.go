package summarize

import "strings"

// promptHeader is the fixed instruction prepended to every prompt.
const promptHeader = "Summarize the following customer reviews into a list of pros and cons, " +
	"then conclude with a recommendation on whether or not to visit this place."

// BuildPrompt composes the generation prompt from the extracted reviews,
// in collection order, separated by blank lines. Pure and deterministic:
// the same reviews in the same order always yield byte-identical output.
// An empty collection yields the bare instruction header.
func BuildPrompt(reviews []string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	for _, r := range reviews {
		b.WriteString("\n\n")
		b.WriteString(r)
	}
	return b.String()
}
