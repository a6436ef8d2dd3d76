package gemini

import "strings"

// buildClassificationPrompt asks for exactly one taxonomy label so the
// response can be used verbatim (after trimming) as the class name.
func buildClassificationPrompt(labels []string, allowUnrecognized bool, excerpt string) string {
	options := make([]string, 0, len(labels)+1)
	options = append(options, labels...)
	if allowUnrecognized {
		options = append(options, "Unknown")
	}

	var b strings.Builder
	b.WriteString("You are a document classifier.\n")
	b.WriteString("Classify the document excerpt below into exactly one of these categories:\n")
	b.WriteString(strings.Join(options, ", "))
	b.WriteString("\nAnswer with the category name only. No punctuation, no explanation.")
	if allowUnrecognized {
		b.WriteString("\nIf the document fits none of the categories, answer Unknown.")
	}
	b.WriteString("\n\nDocument:\n")
	b.WriteString(excerpt)
	return b.String()
}
