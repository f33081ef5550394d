package pipeline

import "fmt"

const (
	slideSystemPrompt = "Evaluate the delivery and the content of this presentation slide. " +
		"Be specific; vague praise helps nobody."

	summarySystemPrompt = "Give a final assessment of the whole presentation: strengths, " +
		"weaknesses, clarity and structure."
)

func slideRequirements(maxTips int) string {
	return fmt.Sprintf(
		"Return strict JSON only, no prose and no markdown fencing, shaped as "+
			`{"feedback": "<short assessment>", "tips": ["<actionable tip>", ...]}. `+
			"Include at most %d tips.", maxTips)
}

func summaryRequirements(maxTips int) string {
	return fmt.Sprintf(
		"Return strict JSON only, no prose and no markdown fencing, shaped as "+
			`{"feedback": "<overall assessment>", "tips": ["<actionable tip>", ...]}. `+
			"Include at most %d tips.", maxTips)
}

func restoreInstruction(language string) string {
	return fmt.Sprintf(
		"You restore punctuation and casing in speech-recognition output. "+
			"Fix punctuation, casing and obvious typos, split into paragraphs. "+
			"Do not add or omit anything. Keep the original language: %s. "+
			"Return only the corrected text.", language)
}
