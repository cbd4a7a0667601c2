package gemini

// SummaryInstructionFooter is appended to the configured system instruction.
// It describes the transcript format so the model does not echo it.
const SummaryInstructionFooter = `

Messages are formatted as: [YYYY-MM-DD HH:MM] <display name>: <message text>

[CRITICAL] Answer with plain text paragraphs only. Do NOT repeat the timestamp or name prefix, and do NOT use markdown.`
