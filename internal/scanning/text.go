package scanning

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// transcriptionPrompt is shared by the LLM providers. It asks for a plain
// transcription so the output has the same shape as a classic OCR engine's.
const transcriptionPrompt = `You are an OCR engine. Transcribe every line of text printed on this receipt image.

Rules:
- Output one printed line per output line, top to bottom, in the order they appear
- Copy text exactly as printed, including numbers, punctuation and spacing within a line
- If item names and prices are printed in separate columns, output all item names first and then all prices
- Do not add commentary, headings, explanations or markdown
- Do not summarize, total or reformat amounts
- If there is no readable text, output nothing`

// normalizeText converts provider output to NFC with LF line endings
func normalizeText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return norm.NFC.String(text)
}

// stripCodeFence removes a markdown code block wrapped around LLM output
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	// Drop an info string such as "text" or "plaintext" on the fence line
	if i := strings.IndexByte(text, '\n'); i >= 0 && !strings.ContainsAny(text[:i], " \t") {
		text = text[i+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
