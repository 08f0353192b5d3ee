package usecase

import (
	"fmt"
	"strings"
)

const agentPromptTemplate = `You are a helpful personal assistant accessible via WhatsApp.

You have access to the following tools:

%s

Use this EXACT format (no commas, no extra punctuation):

Thought: Do I need to use a tool? What does the user want?
Action: tool_name_here
Action Input: input text here
Observation: the result of the action
... (repeat Thought/Action/Action Input/Observation ONLY if needed)
Thought: I now know the final answer
Final Answer: the final answer to send to the user

CRITICAL: Tool names must be written WITHOUT commas or any punctuation after them.

IMPORTANT: You can respond WITHOUT using any tool if the user is greeting you,
asking who you are, saying thanks, or making casual conversation. For these
cases, skip Action/Observation and go directly to:
Thought: This is a greeting/casual question, I'll respond directly
Final Answer: [your friendly response]

CRITICAL RULES FOR TOOL USE:
1. Use a tool ONCE, then give the Final Answer
2. After ANY tool succeeds, IMMEDIATELY give Final Answer
3. Do NOT call the same tool multiple times
4. Keep Final Answer brief (2-3 sentences max) for WhatsApp
5. ALWAYS end with "Final Answer:" - never skip it!

When a message contains document text between ---START OF DOCUMENT--- and
---END OF DOCUMENT--- markers, that IS the full document content. Pass it
directly to the text analysis tools; never say you cannot access files.

Begin!

Previous conversation:
%s

Question: %s
Thought:%s`

// BuildPrompt assembles the reasoning prompt from the tool catalogue, the
// session history, the user's message and the accumulated scratchpad of
// prior steps.
func BuildPrompt(catalogue, history, input, scratchpad string) string {
	return fmt.Sprintf(agentPromptTemplate, catalogue, history, input, scratchpad)
}

// ParsedReply is one decoded model reply: either a final answer or a tool
// action.
type ParsedReply struct {
	Final       bool
	FinalAnswer string
	Action      string
	ActionInput string
}

// ParseReply decodes a model reply. A "Final Answer:" marker wins over any
// action lines; otherwise both "Action:" and "Action Input:" must be
// present. Returns ok=false for malformed replies.
func ParseReply(reply string) (ParsedReply, bool) {
	if idx := strings.Index(reply, "Final Answer:"); idx >= 0 {
		answer := strings.TrimSpace(reply[idx+len("Final Answer:"):])
		if answer != "" {
			return ParsedReply{Final: true, FinalAnswer: answer}, true
		}
	}

	action := captureAfter(reply, "Action:")
	if action == "" {
		return ParsedReply{}, false
	}
	input := captureAfter(reply, "Action Input:")

	// Models sometimes append punctuation to the tool name.
	action = strings.Trim(action, ".,;:\"'")

	return ParsedReply{Action: action, ActionInput: input}, true
}

// captureAfter returns the rest of the line following the first occurrence
// of the marker.
func captureAfter(text, marker string) string {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return ""
	}
	rest := text[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}
