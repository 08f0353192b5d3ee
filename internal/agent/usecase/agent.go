package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"assistant-backend/internal/agent/session"
	"assistant-backend/internal/agent/tools"
	"assistant-backend/pkg/ai"
	"assistant-backend/pkg/fuzzy"
)

const (
	correctiveObservation = "Your reply was not in the expected format. Reply with either " +
		"'Action: <tool name>' and 'Action Input: <input>', or 'Final Answer: <answer>'."
	// ErrorResponse is the generic reply for any failure the loop cannot
	// answer around; the HTTP boundary reuses it for panics.
	ErrorResponse = "I apologize, but I encountered an error processing your request. Please try again."

	// Cap on a best-effort answer taken from the last observation when the
	// iteration limit is exhausted.
	maxFallbackAnswerLen = 500

	similarTurnLimit = 2
)

// ConversationMemory persists turns and retrieves semantically similar past
// ones. Satisfied by memory.LongTerm.
type ConversationMemory interface {
	SaveTurn(ctx context.Context, userID, message, response, toolUsed string, metadata map[string]any) (string, error)
	SearchSimilar(ctx context.Context, userID, query string, limit int) ([]string, error)
}

// Result is the outcome of one processed message.
type Result struct {
	Response       string `json:"response"`
	Status         string `json:"status"`
	ToolUsed       string `json:"tool_used,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Agent runs the reasoning loop: prompt the model with the tool catalogue
// and conversation context, dispatch the chosen tool, feed its output back
// as an observation, and stop on a final answer or the iteration cap.
type Agent struct {
	llm           ai.LanguageModel
	registry      *tools.Registry
	sessions      *session.Store
	memory        ConversationMemory
	maxIterations int
}

func NewAgent(llm ai.LanguageModel, registry *tools.Registry, sessions *session.Store, memory ConversationMemory, maxIterations int) *Agent {
	if maxIterations <= 0 {
		maxIterations = 8
	}
	return &Agent{
		llm:           llm,
		registry:      registry,
		sessions:      sessions,
		memory:        memory,
		maxIterations: maxIterations,
	}
}

// Process handles one inbound message end to end. Every call, success or
// failure, persists exactly one conversation turn.
func (a *Agent) Process(ctx context.Context, userID, message string) Result {
	sess := a.sessions.GetOrCreate(userID)

	answer, toolUsed, status := a.respond(ctx, userID, sess, message)

	conversationID, err := a.memory.SaveTurn(ctx, userID, message, answer, toolUsed, map[string]any{"status": status})
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("persisting conversation turn failed")
	}

	sess.AddTurn(message, answer)
	if toolUsed != "" && IsEmailTool(toolUsed) {
		a.sessions.SetEmailContext(userID, message, answer, toolUsed)
	}

	return Result{
		Response:       answer,
		Status:         status,
		ToolUsed:       toolUsed,
		ConversationID: conversationID,
	}
}

// respond builds the model input and runs the reasoning loop. A panic
// anywhere in that phase becomes the generic error reply, so the caller
// still records the turn and answers in the normal shape.
func (a *Agent) respond(ctx context.Context, userID string, sess *session.Session, message string) (answer, toolUsed, status string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("user_id", userID).Interface("panic", r).Msg("message processing panicked")
			answer, status = ErrorResponse, "error"
		}
	}()

	input := message
	if emailCtx := a.sessions.RecentEmailContext(userID); emailCtx != nil && IsEmailFollowUp(message) {
		log.Debug().Str("user_id", userID).Msg("binding short reply to prior email exchange")
		input = BindFollowUp(message, emailCtx)
	}

	// Live-data requests skip semantic memory so stale remembered text
	// cannot bias what the tools read fresh.
	if !SkipsMemoryAugmentation(message) {
		if similar, err := a.memory.SearchSimilar(ctx, userID, message, similarTurnLimit); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("semantic search failed, continuing without context")
		} else if len(similar) > 0 {
			var b strings.Builder
			b.WriteString(input)
			b.WriteString("\n\nRelevant past context:\n")
			for _, turn := range similar {
				fmt.Fprintf(&b, "- %s\n", truncate(turn, 200))
			}
			input = b.String()
		}
	}

	return a.runLoop(ctx, userID, sess.History(), input)
}

// runLoop executes the bounded reason/act cycle and returns the answer, the
// last tool used, and a status flag.
func (a *Agent) runLoop(ctx context.Context, userID, history, input string) (answer, toolUsed, status string) {
	catalogue := a.registry.Catalogue()
	var scratchpad strings.Builder
	lastObservation := ""

	for i := 0; i < a.maxIterations; i++ {
		prompt := BuildPrompt(catalogue, history, input, scratchpad.String())

		reply, err := a.llm.Complete(ctx, prompt)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("model completion failed")
			if lastObservation != "" {
				return truncate(lastObservation, maxFallbackAnswerLen), toolUsed, "success"
			}
			return ErrorResponse, toolUsed, "error"
		}

		parsed, ok := ParseReply(reply)
		if !ok {
			log.Warn().Str("user_id", userID).Msg("malformed model reply, injecting corrective observation")
			fmt.Fprintf(&scratchpad, " %s\nObservation: %s\nThought:", firstLine(reply), correctiveObservation)
			continue
		}

		if parsed.Final {
			return parsed.FinalAnswer, toolUsed, "success"
		}

		var observation string
		if tool, terr := a.registry.Get(parsed.Action); terr != nil {
			observation = a.unknownToolObservation(parsed.Action)
		} else {
			observation = a.dispatch(ctx, userID, tool, parsed.ActionInput)
			toolUsed = parsed.Action
			if tool.ReturnDirect() {
				return observation, toolUsed, "success"
			}
		}

		lastObservation = observation
		fmt.Fprintf(&scratchpad, " I should use a tool.\nAction: %s\nAction Input: %s\nObservation: %s\nThought:",
			parsed.Action, parsed.ActionInput, observation)
	}

	// Cap exhausted: the last observation is a better reply than an error.
	if lastObservation != "" {
		return truncate(lastObservation, maxFallbackAnswerLen), toolUsed, "success"
	}
	return ErrorResponse, toolUsed, "error"
}

// unknownToolObservation tells the model a tool name did not resolve,
// suggesting the closest registered name when the miss looks like a typo.
func (a *Agent) unknownToolObservation(name string) string {
	names := a.registry.Names()
	if suggestion, ok := fuzzy.Closest(name, names, 3); ok {
		return fmt.Sprintf("There is no tool named %q. Did you mean %q? Available tools: %s.",
			name, suggestion, strings.Join(names, ", "))
	}
	return fmt.Sprintf("There is no tool named %q. Available tools: %s.",
		name, strings.Join(names, ", "))
}

// dispatch invokes a tool, converting failures and panics into observation
// text so the loop always continues.
func (a *Agent) dispatch(ctx context.Context, userID string, tool tools.Tool, input string) (observation string) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("user_id", userID).Str("tool", tool.Name()).Interface("panic", r).
				Msg("tool panicked")
			observation = fmt.Sprintf("The %s tool failed unexpectedly. Tell the user you could not complete that action.", tool.Name())
		}
	}()

	result, err := tool.Execute(ctx, userID, input)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("tool", tool.Name()).Msg("tool execution failed")
		return fmt.Sprintf("The %s tool returned an error: %v", tool.Name(), err)
	}
	return result
}

// truncate caps s at n bytes, cutting on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func firstLine(s string) string {
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		return strings.TrimSpace(s[:nl])
	}
	return strings.TrimSpace(s)
}
