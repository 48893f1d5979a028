// Package completion builds the bounded prompt for a request and maps every
// provider failure to a user-facing answer string. The chat path never
// surfaces a completion error as a request failure.
package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/springfield-isd/grants-assistant/internal/assemble"
	"github.com/springfield-isd/grants-assistant/internal/model"
	"github.com/springfield-isd/grants-assistant/pkg/anthropic"
)

// Defaults for prompt bounding.
const (
	DefaultMaxHistoryTurns = 10
	DefaultMaxTokens       = 800
	DefaultTemperature     = 0.5
	DefaultModel           = "claude-haiku-4-5-20251001"
)

// systemPrompt establishes the answering rules: context-only answers,
// fetched page content preferred over the static record, explicit "not
// available" statements, and narrowly scoped grant-writing advice.
const systemPrompt = `You are a helpful AI assistant for Springfield Independent School District, specializing in grant information. Your primary goal is to answer questions about specific grants based *only* on the provided context: the 'JSON Grant Data Context' (external grant opportunities) and the 'Fetched Webpage Content Status' (live details of a specific external grant). You also have access to 'Internal School District Financial Context'.

RULES FOR ANSWERING ABOUT SPECIFIC EXTERNAL GRANTS:
* Base answers *strictly* on the provided JSON grant data and fetched web content.
* If 'Fetched Webpage Content Status' contains actual content, prioritize it for specific details about one grant.
* If 'Fetched Webpage Content Status' indicates an error or no content, inform the user you couldn't retrieve live details and rely *only* on the JSON grant data and history.
* If the information needed is not present in the provided context or history, clearly state that.
* Do not make up information or use external knowledge for external grant-specific questions.
* Refer to specific grants by title or ID when possible. Provide the grant link if relevant.

USING INTERNAL SCHOOL DISTRICT FINANCIAL CONTEXT:
* If the user's question relates to the school district's own finances, budget, needs, or how a potential grant aligns with these, use the 'Internal School District Financial Context' to inform your answer.
* When discussing applying for a grant, you can use the internal financial context to explain why the district needs the grant or how it fits into existing priorities and budget.

EXCEPTION - GENERAL GRANT WRITING HELP:
* If the user explicitly asks for general help or tips on *writing* a grant, you MAY provide general advice. This advice should be clearly marked as general. Do NOT offer to write the grant *for* the user.
* Keep grant writing advice concise (understanding requirements, clear objectives, budget planning, proofreading).

Always be concise and helpful. If context is missing for any part of a question, state that clearly.`

// User-facing failure messages.
const (
	msgNotConfigured = "Sorry, the chatbot is not configured correctly (completion client issue)."
	msgRateLimited   = "Sorry, the chatbot is currently experiencing high traffic (Rate Limit Exceeded). Please try again later."
	msgTooLong       = "Sorry, the conversation history or the provided grant data is too long for the AI model to process. Please try starting a new topic or asking a more specific question."
	msgBadHistory    = "Sorry, there was an internal error processing the conversation history."
)

// Requester sends assembled context to the completion service.
type Requester struct {
	Client          anthropic.Client
	Model           string
	MaxTokens       int64
	Temperature     float64
	MaxHistoryTurns int
}

// New creates a Requester with the default sampling bounds. A nil client is
// allowed and reported to users as a configuration problem at request time.
func New(client anthropic.Client) *Requester {
	return &Requester{
		Client:          client,
		Model:           DefaultModel,
		MaxTokens:       DefaultMaxTokens,
		Temperature:     DefaultTemperature,
		MaxHistoryTurns: DefaultMaxHistoryTurns,
	}
}

// Respond builds the prompt from history plus assembled context and returns
// the model's answer. history must already end with the current user turn.
// Every failure mode returns a user-facing answer string; the error return
// is the underlying cause for logging only and never reaches the caller's
// response.
func (r *Requester) Respond(ctx context.Context, history model.History, asm assemble.Context) (string, error) {
	if r.Client == nil {
		return msgNotConfigured, nil
	}
	if len(history) == 0 || history[len(history)-1].Role != model.RoleUser {
		zap.L().Error("completion: last history entry is not a user turn")
		return msgBadHistory, nil
	}

	msgs := r.buildMessages(history, asm)

	temp := r.Temperature
	resp, err := r.Client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       r.Model,
		MaxTokens:   r.MaxTokens,
		System:      systemPrompt,
		Messages:    msgs,
		Temperature: &temp,
	})
	if err != nil {
		return failureMessage(err), err
	}

	resp.Usage.LogUsage(resp.Model)
	return strings.TrimSpace(resp.Text), nil
}

// buildMessages truncates history to the last 2*MaxHistoryTurns-1 entries
// before the current turn, preserving order, then appends the current user
// turn with its labeled context blocks inlined.
func (r *Requester) buildMessages(history model.History, asm assemble.Context) []anthropic.Message {
	prior := history[:len(history)-1]
	limit := 2*r.MaxHistoryTurns - 1
	if len(prior) > limit {
		prior = prior[len(prior)-limit:]
	}

	msgs := make([]anthropic.Message, 0, len(prior)+1)
	for _, t := range prior {
		msgs = append(msgs, anthropic.Message{Role: t.Role, Content: t.Content})
	}

	msgs = append(msgs, anthropic.Message{
		Role:    model.RoleUser,
		Content: userContent(history[len(history)-1].Content, asm),
	})
	return msgs
}

// userContent augments the question with fenced context blocks: selected
// grants as JSON, the fetched-content status, and the financial document.
func userContent(question string, asm assemble.Context) string {
	parts := []string{"User Question:\n" + question}

	if len(asm.Grants) > 0 {
		grantsJSON, err := json.MarshalIndent(asm.Grants, "", "  ")
		if err != nil {
			zap.L().Warn("completion: marshal grant context", zap.Error(err))
		} else {
			parts = append(parts, fmt.Sprintf("\n\nJSON Grant Data Context (External Opportunities):\n```json\n%s\n```", grantsJSON))
		}
	}

	if asm.Fetched != nil {
		parts = append(parts, fmt.Sprintf("\n\nFetched Webpage Content Status (External Opportunity Detail):\n```\n%s\n```", asm.Fetched.Status()))
	}

	if len(asm.Financial) > 0 {
		parts = append(parts, fmt.Sprintf("\n\nInternal School District Financial Context:\n```json\n%s\n```", string(asm.Financial)))
	}

	return strings.Join(parts, "")
}

// failureMessage maps a completion error to the apologetic answer shown to
// the user.
func failureMessage(err error) string {
	kind, detail := anthropic.Classify(err)
	switch kind {
	case anthropic.FailureAuth:
		zap.L().Error("completion: authentication failure", zap.Error(err))
		return fmt.Sprintf("Sorry, there's an issue with the chatbot configuration (Authentication Error: %s). Please check the API key.", detail)
	case anthropic.FailureRateLimit:
		zap.L().Warn("completion: rate limited", zap.Error(err))
		return msgRateLimited
	case anthropic.FailureContextTooLong:
		zap.L().Warn("completion: context too long", zap.Error(err))
		return msgTooLong
	case anthropic.FailureProvider:
		zap.L().Error("completion: provider error", zap.Error(err))
		return fmt.Sprintf("Sorry, I encountered an error trying to reach the AI model (%s).", kind)
	default:
		zap.L().Error("completion: unexpected error", zap.Error(err))
		return fmt.Sprintf("Sorry, I encountered an unexpected error (%s) while processing your request.", kind)
	}
}
