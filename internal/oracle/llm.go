// Package oracle provides decision makers for automated werewolf players:
// an OpenAI-compatible chat completion client, a rule-based picker and a
// fallback that chains them.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"werewolf-bot/internal/game/werewolf"
)

// LLMConfig configures an OpenAI-compatible chat completions API. Endpoint
// is the API base URL, e.g. https://api.openai.com/v1; a full
// /chat/completions URL is accepted too.
type LLMConfig struct {
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// DefaultModel is used when LLMConfig.Model is empty.
const DefaultModel = "gpt-4o-mini"

// ErrNotConfigured is returned when the LLM has no endpoint.
var ErrNotConfigured = errors.New("oracle: llm endpoint not configured")

// LLM asks a chat model to play an automated participant.
type LLM struct {
	cfg    LLMConfig
	client *openai.Client
}

// NewLLM creates an LLM oracle.
func NewLLM(cfg LLMConfig) *LLM {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	l := &LLM{cfg: cfg}
	if cfg.Endpoint != "" {
		oc := openai.DefaultConfig(cfg.APIKey)
		oc.BaseURL = strings.TrimSuffix(strings.TrimRight(cfg.Endpoint, "/"), "/chat/completions")
		oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		l.client = openai.NewClientWithConfig(oc)
	}
	return l
}

// decision is the JSON object the model is asked to answer with.
type decision struct {
	Action string `json:"action"`
	Target int    `json:"target"`
	Text   string `json:"text"`
}

// ProposeAction implements werewolf.Oracle. Retries are left to the caller.
func (l *LLM) ProposeAction(ctx context.Context, req werewolf.OracleRequest) (werewolf.Proposal, error) {
	if l.client == nil {
		return werewolf.Proposal{}, ErrNotConfigured
	}
	raw, err := l.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
	})
	if err != nil {
		return werewolf.Proposal{}, err
	}

	p, err := parseDecision(raw, req)
	if err != nil {
		log.Warn().Err(err).Str("game_id", req.GameID).Int("slot", req.Actor.Slot).
			Str("raw", truncate(raw, 200)).Msg("oracle: unusable llm answer")
		return werewolf.Proposal{}, err
	}
	log.Debug().Str("game_id", req.GameID).Int("slot", req.Actor.Slot).
		Str("action", string(p.Kind)).Int("target", p.Target).Msg("oracle: llm decided")
	return p, nil
}

func (l *LLM) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := l.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       l.cfg.Model,
		Messages:    messages,
		Temperature: float32(l.cfg.Temperature),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		var apiErr *openai.APIError
		var reqErr *openai.RequestError
		switch {
		case errors.As(err, &apiErr):
			return "", fmt.Errorf("%w: llm status %d: %s", werewolf.ErrOracleFailure, apiErr.HTTPStatusCode, apiErr.Message)
		case errors.As(err, &reqErr):
			return "", fmt.Errorf("%w: llm status %d: %v", werewolf.ErrOracleFailure, reqErr.HTTPStatusCode, reqErr.Err)
		}
		return "", fmt.Errorf("%w: %v", werewolf.ErrOracleFailure, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: llm returned no choices", werewolf.ErrOracleFailure)
	}
	return resp.Choices[0].Message.Content, nil
}

var numberPattern = regexp.MustCompile(`\d+`)

// parseDecision turns the model's answer into a proposal the request
// accepts. Models often wrap JSON in a code fence or answer with a bare
// number; both are tolerated.
func parseDecision(raw string, req werewolf.OracleRequest) (werewolf.Proposal, error) {
	var d decision
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &d); err != nil {
		if len(req.Kinds) == 1 && req.Kinds[0] == werewolf.ActionSpeak {
			d = decision{Action: string(werewolf.ActionSpeak), Text: raw}
		} else if m := numberPattern.FindString(raw); m != "" && len(req.Kinds) > 0 {
			n, _ := strconv.Atoi(m)
			d = decision{Action: string(req.Kinds[0]), Target: n}
		} else {
			return werewolf.Proposal{}, fmt.Errorf("%w: %v", werewolf.ErrOracleFailure, err)
		}
	}

	p := werewolf.Proposal{
		Kind:   werewolf.ActionKind(strings.ToLower(strings.TrimSpace(d.Action))),
		Target: d.Target,
		Text:   strings.TrimSpace(d.Text),
	}
	if !req.Allows(p.Kind) {
		return werewolf.Proposal{}, fmt.Errorf("%w: action %q not offered", werewolf.ErrOracleFailure, p.Kind)
	}

	switch p.Kind {
	case werewolf.ActionSpeak:
		if p.Text == "" {
			return werewolf.Proposal{}, fmt.Errorf("%w: empty speech", werewolf.ErrOracleFailure)
		}
		p.Target = 0
	case werewolf.ActionPass, werewolf.ActionAbstain:
		p.Target = 0
	case werewolf.ActionSave:
		p.Target = req.PendingKill
	default:
		if !contains(req.Candidates, p.Target) {
			return werewolf.Proposal{}, fmt.Errorf("%w: target %d not a candidate", werewolf.ErrOracleFailure, p.Target)
		}
	}
	return p, nil
}

func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}
	return s
}

func contains(slots []int, slot int) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
