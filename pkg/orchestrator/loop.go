package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Arash-Rostami/AI-Agent-sub000/internal/metrics"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/keyring"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/permission"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/tools"
)

const (
	// DefaultMaxHops caps tool-call rounds per turn so a looping model
	// cannot recurse forever.
	DefaultMaxHops = 5

	// DefaultRunTimeout budgets a full multi-hop turn.
	DefaultRunTimeout = 60 * time.Second

	// DefaultSingleShotTimeout budgets a no-tools completion.
	DefaultSingleShotTimeout = 30 * time.Second
)

// DefaultRefusalText is returned when the model asks for a tool the
// caller's mode does not permit.
const DefaultRefusalText = "I'm sorry, but I'm not able to help with that request here."

// continuationInstruction steers the model after a tool round. It rides on
// the system instruction so the visible history stays clean.
const continuationInstruction = "Tool execution complete. Analyze the result and answer the user."

// SystemPrompts holds the instruction variants selected by mode.
type SystemPrompts struct {
	Default    string
	Restricted string
	BMS        string
}

// ForMode picks the variant for mode.
func (s SystemPrompts) ForMode(mode permission.Mode) string {
	switch {
	case mode.BMS:
		return s.BMS
	case mode.Restricted:
		return s.Restricted
	default:
		return s.Default
	}
}

// Config wires an Orchestrator.
type Config struct {
	Provider    string
	Model       string
	MaxTokens   int
	Temperature float64

	Gate     *permission.Gate
	Registry *tools.Registry
	Invoker  *tools.Invoker
	Rotator  *keyring.Rotator
	Factory  ProviderFactory

	Prompts         SystemPrompts
	RefusalText     string
	LeakedKeyMarker string

	MaxHops           int
	RunTimeout        time.Duration
	SingleShotTimeout time.Duration
}

// RunParams is one conversation turn. History already ends with the user's
// current message.
type RunParams struct {
	Identity    string
	History     []chat.Message
	Attachments []Attachment
	Mode        permission.Mode
}

// Result is the outcome of a turn. ToolTrace carries the tool
// request/response pairs executed along the way so the caller can persist
// them into the session history.
type Result struct {
	Text      string
	Sources   []tools.Source
	ToolTrace []chat.Message
}

// Orchestrator runs completion turns.
type Orchestrator struct {
	cfg Config
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Provider == "" || cfg.Model == "" {
		return nil, fmt.Errorf("provider and model are required")
	}
	if cfg.Gate == nil || cfg.Registry == nil || cfg.Invoker == nil {
		return nil, fmt.Errorf("gate, registry, and invoker are required")
	}
	if cfg.Rotator == nil || cfg.Factory == nil {
		return nil, fmt.Errorf("rotator and factory are required")
	}
	if cfg.MaxHops <= 0 {
		cfg.MaxHops = DefaultMaxHops
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRunTimeout
	}
	if cfg.SingleShotTimeout <= 0 {
		cfg.SingleShotTimeout = DefaultSingleShotTimeout
	}
	if cfg.RefusalText == "" {
		cfg.RefusalText = DefaultRefusalText
	}
	return &Orchestrator{cfg: cfg}, nil
}

// Run executes one full turn: provider calls, tool rounds, and the
// escalation retry, under the run timeout.
func (o *Orchestrator) Run(ctx context.Context, params RunParams) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.RunTimeout)
	defer cancel()

	start := time.Now()
	result, err := o.run(ctx, params)
	metrics.RecordCompletion(o.cfg.Provider, time.Since(start), err == nil)
	return result, err
}

// Single executes a no-tools completion under the single-shot timeout.
// Used for greetings and other canned generations.
func (o *Orchestrator) Single(ctx context.Context, identity string, history []chat.Message, mode permission.Mode) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.SingleShotTimeout)
	defer cancel()

	call := newCallState(o, identity)
	resp, err := call.complete(ctx, Request{
		Model:       o.cfg.Model,
		System:      o.cfg.Prompts.ForMode(mode),
		Messages:    history,
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

func (o *Orchestrator) run(ctx context.Context, params RunParams) (*Result, error) {
	allowed := o.cfg.Gate.AllowedTools(params.Mode)
	specs := SpecsFor(o.cfg.Registry, allowed)
	system := o.cfg.Prompts.ForMode(params.Mode)

	working := chat.CloneHistory(params.History)
	attachments := params.Attachments
	call := newCallState(o, params.Identity)

	var sources []tools.Source
	var trace []chat.Message

	for hop := 0; hop < o.cfg.MaxHops; hop++ {
		requestSystem := system
		if hop > 0 {
			requestSystem = system + "\n\n" + continuationInstruction
		}

		resp, err := call.complete(ctx, Request{
			Model:       o.cfg.Model,
			System:      requestSystem,
			Messages:    working,
			Tools:       specs,
			Attachments: attachments,
			MaxTokens:   o.cfg.MaxTokens,
			Temperature: o.cfg.Temperature,
		})
		if err != nil {
			return nil, err
		}

		if resp.FunctionCall == nil {
			return &Result{Text: resp.Text, Sources: sources, ToolTrace: trace}, nil
		}

		name := resp.FunctionCall.Name
		if !o.cfg.Gate.IsToolAllowed(name, params.Mode) {
			metrics.RecordPermissionDenial(name)
			log.Warn().
				Str("tool", name).
				Str("identity", params.Identity).
				Msg("Tool request refused by permission gate")
			return &Result{Text: o.cfg.RefusalText, Sources: sources, ToolTrace: trace}, nil
		}

		args := tools.NormalizeArgs(resp.FunctionCall.Args)
		payload := o.executeTool(ctx, name, args)
		if carrier, ok := payload["__sources"].([]tools.Source); ok {
			sources = append(sources, carrier...)
			delete(payload, "__sources")
		}

		request := chat.NewToolRequest(name, args)
		response := chat.NewToolResponse(name, payload)
		working = append(working, request, response)
		trace = append(trace, request, response)

		// Attachments belong to the original user turn only.
		attachments = nil
	}

	return nil, fmt.Errorf("%w after %d hops", ErrHopLimit, o.cfg.MaxHops)
}

// executeTool runs the tool and shapes its result into a payload object.
// Tool failures become {"error": ...} fed back to the model rather than
// aborting the turn.
func (o *Orchestrator) executeTool(ctx context.Context, name string, args map[string]interface{}) map[string]interface{} {
	result, err := o.cfg.Invoker.Invoke(ctx, name, args)
	if err != nil {
		return map[string]interface{}{"error": err.Error()}
	}

	payload := map[string]interface{}{}
	switch v := result.(type) {
	case map[string]interface{}:
		payload = v
	default:
		payload["result"] = v
	}

	if carrier, ok := result.(tools.SourceCarrier); ok {
		if list := carrier.SourceList(); len(list) > 0 {
			payload["__sources"] = list
		}
	}
	return payload
}

// callState tracks per-turn credential usage so escalation happens at most
// once regardless of hop count.
type callState struct {
	o         *Orchestrator
	identity  string
	escalated bool
}

func newCallState(o *Orchestrator, identity string) *callState {
	return &callState{o: o, identity: identity}
}

// complete makes one provider call, escalating to the privileged credential
// and retrying the same request once on a quota or leaked-key failure.
func (c *callState) complete(ctx context.Context, req Request) (*Response, error) {
	cred, err := c.o.cfg.Rotator.Acquire(ctx, c.identity)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire credential: %w", err)
	}

	resp, err := c.callWith(ctx, cred, req)
	if err == nil {
		return resp, nil
	}

	if c.escalated || cred.Privileged || !shouldEscalate(err, c.o.cfg.LeakedKeyMarker) {
		return nil, err
	}

	c.escalated = true
	metrics.RecordKeyEscalation()
	log.Warn().
		Str("identity", c.identity).
		Err(err).
		Msg("Provider rejected credential, escalating and retrying once")

	if err := c.o.cfg.Rotator.Escalate(ctx, c.identity); err != nil {
		return nil, fmt.Errorf("failed to escalate credential: %w", err)
	}

	return c.callWith(ctx, c.o.cfg.Rotator.Privileged(), req)
}

func (c *callState) callWith(ctx context.Context, cred keyring.Credential, req Request) (*Response, error) {
	provider, err := c.o.cfg.Factory.NewProvider(ctx, c.o.cfg.Provider, cred.Key)
	if err != nil {
		return nil, err
	}
	return provider.Complete(ctx, req)
}
