package connect

import (
	"sort"

	"github.com/vixengraph/rendergraph/slot"
)

// Modifier runs in three phases around a Rule: PreValidation (before
// Rule.Validate), PreResolve (before Rule.Resolve), PostResolve (after a
// successful Resolve). Any phase may return Abort to stop the whole
// pipeline, or Skip to ignore this modifier (not the whole pipeline) for
// this connection (spec.md §4.4).
type Modifier interface {
	Name() string
	PreValidation(ctx *Context) Result
	PreResolve(ctx *Context) Result
	PostResolve(ctx *Context) Result
	Priority() uint32
}

// BaseModifier gives no-op defaults for phases a modifier doesn't need,
// mirroring node.BaseBehavior.
type BaseModifier struct{}

func (BaseModifier) PreValidation(*Context) Result { return OK }
func (BaseModifier) PreResolve(*Context) Result     { return OK }
func (BaseModifier) PostResolve(*Context) Result    { return OK }

// Pipeline runs the full connect sequence: modifiers' PreValidation, rule
// Validate, modifiers' PreResolve, rule Resolve, modifiers' PostResolve
// (spec.md §4.4 "Connection pipeline"). Modifiers run in ascending
// priority order (default 50, ties by insertion order), matching the
// teacher's sorted-registry conventions elsewhere in the codebase.
type Pipeline struct {
	Rules     *RuleSet
	modifiers []Modifier
}

// NewPipeline creates a Pipeline with the given RuleSet and no modifiers.
func NewPipeline(rules *RuleSet) *Pipeline {
	return &Pipeline{Rules: rules}
}

// Use registers a modifier, keeping the modifier list sorted by ascending
// priority (ties broken by insertion order).
func (p *Pipeline) Use(m Modifier) {
	p.modifiers = append(p.modifiers, m)
	sort.SliceStable(p.modifiers, func(i, j int) bool { return p.modifiers[i].Priority() < p.modifiers[j].Priority() })
}

// Run executes the full pipeline for one Connect call, given the already
// resolved src/tgt slot.Info (the caller looks these up from the nodes'
// Type). It returns the matched rule's name on success, or an error
// describing why the connection was rejected.
func (p *Pipeline) Run(ctx *Context, srcSlot, tgtSlot slot.Info) (string, error) {
	rule, err := p.Rules.Match(srcSlot, tgtSlot)
	if err != nil {
		return "", err
	}
	ctx.MatchedRuleName = rule.Name()

	for _, m := range p.modifiers {
		switch m.PreValidation(ctx) {
		case Abort:
			return "", abortErr(ctx, m.Name())
		case Skip:
			continue
		}
	}

	if res := rule.Validate(ctx); res == Abort {
		return "", abortErr(ctx, rule.Name())
	}

	for _, m := range p.modifiers {
		switch m.PreResolve(ctx) {
		case Abort:
			return "", abortErr(ctx, m.Name())
		case Skip:
			continue
		}
	}

	if res := rule.Resolve(ctx); res == Abort {
		return "", abortErr(ctx, rule.Name())
	}

	for _, m := range p.modifiers {
		switch m.PostResolve(ctx) {
		case Abort:
			return "", abortErr(ctx, m.Name())
		case Skip:
			continue
		}
	}

	return rule.Name(), nil
}

func abortErr(ctx *Context, source string) error {
	if ctx.AbortErr != nil {
		return ctx.AbortErr
	}
	return &AbortedError{Source: source}
}

// AbortedError is returned when a phase aborts without setting a more
// specific ctx.AbortErr.
type AbortedError struct{ Source string }

func (e *AbortedError) Error() string { return "connect: aborted by " + e.Source }
