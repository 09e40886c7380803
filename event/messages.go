package event

import "time"

// CleanupScope selects which resources a CleanupRequested targets,
// grounded on original_source/VIXEN's GraphMessages.h CleanupScope enum
// (spec.md's Non-goals don't exclude this; it resolves an otherwise
// implicit detail of the four Graph.Cleanup* façade methods).
type CleanupScope uint8

const (
	// ScopeSpecific targets a single named node.
	ScopeSpecific CleanupScope = iota
	// ScopeByTag targets every node carrying a given tag.
	ScopeByTag
	// ScopeByType targets every node of a given type name.
	ScopeByType
	// ScopeFull targets the entire graph.
	ScopeFull
)

func (s CleanupScope) String() string {
	switch s {
	case ScopeSpecific:
		return "specific"
	case ScopeByTag:
		return "by_tag"
	case ScopeByType:
		return "by_type"
	case ScopeFull:
		return "full"
	default:
		return "unknown"
	}
}

// CleanupRequested asks the cleanup stack to run, scoped by Scope/Target
// (spec.md §4.7 "CleanupRequested(scope)").
type CleanupRequested struct {
	baseMessage
	Scope  CleanupScope
	Target string // node name, tag, or type name depending on Scope; unused for ScopeFull
}

// NewCleanupRequested constructs a CleanupRequested from sender.
func NewCleanupRequested(sender SenderID, scope CleanupScope, target string) CleanupRequested {
	return CleanupRequested{baseMessage: baseMessage{category: GraphManagement, sender: sender}, Scope: scope, Target: target}
}

// CleanupCompleted reports how many cleanup actions ran, added alongside
// spec.md §4.7's named messages per the VIXEN supplement (callers need to
// know cleanup actually finished and how much it touched).
type CleanupCompleted struct {
	baseMessage
	ActionsRun int
}

func NewCleanupCompleted(sender SenderID, actionsRun int) CleanupCompleted {
	return CleanupCompleted{baseMessage: baseMessage{category: GraphManagement, sender: sender}, ActionsRun: actionsRun}
}

// RecompileRequested marks a node (or the whole graph, if NodeName is
// empty) as needing recompilation.
type RecompileRequested struct {
	baseMessage
	NodeName string
}

func NewRecompileRequested(sender SenderID, nodeName string) RecompileRequested {
	return RecompileRequested{baseMessage: baseMessage{category: GraphManagement, sender: sender}, NodeName: nodeName}
}

// RecompileCompleted reports a finished recompilation pass, the VIXEN
// supplement's RecompileCompletedMessage.
type RecompileCompleted struct {
	baseMessage
	NodeName string
}

func NewRecompileCompleted(sender SenderID, nodeName string) RecompileCompleted {
	return RecompileCompleted{baseMessage: baseMessage{category: GraphManagement, sender: sender}, NodeName: nodeName}
}

// WindowResized notifies subscribers (typically resolution-dependent
// resource nodes) of a new target size.
type WindowResized struct {
	baseMessage
	Width, Height int
}

func NewWindowResized(sender SenderID, width, height int) WindowResized {
	return WindowResized{baseMessage: baseMessage{category: ResourceInvalidation, sender: sender}, Width: width, Height: height}
}

// ShaderReloaded notifies subscribers that a shader at Path was hot
// reloaded and dependent pipelines should be invalidated.
type ShaderReloaded struct {
	baseMessage
	Path string
}

func NewShaderReloaded(sender SenderID, path string) ShaderReloaded {
	return ShaderReloaded{baseMessage: baseMessage{category: ShaderEvents, sender: sender}, Path: path}
}

// BudgetOverrun is published by the capacity tracker when smoothed frame
// duration exceeds the configured budget outside its deadband (spec.md
// §4.7/§4.8).
type BudgetOverrun struct {
	baseMessage
	AverageNs   int64
	Utilization float64
}

func NewBudgetOverrun(sender SenderID, averageNs int64, utilization float64) BudgetOverrun {
	return BudgetOverrun{baseMessage: baseMessage{category: BudgetEvents, sender: sender}, AverageNs: averageNs, Utilization: utilization}
}

// BudgetAvailable is published when smoothed frame duration falls below
// the configured budget outside its deadband, signaling spare headroom.
type BudgetAvailable struct {
	baseMessage
	AverageNs   int64
	Utilization float64
}

func NewBudgetAvailable(sender SenderID, averageNs int64, utilization float64) BudgetAvailable {
	return BudgetAvailable{baseMessage: baseMessage{category: BudgetEvents, sender: sender}, AverageNs: averageNs, Utilization: utilization}
}

// FrameStart marks the beginning of a RenderFrame call.
type FrameStart struct {
	baseMessage
	FrameNumber uint64
}

func NewFrameStart(sender SenderID, frameNumber uint64) FrameStart {
	return FrameStart{baseMessage: baseMessage{category: FrameEvents, sender: sender}, FrameNumber: frameNumber}
}

// FrameEnd marks the completion of a RenderFrame call, carrying its
// measured wall-clock duration for the capacity tracker to observe.
type FrameEnd struct {
	baseMessage
	FrameNumber uint64
	Duration    time.Duration
}

func NewFrameEnd(sender SenderID, frameNumber uint64, duration time.Duration) FrameEnd {
	return FrameEnd{baseMessage: baseMessage{category: FrameEvents, sender: sender}, FrameNumber: frameNumber, Duration: duration}
}
