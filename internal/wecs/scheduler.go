package wecs

// Phase is one of the six fixed simulation phases (§4.D).
type Phase int

const (
	PhaseInput Phase = iota
	PhaseUpdate
	PhasePrePhysics
	PhasePhysics
	PhasePostPhysics
	PhaseRender
)

var phaseOrder = []Phase{PhaseInput, PhaseUpdate, PhasePrePhysics, PhasePhysics, PhasePostPhysics, PhaseRender}

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseUpdate:
		return "update"
	case PhasePrePhysics:
		return "prePhysics"
	case PhasePhysics:
		return "physics"
	case PhasePostPhysics:
		return "postPhysics"
	case PhaseRender:
		return "render"
	default:
		return "unknown"
	}
}

// SystemFunc is a single scheduler step. It must be synchronous and
// side-effect-free outside the world; a system that needs to suspend is a
// contract violation the scheduler does not support (§4.D, §5).
type SystemFunc func(w *World)

// System is one registered unit of work within a phase.
type System struct {
	Phase      Phase
	Order      int
	ClientOnly bool
	Name       string
	Fn         SystemFunc

	registrationIndex int
}

// Scheduler runs registered systems in fixed phase order, and within a
// phase by (Order, registration index).
type Scheduler struct {
	byPhase map[Phase][]*System
	nextReg int
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{byPhase: make(map[Phase][]*System)}
}

// Register adds a system to its declared phase, inserted in stable sorted
// position by (Order, registration index).
func (s *Scheduler) Register(sys System) {
	sys.registrationIndex = s.nextReg
	s.nextReg++
	list := s.byPhase[sys.Phase]
	copyPtr := sys
	list = append(list, &copyPtr)
	// Stable insertion sort by (Order, registrationIndex); registries are
	// small (dozens of systems), so this is simpler than keeping a heap.
	for i := len(list) - 1; i > 0; i-- {
		a, b := list[i-1], list[i]
		if a.Order < b.Order || (a.Order == b.Order && a.registrationIndex < b.registrationIndex) {
			break
		}
		list[i-1], list[i] = list[i], list[i-1]
	}
	s.byPhase[sys.Phase] = list
}

// RunPhase executes every system registered for phase, in order, skipping
// client-only systems when skipClientOnly is true (rollback/resimulation
// or a headless peer, §4.D). Destruction deferred during the phase is
// flushed once the phase completes.
func (s *Scheduler) RunPhase(w *World, phase Phase, skipClientOnly bool) {
	for _, sys := range s.byPhase[phase] {
		if skipClientOnly && sys.ClientOnly {
			continue
		}
		sys.Fn(w)
	}
	w.FlushDestroyed()
}

// RunTick executes every phase except render, in fixed order (§4.L tick
// loop step 3). skipClientOnly disables client_only systems, which is
// exactly what resimulation needs to guarantee identical output to the
// original pass (§4.I).
func (s *Scheduler) RunTick(w *World, skipClientOnly bool) {
	for _, phase := range phaseOrder {
		if phase == PhaseRender {
			continue
		}
		s.RunPhase(w, phase, skipClientOnly)
	}
	w.Frame++
}

// RunRender executes the render phase. Render never writes simulation
// state (§4.L step 7); callers are trusted to respect that contract since
// the scheduler cannot enforce it structurally.
func (s *Scheduler) RunRender(w *World) {
	s.RunPhase(w, PhaseRender, false)
}

// Phases returns the fixed phase order, for callers that need to iterate
// it (e.g. diagnostics).
func Phases() []Phase {
	out := make([]Phase, len(phaseOrder))
	copy(out, phaseOrder)
	return out
}
