package ranged

// StageChange is emitted on every draw-stage transition
type StageChange struct {
	Combatant CombatantID
	From, To  DrawStage
}

// ShotResult carries the final values of a released shot, for scoring and UI
type ShotResult struct {
	Combatant CombatantID
	Arrow     ArrowID
	Power     float64
	Accuracy  float64
	Speed     float64
	Loft      float64
	Deviation float64
}

// PromptKind classifies user-visible, non-fatal prompts
type PromptKind int

const (
	PromptOutOfAmmo PromptKind = iota
)

// Prompt is a user-visible message for a local combatant
type Prompt struct {
	Combatant CombatantID
	Kind      PromptKind
	Text      string
}

// ArrowEventKind classifies actor lifecycle notifications
type ArrowEventKind int

const (
	ArrowSpawned ArrowEventKind = iota
	ArrowLaunched
	ArrowSettled
	ArrowDespawned
	ArrowDuplicateSpawn
	ArrowLaunchDropped
)

func (k ArrowEventKind) String() string {
	switch k {
	case ArrowSpawned:
		return "arrow_spawned"
	case ArrowLaunched:
		return "arrow_launched"
	case ArrowSettled:
		return "arrow_settled"
	case ArrowDespawned:
		return "arrow_despawned"
	case ArrowDuplicateSpawn:
		return "spawn_duplicate"
	case ArrowLaunchDropped:
		return "launch_dropped"
	}
	return "unknown"
}

// ArrowEvent describes an actor lifecycle step on this peer
type ArrowEvent struct {
	Kind  ArrowEventKind
	Arrow ArrowID
	Order *LaunchOrder // set for ArrowLaunched
}

// Observers fans notifications out to subscribers. Subscribers run
// synchronously, in registration order, inside the tick that caused them.
type Observers struct {
	stage  []func(StageChange)
	shot   []func(ShotResult)
	prompt []func(Prompt)
	arrow  []func(ArrowEvent)
}

func (o *Observers) OnStageChange(fn func(StageChange)) { o.stage = append(o.stage, fn) }
func (o *Observers) OnShotResult(fn func(ShotResult))   { o.shot = append(o.shot, fn) }
func (o *Observers) OnPrompt(fn func(Prompt))           { o.prompt = append(o.prompt, fn) }
func (o *Observers) OnArrow(fn func(ArrowEvent))        { o.arrow = append(o.arrow, fn) }

func (o *Observers) emitStage(e StageChange) {
	if o == nil {
		return
	}
	for _, fn := range o.stage {
		fn(e)
	}
}

func (o *Observers) emitShot(e ShotResult) {
	if o == nil {
		return
	}
	for _, fn := range o.shot {
		fn(e)
	}
}

func (o *Observers) emitPrompt(e Prompt) {
	if o == nil {
		return
	}
	for _, fn := range o.prompt {
		fn(e)
	}
}

func (o *Observers) emitArrow(e ArrowEvent) {
	if o == nil {
		return
	}
	for _, fn := range o.arrow {
		fn(e)
	}
}
