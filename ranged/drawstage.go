package ranged

import "math"

// DrawStage is the lifecycle position of one attack
type DrawStage uint8

const (
	StageIdle DrawStage = iota
	StageDrawing
	// StageAiming is reserved for an accuracy fine-tuning phase. No
	// transition currently enters it.
	StageAiming
	StageExecuting
	StageShotComplete
)

func (s DrawStage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageDrawing:
		return "drawing"
	case StageAiming:
		return "aiming"
	case StageExecuting:
		return "executing"
	case StageShotComplete:
		return "shot_complete"
	}
	return "unknown"
}

// ShotMode selects the default loft when no target is locked
type ShotMode uint8

const (
	ShotStandard ShotMode = iota
	ShotLong
	ShotMax
)

// CombatMode selects the power tier table
type CombatMode uint8

const (
	ModeFreeRoam CombatMode = iota
	ModeDuel
)

const unset = -1

// Dispatcher carries an attack session's shots onto the network. The
// Replicator is the production implementation.
type Dispatcher interface {
	PrepareNextShot(s *AttackSession) bool
	RequestLaunchArrow(s *AttackSession, o LaunchOrder)
	StageChanged(s *AttackSession)
}

// SessionConfig describes one combatant
type SessionConfig struct {
	ID       CombatantID
	Name     string
	Team     int
	Color    Color
	Position Vec3
	Mode     CombatMode
	// Ammo is the starting arrow count; negative means untracked
	Ammo         int
	InfiniteAmmo bool
	// LastTicket resumes the ticket sequence of a rejoining combatant
	LastTicket uint32
}

// AttackSession is the per-combatant ranged attack state. Only the
// combatant's authority drives it; other peers hold a mirror that follows
// replicated stage updates.
type AttackSession struct {
	ID       CombatantID
	Name     string
	Team     int
	Color    Color
	Position Vec3
	Mode     CombatMode
	ShotMode ShotMode

	InfiniteAmmo bool

	stage          DrawStage
	timer          float64
	lockedPower    float64
	lockedAccuracy float64
	shotTicket     uint32
	cooldown       float64
	ammo           int

	quick          bool
	quickRemaining float64
	flat           bool
	piercing       bool

	armed ArrowID
	arrow *ProjectileActor
	seq   uint32

	authority bool

	tuning   Tuning
	solver   Solver
	targets  TargetProvider
	stats    StatsProvider
	wind     WindProvider
	dispatch Dispatcher
	obs      *Observers
}

// NewAttackSession creates a standalone, locally driven session. Use
// Replicator.AddCombatant to get one wired to the network.
func NewAttackSession(cfg SessionConfig, t Tuning) *AttackSession {
	return &AttackSession{
		ID:             cfg.ID,
		Name:           cfg.Name,
		Team:           cfg.Team,
		Color:          cfg.Color,
		Position:       cfg.Position,
		Mode:           cfg.Mode,
		InfiniteAmmo:   cfg.InfiniteAmmo,
		lockedPower:    unset,
		lockedAccuracy: unset,
		shotTicket:     cfg.LastTicket,
		ammo:           cfg.Ammo,
		authority:      true,
		tuning:         t,
		solver:         NewSolver(t),
		stats:          FixedStrength(10),
	}
}

// SetProviders injects the aim, stats and wind collaborators
func (s *AttackSession) SetProviders(targets TargetProvider, stats StatsProvider, wind WindProvider) {
	if targets != nil {
		s.targets = targets
	}
	if stats != nil {
		s.stats = stats
	}
	if wind != nil {
		s.wind = wind
	}
}

// SetObservers attaches an event fan-out
func (s *AttackSession) SetObservers(o *Observers) { s.obs = o }

func (s *AttackSession) Stage() DrawStage        { return s.stage }
func (s *AttackSession) Timer() float64          { return s.timer }
func (s *AttackSession) LockedPower() float64    { return s.lockedPower }
func (s *AttackSession) LockedAccuracy() float64 { return s.lockedAccuracy }
func (s *AttackSession) ShotTicket() uint32      { return s.shotTicket }
func (s *AttackSession) Cooldown() float64       { return s.cooldown }
func (s *AttackSession) Ammo() int               { return s.ammo }
func (s *AttackSession) Armed() ArrowID          { return s.armed }
func (s *AttackSession) Arrow() *ProjectileActor { return s.arrow }
func (s *AttackSession) IsAuthority() bool       { return s.authority }
func (s *AttackSession) Seq() uint32             { return s.seq }

// CurrentTarget returns the locked target position, if any
func (s *AttackSession) CurrentTarget() (Vec3, bool) {
	if s.targets == nil {
		return Vec3{}, false
	}
	return s.targets.LockedTarget()
}

// ForceFlat makes the next shot leave at 0° loft (ability-forced shots)
func (s *AttackSession) ForceFlat() { s.flat = true }

// SetPiercing marks the next shots as piercing
func (s *AttackSession) SetPiercing(p bool) { s.piercing = p }

// Restock adds arrows to a tracked quiver and re-arms an idle, unarmed session
func (s *AttackSession) Restock(n int) {
	if s.ammo < 0 || n <= 0 {
		return
	}
	s.ammo += n
	if s.stage == StageIdle && s.armed.IsZero() {
		s.PrepareNextShot()
	}
}

// spendArrow takes one arrow from a tracked, finite quiver
func (s *AttackSession) spendArrow() {
	if s.ammo > 0 && !s.InfiniteAmmo {
		s.ammo--
	}
}

func (s *AttackSession) outOfAmmo() bool {
	return !s.InfiniteAmmo && s.ammo == 0
}

// PrepareNextShot arms a fresh arrow. With no ammunition left it shows a
// prompt and arms nothing.
func (s *AttackSession) PrepareNextShot() bool {
	if !s.authority {
		return false
	}
	if s.outOfAmmo() {
		s.obs.emitPrompt(Prompt{Combatant: s.ID, Kind: PromptOutOfAmmo, Text: "Out of arrows"})
		return false
	}
	if s.dispatch != nil {
		return s.dispatch.PrepareNextShot(s)
	}
	s.nextTicket()
	return true
}

// nextTicket advances the ticket and records the arrow it names as armed
func (s *AttackSession) nextTicket() ArrowID {
	s.shotTicket++
	s.armed = ArrowID{Owner: s.ID, Ticket: s.shotTicket}
	s.arrow = nil
	return s.armed
}

// StartCharge begins a draw. It is refused during cooldown, outside Idle,
// and with nothing armed.
func (s *AttackSession) StartCharge() bool {
	if !s.authority || s.stage != StageIdle || s.cooldown > 0 {
		return false
	}
	if s.armed.IsZero() {
		if s.outOfAmmo() {
			s.obs.emitPrompt(Prompt{Combatant: s.ID, Kind: PromptOutOfAmmo, Text: "Out of arrows"})
			return false
		}
		if !s.PrepareNextShot() {
			return false
		}
	}
	s.lockedPower = unset
	s.lockedAccuracy = unset
	s.quick = false
	s.setStage(StageDrawing)
	return true
}

// ExecuteAttack releases a draw held for holdTime seconds. Outside
// Drawing it does nothing, which absorbs late or repeated input.
func (s *AttackSession) ExecuteAttack(holdTime float64) bool {
	if !s.authority || s.stage != StageDrawing {
		return false
	}
	power := s.tuning.TierPower(s.Mode, holdTime)
	accuracy := s.tuning.DefaultAccuracy
	if _, ok := s.CurrentTarget(); ok {
		accuracy = 100
	}
	s.execute(power, accuracy)
	return true
}

// QuickFire snap-shoots with preset values after a short forced draw.
// From Idle it starts the draw itself.
func (s *AttackSession) QuickFire(holdTime float64) bool {
	if !s.authority {
		return false
	}
	if s.stage == StageIdle && !s.StartCharge() {
		return false
	}
	if s.stage != StageDrawing {
		return false
	}
	s.quick = true
	s.quickRemaining = s.tuning.QuickDrawTime - math.Max(holdTime, s.timer)
	if s.quickRemaining <= 0 {
		s.fireQuick()
	}
	return true
}

func (s *AttackSession) fireQuick() {
	s.quick = false
	accuracy := s.tuning.QuickAccuracy
	if _, ok := s.CurrentTarget(); ok {
		accuracy = 100
	}
	s.execute(s.tuning.QuickPower, accuracy)
}

// CancelDraw abandons a draw without firing. Outside Drawing it does nothing.
func (s *AttackSession) CancelDraw() {
	if !s.authority || s.stage != StageDrawing {
		return
	}
	s.lockedPower = unset
	s.lockedAccuracy = unset
	s.quick = false
	s.setStage(StageIdle)
}

func (s *AttackSession) execute(power, accuracy float64) {
	s.lockedPower = power
	s.lockedAccuracy = accuracy
	s.setStage(StageExecuting)
	s.resolveShot()
}

// completeShot closes the shot cycle: ShotComplete, cooldown, re-arm, Idle
func (s *AttackSession) completeShot() {
	s.setStage(StageShotComplete)
	s.cooldown = s.tuning.Cooldown
	s.armed = ArrowID{}
	s.arrow = nil
	s.flat = false
	s.PrepareNextShot()
	s.setStage(StageIdle)
}

// Update advances timers by dt seconds
func (s *AttackSession) Update(dt float64) {
	s.timer += dt
	if s.cooldown > 0 {
		s.cooldown = math.Max(s.cooldown-dt, 0)
	}
	if s.authority && s.quick && s.stage == StageDrawing {
		s.quickRemaining -= dt
		if s.quickRemaining <= 0 {
			s.fireQuick()
		}
	}
	s.poseArrow()
}

// poseArrow keeps an unfired arrow in the owner's hands
func (s *AttackSession) poseArrow() {
	a := s.arrow
	if a == nil || a.HasBeenShot {
		return
	}
	facing := Vec3{X: 1}
	if s.targets != nil {
		if t, ok := s.targets.LockedTarget(); ok {
			facing = t.Sub(s.Position).Flatten()
		} else if f := s.targets.CameraForward(); f.LenSq() > 0 {
			facing = f.Flatten()
		}
	}
	a.Hold(s.Position.Add(s.tuning.HoldOffset), facing)
	if a.Local {
		a.Visible = s.stage == StageIdle || s.stage == StageDrawing
	} else {
		a.Visible = s.stage == StageDrawing || s.stage == StageExecuting
	}
}

func (s *AttackSession) setStage(to DrawStage) {
	from := s.stage
	s.stage = to
	s.timer = 0
	s.seq++
	s.obs.emitStage(StageChange{Combatant: s.ID, From: from, To: to})
	if s.authority && s.dispatch != nil {
		s.dispatch.StageChanged(s)
	}
}

// StageUpdate is the replicated view of a session's stage
type StageUpdate struct {
	Combatant      CombatantID `msgpack:"c"`
	Seq            uint32      `msgpack:"q"`
	Stage          DrawStage   `msgpack:"s"`
	Timer          float64     `msgpack:"t"`
	Cooldown       float64     `msgpack:"cd"`
	LockedPower    float64     `msgpack:"p"`
	LockedAccuracy float64     `msgpack:"a"`
	Ticket         uint32      `msgpack:"k"`
	Ammo           int         `msgpack:"m"`
}

func (s *AttackSession) snapshot() StageUpdate {
	return StageUpdate{
		Combatant:      s.ID,
		Seq:            s.seq,
		Stage:          s.stage,
		Timer:          s.timer,
		Cooldown:       s.cooldown,
		LockedPower:    s.lockedPower,
		LockedAccuracy: s.lockedAccuracy,
		Ticket:         s.shotTicket,
		Ammo:           s.ammo,
	}
}

// applyRemote folds a replicated update into a mirror. Updates older than
// the last applied one are dropped; progress for the current stage only
// refreshes the timers.
func (s *AttackSession) applyRemote(u StageUpdate) bool {
	if s.authority || u.Seq < s.seq {
		return false
	}
	s.timer = u.Timer
	s.cooldown = u.Cooldown
	s.lockedPower = u.LockedPower
	s.lockedAccuracy = u.LockedAccuracy
	s.ammo = u.Ammo
	if u.Ticket > s.shotTicket {
		s.shotTicket = u.Ticket
	}
	if u.Seq == s.seq {
		return true
	}
	from := s.stage
	s.seq = u.Seq
	s.stage = u.Stage
	s.obs.emitStage(StageChange{Combatant: s.ID, From: from, To: u.Stage})
	return true
}
