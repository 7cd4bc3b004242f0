package game

import (
	"github.com/eigeen/mhw-toolkit/internal/memory"
)

// QuestBase is the static pointer to the quest manager in build 15.23.00.
const QuestBase = 0x14500ED30

// minObject is the lowest address treated as a live object.
const minObject = 0x10000

// Monster field offsets
const (
	offMonsterAIData  = 0x12278
	offMonsterType    = 0x12280
	offMonsterVariant = 0x12288
	offMonsterHealth  = 0x7670
	offMonsterSpeed   = 0x1D8A8
)

// Monster is a monster entity.
type Monster struct {
	v memory.View
}

// MonsterAt returns the monster at addr.
func MonsterAt(m memory.Memory, addr uint64) Monster {
	return Monster{v: memory.At(m, addr)}
}

// Addr returns the instance address.
func (m Monster) Addr() uint64 { return m.v.Base }

func (m Monster) Type() (MonsterType, error) {
	return memory.Read[MonsterType](m.v.Field(offMonsterType))
}

func (m Monster) Variant() (uint32, error) {
	return memory.Read[uint32](m.v.Field(offMonsterVariant))
}

func (m Monster) AIData() (uint64, error) {
	return memory.Read[uint64](m.v.Field(offMonsterAIData))
}

// Health returns the health component the monster points to.
func (m Monster) Health() Health {
	return Health{v: m.v.Field(offMonsterHealth).Deref(0)}
}

func (m Monster) Speed() (float32, error) {
	return memory.Read[float32](m.v.Field(offMonsterSpeed))
}

func (m Monster) SetSpeed(speed float32) error {
	return memory.Write(m.v.Field(offMonsterSpeed), speed)
}

// Health is a health component.
type Health struct {
	v memory.View
}

// HealthAt returns the health component at addr.
func HealthAt(m memory.Memory, addr uint64) Health {
	return Health{v: memory.At(m, addr)}
}

func (h Health) Max() (float32, error) { return memory.Read[float32](h.v.Field(0x60)) }
func (h Health) Current() (float32, error) { return memory.Read[float32](h.v.Field(0x64)) }
func (h Health) SetMax(v float32) error { return memory.Write(h.v.Field(0x60), v) }
func (h Health) SetCurrent(v float32) error { return memory.Write(h.v.Field(0x64), v) }

// Quest field offsets
const (
	offQuestState     = 0x38
	offQuestTimer     = 0x13198 + 0x08
	offQuestTimerMax  = 0x13198 + 0x0C
	offQuestEnsurance = 0x17384
)

// Quest is the quest manager.
type Quest struct {
	v memory.View
}

// CurrentQuest loads the quest manager from its static pointer. It reports
// false while the game has not created it.
func CurrentQuest(m memory.Memory) (Quest, bool) {
	ptr, err := memory.ReadU64(m, QuestBase)
	if err != nil || ptr < minObject {
		return Quest{}, false
	}
	return Quest{v: memory.At(m, ptr)}, true
}

// QuestAt returns the quest manager at addr.
func QuestAt(m memory.Memory, addr uint64) Quest {
	return Quest{v: memory.At(m, addr)}
}

func (q Quest) State() (int32, error) { return memory.Read[int32](q.v.Field(offQuestState)) }
func (q Quest) SetState(s int32) error { return memory.Write(q.v.Field(offQuestState), s) }
func (q Quest) Timer() (float32, error) { return memory.Read[float32](q.v.Field(offQuestTimer)) }
func (q Quest) SetTimer(t float32) error { return memory.Write(q.v.Field(offQuestTimer), t) }
func (q Quest) TimerMax() (float32, error) { return memory.Read[float32](q.v.Field(offQuestTimerMax)) }
func (q Quest) Ensurance() (int8, error) { return memory.Read[int8](q.v.Field(offQuestEnsurance)) }
func (q Quest) SetEnsurance(s int8) error { return memory.Write(q.v.Field(offQuestEnsurance), s) }

// ActionInfo identifies an action: the action set and the id inside it.
type ActionInfo struct {
	Set int32
	ID  int32
}

func readActionInfo(v memory.View) (ActionInfo, error) {
	set, err := memory.Read[int32](v)
	if err != nil {
		return ActionInfo{}, err
	}
	id, err := memory.Read[int32](v.Field(4))
	if err != nil {
		return ActionInfo{}, err
	}
	return ActionInfo{Set: set, ID: id}, nil
}

func writeActionInfo(v memory.View, a ActionInfo) error {
	if err := memory.Write(v, a.Set); err != nil {
		return err
	}
	return memory.Write(v.Field(4), a.ID)
}

// ActionRef is an ActionInfo living in target memory.
type ActionRef struct {
	v memory.View
}

func (r ActionRef) Get() (ActionInfo, error) { return readActionInfo(r.v) }
func (r ActionRef) Set(a ActionInfo) error { return writeActionInfo(r.v, a) }

// ActionController drives the action state machine of an entity.
type ActionController struct {
	v memory.View
}

// ActionControllerAt returns the controller at addr.
func ActionControllerAt(m memory.Memory, addr uint64) ActionController {
	return ActionController{v: memory.At(m, addr)}
}

func (c ActionController) Addr() uint64 { return c.v.Base }

func (c ActionController) Current() (ActionInfo, error) { return readActionInfo(c.v.Field(0xAC)) }
func (c ActionController) Next() (ActionInfo, error) { return readActionInfo(c.v.Field(0xBC)) }
func (c ActionController) Previous() (ActionInfo, error) { return readActionInfo(c.v.Field(0xC4)) }

// ForceDerive overwrites the next action.
func (c ActionController) ForceDerive(a ActionInfo) error {
	return writeActionInfo(c.v.Field(0xBC), a)
}

// Owner returns the entity holding the controller.
func (c ActionController) Owner() (uint64, error) {
	return memory.Read[uint64](c.v.Field(0x100))
}
