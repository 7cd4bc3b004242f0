package game

import (
	"github.com/eigeen/mhw-toolkit/internal/address"
	"github.com/eigeen/mhw-toolkit/internal/hook"
	"github.com/eigeen/mhw-toolkit/internal/log"
	"github.com/eigeen/mhw-toolkit/internal/memory"
)

// HitAddress is the entry of the hit handler in build 15.23.00. It is not
// covered by a signature.
const HitAddress = 0x141F50480

// offChatInput is the offset of the input buffer in the chat object.
const offChatInput = 0x1008

// maxChatInput bounds the chat input read.
const maxChatInput = 256

// ActionArgs are the arguments of the action dispatcher.
type ActionArgs struct {
	Controller ActionController
	Info       ActionRef
}

// HitArgs are the raw arguments of the hit handler.
type HitArgs struct {
	Target uint64
	Source uint64
}

// ChatArgs carry the message being sent.
type ChatArgs struct {
	Chat    uint64
	Message string
}

// MonsterCtorArgs are the arguments of the monster constructor.
type MonsterCtorArgs struct {
	Monster Monster
	Type    MonsterType
	Variant int32
}

// Hooks holds one hook point per instrumented game function. Each point
// installs its inline hook on first use.
type Hooks struct {
	DoAction    *hook.Point[ActionArgs]
	Hit         *hook.Point[HitArgs]
	Chat        *hook.Point[ChatArgs]
	MonsterCtor *hook.Point[MonsterCtorArgs]
	MonsterDtor *hook.Point[Monster]
}

// NewHooks builds the hook points. Records missing from t leave their point
// unusable: subscribing returns an error.
func NewHooks(t *address.Table, cache *address.Cache, engine hook.Engine, l *log.Logger) *Hooks {
	target := func(name string, skippable, postCall bool) hook.Target {
		rec, _ := t.Get(name)
		return hook.Target{Name: name, Record: rec, Skippable: skippable, PostCall: postCall}
	}
	registry := func(tg hook.Target) *hook.Registry {
		return hook.NewRegistry(tg, cache, engine, l)
	}

	return &Hooks{
		DoAction: hook.NewPoint(registry(target(RecSetAction, true, false)), func(c *hook.Call) ActionArgs {
			return ActionArgs{
				Controller: ActionControllerAt(c.Mem, c.Arg(0)),
				Info:       ActionRef{v: memory.At(c.Mem, c.Arg(1))},
			}
		}),
		Hit: hook.NewPoint(registry(hook.Target{Name: RecPlayerHit, Address: HitAddress, Skippable: true}), func(c *hook.Call) HitArgs {
			return HitArgs{Target: c.Arg(0), Source: c.Arg(1)}
		}),
		Chat: hook.NewPoint(registry(target(RecChatMessageSent, false, false)), func(c *hook.Call) ChatArgs {
			msg, _ := memory.ReadCString(c.Mem, c.Arg(0)+offChatInput, maxChatInput)
			return ChatArgs{Chat: c.Arg(0), Message: msg}
		}),
		MonsterCtor: hook.NewPoint(registry(target(RecMonsterCtor, false, true)), func(c *hook.Call) MonsterCtorArgs {
			return MonsterCtorArgs{
				Monster: MonsterAt(c.Mem, c.Arg(0)),
				Type:    MonsterType(uint32(c.Arg(1))),
				Variant: int32(uint32(c.Arg(2))),
			}
		}),
		MonsterDtor: hook.NewPoint(registry(target(RecMonsterDtor, false, true)), func(c *hook.Call) Monster {
			return MonsterAt(c.Mem, c.Arg(0))
		}),
	}
}
