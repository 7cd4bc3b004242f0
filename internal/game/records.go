// Package game describes the Monster Hunter: World process: the signature
// table, typed hook points over its functions and accessors for the objects
// those functions receive.
package game

import (
	"bytes"
	_ "embed"
	"sync"

	"github.com/eigeen/mhw-toolkit/internal/address"
)

// Record names in the embedded table.
const (
	RecGameBuildRevision = "core.GetGameBuildRevision"
	RecMonsterCtor       = "monster.Ctor"
	RecMonsterDtor       = "monster.Dtor"
	RecMonsterSetTarget  = "monster.SetTarget"
	RecWeaponATK         = "inline.WeaponATK"
	RecPlayerHit         = "player.Hit"
	RecChatMessageSent   = "chat.MessageSent"
	RecQuestAccept       = "quest.Accept"
	RecQuestEnter        = "quest.Enter"
	RecQuestReturn       = "quest.Return"
	RecQuestLeave        = "quest.Leave"
	RecQuestAbandon      = "quest.Abandon"
	RecQuestCancel       = "quest.Cancel"
	RecQuestEnd          = "quest.End"
	RecQuestDepartOn     = "quest.DepartOn"
	RecQuestGetQuestname = "quest.GetQuestname"

	// RecSetAction has no signature in the embedded table; supply it from a
	// records file to enable the DoAction hook.
	RecSetAction = "action.SetAction"
)

//go:embed records.yaml
var recordsYAML []byte

var records = sync.OnceValue(func() *address.Table {
	t, err := address.LoadTable(bytes.NewReader(recordsYAML))
	if err != nil {
		panic("game: embedded records: " + err.Error())
	}
	return t
})

// Records returns the embedded record table. The table and its records are
// shared, so every caller resolves the same cache keys.
func Records() *address.Table { return records() }
