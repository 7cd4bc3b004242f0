package game

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/eigeen/mhw-toolkit/internal/memory"
)

func putF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

func TestMonsterResource(t *testing.T) {
	const base = 0x10000000
	data := make([]byte, 0x20000)
	binary.LittleEndian.PutUint32(data[offMonsterType:], uint32(Zinogre))
	binary.LittleEndian.PutUint32(data[offMonsterVariant:], 3)
	binary.LittleEndian.PutUint64(data[offMonsterAIData:], 0xDEADBEEF)
	putF32(data, offMonsterSpeed, 1.5)

	// Health component lives inside the same buffer.
	const health = 0x100
	binary.LittleEndian.PutUint64(data[offMonsterHealth:], base+health)
	putF32(data, health+0x60, 5000)
	putF32(data, health+0x64, 4200)

	buf := memory.NewBuffer(base, data)
	m := MonsterAt(buf, base)

	if typ, err := m.Type(); err != nil || typ != Zinogre || typ.String() != "Zinogre" {
		t.Errorf("Type = %v, %v", typ, err)
	}
	if v, _ := m.Variant(); v != 3 {
		t.Errorf("Variant = %d", v)
	}
	if ai, _ := m.AIData(); ai != 0xDEADBEEF {
		t.Errorf("AIData = 0x%x", ai)
	}

	if err := m.SetSpeed(2.0); err != nil {
		t.Fatalf("SetSpeed: %v", err)
	}
	if s, _ := m.Speed(); s != 2.0 {
		t.Errorf("Speed = %v", s)
	}

	h := m.Health()
	if mx, _ := h.Max(); mx != 5000 {
		t.Errorf("Max = %v", mx)
	}
	if err := h.SetCurrent(1); err != nil {
		t.Fatalf("SetCurrent: %v", err)
	}
	if cur, _ := HealthAt(buf, base+health).Current(); cur != 1 {
		t.Errorf("Current = %v", cur)
	}
}

func TestMonsterHealthNull(t *testing.T) {
	buf := memory.NewBuffer(0x1000, make([]byte, 0x20000))
	_, err := MonsterAt(buf, 0x1000).Health().Current()
	if !errors.Is(err, memory.ErrNullPointer) {
		t.Errorf("err = %v, want ErrNullPointer", err)
	}
}

func TestCurrentQuest(t *testing.T) {
	data := make([]byte, 0x20000)
	buf := memory.NewBuffer(QuestBase, data)

	if _, ok := CurrentQuest(buf); ok {
		t.Fatal("quest found behind a null pointer")
	}

	const quest = QuestBase + 0x100
	binary.LittleEndian.PutUint64(data, quest)
	binary.LittleEndian.PutUint32(data[0x100+offQuestState:], 2)
	putF32(data, 0x100+offQuestTimerMax, 3000)

	q, ok := CurrentQuest(buf)
	if !ok {
		t.Fatal("quest not found")
	}
	if s, _ := q.State(); s != 2 {
		t.Errorf("State = %d", s)
	}
	if m, _ := q.TimerMax(); m != 3000 {
		t.Errorf("TimerMax = %v", m)
	}
	q.SetTimer(12.5)
	if v, _ := QuestAt(buf, quest).Timer(); v != 12.5 {
		t.Errorf("Timer = %v", v)
	}
	q.SetEnsurance(1)
	if e, _ := q.Ensurance(); e != 1 {
		t.Errorf("Ensurance = %d", e)
	}
	q.SetState(5)
	if s, _ := q.State(); s != 5 {
		t.Errorf("State after set = %d", s)
	}

	// Small values are not object pointers.
	binary.LittleEndian.PutUint64(data, 0x200)
	if _, ok := CurrentQuest(buf); ok {
		t.Error("accepted a tiny pointer")
	}
}

func TestActionController(t *testing.T) {
	const base = 0x2000
	data := make([]byte, 0x200)
	binary.LittleEndian.PutUint32(data[0xAC:], 1)
	binary.LittleEndian.PutUint32(data[0xB0:], 10)
	binary.LittleEndian.PutUint32(data[0xC4:], 2)
	binary.LittleEndian.PutUint32(data[0xC8:], 20)
	binary.LittleEndian.PutUint64(data[0x100:], 0xABCDEF)
	c := ActionControllerAt(memory.NewBuffer(base, data), base)

	if a, _ := c.Current(); a != (ActionInfo{Set: 1, ID: 10}) {
		t.Errorf("Current = %+v", a)
	}
	if a, _ := c.Previous(); a != (ActionInfo{Set: 2, ID: 20}) {
		t.Errorf("Previous = %+v", a)
	}
	if err := c.ForceDerive(ActionInfo{Set: 3, ID: 30}); err != nil {
		t.Fatalf("ForceDerive: %v", err)
	}
	if a, _ := c.Next(); a != (ActionInfo{Set: 3, ID: 30}) {
		t.Errorf("Next = %+v", a)
	}
	if o, _ := c.Owner(); o != 0xABCDEF {
		t.Errorf("Owner = 0x%x", o)
	}
}

func TestMonsterTypeString(t *testing.T) {
	tests := []struct {
		typ  MonsterType
		want string
	}{
		{Anjanath, "Anjanath"},
		{SafiJiiva, "SafiJiiva"},
		{Fatalis, "Fatalis"},
		{MonsterType(0x1000), "MonsterType(0x1000)"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String(%d) = %q, want %q", uint32(tt.typ), got, tt.want)
		}
	}
	if Fatalis != 0x65 || SafiJiiva != 0x61 {
		t.Errorf("ids shifted: Fatalis=0x%x SafiJiiva=0x%x", uint32(Fatalis), uint32(SafiJiiva))
	}
}
