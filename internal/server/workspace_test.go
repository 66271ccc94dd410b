package server

import (
	"encoding/json"
	"testing"

	"github.com/gravitas-games/craftgrid/internal/catalog"
	"github.com/gravitas-games/craftgrid/internal/config"
	"github.com/gravitas-games/craftgrid/internal/network"
	"github.com/gravitas-games/craftgrid/pkg/models"
	"github.com/gravitas-games/craftgrid/pkg/workbench"
)

func testFactory(t *testing.T, bus workbench.EventBus) StationFactory {
	t.Helper()
	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cat, err := catalog.Load("../../configs/catalog.yaml", cfg.Station.MaxPatternWidth, cfg.Station.MaxPatternHeight)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	factory, err := NewStationFactory(cfg, cat, bus)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	return factory
}

func newTestWorkspace(t *testing.T) *Workspace {
	t.Helper()
	player := &models.Player{ID: "7", Username: "tester", Activated: 1}
	st, err := testFactory(t, nil)(player)
	if err != nil {
		t.Fatalf("station: %v", err)
	}
	return NewWorkspace(player, st)
}

func send(t *testing.T, w *Workspace, msgType string, payload any) network.ServerMessage {
	t.Helper()
	msg := network.ClientMessage{Type: msgType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		msg.Payload = raw
	}
	return w.Handle(msg)
}

func mustState(t *testing.T, reply network.ServerMessage) network.StationSnapshot {
	t.Helper()
	if reply.Type != network.MsgTypeSnapshot {
		t.Fatalf("expected state reply, got %s: %+v", reply.Type, reply.Payload)
	}
	return reply.Payload.(network.StationSnapshot)
}

func findItem(t *testing.T, g network.GridSnapshot, id string) network.ItemSnapshot {
	t.Helper()
	for _, it := range g.Items {
		if it.Item == id {
			return it
		}
	}
	t.Fatalf("no %s in grid", id)
	return network.ItemSnapshot{}
}

func cell(grid string, x, y int) network.CellPayload {
	return network.CellPayload{Grid: grid, X: x, Y: y}
}

func TestWorkspaceStarterStock(t *testing.T) {
	w := newTestWorkspace(t)
	snap := w.Snapshot()
	if snap.Container != "board" || snap.Equipped {
		t.Fatalf("expected default board container, got %q equipped=%v", snap.Container, snap.Equipped)
	}
	if snap.Tray.Width != 3 || snap.Tray.Height != 3 {
		t.Fatalf("expected 3x3 tray, got %dx%d", snap.Tray.Width, snap.Tray.Height)
	}
	if got := findItem(t, snap.Inventory, "stone").Count; got != 3 {
		t.Fatalf("expected 3 stones, got %d", got)
	}
	if got := findItem(t, snap.Inventory, "herb").Count; got != 5 {
		t.Fatalf("expected 5 herbs, got %d", got)
	}
}

func TestWorkspaceCraftSpear(t *testing.T) {
	w := newTestWorkspace(t)
	snap := w.Snapshot()
	stone := findItem(t, snap.Inventory, "stone")
	stick := findItem(t, snap.Inventory, "stick")

	mustState(t, send(t, w, network.MsgTypePickUp, cell(workbench.InventoryGrid, stone.X, stone.Y)))
	snap = mustState(t, send(t, w, network.MsgTypeHover, cell(workbench.TrayGrid, 0, 0)))
	if snap.Drag == nil || snap.Drag.Item != "stone" || !snap.Drag.HoverValid || !snap.Drag.CrossGrid {
		t.Fatalf("unexpected drag snapshot %+v", snap.Drag)
	}
	mustState(t, send(t, w, network.MsgTypeDrop, cell(workbench.TrayGrid, 0, 0)))

	mustState(t, send(t, w, network.MsgTypePickUp, cell(workbench.InventoryGrid, stick.X, stick.Y)))
	snap = mustState(t, send(t, w, network.MsgTypeDrop, cell(workbench.TrayGrid, 0, 1)))
	if snap.Drag != nil {
		t.Fatalf("expected drag to end after drop")
	}
	if snap.Preview == nil || snap.Preview.Item != "spear" || snap.Preview.Fallback {
		t.Fatalf("expected spear preview, got %+v", snap.Preview)
	}

	snap = mustState(t, send(t, w, network.MsgTypeCraft, nil))
	if len(snap.Tray.Items) != 0 {
		t.Fatalf("expected tray cleared, got %d items", len(snap.Tray.Items))
	}
	if snap.Result == nil || snap.Result.Item != "spear" {
		t.Fatalf("expected pending spear, got %+v", snap.Result)
	}

	reply := send(t, w, network.MsgTypeCraft, nil)
	if reply.Type != network.MsgTypeRejected {
		t.Fatalf("expected second craft rejected, got %s", reply.Type)
	}

	snap = mustState(t, send(t, w, network.MsgTypeCollect, nil))
	if snap.Result != nil {
		t.Fatalf("expected result collected")
	}
	findItem(t, snap.Inventory, "spear")
}

func TestWorkspaceFallbackAndDiscard(t *testing.T) {
	w := newTestWorkspace(t)
	herb := findItem(t, w.Snapshot().Inventory, "herb")

	mustState(t, send(t, w, network.MsgTypePickUp, cell(workbench.InventoryGrid, herb.X, herb.Y)))
	snap := mustState(t, send(t, w, network.MsgTypeDropOne, cell(workbench.TrayGrid, 1, 1)))
	if snap.Drag == nil || snap.Drag.Count != 4 {
		t.Fatalf("expected 4 herbs still held, got %+v", snap.Drag)
	}
	if snap.Preview == nil || !snap.Preview.Fallback || snap.Preview.Item != "junk" {
		t.Fatalf("expected junk fallback preview, got %+v", snap.Preview)
	}
	mustState(t, send(t, w, network.MsgTypeCancel, nil))

	snap = mustState(t, send(t, w, network.MsgTypeCraft, nil))
	if snap.Result == nil || !snap.Result.Fallback {
		t.Fatalf("expected fallback result, got %+v", snap.Result)
	}
	snap = mustState(t, send(t, w, network.MsgTypeDiscard, nil))
	if snap.Result != nil {
		t.Fatalf("expected result discarded")
	}
	if got := findItem(t, snap.Inventory, "herb").Count; got != 4 {
		t.Fatalf("expected 4 herbs back in inventory, got %d", got)
	}
}

func TestWorkspaceEquipTool(t *testing.T) {
	w := newTestWorkspace(t)
	knife := findItem(t, w.Snapshot().Inventory, "knife")

	snap := mustState(t, send(t, w, network.MsgTypeEquipTool, network.EquipPayload{
		Grid: workbench.InventoryGrid, X: knife.X, Y: knife.Y,
	}))
	if snap.Tool != "knife" || snap.Drag != nil {
		t.Fatalf("expected knife equipped without a drag, got tool=%q drag=%+v", snap.Tool, snap.Drag)
	}
	for _, it := range snap.Inventory.Items {
		if it.Item == "knife" {
			t.Fatalf("knife should have left the inventory")
		}
	}

	// A non-tool is refused and put back.
	stone := findItem(t, snap.Inventory, "stone")
	reply := send(t, w, network.MsgTypeEquipTool, network.EquipPayload{
		Grid: workbench.InventoryGrid, X: stone.X, Y: stone.Y,
	})
	if reply.Type != network.MsgTypeRejected {
		t.Fatalf("expected rejected, got %s", reply.Type)
	}
	snap = w.Snapshot()
	if snap.Drag != nil || findItem(t, snap.Inventory, "stone") != stone {
		t.Fatalf("refused equip should leave the stone in place")
	}

	snap = mustState(t, send(t, w, network.MsgTypeUnequipTool, nil))
	if snap.Tool != "" {
		t.Fatalf("expected tool slot empty")
	}
	findItem(t, snap.Inventory, "knife")
}

func TestWorkspaceEquipContainerFromDrag(t *testing.T) {
	w := newTestWorkspace(t)
	bowl := findItem(t, w.Snapshot().Inventory, "bowl")

	mustState(t, send(t, w, network.MsgTypePickUp, cell(workbench.InventoryGrid, bowl.X, bowl.Y)))
	snap := mustState(t, send(t, w, network.MsgTypeEquipContainer, network.EquipPayload{FromDrag: true}))
	if snap.Container != "bowl" || !snap.Equipped {
		t.Fatalf("expected bowl equipped, got %q", snap.Container)
	}
	if snap.Tray.Width != 2 || snap.Tray.Height != 2 {
		t.Fatalf("expected 2x2 tray, got %dx%d", snap.Tray.Width, snap.Tray.Height)
	}

	snap = mustState(t, send(t, w, network.MsgTypeUnequipContainer, nil))
	if snap.Container != "board" || snap.Equipped {
		t.Fatalf("expected board restored, got %q", snap.Container)
	}
}

func TestWorkspaceRejections(t *testing.T) {
	w := newTestWorkspace(t)

	cases := []struct {
		name     string
		msgType  string
		payload  any
		wantType string
	}{
		{"drop without drag", network.MsgTypeDrop, cell(workbench.TrayGrid, 0, 0), network.MsgTypeRejected},
		{"pick up empty cell", network.MsgTypePickUp, cell(workbench.TrayGrid, 0, 0), network.MsgTypeRejected},
		{"unknown grid", network.MsgTypePickUp, cell("chest", 0, 0), network.MsgTypeRejected},
		{"rotate without drag", network.MsgTypeRotate, nil, network.MsgTypeRejected},
		{"cancel without drag", network.MsgTypeCancel, nil, network.MsgTypeRejected},
		{"craft empty tray", network.MsgTypeCraft, nil, network.MsgTypeRejected},
		{"collect nothing", network.MsgTypeCollect, nil, network.MsgTypeRejected},
		{"unequip empty slot", network.MsgTypeUnequipTool, nil, network.MsgTypeRejected},
		{"missing payload", network.MsgTypePickUp, nil, network.MsgTypeError},
		{"unknown type", "teleport", nil, network.MsgTypeError},
		{"ping", network.MsgTypePing, nil, network.MsgTypePong},
		{"state", network.MsgTypeState, nil, network.MsgTypeSnapshot},
	}
	for _, tc := range cases {
		reply := send(t, w, tc.msgType, tc.payload)
		if reply.Type != tc.wantType {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.wantType, reply.Type)
		}
	}
	if w.Player().Actions != int64(len(cases)) {
		t.Fatalf("expected %d actions recorded, got %d", len(cases), w.Player().Actions)
	}
}

func TestWorkspaceReleaseCancelsDrag(t *testing.T) {
	w := newTestWorkspace(t)
	stone := findItem(t, w.Snapshot().Inventory, "stone")

	mustState(t, send(t, w, network.MsgTypePickUp, cell(workbench.InventoryGrid, stone.X, stone.Y)))
	mustState(t, send(t, w, network.MsgTypeHover, cell(workbench.TrayGrid, 2, 2)))
	w.Release()

	snap := w.Snapshot()
	if snap.Drag != nil {
		t.Fatalf("expected no drag after release")
	}
	if got := findItem(t, snap.Inventory, "stone"); got != stone {
		t.Fatalf("expected stone back at origin, got %+v", got)
	}
}

func TestWorkspaceEventsFollowOwner(t *testing.T) {
	bus := workbench.NewSimpleEventBus()
	player := &models.Player{ID: "9", Username: "observer", Activated: 1}
	st, err := testFactory(t, bus)(player)
	if err != nil {
		t.Fatalf("station: %v", err)
	}
	w := NewWorkspace(player, st)

	var got []workbench.EventType
	bus.Subscribe(player.StationOwner(), func(e workbench.Event) {
		got = append(got, e.Type)
	})
	bus.Subscribe("player:other", func(e workbench.Event) {
		t.Fatalf("event leaked to another owner: %v", e.Type)
	})

	knife := findItem(t, w.Snapshot().Inventory, "knife")
	send(t, w, network.MsgTypeEquipTool, network.EquipPayload{Grid: workbench.InventoryGrid, X: knife.X, Y: knife.Y})

	found := false
	for _, e := range got {
		if e == workbench.EventToolChanged {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tool change event, got %v", got)
	}
}

func TestWorkspaceCancelAfterDropOneIntoOrigin(t *testing.T) {
	w := newTestWorkspace(t)
	herb := findItem(t, w.Snapshot().Inventory, "herb")
	at := cell(workbench.InventoryGrid, herb.X, herb.Y)

	mustState(t, send(t, w, network.MsgTypePickUp, at))
	if reply := send(t, w, network.MsgTypeDropOne, at); reply.Type != network.MsgTypeRejected {
		t.Fatalf("expected drop_one onto the held stack's cell to be rejected, got %s", reply.Type)
	}
	snap := mustState(t, send(t, w, network.MsgTypeCancel, nil))
	if snap.Drag != nil || findItem(t, snap.Inventory, "herb") != herb {
		t.Fatalf("expected herbs restored at (%d,%d)", herb.X, herb.Y)
	}
	if err := w.station.Inventory().Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestWorkspaceCollectWhileDragging(t *testing.T) {
	w := newTestWorkspace(t)
	herb := findItem(t, w.Snapshot().Inventory, "herb")

	mustState(t, send(t, w, network.MsgTypePickUp, cell(workbench.InventoryGrid, herb.X, herb.Y)))
	mustState(t, send(t, w, network.MsgTypeDropOne, cell(workbench.TrayGrid, 0, 0)))
	mustState(t, send(t, w, network.MsgTypeCraft, nil))
	snap := mustState(t, send(t, w, network.MsgTypeCollect, nil))
	junk := findItem(t, snap.Inventory, "junk")
	if junk.X == herb.X && junk.Y == herb.Y {
		t.Fatalf("collected output landed on the held stack's cell")
	}

	snap = mustState(t, send(t, w, network.MsgTypeCancel, nil))
	if got := findItem(t, snap.Inventory, "herb"); got.X != herb.X || got.Y != herb.Y || got.Count != 4 {
		t.Fatalf("expected 4 herbs back at (%d,%d), got %+v", herb.X, herb.Y, got)
	}
	if err := w.station.Inventory().Verify(); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestWorkspaceApplyRecoversStationPanic(t *testing.T) {
	w := &Workspace{player: &models.Player{ID: "3", Username: "broken"}}

	reply, err := w.Apply(network.ClientMessage{Type: network.MsgTypeCraft})
	if err == nil {
		t.Fatalf("expected an error from a station without state")
	}
	if reply.Type != network.MsgTypeError {
		t.Fatalf("expected error reply, got %s", reply.Type)
	}

	// Release swallows the failure as well.
	w.Release()
}
