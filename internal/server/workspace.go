package server

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/craftgrid/internal/catalog"
	"github.com/gravitas-games/craftgrid/internal/config"
	"github.com/gravitas-games/craftgrid/internal/network"
	"github.com/gravitas-games/craftgrid/pkg/grid"
	"github.com/gravitas-games/craftgrid/pkg/item"
	"github.com/gravitas-games/craftgrid/pkg/models"
	"github.com/gravitas-games/craftgrid/pkg/recipe"
	"github.com/gravitas-games/craftgrid/pkg/workbench"
)

// Workspace is one player's crafting station. Every command runs under mu,
// so the station never sees concurrent mutation.
type Workspace struct {
	mu      sync.Mutex
	player  *models.Player
	station *workbench.Station
}

// StationFactory builds the station for a new workspace.
type StationFactory func(player *models.Player) (*workbench.Station, error)

// NewStationFactory returns a factory building stations from the catalog,
// publishing on bus and stocked with the catalog's starter stacks.
func NewStationFactory(cfg *config.Config, cat *catalog.Catalog, bus workbench.EventBus) (StationFactory, error) {
	container := cat.DefaultContainer
	if cfg.Station.DefaultContainer != "" {
		def, ok := cat.Items.Lookup(item.ID(cfg.Station.DefaultContainer))
		if !ok {
			return nil, fmt.Errorf("default container %q not in catalog", cfg.Station.DefaultContainer)
		}
		container = def
	}
	if cfg.Station.FallbackRecipe != "" {
		if err := cat.Recipes.SetFallback(recipe.ID(cfg.Station.FallbackRecipe)); err != nil {
			return nil, err
		}
	}

	return func(player *models.Player) (*workbench.Station, error) {
		st, err := workbench.New(workbench.Config{
			Owner:            player.StationOwner(),
			InventoryWidth:   cfg.Station.InventoryWidth,
			InventoryHeight:  cfg.Station.InventoryHeight,
			TrayWidth:        cfg.Station.TrayWidth,
			TrayHeight:       cfg.Station.TrayHeight,
			DefaultContainer: container,
			Library:          cat.Recipes,
			ConsumePattern:   cfg.Station.ConsumePattern,
			Bus:              bus,
		})
		if err != nil {
			return nil, err
		}
		for _, s := range cat.Starter {
			if left := st.Inventory().Stow(s.Item, s.Count); left > 0 {
				log.Printf("Starter %s: %d units did not fit for player %s", s.Item.ID, left, player.ID)
			}
		}
		return st, nil
	}, nil
}

// NewWorkspace wraps a station for player.
func NewWorkspace(player *models.Player, st *workbench.Station) *Workspace {
	return &Workspace{player: player, station: st}
}

// Player returns the workspace owner.
func (w *Workspace) Player() *models.Player { return w.player }

// Snapshot returns the current station state.
func (w *Workspace) Snapshot() network.StationSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return snapshot(w.station)
}

// Release cancels any drag in progress, returning the held item.
func (w *Workspace) Release() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Workspace %s: release failed: %v", w.player.ID, r)
		}
	}()
	w.mu.Lock()
	defer w.mu.Unlock()
	w.station.Drag().Cancel()
}

// Apply runs Handle and turns a panic from a broken station invariant into an
// error, so the caller can drop this one connection.
func (w *Workspace) Apply(msg network.ClientMessage) (reply network.ServerMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: %v", msg.Type, r)
			reply = errorMessage("internal_error", "station error")
		}
	}()
	return w.Handle(msg), nil
}

// Handle applies one client command and returns the reply: the new state on
// success, rejected when a core operation refused, or an error for malformed
// or unknown messages.
func (w *Workspace) Handle(msg network.ClientMessage) network.ServerMessage {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.player.Touch(time.Now())
	st := w.station
	d := st.Drag()

	switch msg.Type {
	case network.MsgTypePing:
		return network.ServerMessage{
			Type:    network.MsgTypePong,
			Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
		}

	case network.MsgTypeState:
		// answered with the snapshot below

	case network.MsgTypePickUp, network.MsgTypeDrop, network.MsgTypeDropOne:
		var p network.CellPayload
		if err := decode(msg.Payload, &p); err != nil {
			return errorMessage("invalid_payload", err.Error())
		}
		g, err := st.Grid(p.Grid)
		if err != nil {
			return rejected(msg.Type, err.Error())
		}
		var ok bool
		switch msg.Type {
		case network.MsgTypePickUp:
			ok = d.PickUp(g, p.X, p.Y)
		case network.MsgTypeDrop:
			ok = d.Commit(g, p.X, p.Y)
		default:
			ok = d.DropOne(g, p.X, p.Y) != nil
		}
		if !ok {
			return rejected(msg.Type, refusal(msg.Type, d.Active()))
		}

	case network.MsgTypeHover:
		var p network.CellPayload
		if err := decode(msg.Payload, &p); err != nil {
			return errorMessage("invalid_payload", err.Error())
		}
		if p.Grid == "" {
			d.ClearHover()
			break
		}
		g, err := st.Grid(p.Grid)
		if err != nil {
			return rejected(msg.Type, err.Error())
		}
		if !d.Active() {
			return rejected(msg.Type, workbench.ErrNotDragging.Error())
		}
		d.Hover(g, p.X, p.Y)

	case network.MsgTypeRotate:
		if !d.Rotate() {
			return rejected(msg.Type, refusal(msg.Type, d.Active()))
		}

	case network.MsgTypeCancel:
		if !d.Active() {
			return rejected(msg.Type, workbench.ErrNotDragging.Error())
		}
		d.Cancel()

	case network.MsgTypeCraft:
		if _, err := st.Craft(); err != nil {
			return rejected(msg.Type, err.Error())
		}

	case network.MsgTypeCollect:
		if _, err := st.CollectResult(); err != nil {
			return rejected(msg.Type, err.Error())
		}

	case network.MsgTypeDiscard:
		if err := st.DiscardResult(); err != nil {
			return rejected(msg.Type, err.Error())
		}

	case network.MsgTypeEquipContainer, network.MsgTypeEquipTool:
		var p network.EquipPayload
		if err := decode(msg.Payload, &p); err != nil {
			return errorMessage("invalid_payload", err.Error())
		}
		equip := st.EquipToolFromDrag
		if msg.Type == network.MsgTypeEquipContainer {
			equip = st.EquipContainerFromDrag
		}
		if err := w.equip(p, equip); err != nil {
			return rejected(msg.Type, err.Error())
		}

	case network.MsgTypeUnequipContainer:
		if err := st.UnequipContainer(); err != nil {
			return rejected(msg.Type, err.Error())
		}

	case network.MsgTypeUnequipTool:
		if err := st.UnequipTool(); err != nil {
			return rejected(msg.Type, err.Error())
		}

	default:
		return errorMessage("unknown_message_type", "Unknown message type: "+msg.Type)
	}

	return network.ServerMessage{Type: network.MsgTypeSnapshot, Payload: snapshot(st)}
}

// equip runs a from-drag equip. Without FromDrag the item at the addressed
// cell is picked up first and put back if the equip is refused.
func (w *Workspace) equip(p network.EquipPayload, fromDrag func() error) error {
	if p.FromDrag {
		return fromDrag()
	}
	d := w.station.Drag()
	if d.Active() {
		return fmt.Errorf("finish the current drag first")
	}
	g, err := w.station.Grid(p.Grid)
	if err != nil {
		return err
	}
	if !d.PickUp(g, p.X, p.Y) {
		return fmt.Errorf("no item at (%d,%d)", p.X, p.Y)
	}
	if err := fromDrag(); err != nil {
		d.Cancel()
		return err
	}
	return nil
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("missing payload")
	}
	return json.Unmarshal(raw, v)
}

func refusal(action string, dragging bool) string {
	switch action {
	case network.MsgTypePickUp:
		if dragging {
			return "already dragging"
		}
		return "no item at that cell"
	default:
		if !dragging {
			return workbench.ErrNotDragging.Error()
		}
		if action == network.MsgTypeRotate {
			return "item cannot rotate"
		}
		return "item does not fit there"
	}
}

func rejected(action, reason string) network.ServerMessage {
	return network.ServerMessage{
		Type:    network.MsgTypeRejected,
		Payload: network.RejectedPayload{Action: action, Reason: reason},
	}
}

func errorMessage(code, message string) network.ServerMessage {
	return network.ServerMessage{
		Type:    network.MsgTypeError,
		Payload: network.ErrorPayload{Code: code, Message: message},
	}
}

// snapshot captures the visible station state.
func snapshot(st *workbench.Station) network.StationSnapshot {
	out := network.StationSnapshot{
		Inventory: gridSnapshot(st.Inventory()),
		Tray:      gridSnapshot(st.Tray()),
		Equipped:  st.EquippedContainer() != nil,
	}
	if c := st.Container(); c != nil {
		out.Container = string(c.ID)
	}
	if t := st.Tool(); t != nil {
		out.Tool = string(t.ID)
	}
	if p, ok := st.Preview(); ok {
		out.Preview = &network.OutputSnapshot{
			Recipe:   string(p.Recipe.ID),
			Item:     string(p.Output.ID),
			Count:    p.Count,
			Fallback: p.Fallback,
		}
	}
	if r, ok := st.PendingResult(); ok {
		out.Result = &network.OutputSnapshot{
			Recipe:   string(r.Recipe.ID),
			Item:     string(r.Output.ID),
			Count:    r.Count,
			Fallback: r.Fallback,
		}
	}
	if d := st.Drag(); d.Active() {
		held := d.Held()
		ds := &network.DragSnapshot{
			Item:    string(held.Definition().ID),
			Count:   held.Count(),
			Rotated: held.Rotated(),
			Origin:  d.Origin().ID(),
		}
		if g, pos, ok := d.HoverTarget(); ok {
			ds.HoverGrid = g.ID()
			ds.HoverX = pos.X
			ds.HoverY = pos.Y
			ds.HoverValid = d.HoverValid()
			ds.CrossGrid = d.CrossGrid()
		}
		out.Drag = ds
	}
	return out
}

func gridSnapshot(g *grid.Grid) network.GridSnapshot {
	items := g.Items()
	out := network.GridSnapshot{
		Width:  g.Width(),
		Height: g.Height(),
		Items:  make([]network.ItemSnapshot, 0, len(items)),
	}
	for _, p := range items {
		o := p.Origin()
		out.Items = append(out.Items, network.ItemSnapshot{
			Item:    string(p.Definition().ID),
			Count:   p.Count(),
			X:       o.X,
			Y:       o.Y,
			Rotated: p.Rotated(),
		})
	}
	return out
}
