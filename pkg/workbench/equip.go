package workbench

import "github.com/gravitas-games/craftgrid/pkg/item"

// EquipContainer puts def into the container slot and resizes the tray to
// the container's size. The tray must be empty, including items lifted out
// of it by a drag.
func (s *Station) EquipContainer(def *item.Definition) error {
	if err := s.checkContainer(def, false); err != nil {
		return err
	}
	s.setContainer(def)
	return nil
}

// EquipContainerFromDrag equips the held item as the container, consuming
// one unit from the drag.
func (s *Station) EquipContainerFromDrag() error {
	if !s.drag.Active() {
		return ErrNotDragging
	}
	def := s.drag.Held().Definition()
	if err := s.checkContainer(def, true); err != nil {
		return err
	}
	s.drag.ConsumeOne()
	s.setContainer(def)
	return nil
}

// UnequipContainer returns the equipped container to the inventory and
// restores the default container.
func (s *Station) UnequipContainer() error {
	if s.container == nil {
		return ErrSlotEmpty
	}
	if s.trayBusy(false) {
		return ErrTrayNotEmpty
	}
	if s.inventory.PlaceAnywhere(s.container, 1) == nil {
		return ErrInventoryFull
	}
	s.setContainer(nil)
	return nil
}

func (s *Station) checkContainer(def *item.Definition, fromDrag bool) error {
	if !def.IsContainer() {
		return ErrNotContainer
	}
	if s.container != nil {
		return ErrSlotOccupied
	}
	if s.trayBusy(fromDrag) {
		return ErrTrayNotEmpty
	}
	return nil
}

// trayBusy reports whether the tray hosts anything, settled or lifted. When
// fromDrag is set, a last unit held from the tray is about to be consumed
// and does not count.
func (s *Station) trayBusy(fromDrag bool) bool {
	lifted := s.tray.Lifted()
	if fromDrag && s.drag.Active() && s.drag.Origin() == s.tray && s.drag.Held().Count() == 1 {
		lifted--
	}
	return s.tray.Len() > 0 || lifted > 0
}

func (s *Station) setContainer(def *item.Definition) {
	s.container = def
	w, h := s.traySize(def)
	if w != s.tray.Width() || h != s.tray.Height() {
		s.tray.Resize(w, h)
	} else {
		s.refreshPreview()
	}
	e := Event{Type: EventContainerChanged}
	if c := s.Container(); c != nil {
		e.Item = string(c.ID)
	}
	s.publish(e)
}

// EquipTool puts def into the tool slot.
func (s *Station) EquipTool(def *item.Definition) error {
	if err := s.checkTool(def); err != nil {
		return err
	}
	s.setTool(def)
	return nil
}

// EquipToolFromDrag equips the held item as the tool, consuming one unit
// from the drag.
func (s *Station) EquipToolFromDrag() error {
	if !s.drag.Active() {
		return ErrNotDragging
	}
	def := s.drag.Held().Definition()
	if err := s.checkTool(def); err != nil {
		return err
	}
	s.drag.ConsumeOne()
	s.setTool(def)
	return nil
}

// UnequipTool returns the equipped tool to the inventory.
func (s *Station) UnequipTool() error {
	if s.tool == nil {
		return ErrSlotEmpty
	}
	if s.inventory.PlaceAnywhere(s.tool, 1) == nil {
		return ErrInventoryFull
	}
	s.setTool(nil)
	return nil
}

func (s *Station) checkTool(def *item.Definition) error {
	if !def.IsTool() {
		return ErrNotTool
	}
	if s.tool != nil {
		return ErrSlotOccupied
	}
	return nil
}

func (s *Station) setTool(def *item.Definition) {
	s.tool = def
	s.refreshPreview()
	e := Event{Type: EventToolChanged}
	if def != nil {
		e.Item = string(def.ID)
	}
	s.publish(e)
}
