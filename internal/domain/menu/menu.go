// Package menu implements the hierarchical command structures clients
// attach to windows or to the global menu bar.
package menu

import (
	"github.com/lumen-os/lumen/server/internal/gfx"
	"github.com/lumen-os/lumen/server/internal/shm"
)

// ItemType distinguishes actionable items from separators.
type ItemType int

const (
	ItemAction ItemType = iota
	ItemSeparator
)

// Item is one entry of a menu. Display order is insertion order.
type Item struct {
	Type         ItemType
	Identifier   uint
	Text         string
	ShortcutText string
	Enabled      bool
	Checkable    bool
	Checked      bool
	Exclusive    bool
	Icon         *shm.Buffer
	IconSize     gfx.Size
	SubmenuID    int
}

// Separator constructs a separator item.
func Separator() *Item {
	return &Item{Type: ItemSeparator, SubmenuID: -1}
}

// Menu is a popup or menubar-attached menu. Identity is
// (client id, menu id).
type Menu struct {
	clientID int
	id       int
	title    string

	items []*Item

	open     bool
	position gfx.Point
	bar      *Bar
}

// NewMenu constructs an empty menu.
func NewMenu(clientID, id int, title string) *Menu {
	return &Menu{clientID: clientID, id: id, title: title}
}

// ClientID returns the owning session's client id.
func (m *Menu) ClientID() int { return m.clientID }

// ID returns the locally-scoped menu id.
func (m *Menu) ID() int { return m.id }

// Title returns the menu title.
func (m *Menu) Title() string { return m.title }

// AddItem appends an item.
func (m *Menu) AddItem(item *Item) {
	m.items = append(m.items, item)
}

// Items returns the items in display order.
func (m *Menu) Items() []*Item { return m.items }

// ItemWithIdentifier finds an actionable item by identifier.
func (m *Menu) ItemWithIdentifier(identifier uint) *Item {
	for _, item := range m.items {
		if item.Type == ItemAction && item.Identifier == identifier {
			return item
		}
	}
	return nil
}

// Popup opens the menu at a screen position.
func (m *Menu) Popup(position gfx.Point) {
	m.open = true
	m.position = position
}

// Close dismisses the menu if open. The menubar attachment survives a
// close; only Detach severs it.
func (m *Menu) Close() {
	m.open = false
}

// IsOpen reports whether the menu is currently shown.
func (m *Menu) IsOpen() bool { return m.open }

// Position returns the screen position of the open menu.
func (m *Menu) Position() gfx.Point { return m.position }

// Bar returns the menubar the menu is attached to, or nil.
func (m *Menu) Bar() *Bar { return m.bar }

// Detach removes the menu from its menubar slot, if any.
func (m *Menu) Detach() {
	if m.bar != nil {
		m.bar.remove(m)
		m.bar = nil
	}
}

// Bar is an ordered sequence of menus. A session may designate at most
// one of its bars as the application menu bar visible in the shell.
type Bar struct {
	clientID int
	id       int
	menus    []*Menu
}

// NewBar constructs an empty menubar.
func NewBar(clientID, id int) *Bar {
	return &Bar{clientID: clientID, id: id}
}

// ClientID returns the owning session's client id.
func (b *Bar) ClientID() int { return b.clientID }

// ID returns the locally-scoped menubar id.
func (b *Bar) ID() int { return b.id }

// AddMenu appends a menu to the bar. A menu attaches to at most one
// bar; attaching again moves it.
func (b *Bar) AddMenu(m *Menu) {
	m.Detach()
	m.bar = b
	b.menus = append(b.menus, m)
}

// Menus returns the attached menus in display order.
func (b *Bar) Menus() []*Menu { return b.menus }

func (b *Bar) remove(m *Menu) {
	for i, existing := range b.menus {
		if existing == m {
			b.menus = append(b.menus[:i], b.menus[i+1:]...)
			return
		}
	}
}
