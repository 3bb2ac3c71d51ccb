package menu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-os/lumen/server/internal/gfx"
)

func TestItemOrderAndLookup(t *testing.T) {
	m := NewMenu(1, 1, "File")
	m.AddItem(&Item{Identifier: 10, Text: "Open"})
	m.AddItem(Separator())
	m.AddItem(&Item{Identifier: 20, Text: "Quit"})

	items := m.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "Open", items[0].Text)
	assert.Equal(t, ItemSeparator, items[1].Type)
	assert.Equal(t, "Quit", items[2].Text)

	found := m.ItemWithIdentifier(20)
	require.NotNil(t, found)
	assert.Equal(t, "Quit", found.Text)

	assert.Nil(t, m.ItemWithIdentifier(99))
}

func TestSeparatorIdentifierNotMatched(t *testing.T) {
	m := NewMenu(1, 1, "Edit")
	m.AddItem(Separator())
	assert.Nil(t, m.ItemWithIdentifier(0))
}

func TestPopupAndClose(t *testing.T) {
	m := NewMenu(1, 1, "Context")
	assert.False(t, m.IsOpen())

	m.Popup(gfx.Point{X: 30, Y: 40})
	assert.True(t, m.IsOpen())
	assert.Equal(t, gfx.Point{X: 30, Y: 40}, m.Position())

	m.Close()
	assert.False(t, m.IsOpen())
}

func TestBarAttachment(t *testing.T) {
	bar := NewBar(1, 1)
	file := NewMenu(1, 1, "File")
	edit := NewMenu(1, 2, "Edit")

	bar.AddMenu(file)
	bar.AddMenu(edit)
	require.Len(t, bar.Menus(), 2)
	assert.Same(t, bar, file.Bar())

	file.Detach()
	assert.Nil(t, file.Bar())
	require.Len(t, bar.Menus(), 1)
	assert.Same(t, edit, bar.Menus()[0])
}

func TestAddMenuMovesBetweenBars(t *testing.T) {
	first := NewBar(1, 1)
	second := NewBar(1, 2)
	m := NewMenu(1, 1, "View")

	first.AddMenu(m)
	second.AddMenu(m)

	assert.Empty(t, first.Menus())
	require.Len(t, second.Menus(), 1)
	assert.Same(t, second, m.Bar())
}

func TestCloseKeepsBarAttachment(t *testing.T) {
	bar := NewBar(1, 1)
	m := NewMenu(1, 1, "File")
	bar.AddMenu(m)

	m.Popup(gfx.Point{})
	m.Close()
	assert.Same(t, bar, m.Bar())
}
