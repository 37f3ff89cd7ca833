package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit         key.Binding
	Left         key.Binding
	Right        key.Binding
	Up           key.Binding
	Down         key.Binding
	Enter        key.Binding
	Esc          key.Binding
	ForcePoll    key.Binding
	IntervalUp   key.Binding
	IntervalDown key.Binding
}

var keys = keyMap{
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Left:         key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "prev agent")),
	Right:        key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "next agent")),
	Up:           key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "agent up")),
	Down:         key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "agent down")),
	Enter:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "focus log")),
	Esc:          key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear selection")),
	ForcePoll:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	IntervalUp:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "slower poll")),
	IntervalDown: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "faster poll")),
}
