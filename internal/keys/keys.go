package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings active while a command shows progress.
type KeyMap struct {
	Cancel key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Cancel: key.NewBinding(
			key.WithKeys("ctrl+c", "esc", "q"),
			key.WithHelp("q/esc", "cancel"),
		),
	}
}

// ShortHelp returns a single line of key hints.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Cancel}
}

// FullHelp returns grouped key hints for an expanded help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}
