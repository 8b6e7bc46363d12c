package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jroimartin/gocui"
)

const helpView = "help"

var fieldTitles = map[string]string{
	EncryptionModel:      "Encryption model (Tab)",
	Eavesdropping:        "Eve (Ctrl-V)",
	AliceInput:           "Alice message (Enter to send)",
	BobReceivedEncrypted: "Bob received encrypted (Ctrl-B to decode)",
	BobDecoded:           "Bob decoded",
	EveEavesdrop:         "Eve eavesdropped (Ctrl-E to decode)",
	EveDecoded:           "Eve decoded",
	LogArea:              "Log",
}

// TUI is the terminal rendition of the demo page. It implements Page.
// State lives here; layout renders it into gocui views on every flush.
type TUI struct {
	Gui *gocui.Gui

	models        []string
	model         int
	eavesdropping bool
	fields        map[string]string
	logLines      []string
}

// NewTUI creates the page state. models must not be empty.
func NewTUI(models []string) *TUI {
	return &TUI{
		models: models,
		fields: make(map[string]string),
	}
}

// InitGui initializes the gocui screen
func (t *TUI) InitGui() error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return fmt.Errorf("failed to initialize gocui: %w", err)
	}
	t.Gui = g
	g.Cursor = true
	g.SetManagerFunc(t.layout)
	return nil
}

// Bind wires the page keys to the router actions and quit
func (t *TUI) Bind(r *Router, quit func(*gocui.Gui, *gocui.View) error) error {
	bindings := []struct {
		view    string
		key     interface{}
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{"", gocui.KeyCtrlC, quit},
		{"", gocui.KeyCtrlK, action(r.SendAliceKey)},
		{"", gocui.KeyCtrlR, action(r.ReconcileKey)},
		{"", gocui.KeyCtrlB, action(r.DecodeBobMessage)},
		{"", gocui.KeyCtrlE, action(r.DecodeEveMessage)},
		{"", gocui.KeyTab, action(t.NextModel)},
		{"", gocui.KeyCtrlV, action(t.ToggleEavesdropping)},
		{AliceInput, gocui.KeyEnter, action(r.SendAliceMessage)},
	}
	for _, b := range bindings {
		if err := t.Gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return fmt.Errorf("failed to set keybinding for %q: %w", b.view, err)
		}
	}
	return nil
}

// Post runs fn on the gocui main loop
func (t *TUI) Post(fn func()) {
	t.Gui.Update(func(*gocui.Gui) error {
		fn()
		return nil
	})
}

// Value returns the current value of a control or field
func (t *TUI) Value(id string) string {
	switch id {
	case EncryptionModel:
		return t.models[t.model]
	case AliceInput:
		if t.Gui == nil {
			return t.fields[id]
		}
		v, err := t.Gui.View(AliceInput)
		if err != nil {
			return ""
		}
		return inputText(v.Buffer())
	case Eavesdropping:
		return fmt.Sprint(t.eavesdropping)
	}
	return t.fields[id]
}

// inputText strips the line end gocui appends to a view buffer. The message is
// otherwise sent as typed.
func inputText(buf string) string {
	return strings.TrimSuffix(buf, "\n")
}

// Checked returns the state of the eavesdropping toggle
func (t *TUI) Checked(id string) bool {
	return id == Eavesdropping && t.eavesdropping
}

// SetValue overwrites a field
func (t *TUI) SetValue(id, value string) {
	t.fields[id] = value
}

// AppendLog adds a line to the log area
func (t *TUI) AppendLog(sender, content string) {
	t.logLines = append(t.logLines, sender+": "+content)
}

// LogLines returns the log area contents
func (t *TUI) LogLines() []string {
	return t.logLines
}

// NextModel selects the next encryption model, wrapping around
func (t *TUI) NextModel() {
	t.model = (t.model + 1) % len(t.models)
}

// ToggleEavesdropping flips the eavesdropping checkbox
func (t *TUI) ToggleEavesdropping() {
	t.eavesdropping = !t.eavesdropping
}

func action(fn func()) func(*gocui.Gui, *gocui.View) error {
	return func(*gocui.Gui, *gocui.View) error {
		fn()
		return nil
	}
}

// layout places the views and renders the current state into them
func (t *TUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	midX := maxX / 2
	logBottom := maxY - 3
	if logBottom < 14 {
		logBottom = 14
	}

	boxes := []struct {
		id             string
		x0, y0, x1, y1 int
	}{
		{EncryptionModel, 0, 0, midX - 1, 2},
		{Eavesdropping, midX, 0, maxX - 1, 2},
		{AliceInput, 0, 3, maxX - 1, 5},
		{BobReceivedEncrypted, 0, 6, midX - 1, 8},
		{EveEavesdrop, midX, 6, maxX - 1, 8},
		{BobDecoded, 0, 9, midX - 1, 11},
		{EveDecoded, midX, 9, maxX - 1, 11},
		{LogArea, 0, 12, maxX - 1, logBottom},
	}

	for _, b := range boxes {
		v, err := g.SetView(b.id, b.x0, b.y0, b.x1, b.y1)
		if err != nil {
			if !errors.Is(err, gocui.ErrUnknownView) {
				return err
			}
			v.Title = fieldTitles[b.id]
			v.Wrap = true
			switch b.id {
			case AliceInput:
				v.Editable = true
				if _, err := g.SetCurrentView(AliceInput); err != nil {
					return err
				}
			case LogArea:
				v.Autoscroll = true
			}
		}
		if b.id != AliceInput {
			t.render(v, b.id)
		}
	}

	if v, err := g.SetView(helpView, -1, maxY-2, maxX, maxY); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Frame = false
		fmt.Fprint(v, " ^K send key  ^R reconcile  Enter send message  ^B Bob decode  ^E Eve decode  Tab model  ^V eavesdrop  ^C quit")
	}
	return nil
}

func (t *TUI) render(v *gocui.View, id string) {
	v.Clear()
	switch id {
	case EncryptionModel:
		fmt.Fprint(v, t.models[t.model])
	case Eavesdropping:
		mark := " "
		if t.eavesdropping {
			mark = "x"
		}
		fmt.Fprintf(v, "[%s] eavesdropping", mark)
	case LogArea:
		for _, line := range t.logLines {
			fmt.Fprintln(v, line)
		}
	default:
		fmt.Fprint(v, t.fields[id])
	}
}
