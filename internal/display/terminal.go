package display

import (
	"fmt"
	"image"
	"sync"

	"github.com/gdamore/tcell/v2"
)

// TerminalSink draws frames straight into the terminal using half-block
// glyphs, packing two frame rows into every text row. It grabs the tty, so
// it also owns keyboard input and reports it through Events.
type TerminalSink struct {
	screen    tcell.Screen
	events    chan Event
	closeOnce sync.Once
}

// NewTerminal opens the tcell screen and starts the input loop.
func NewTerminal() (*TerminalSink, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open terminal screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init terminal screen: %w", err)
	}
	screen.HideCursor()

	s := &TerminalSink{
		screen: screen,
		events: make(chan Event, 16),
	}
	go s.inputLoop()
	return s, nil
}

// inputLoop pumps tcell events until Fini makes PollEvent return nil.
func (s *TerminalSink) inputLoop() {
	for {
		ev := s.screen.PollEvent()
		if ev == nil {
			return
		}
		switch ev := ev.(type) {
		case *tcell.EventKey:
			s.emit(translateKey(ev))
		case *tcell.EventResize:
			s.screen.Sync()
		}
	}
}

func translateKey(ev *tcell.EventKey) Event {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return EventQuit
	case tcell.KeyUp:
		return EventDegradationUp
	case tcell.KeyDown:
		return EventDegradationDown
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q', 'Q':
			return EventQuit
		case 'm', 'M':
			return EventNextMode
		case '+', '=':
			return EventDegradationUp
		case '-', '_':
			return EventDegradationDown
		case 'b', 'B':
			return EventToggleBypass
		case 'p', 'P':
			return EventToggleProfile
		}
	}
	return EventNone
}

// emit never blocks; a stale key press is worth less than a stalled frame.
func (s *TerminalSink) emit(ev Event) {
	if ev == EventNone {
		return
	}
	select {
	case s.events <- ev:
	default:
	}
}

// Events exposes translated key presses.
func (s *TerminalSink) Events() <-chan Event { return s.events }

// Present samples the frame down to the terminal grid. The upper-half
// block takes its foreground from the top pixel and its background from
// the bottom one, doubling the vertical resolution per cell.
func (s *TerminalSink) Present(img *image.RGBA, status string) error {
	cols, rows := s.screen.Size()
	if status != "" && rows > 1 {
		rows--
	}
	if cols < 1 || rows < 1 {
		return nil
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	for cy := 0; cy < rows; cy++ {
		topY := cy * 2 * h / (rows * 2)
		botY := (cy*2 + 1) * h / (rows * 2)
		for cx := 0; cx < cols; cx++ {
			sx := cx * w / cols
			top := img.RGBAAt(b.Min.X+sx, b.Min.Y+topY)
			bot := img.RGBAAt(b.Min.X+sx, b.Min.Y+botY)
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(top.R), int32(top.G), int32(top.B))).
				Background(tcell.NewRGBColor(int32(bot.R), int32(bot.G), int32(bot.B)))
			s.screen.SetContent(cx, cy, '▀', nil, style)
		}
	}

	if status != "" {
		statusStyle := tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorBlack)
		col := 0
		for _, r := range status {
			if col >= cols {
				break
			}
			s.screen.SetContent(col, rows, r, nil, statusStyle)
			col++
		}
		for ; col < cols; col++ {
			s.screen.SetContent(col, rows, ' ', nil, statusStyle)
		}
	}

	s.screen.Show()
	return nil
}

// Close restores the terminal; the input loop exits on its own.
func (s *TerminalSink) Close() error {
	s.closeOnce.Do(func() {
		s.screen.Fini()
	})
	return nil
}
