package vt

import (
	"bytes"
	"fmt"
)

// Serialize renders the screen's current visible state as an ANSI byte
// stream: clear + home, then each row repainted with minimal SGR
// transitions, then the scroll region/origin/autowrap/cursor-visibility
// modes, and finally the real cursor position and current SGR state. This
// is the authoritative late-attach replay (spec §4.3): unlike the output
// ring, it cannot have lost history because it always reflects the live
// buffer.
func (s *Screen) Serialize() []byte {
	var buf bytes.Buffer
	buf.WriteString("\x1b[0m\x1b[2J\x1b[H")

	lastFG, lastBG, lastAttrs := DefaultFG, DefaultBG, Attr(0)
	haveSGR := false
	for y := 0; y < s.h; y++ {
		fmt.Fprintf(&buf, "\x1b[%d;1H", y+1)
		row := s.cells[s.index(0, y):s.index(0, y)+s.w]
		for _, c := range row {
			if !haveSGR || c.FG != lastFG || c.BG != lastBG || c.Attrs != lastAttrs {
				buf.WriteString(sgrSequence(c.FG, c.BG, c.Attrs))
				lastFG, lastBG, lastAttrs = c.FG, c.BG, c.Attrs
				haveSGR = true
			}
			ch := c.Char
			if ch == 0 {
				ch = ' '
			}
			buf.WriteRune(ch)
		}
	}

	if s.scrollTop != 0 || s.scrollBottom != s.h-1 {
		fmt.Fprintf(&buf, "\x1b[%d;%dr", s.scrollTop+1, s.scrollBottom+1)
	}
	if s.originMode {
		buf.WriteString("\x1b[?6h")
	}
	if !s.autowrap {
		buf.WriteString("\x1b[?7l")
	}
	if !s.cursorVisible {
		buf.WriteString("\x1b[?25l")
	}
	if s.insertMode {
		buf.WriteString("\x1b[4h")
	}

	buf.WriteString(sgrSequence(s.fg, s.bg, s.attrs))

	row := s.curY + 1
	if s.originMode {
		row = s.curY - s.scrollTop + 1
	}
	fmt.Fprintf(&buf, "\x1b[%d;%dH", row, clampInt(s.curX, 0, s.w-1)+1)

	return buf.Bytes()
}

// sgrSequence renders one fully-specified SGR escape for the given colors
// and attributes, always starting from a reset so the result is
// context-free.
func sgrSequence(fg, bg Color, attrs Attr) string {
	var buf bytes.Buffer
	buf.WriteString("\x1b[0")
	if attrs&AttrBold != 0 {
		buf.WriteString(";1")
	}
	if attrs&AttrDim != 0 {
		buf.WriteString(";2")
	}
	if attrs&AttrItalic != 0 {
		buf.WriteString(";3")
	}
	if attrs&AttrUnderline != 0 {
		buf.WriteString(";4")
	}
	if attrs&AttrBlink != 0 {
		buf.WriteString(";5")
	}
	if attrs&AttrInverse != 0 {
		buf.WriteString(";7")
	}
	if attrs&AttrHidden != 0 {
		buf.WriteString(";8")
	}
	if attrs&AttrStrikethrough != 0 {
		buf.WriteString(";9")
	}
	if attrs&AttrDoubleUnderline != 0 {
		buf.WriteString(";21")
	}
	writeColorSGR(&buf, fg, true)
	writeColorSGR(&buf, bg, false)
	buf.WriteString("m")
	return buf.String()
}

func writeColorSGR(buf *bytes.Buffer, c Color, isFG bool) {
	base := 30
	extBase := 38
	if !isFG {
		base, extBase = 40, 48
	}
	switch {
	case c == DefaultFG || c == DefaultBG:
		return
	case c.IsRGB():
		r, g, b := c.RGB888()
		fmt.Fprintf(buf, ";%d;2;%d;%d;%d", extBase, r, g, b)
	case c < 8:
		fmt.Fprintf(buf, ";%d", base+int(c))
	case c < 16:
		fmt.Fprintf(buf, ";%d", base+60+int(c)-8)
	default:
		fmt.Fprintf(buf, ";%d;5;%d", extBase, int(c))
	}
}
