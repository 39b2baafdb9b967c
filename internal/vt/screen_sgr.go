package vt

// sgr applies a Select Graphic Rendition sequence, scanning params in
// order; each integer is applied as it is consumed (38/48 consume
// additional params for extended color forms).
func (s *Screen) sgr(params []int) {
	if len(params) == 0 {
		s.fg, s.bg, s.attrs = DefaultFG, DefaultBG, 0
		return
	}
	for i := 0; i < len(params); i++ {
		p := params[i]
		switch {
		case p == 0:
			s.fg, s.bg, s.attrs = DefaultFG, DefaultBG, 0
		case p == 1:
			s.attrs |= AttrBold
		case p == 2:
			s.attrs |= AttrDim
		case p == 3:
			s.attrs |= AttrItalic
		case p == 4:
			s.attrs |= AttrUnderline
		case p == 5:
			s.attrs |= AttrBlink
		case p == 7:
			s.attrs |= AttrInverse
		case p == 8:
			s.attrs |= AttrHidden
		case p == 9:
			s.attrs |= AttrStrikethrough
		case p == 21:
			s.attrs |= AttrDoubleUnderline
		case p == 22:
			s.attrs &^= AttrBold | AttrDim
		case p == 23:
			s.attrs &^= AttrItalic
		case p == 24:
			s.attrs &^= AttrUnderline | AttrDoubleUnderline | AttrCurlyUnderline
		case p == 25:
			s.attrs &^= AttrBlink
		case p == 27:
			s.attrs &^= AttrInverse
		case p == 28:
			s.attrs &^= AttrHidden
		case p == 29:
			s.attrs &^= AttrStrikethrough
		case p >= 30 && p <= 37:
			s.fg = Color(p - 30)
		case p == 38:
			fg, consumed := parseExtendedColor(params[i+1:])
			s.fg = fg
			i += consumed
		case p == 39:
			s.fg = DefaultFG
		case p >= 40 && p <= 47:
			s.bg = Color(p - 40)
		case p == 48:
			bg, consumed := parseExtendedColor(params[i+1:])
			s.bg = bg
			i += consumed
		case p == 49:
			s.bg = DefaultBG
		case p >= 90 && p <= 97:
			s.fg = Color(p - 90 + 8)
		case p >= 100 && p <= 107:
			s.bg = Color(p - 100 + 8)
		}
	}
}

// parseExtendedColor parses the tail of an extended-color SGR sequence
// (38/48) starting just after the 38/48 itself: either "5;<index>" or
// "2;<r>;<g>;<b>". Returns the decoded color and how many of the following
// params it consumed.
func parseExtendedColor(rest []int) (Color, int) {
	if len(rest) == 0 {
		return DefaultFG, 0
	}
	switch rest[0] {
	case 5:
		if len(rest) < 2 {
			return DefaultFG, len(rest)
		}
		return Color(rest[1] & 0xFF), 2
	case 2:
		if len(rest) < 4 {
			return DefaultFG, len(rest)
		}
		return RGB(uint8(rest[1]), uint8(rest[2]), uint8(rest[3])), 4
	default:
		return DefaultFG, 1
	}
}
