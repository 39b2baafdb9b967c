package vt

const (
	modeOriginDECOM    = 6
	modeAutowrapDECAWM = 7
	modeMouseX10       = 9
	modeCursorDECTCEM  = 25
	modeAltScreen1047  = 1047
	modeAltScreen1049  = 1049
	modeMouseNormal    = 1000
	modeMouseBtn       = 1002
	modeMouseAny       = 1003
	modeFocusEvents    = 1004
	modeMouseUTF8      = 1005
	modeMouseSGR       = 1006
	modeMouseURXVT     = 1015
	modeMousePixel     = 1016
	modeBracketPaste   = 2004
)

// arg returns params[i] if present, substituting def when the parameter is
// absent OR explicitly zero (Zero Default Mode).
func arg(params []int, i, def int) int {
	if i < len(params) && params[i] != 0 {
		return params[i]
	}
	return def
}

// rawArg returns params[i] if present (including an explicit 0), def
// otherwise. Used for mode-selector parameters (ED/EL) where 0 is a
// meaningful explicit choice, not "missing".
func rawArg(params []int, i, def int) int {
	if i < len(params) {
		return params[i]
	}
	return def
}

// CsiDispatch implements Handler.
func (s *Screen) CsiDispatch(params []int, private byte, intermediate byte, final byte) {
	if private == '?' {
		switch final {
		case 'h':
			s.decset(params)
			return
		case 'l':
			s.decrst(params)
			return
		}
	}
	if private != 0 {
		return // unsupported private final byte
	}

	switch final {
	case 'A':
		s.moveTo(s.curX, s.curY-arg(params, 0, 1))
	case 'B':
		s.moveTo(s.curX, s.curY+arg(params, 0, 1))
	case 'C':
		s.moveTo(s.curX+arg(params, 0, 1), s.curY)
	case 'D':
		s.moveTo(s.curX-arg(params, 0, 1), s.curY)
	case 'E':
		s.curX = 0
		s.moveTo(0, s.curY+arg(params, 0, 1))
	case 'F':
		s.curX = 0
		s.moveTo(0, s.curY-arg(params, 0, 1))
	case 'G', '`':
		s.moveTo(arg(params, 0, 1)-1, s.curY)
	case 'H', 'f':
		s.cup(params)
	case 'J':
		s.eraseDisplay(rawArg(params, 0, 0))
	case 'K':
		s.eraseLine(rawArg(params, 0, 0))
	case 'L':
		s.insertLines(arg(params, 0, 1))
	case 'M':
		s.deleteLines(arg(params, 0, 1))
	case 'P':
		s.deleteChars(arg(params, 0, 1))
	case 'S':
		s.scrollRegionUp(s.scrollTop, s.scrollBottom, arg(params, 0, 1))
	case 'T':
		s.scrollRegionDown(s.scrollTop, s.scrollBottom, arg(params, 0, 1))
	case 'X':
		s.eraseChars(arg(params, 0, 1))
	case 'd':
		s.curY = clampInt(arg(params, 0, 1)-1, 0, s.h-1)
	case 'g':
		s.tabClear(rawArg(params, 0, 0))
	case 'm':
		s.sgr(params)
	case 'r':
		s.setScrollRegion(params)
	case 's':
		s.saveCursor()
	case 'u':
		s.restoreCursor()
	case '@':
		s.insertChars(arg(params, 0, 1))
	case 'h', 'l':
		// non-private SM/RM: only IRM (4) affects this model.
		for _, p := range params {
			if p == 4 {
				s.insertMode = final == 'h'
			}
		}
	}
}

func (s *Screen) cup(params []int) {
	row := arg(params, 0, 1) - 1
	col := arg(params, 1, 1) - 1
	if s.originMode {
		s.moveTo(col, s.scrollTop+row)
	} else {
		s.moveTo(col, row)
	}
}

func (s *Screen) eraseDisplay(mode int) {
	switch mode {
	case 0:
		s.clearRange(s.curX, s.curY, s.w-1, s.curY)
		if s.curY < s.h-1 {
			s.clearRange(0, s.curY+1, s.w-1, s.h-1)
		}
	case 1:
		if s.curY > 0 {
			s.clearRange(0, 0, s.w-1, s.curY-1)
		}
		s.clearRange(0, s.curY, s.curX, s.curY)
	case 2, 3:
		s.clearAll()
	}
}

func (s *Screen) eraseLine(mode int) {
	switch mode {
	case 0:
		s.clearRange(s.curX, s.curY, s.w-1, s.curY)
	case 1:
		s.clearRange(0, s.curY, s.curX, s.curY)
	case 2:
		s.clearRange(0, s.curY, s.w-1, s.curY)
	}
}

func (s *Screen) insertLines(n int) {
	if s.curY < s.scrollTop || s.curY > s.scrollBottom {
		return
	}
	s.scrollRegionDown(s.curY, s.scrollBottom, n)
}

func (s *Screen) deleteLines(n int) {
	if s.curY < s.scrollTop || s.curY > s.scrollBottom {
		return
	}
	s.scrollRegionUp(s.curY, s.scrollBottom, n)
}

func (s *Screen) deleteChars(n int) {
	s.shiftRowLeft(s.curY, s.curX, n)
}

func (s *Screen) insertChars(n int) {
	s.shiftRowRight(s.curY, s.curX, n)
}

func (s *Screen) eraseChars(n int) {
	s.clearRange(s.curX, s.curY, min(s.curX+n-1, s.w-1), s.curY)
}

func (s *Screen) tabClear(mode int) {
	switch mode {
	case 0:
		if s.curX < s.w {
			s.tabs[s.curX] = false
		}
	case 3:
		for i := range s.tabs {
			s.tabs[i] = false
		}
	}
}

func (s *Screen) setScrollRegion(params []int) {
	top := arg(params, 0, 1)
	bottom := arg(params, 1, s.h)
	top--
	bottom--
	if top < 0 || bottom > s.h-1 || top >= bottom {
		return
	}
	s.scrollTop, s.scrollBottom = top, bottom
	s.homeCursor()
}

func (s *Screen) decset(params []int) {
	for _, p := range params {
		s.setDecMode(p, true)
	}
}

func (s *Screen) decrst(params []int) {
	for _, p := range params {
		s.setDecMode(p, false)
	}
}

func (s *Screen) setDecMode(mode int, enable bool) {
	switch mode {
	case modeOriginDECOM:
		s.originMode = enable
		s.homeCursor()
	case modeAutowrapDECAWM:
		s.autowrap = enable
	case modeCursorDECTCEM:
		s.cursorVisible = enable
	case modeAltScreen1047, modeAltScreen1049:
		s.clearAll()
		s.homeCursor()
	case modeMouseX10, modeMouseNormal, modeMouseBtn, modeMouseAny,
		modeMouseUTF8, modeMouseSGR, modeMouseURXVT, modeMousePixel:
		if enable {
			s.mouseMode = mode
		} else if s.mouseMode == mode {
			s.mouseMode = 0
		}
	case modeBracketPaste:
		s.bracketedPaste = enable
	case modeFocusEvents:
		s.focusEvents = enable
	}
}

// EscDispatch implements Handler.
func (s *Screen) EscDispatch(intermediate byte, final byte) {
	if intermediate != 0 {
		return
	}
	switch final {
	case '7':
		s.saveCursor()
	case '8':
		s.restoreCursor()
	case 'D':
		s.linefeed()
	case 'E':
		s.curX = 0
		s.linefeed()
	case 'H':
		if s.curX < s.w {
			s.tabs[s.curX] = true
		}
	case 'M':
		s.reverseIndex()
	case 'c':
		s.RIS()
	}
}

// OscDispatch implements Handler.
func (s *Screen) OscDispatch(command int, payload []byte) {
	switch command {
	case 0, 2:
		s.title = string(payload)
	}
}

// DcsHook implements Handler. The screen buffer has no DCS-level semantics
// of its own; DCS passthrough data is accepted and discarded.
func (s *Screen) DcsHook(params []int, private byte, intermediate byte, final byte) {}

// DcsPut implements Handler.
func (s *Screen) DcsPut(b byte) {}

// DcsUnhook implements Handler.
func (s *Screen) DcsUnhook() {}
