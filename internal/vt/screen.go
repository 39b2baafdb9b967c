package vt

// Screen is the production Handler implementation: a width x height cell
// grid plus cursor, scroll region, SGR, and mode state. Width and height
// are immutable for the lifetime of a Screen; resizing means constructing
// a new one (see Session.Resize at the session layer).
type Screen struct {
	w, h int

	cells []Cell

	curX, curY int
	pendingWrap bool

	fg, bg Color
	attrs  Attr

	scrollTop, scrollBottom int

	saved savedCursor

	autowrap      bool
	originMode    bool
	cursorVisible bool
	insertMode    bool

	title string

	tabs []bool

	// Mouse/bracketed-paste/focus-event modes are recognized and stored
	// but never generate output — event generation is a client concern
	// (spec Non-goals).
	mouseMode      int
	bracketedPaste bool
	focusEvents    bool
}

type savedCursor struct {
	x, y   int
	fg, bg Color
	attrs  Attr
	origin bool
	valid  bool
}

// NewScreen constructs a Screen of the given size in its power-on default
// state: cursor home, default colors, full-screen scroll region, autowrap
// and cursor-visible on, origin mode off, replace mode.
func NewScreen(w, h int) *Screen {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	s := &Screen{w: w, h: h}
	s.resetState()
	return s
}

func (s *Screen) resetState() {
	s.cells = make([]Cell, s.w*s.h)
	s.fg, s.bg = DefaultFG, DefaultBG
	s.attrs = 0
	s.clearAll()
	s.curX, s.curY = 0, 0
	s.pendingWrap = false
	s.scrollTop, s.scrollBottom = 0, s.h-1
	s.saved = savedCursor{}
	s.autowrap = true
	s.originMode = false
	s.cursorVisible = true
	s.insertMode = false
	s.title = ""
	s.mouseMode = 0
	s.bracketedPaste = false
	s.focusEvents = false
	s.tabs = make([]bool, s.w)
	for x := 0; x < s.w; x += 8 {
		s.tabs[x] = true
	}
}

// RIS performs a full reset equivalent to constructing a fresh Screen of
// the same size (ESC c).
func (s *Screen) RIS() {
	s.resetState()
}

// Size returns the screen's fixed width and height.
func (s *Screen) Size() (w, h int) { return s.w, s.h }

// Cursor returns the current cursor position. x may equal w to denote a
// pending wrap that has not yet been resolved by the next print.
func (s *Screen) Cursor() (x, y int) { return s.curX, s.curY }

// CursorVisible reports whether the cursor-visible mode (DECTCEM) is set.
func (s *Screen) CursorVisible() bool { return s.cursorVisible }

// ScrollRegion returns the current scroll region (0-based, inclusive).
func (s *Screen) ScrollRegion() (top, bottom int) { return s.scrollTop, s.scrollBottom }

// Title returns the current window title (set via OSC 0/2).
func (s *Screen) Title() string { return s.title }

// Cell returns the cell at (x, y). Out-of-range coordinates return the
// zero Cell.
func (s *Screen) Cell(x, y int) Cell {
	if x < 0 || x >= s.w || y < 0 || y >= s.h {
		return Cell{}
	}
	return s.cells[y*s.w+x]
}

// Row returns a copy of row y's cells, for callers that want a whole line
// (e.g. the replay serializer or a text dump).
func (s *Screen) Row(y int) []Cell {
	if y < 0 || y >= s.h {
		return nil
	}
	row := make([]Cell, s.w)
	copy(row, s.cells[y*s.w:(y+1)*s.w])
	return row
}

func (s *Screen) index(x, y int) int { return y*s.w + x }

func (s *Screen) set(x, y int, c Cell) {
	if x < 0 || x >= s.w || y < 0 || y >= s.h {
		return
	}
	s.cells[s.index(x, y)] = c
}

func (s *Screen) blank() Cell {
	return Cell{Char: ' ', FG: s.fg, BG: s.bg, Width: 1}
}

func (s *Screen) clearAll() {
	b := s.blank()
	for i := range s.cells {
		s.cells[i] = b
	}
}

func (s *Screen) clearRange(fromX, fromY, toX, toY int) {
	b := s.blank()
	for y := fromY; y <= toY && y < s.h; y++ {
		xs, xe := 0, s.w-1
		if y == fromY {
			xs = fromX
		}
		if y == toY {
			xe = toX
		}
		for x := xs; x <= xe && x < s.w; x++ {
			s.set(x, y, b)
		}
	}
}

// ---- Handler: Print / Execute ----

// Print implements Handler.
func (s *Screen) Print(r rune) {
	if s.curX >= s.w {
		if s.autowrap {
			s.curX = 0
			s.linefeed()
		} else {
			s.curX = s.w - 1
		}
	}
	if s.insertMode {
		s.shiftRowRight(s.curY, s.curX, 1)
	}
	s.set(s.curX, s.curY, Cell{Char: r, FG: s.fg, BG: s.bg, Attrs: s.attrs, Width: 1})
	s.curX++
	s.pendingWrap = s.curX >= s.w
}

// Execute implements Handler.
func (s *Screen) Execute(b byte) {
	switch b {
	case 0x07: // BEL
		// ignored by the buffer; the session layer may surface it.
	case 0x08: // BS
		if s.curX > 0 {
			s.curX--
		}
	case 0x09: // HT
		s.curX = s.nextTabStop(s.curX)
	case 0x0A, 0x0B, 0x0C: // LF, VT, FF
		s.linefeed()
	case 0x0D: // CR
		s.curX = 0
	case 0x84: // IND
		s.linefeed()
	case 0x85: // NEL
		s.curX = 0
		s.linefeed()
	case 0x88: // HTS
		if s.curX < s.w {
			s.tabs[s.curX] = true
		}
	case 0x8D: // RI
		s.reverseIndex()
	}
}

func (s *Screen) nextTabStop(from int) int {
	for x := from + 1; x < s.w; x++ {
		if s.tabs[x] {
			return x
		}
	}
	return s.w - 1
}

// ---- line feed / reverse index / scrolling ----

func (s *Screen) linefeed() {
	if s.curY == s.scrollBottom {
		s.scrollRegionUp(s.scrollTop, s.scrollBottom, 1)
	} else if s.curY < s.h-1 {
		s.curY++
	}
}

func (s *Screen) reverseIndex() {
	if s.curY == s.scrollTop {
		s.scrollRegionDown(s.scrollTop, s.scrollBottom, 1)
	} else if s.curY > 0 {
		s.curY--
	}
}

// scrollRegionUp shifts rows [top+n..bottom] up into [top..bottom-n] and
// blanks the newly exposed rows at the bottom, using the current bg.
func (s *Screen) scrollRegionUp(top, bottom, n int) {
	if n <= 0 || top > bottom {
		return
	}
	height := bottom - top + 1
	if n > height {
		n = height
	}
	for y := top; y <= bottom-n; y++ {
		copy(s.cells[s.index(0, y):s.index(0, y)+s.w], s.cells[s.index(0, y+n):s.index(0, y+n)+s.w])
	}
	s.clearRange(0, bottom-n+1, s.w-1, bottom)
}

// scrollRegionDown shifts rows [top..bottom-n] down into [top+n..bottom]
// and blanks the newly exposed rows at the top.
func (s *Screen) scrollRegionDown(top, bottom, n int) {
	if n <= 0 || top > bottom {
		return
	}
	height := bottom - top + 1
	if n > height {
		n = height
	}
	for y := bottom; y >= top+n; y-- {
		copy(s.cells[s.index(0, y):s.index(0, y)+s.w], s.cells[s.index(0, y-n):s.index(0, y-n)+s.w])
	}
	s.clearRange(0, top, s.w-1, top+n-1)
}

func (s *Screen) shiftRowRight(y, atX, n int) {
	if n <= 0 {
		return
	}
	for x := s.w - 1; x >= atX+n; x-- {
		s.set(x, y, s.Cell(x-n, y))
	}
	s.clearRange(atX, y, min(atX+n-1, s.w-1), y)
}

func (s *Screen) shiftRowLeft(y, atX, n int) {
	if n <= 0 {
		return
	}
	for x := atX; x < s.w-n; x++ {
		s.set(x, y, s.Cell(x+n, y))
	}
	s.clearRange(max(s.w-n, atX), y, s.w-1, y)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ---- cursor movement helpers ----

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampY bounds a vertical move: to the scroll region when origin mode is
// on, to the full screen otherwise.
func (s *Screen) clampY(y int) int {
	if s.originMode {
		return clampInt(y, s.scrollTop, s.scrollBottom)
	}
	return clampInt(y, 0, s.h-1)
}

func (s *Screen) moveTo(x, y int) {
	s.curX = clampInt(x, 0, s.w-1)
	s.curY = s.clampY(y)
	s.pendingWrap = false
}

// homeCursor moves to the origin of the current addressing mode: (0,
// scrollTop) under origin mode, (0,0) otherwise.
func (s *Screen) homeCursor() {
	if s.originMode {
		s.moveTo(0, s.scrollTop)
	} else {
		s.moveTo(0, 0)
	}
}

func (s *Screen) saveCursor() {
	s.saved = savedCursor{
		x: s.curX, y: s.curY,
		fg: s.fg, bg: s.bg, attrs: s.attrs,
		origin: s.originMode,
		valid:  true,
	}
}

func (s *Screen) restoreCursor() {
	if !s.saved.valid {
		s.homeCursor()
		return
	}
	s.curX = clampInt(s.saved.x, 0, s.w-1)
	s.curY = clampInt(s.saved.y, 0, s.h-1)
	s.fg, s.bg, s.attrs = s.saved.fg, s.saved.bg, s.saved.attrs
	s.originMode = s.saved.origin
	s.pendingWrap = false
}
