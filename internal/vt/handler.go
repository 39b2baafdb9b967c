package vt

// Handler receives semantic events dispatched by Parser. It is the single
// polymorphism point in this package: the production implementation is
// *Screen, the test implementation is a small recording handler (see
// parser_test.go).
type Handler interface {
	// Print places a printable Unicode scalar at the cursor.
	Print(r rune)
	// Execute applies the side effect of a C0/C1 control byte.
	Execute(b byte)
	// EscDispatch handles a non-CSI escape sequence (ESC intermediate* final).
	EscDispatch(intermediate byte, final byte)
	// CsiDispatch handles a CSI sequence.
	CsiDispatch(params []int, private byte, intermediate byte, final byte)
	// OscDispatch handles an OSC sequence; command is the leading integer
	// (0 if none) and payload is the raw bytes following the first ';'.
	OscDispatch(command int, payload []byte)
	// DcsHook begins a DCS passthrough sequence.
	DcsHook(params []int, private byte, intermediate byte, final byte)
	// DcsPut delivers one payload byte while in DCS passthrough.
	DcsPut(b byte)
	// DcsUnhook ends a DCS passthrough sequence.
	DcsUnhook()
}
