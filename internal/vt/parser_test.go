package vt

import (
	"fmt"
	"reflect"
	"testing"
)

// event is one recorded dispatch from a recorder.
type event struct {
	kind string
	args []interface{}
}

// recorder is a Handler that appends every dispatch to a slice, for
// asserting on parser behavior directly without a Screen in the loop.
type recorder struct {
	events []event
}

func (r *recorder) Print(ru rune) { r.events = append(r.events, event{"print", []interface{}{ru}}) }
func (r *recorder) Execute(b byte) { r.events = append(r.events, event{"execute", []interface{}{b}}) }
func (r *recorder) EscDispatch(inter, final byte) {
	r.events = append(r.events, event{"esc", []interface{}{inter, final}})
}
func (r *recorder) CsiDispatch(params []int, private, inter, final byte) {
	cp := append([]int(nil), params...)
	r.events = append(r.events, event{"csi", []interface{}{cp, private, inter, final}})
}
func (r *recorder) OscDispatch(command int, payload []byte) {
	r.events = append(r.events, event{"osc", []interface{}{command, string(payload)}})
}
func (r *recorder) DcsHook(params []int, private, inter, final byte) {
	cp := append([]int(nil), params...)
	r.events = append(r.events, event{"dcshook", []interface{}{cp, private, inter, final}})
}
func (r *recorder) DcsPut(b byte) { r.events = append(r.events, event{"dcsput", []interface{}{b}}) }
func (r *recorder) DcsUnhook()    { r.events = append(r.events, event{"dcsunhook", nil}) }

func feedChunked(t *testing.T, data []byte, chunkSizes []int) []event {
	t.Helper()
	p := NewParser()
	r := &recorder{}
	i := 0
	ci := 0
	for i < len(data) {
		n := chunkSizes[ci%len(chunkSizes)]
		if n <= 0 {
			n = 1
		}
		end := i + n
		if end > len(data) {
			end = len(data)
		}
		p.Parse(r, data[i:end])
		i = end
		ci++
	}
	return r.events
}

func TestChunkInvariance(t *testing.T) {
	seq := []byte("hello \x1b[1;31mworld\x1b[0m\r\n\x1b]0;title\x07\x1b P1$q\x1b\\")
	whole := feedChunked(t, seq, []int{len(seq)})
	for _, chunking := range [][]int{{1}, {2}, {3}, {7}, {1, 2, 3}} {
		got := feedChunked(t, seq, chunking)
		if !reflect.DeepEqual(whole, got) {
			t.Fatalf("chunking %v produced different events:\nwhole: %+v\ngot:   %+v", chunking, whole, got)
		}
	}
}

func TestResetEquivalentToFreshParser(t *testing.T) {
	p := NewParser()
	r1 := &recorder{}
	p.Parse(r1, []byte("\x1b[3;4"))
	p.Reset()

	fresh := NewParser()
	rest := []byte("\x1b[1mhi")

	rA := &recorder{}
	p.Parse(rA, rest)

	rB := &recorder{}
	fresh.Parse(rB, rest)

	if !reflect.DeepEqual(rA.events, rB.events) {
		t.Fatalf("reset parser diverged from fresh parser:\nreset: %+v\nfresh: %+v", rA.events, rB.events)
	}
}

func TestPrintablePassthrough(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("ab"))
	want := []event{{"print", []interface{}{'a'}}, {"print", []interface{}{'b'}}}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("got %+v want %+v", r.events, want)
	}
}

func TestCSIParamParsing(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1b[1;31m"))
	if len(r.events) != 1 || r.events[0].kind != "csi" {
		t.Fatalf("expected one csi event, got %+v", r.events)
	}
	params := r.events[0].args[0].([]int)
	if !reflect.DeepEqual(params, []int{1, 31}) {
		t.Fatalf("params = %v, want [1 31]", params)
	}
	if final := r.events[0].args[3].(byte); final != 'm' {
		t.Fatalf("final = %q, want 'm'", final)
	}
}

func TestCSIDefaultAndEmptyParams(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1b[m"))
	params := r.events[0].args[0].([]int)
	if len(params) != 0 {
		t.Fatalf("expected no params for bare CSI m, got %v", params)
	}
}

func TestCSIPrivateMarker(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1b[?25h"))
	ev := r.events[0]
	private := ev.args[1].(byte)
	final := ev.args[3].(byte)
	if private != '?' || final != 'h' {
		t.Fatalf("private=%q final=%q, want '?' 'h'", private, final)
	}
}

func TestCSITooManyParamsIgnoresExcess(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	var seq []byte
	seq = append(seq, "\x1b["...)
	for i := 0; i < 40; i++ {
		if i > 0 {
			seq = append(seq, ';')
		}
		seq = append(seq, []byte(fmt.Sprintf("%d", i))...)
	}
	seq = append(seq, 'm')
	p.Parse(r, seq)
	params := r.events[0].args[0].([]int)
	if len(params) > maxCSIParams {
		t.Fatalf("params len = %d, want <= %d", len(params), maxCSIParams)
	}
}

func TestOSCDispatchBELTerminated(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1b]0;hello world\x07"))
	if len(r.events) != 1 || r.events[0].kind != "osc" {
		t.Fatalf("expected one osc event, got %+v", r.events)
	}
	if cmd := r.events[0].args[0].(int); cmd != 0 {
		t.Fatalf("command = %d, want 0", cmd)
	}
	if payload := r.events[0].args[1].(string); payload != "hello world" {
		t.Fatalf("payload = %q, want %q", payload, "hello world")
	}
}

func TestOSCDispatchSTTerminated(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1b]2;title\x1b\\"))
	if len(r.events) != 1 || r.events[0].kind != "osc" {
		t.Fatalf("expected one osc event, got %+v", r.events)
	}
	if payload := r.events[0].args[1].(string); payload != "title" {
		t.Fatalf("payload = %q, want %q", payload, "title")
	}
}

func TestOSCDispatchLiteralC1ST(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1b]2;title\x9c"))
	if len(r.events) != 1 || r.events[0].kind != "osc" {
		t.Fatalf("expected one osc event, got %+v", r.events)
	}
}

func TestDCSPassthrough(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1bP1$q\"p\x1b\\"))
	if len(r.events) < 2 {
		t.Fatalf("expected hook+put*+unhook, got %+v", r.events)
	}
	if r.events[0].kind != "dcshook" {
		t.Fatalf("first event = %s, want dcshook", r.events[0].kind)
	}
	last := r.events[len(r.events)-1]
	if last.kind != "dcsunhook" {
		t.Fatalf("last event = %s, want dcsunhook", last.kind)
	}
	var put []byte
	for _, ev := range r.events[1 : len(r.events)-1] {
		if ev.kind != "dcsput" {
			t.Fatalf("middle event = %s, want dcsput", ev.kind)
		}
		put = append(put, ev.args[0].(byte))
	}
	if string(put) != "\"p" {
		t.Fatalf("DCS payload = %q, want %q", put, "\"p")
	}
}

func TestCANSUBCancelsSequence(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1b[1;3\x18m"))
	// CAN cancels the CSI sequence; the trailing 'm' prints as a literal.
	want := []event{{"print", []interface{}{'m'}}}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("got %+v want %+v", r.events, want)
	}
}

func TestCANCancelsDCSPassthroughCallsUnhook(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1bP1$qabc\x18"))
	last := r.events[len(r.events)-1]
	if last.kind != "dcsunhook" {
		t.Fatalf("last event = %s, want dcsunhook after CAN", last.kind)
	}
}

func TestESCCancelsPendingSequenceThenStartsNew(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1b[31\x1bc"))
	want := []event{{"esc", []interface{}{byte(0), byte('c')}}}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("got %+v want %+v", r.events, want)
	}
}

func TestC0ControlDuringCSIExecutes(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte("\x1b[1\n;2m"))
	want := []event{
		{"execute", []interface{}{byte('\n')}},
		{"csi", []interface{}{[]int{1, 2}, byte(0), byte(0), byte('m')}},
	}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("got %+v want %+v", r.events, want)
	}
}

func TestUTF8MultibyteDecoding(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	// "é" (2 bytes), "€" (3 bytes), "𝄞" (4 bytes, musical symbol G clef)
	p.Parse(r, []byte("é€𝄞"))
	want := []event{
		{"print", []interface{}{'é'}},
		{"print", []interface{}{'€'}},
		{"print", []interface{}{'𝄞'}},
	}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("got %+v want %+v", r.events, want)
	}
}

func TestUTF8TruncatedSequenceEmitsReplacementAndReprocesses(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	// 0xE2 0x82 starts a 3-byte sequence but is followed by an ASCII 'x',
	// not a continuation byte: truncated sequence -> replacement, then 'x'
	// is reprocessed as its own printable byte.
	p.Parse(r, []byte{0xE2, 0x82, 'x'})
	want := []event{
		{"print", []interface{}{'�'}},
		{"print", []interface{}{'x'}},
	}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("got %+v want %+v", r.events, want)
	}
}

func TestUTF8OverlongRejected(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	// 0xC0 0x80 is an overlong encoding of NUL.
	p.Parse(r, []byte{0xC0, 0x80})
	if len(r.events) != 1 || r.events[0].args[0] != rune('�') {
		t.Fatalf("got %+v, want single replacement-char print", r.events)
	}
}

func TestUTF8SurrogateRejected(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	// 0xED 0xA0 0x80 encodes U+D800, a surrogate, which is invalid UTF-8.
	p.Parse(r, []byte{0xED, 0xA0, 0x80})
	if len(r.events) != 1 || r.events[0].args[0] != rune('�') {
		t.Fatalf("got %+v, want single replacement-char print", r.events)
	}
}

func TestDELAndNULIgnoredEverywhere(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	p.Parse(r, []byte{'a', 0x7F, 0x00, 'b'})
	want := []event{{"print", []interface{}{'a'}}, {"print", []interface{}{'b'}}}
	if !reflect.DeepEqual(r.events, want) {
		t.Fatalf("got %+v want %+v", r.events, want)
	}
}

func TestC1EntryShortcuts(t *testing.T) {
	p := NewParser()
	r := &recorder{}
	// 0x9B is CSI, 0x90 is DCS.
	p.Parse(r, []byte{0x9B, '1', 'm'})
	if len(r.events) != 1 || r.events[0].kind != "csi" {
		t.Fatalf("C1 CSI entry: got %+v", r.events)
	}
}
