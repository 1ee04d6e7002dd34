package netlist

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrModuleNotFound = errors.New("netlist: module not found")
	ErrNoTopModule    = errors.New("netlist: no top module")
	ErrAmbiguousTop   = errors.New("netlist: ambiguous top module")
)

// State represents the value of a constant bit.
type State byte

// Constant bit states.
const (
	S0 State = iota
	S1
	Sx
	Sz
)

// String returns the single character representation of the state.
func (s State) String() string {
	switch s {
	case S0:
		return "0"
	case S1:
		return "1"
	case Sx:
		return "x"
	case Sz:
		return "z"
	default:
		return fmt.Sprintf("State<%d>", s)
	}
}

// SigBit represents a single bit of a wire or a constant bit if Wire is nil.
type SigBit struct {
	Wire   *Wire
	Offset int
	State  State
}

// IsConst returns true if the bit does not reference a wire.
func (b SigBit) IsConst() bool { return b.Wire == nil }

// String returns the string representation of the bit.
func (b SigBit) String() string {
	if b.Wire == nil {
		return b.State.String()
	}
	return fmt.Sprintf("%s[%d]", b.Wire.Name, b.Offset)
}

// SigSpec represents a bit-vector signal, least significant bit first.
type SigSpec []SigBit

// WireSig returns a signal covering every bit of w.
func WireSig(w *Wire) SigSpec {
	sig := make(SigSpec, w.Width)
	for i := range sig {
		sig[i] = SigBit{Wire: w, Offset: i}
	}
	return sig
}

// Const returns a constant signal of the given width.
func Const(value uint64, width int) SigSpec {
	sig := make(SigSpec, width)
	for i := range sig {
		sig[i] = SigBit{State: S0}
		if i < 64 && value&(1<<uint(i)) != 0 {
			sig[i].State = S1
		}
	}
	return sig
}

// Width returns the number of bits in the signal.
func (sig SigSpec) Width() int { return len(sig) }

// IsFullyConst returns true if no bit references a wire.
func (sig SigSpec) IsFullyConst() bool {
	for _, bit := range sig {
		if bit.Wire != nil {
			return false
		}
	}
	return true
}

// IsFullyDef returns true if every bit is a constant 0 or 1.
func (sig SigSpec) IsFullyDef() bool {
	for _, bit := range sig {
		if bit.Wire != nil || (bit.State != S0 && bit.State != S1) {
			return false
		}
	}
	return true
}

// AsUint64 returns the integer value of a fully defined constant of up to
// 64 bits.
func (sig SigSpec) AsUint64() (uint64, bool) {
	if !sig.IsFullyDef() || len(sig) > 64 {
		return 0, false
	}
	var v uint64
	for i, bit := range sig {
		if bit.State == S1 {
			v |= 1 << uint(i)
		}
	}
	return v, true
}

// IsWire returns true if the signal covers exactly one whole wire in order.
func (sig SigSpec) IsWire() bool {
	return sig.AsWire() != nil
}

// AsWire returns the wire covered by the signal. Returns nil if the signal is
// not exactly one whole wire.
func (sig SigSpec) AsWire() *Wire {
	if len(sig) == 0 || sig[0].Wire == nil || sig[0].Wire.Width != len(sig) {
		return nil
	}
	w := sig[0].Wire
	for i, bit := range sig {
		if bit.Wire != w || bit.Offset != i {
			return nil
		}
	}
	return w
}

// Extract returns a sub-range of the signal.
func (sig SigSpec) Extract(offset, length int) SigSpec {
	assert(offset >= 0 && length >= 0 && offset+length <= len(sig), "extract out of bounds: %d+%d > %d", offset, length, len(sig))
	other := make(SigSpec, length)
	copy(other, sig[offset:offset+length])
	return other
}

// Equal returns true if both signals contain the same bits in the same order.
func (sig SigSpec) Equal(other SigSpec) bool {
	if len(sig) != len(other) {
		return false
	}
	for i := range sig {
		if sig[i] != other[i] {
			return false
		}
	}
	return true
}

// Key returns a canonical string that identifies the signal. Two signals
// have equal keys if and only if they are Equal.
func (sig SigSpec) Key() string {
	var buf strings.Builder
	for i, bit := range sig {
		if i > 0 {
			buf.WriteByte(',')
		}
		if bit.Wire == nil {
			buf.WriteString(bit.State.String())
			continue
		}
		buf.WriteString(strconv.Quote(bit.Wire.Name))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(bit.Offset))
	}
	return buf.String()
}

// String returns a human readable representation of the signal, most
// significant chunk first.
func (sig SigSpec) String() string {
	if len(sig) == 0 {
		return "{}"
	} else if w := sig.AsWire(); w != nil {
		return w.Name
	} else if sig.IsFullyConst() {
		var buf strings.Builder
		fmt.Fprintf(&buf, "%d'b", len(sig))
		for i := len(sig) - 1; i >= 0; i-- {
			buf.WriteString(sig[i].State.String())
		}
		return buf.String()
	}

	// Collapse runs of contiguous bits of the same wire.
	var chunks []string
	for i := 0; i < len(sig); {
		j := i + 1
		if sig[i].Wire != nil {
			for j < len(sig) && sig[j].Wire == sig[i].Wire && sig[j].Offset == sig[j-1].Offset+1 {
				j++
			}
		}
		switch {
		case sig[i].Wire == nil:
			chunks = append(chunks, "1'b"+sig[i].State.String())
		case sig[i].Offset == 0 && j-i == sig[i].Wire.Width:
			chunks = append(chunks, sig[i].Wire.Name)
		case j-i == 1:
			chunks = append(chunks, sig[i].String())
		default:
			chunks = append(chunks, fmt.Sprintf("%s[%d:%d]", sig[i].Wire.Name, sig[j-1].Offset, sig[i].Offset))
		}
		i = j
	}
	for l, r := 0, len(chunks)-1; l < r; l, r = l+1, r-1 {
		chunks[l], chunks[r] = chunks[r], chunks[l]
	}
	return "{" + strings.Join(chunks, ", ") + "}"
}

// assert panics if condition is false.
func assert(condition bool, format string, args ...interface{}) {
	if !condition {
		panic(fmt.Sprintf("assert: "+format, args...))
	}
}
