package apb

import "math/bits"

// RegisterFile is the word-addressed storage behind the slave. Byte addresses
// map to word indices by dropping the lane bits: index = address >> log2(lanes).
type RegisterFile struct {
	words   []uint64
	initial []uint64

	busWidth int
	shift    uint
}

// NewRegisterFile copies the initial word image. Words are truncated to the
// bus width. The initial image is retained so Reset can restore it.
func NewRegisterFile(initial []uint64, busWidth int) *RegisterFile {
	lanes := busWidth / 8
	f := &RegisterFile{
		words:    make([]uint64, len(initial)),
		initial:  make([]uint64, len(initial)),
		busWidth: busWidth,
		shift:    uint(bits.TrailingZeros(uint(lanes))),
	}
	for i, w := range initial {
		w &= wordMask(busWidth)
		f.words[i] = w
		f.initial[i] = w
	}
	return f
}

// Len returns the number of words.
func (f *RegisterFile) Len() int { return len(f.words) }

// Index maps a byte address to a word index. The second return value is
// false when the address decodes outside the register range.
func (f *RegisterFile) Index(address uint64) (int, bool) {
	idx := int(address >> f.shift)
	return idx, idx >= 0 && idx < len(f.words)
}

// Read returns the word at index.
func (f *RegisterFile) Read(index int) (uint64, bool) {
	if index < 0 || index >= len(f.words) {
		return 0, false
	}
	return f.words[index], true
}

// WriteMasked updates only the byte lanes enabled in strobe; disabled lanes
// retain their previous content.
func (f *RegisterFile) WriteMasked(index int, data uint64, strobe uint64) bool {
	if index < 0 || index >= len(f.words) {
		return false
	}
	lanes := f.busWidth / 8
	word := f.words[index]
	for lane := 0; lane < lanes; lane++ {
		if strobe&(uint64(1)<<uint(lane)) == 0 {
			continue
		}
		laneMask := uint64(0xFF) << uint(8*lane)
		word = (word &^ laneMask) | (data & laneMask)
	}
	f.words[index] = word & wordMask(f.busWidth)
	return true
}

// Snapshot returns a copy of the current word image for test inspection.
func (f *RegisterFile) Snapshot() []uint64 {
	out := make([]uint64, len(f.words))
	copy(out, f.words)
	return out
}

// Reset restores the initial word image.
func (f *RegisterFile) Reset() {
	copy(f.words, f.initial)
}

func wordMask(busWidth int) uint64 {
	if busWidth >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << uint(busWidth)) - 1
}
