package encoding

// Bit packing used by the RLE/bit-packed hybrid and DELTA_BINARY_PACKED
// miniblocks. Values are packed least-significant bit first: value i
// occupies bits [i*width, (i+1)*width) of the output, reading each byte
// from its lowest bit.

// packBits appends len(values) packed values of the given bit width to dst.
func packBits(dst []byte, values []uint64, width int) []byte {
	if width == 0 {
		return dst
	}

	total := (len(values)*width + 7) / 8
	start := len(dst)
	dst = append(dst, make([]byte, total)...)

	bitPos := 0
	for _, v := range values {
		v &= mask(width)
		for b := 0; b < width; {
			var (
				byteIdx = start + bitPos>>3
				bitOff  = bitPos & 7
				take    = min(8-bitOff, width-b)
			)
			dst[byteIdx] |= byte(((v >> b) & mask(take)) << bitOff)
			b += take
			bitPos += take
		}
	}
	return dst
}

// unpackBits decodes len(dst) values of the given bit width from src.
// It returns the number of bytes consumed, or -1 if src is too short.
func unpackBits(dst []uint64, src []byte, width int) int {
	if width == 0 {
		clear(dst)
		return 0
	}

	need := (len(dst)*width + 7) / 8
	if len(src) < need {
		return -1
	}

	bitPos := 0
	for i := range dst {
		var v uint64
		for b := 0; b < width; {
			var (
				byteIdx = bitPos >> 3
				bitOff  = bitPos & 7
				take    = min(8-bitOff, width-b)
			)
			v |= (uint64(src[byteIdx]) >> bitOff & mask(take)) << b
			b += take
			bitPos += take
		}
		dst[i] = v
	}
	return need
}

func mask(width int) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (1 << width) - 1
}

// bitWidth returns the number of bits required to represent max.
func bitWidth(max uint64) int {
	w := 0
	for max > 0 {
		w++
		max >>= 1
	}
	return w
}
