package grid

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/unicode/norm"
)

// canonicalNaNBits is the bit pattern every NaN collapses to before
// hashing or equality comparison, so that distinct NaN payloads never
// split an otherwise-equal row or column.
const canonicalNaNBits uint64 = 0x7FF8000000000000

// normalizeFloatForHash centralizes the float normalization rule used by
// both signature hashing and cell equality (spec.md §3, §9): NaN becomes
// the canonical bit pattern, ±0 becomes +0, and everything else is
// rounded to 14 significant decimal digits so ULP-level drift does not
// split rows/columns that are equal for any practical purpose.
func normalizeFloatForHash(n float64) uint64 {
	if math.IsNaN(n) {
		return canonicalNaNBits
	}
	if n == 0 {
		return 0
	}
	magnitude := math.Floor(math.Log10(math.Abs(n)))
	scale := math.Pow(10, 13-magnitude)
	normalized := math.Round(n*scale) / scale
	return math.Float64bits(normalized)
}

// internText applies NFC normalization so that visually/semantically
// identical strings encoded with different Unicode decompositions (a
// common artifact of different spreadsheet producers) hash identically.
// This is the one piece of text canonicalization the signature and
// equality paths share.
func internText(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// hashValue mixes the 1-byte value-kind discriminator and payload into
// the running hash, matching the discrimination rule in spec.md §4.1(d).
func hashValue(h *xxhash.Digest, v *Value) {
	var tag [1]byte
	if v == nil {
		tag[0] = 3
		h.Write(tag[:])
		return
	}
	switch v.Kind {
	case KindBlank:
		tag[0] = 4
		h.Write(tag[:])
	case KindNumber:
		tag[0] = 0
		h.Write(tag[:])
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], normalizeFloatForHash(v.Number))
		h.Write(buf[:])
	case KindText:
		tag[0] = 1
		h.Write(tag[:])
		h.WriteString(internText(v.Text))
	case KindBool:
		tag[0] = 2
		h.Write(tag[:])
		if v.Bool {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case KindError:
		tag[0] = 5
		h.Write(tag[:])
		h.WriteString(internText(v.Text))
	}
}

func hashFormula(h *xxhash.Digest, formula *string) {
	if formula == nil {
		h.Write([]byte{0})
		return
	}
	h.Write([]byte{1})
	h.WriteString(*formula)
}

func hashCellContent(h *xxhash.Digest, c Cell) {
	hashValue(h, c.Value)
	hashFormula(h, c.Formula)
}

// hash128 derives a 128-bit signature from a 64-bit xxhash digest by
// finalizing it twice with a different seed mixed in for the high half.
// The algorithm is not load-bearing per spec.md §9; what matters is that
// it is stable across runs and machines and that every cell's
// value-kind/formula feed into it identically for both halves.
var hashMixSalt = []byte{0x9e, 0x37, 0x79, 0xb9, 0x7f, 0x4a, 0x7c, 0x15}

func hash128(content func(h *xxhash.Digest)) (hi, lo uint64) {
	low := xxhash.New()
	content(low)
	lo = low.Sum64()

	high := xxhash.New()
	content(high)
	high.Write(hashMixSalt)
	hi = high.Sum64()
	return hi, lo
}

func hashRow(cells []Cell) RowSignature {
	hi, lo := hash128(func(h *xxhash.Digest) {
		for _, c := range cells {
			hashCellContent(h, c)
		}
	})
	return RowSignature{Hi: hi, Lo: lo}
}

func hashCol(cells []Cell) ColSignature {
	hi, lo := hash128(func(h *xxhash.Digest) {
		for _, c := range cells {
			hashCellContent(h, c)
		}
	})
	return ColSignature{Hi: hi, Lo: lo}
}
