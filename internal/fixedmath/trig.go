package fixedmath

import "math"

// tableSize is the number of samples across one full circle (2*pi) for the
// sin/cos tables, and across [0,1] for the atan table. Chosen as a power of
// two so index arithmetic is cheap and identical across platforms.
const tableSize = 1024

// Pi is pi expressed in Q16.16.
var Pi = FromFloat64(math.Pi)

// TwoPi is 2*pi expressed in Q16.16.
var TwoPi = FromFloat64(2 * math.Pi)

// HalfPi is pi/2 expressed in Q16.16.
var HalfPi = FromFloat64(math.Pi / 2)

var (
	sinTable  [tableSize + 1]Fixed
	atanTable [tableSize + 1]Fixed
)

func init() {
	for i := 0; i <= tableSize; i++ {
		angle := 2 * math.Pi * float64(i) / float64(tableSize)
		sinTable[i] = FromFloat64(math.Sin(angle))
	}
	for i := 0; i <= tableSize; i++ {
		ratio := float64(i) / float64(tableSize)
		atanTable[i] = FromFloat64(math.Atan(ratio))
	}
}

// wrapTableIndex maps a Fixed angle into [0, TwoPi) and returns the
// fractional table position as (index, fraction) where fraction is a Fixed
// in [0,1) used for linear interpolation.
func wrapTableIndex(angle Fixed) (int, Fixed) {
	a := int64(angle) % int64(TwoPi)
	if a < 0 {
		a += int64(TwoPi)
	}
	scaled := a * tableSize
	pos := scaled / int64(TwoPi)
	remainder := scaled % int64(TwoPi)
	frac := Fixed((remainder * int64(One)) / int64(TwoPi))
	if pos >= tableSize {
		pos = tableSize - 1
		frac = One
	}
	return int(pos), frac
}

func lerpTable(table *[tableSize + 1]Fixed, idx int, frac Fixed) Fixed {
	lo := table[idx]
	hi := table[idx+1]
	return lo + (hi-lo).Mul(frac)
}

// Sin returns the sine of a Q16.16 radian angle via table lookup with
// linear interpolation.
func Sin(angle Fixed) Fixed {
	idx, frac := wrapTableIndex(angle)
	return lerpTable(&sinTable, idx, frac)
}

// Cos returns the cosine of a Q16.16 radian angle.
func Cos(angle Fixed) Fixed {
	return Sin(angle + HalfPi)
}

// atanPositive returns atan(t) for t in [0,1] via table lookup.
func atanPositive(t Fixed) Fixed {
	if t > One {
		t = One
	}
	pos := (int64(t) * tableSize) / int64(One)
	if pos >= tableSize {
		return atanTable[tableSize]
	}
	lo := atanTable[pos]
	hi := atanTable[pos+1]

	cellFrac := t - Fixed((pos*int64(One))/tableSize)
	cellWidth := Fixed(int64(One) / tableSize)
	if cellWidth == 0 {
		return lo
	}
	frac := cellFrac.Div(cellWidth)
	return lo + (hi - lo).Mul(frac)
}

// Atan2 returns the four-quadrant arctangent of y/x in Q16.16 radians,
// using table lookup for the core atan(|y|/|x|) computation.
func Atan2(y, x Fixed) Fixed {
	if x == 0 && y == 0 {
		return 0
	}
	absY := y.Abs()
	absX := x.Abs()

	var angle Fixed
	if absX >= absY {
		if absX == 0 {
			angle = 0
		} else {
			angle = atanPositive(absY.Div(absX))
		}
	} else {
		angle = HalfPi - atanPositive(absX.Div(absY))
	}

	switch {
	case x >= 0 && y >= 0:
		return angle
	case x < 0 && y >= 0:
		return Pi - angle
	case x < 0 && y < 0:
		return -(Pi - angle)
	default: // x >= 0 && y < 0
		return -angle
	}
}
