package statehash

// xxhash32 is a from-scratch implementation of the XXH32 algorithm
// (Yann Collet's xxHash, 32-bit variant). The pack's example repos only
// carry 64-bit xxHash bindings (cespare/xxhash, XXH64), so there is no
// in-pack dependency implementing the 32-bit variant the spec requires;
// this file implements the published algorithm directly rather than
// reaching for an unrelated hash.
const (
	prime32_1 uint32 = 2654435761
	prime32_2 uint32 = 2246822519
	prime32_3 uint32 = 3266489917
	prime32_4 uint32 = 668265263
	prime32_5 uint32 = 374761393
)

func rotl32(x uint32, r uint) uint32 {
	return (x << r) | (x >> (32 - r))
}

func round32(acc, input uint32) uint32 {
	acc += input * prime32_2
	acc = rotl32(acc, 13)
	acc *= prime32_1
	return acc
}

// XXH32 computes the 32-bit xxHash of data seeded with seed.
func XXH32(data []byte, seed uint32) uint32 {
	var h32 uint32
	n := len(data)
	p := 0

	if n >= 16 {
		v1 := seed + prime32_1 + prime32_2
		v2 := seed + prime32_2
		v3 := seed
		v4 := seed - prime32_1

		for n-p >= 16 {
			v1 = round32(v1, le32(data[p:]))
			v2 = round32(v2, le32(data[p+4:]))
			v3 = round32(v3, le32(data[p+8:]))
			v4 = round32(v4, le32(data[p+12:]))
			p += 16
		}
		h32 = rotl32(v1, 1) + rotl32(v2, 7) + rotl32(v3, 12) + rotl32(v4, 18)
	} else {
		h32 = seed + prime32_5
	}

	h32 += uint32(n)

	for n-p >= 4 {
		h32 += le32(data[p:]) * prime32_3
		h32 = rotl32(h32, 17) * prime32_4
		p += 4
	}

	for p < n {
		h32 += uint32(data[p]) * prime32_5
		h32 = rotl32(h32, 11) * prime32_1
		p++
	}

	h32 ^= h32 >> 15
	h32 *= prime32_2
	h32 ^= h32 >> 13
	h32 *= prime32_3
	h32 ^= h32 >> 16

	return h32
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
