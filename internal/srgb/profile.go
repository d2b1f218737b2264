package srgb

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ICC tag table parsing and tone-curve evaluation for matrix-shaper
// profiles. Only the tags needed for the RGB/Gray -> sRGB direction are
// understood; anything else (LUT-based profiles in particular) is reported
// as unsupported so the caller can fall back.

const (
	headerSize   = 128
	tagEntrySize = 12

	sigCurv = 0x63757276 // 'curv'
	sigPara = 0x70617261 // 'para'
	sigXYZ  = 0x58595A20 // 'XYZ '
)

type tagTable map[uint32][]byte

func parseTagTable(profile []byte) (tagTable, error) {
	if len(profile) < headerSize+4 {
		return nil, fmt.Errorf("profile too short: %d bytes", len(profile))
	}
	count := binary.BigEndian.Uint32(profile[headerSize:])
	if count > 1024 {
		return nil, fmt.Errorf("implausible tag count %d", count)
	}
	tableEnd := headerSize + 4 + int(count)*tagEntrySize
	if len(profile) < tableEnd {
		return nil, fmt.Errorf("truncated tag table")
	}

	tags := make(tagTable, count)
	for i := 0; i < int(count); i++ {
		entry := profile[headerSize+4+i*tagEntrySize:]
		sig := binary.BigEndian.Uint32(entry)
		off := binary.BigEndian.Uint32(entry[4:])
		size := binary.BigEndian.Uint32(entry[8:])
		if int(off)+int(size) > len(profile) || size < 8 {
			return nil, fmt.Errorf("tag %08x out of bounds", sig)
		}
		tags[sig] = profile[off : off+size]
	}
	return tags, nil
}

func sig4(s string) uint32 {
	return binary.BigEndian.Uint32([]byte(s))
}

// s15Fixed16 converts an ICC s15Fixed16Number.
func s15Fixed16(b []byte) float64 {
	return float64(int32(binary.BigEndian.Uint32(b))) / 65536.0
}

// parseXYZ reads an XYZType tag into a 3-vector.
func parseXYZ(data []byte) ([3]float64, error) {
	var v [3]float64
	if binary.BigEndian.Uint32(data) != sigXYZ || len(data) < 20 {
		return v, fmt.Errorf("not an XYZ tag")
	}
	v[0] = s15Fixed16(data[8:])
	v[1] = s15Fixed16(data[12:])
	v[2] = s15Fixed16(data[16:])
	return v, nil
}

// curve is a sampled tone curve evaluated on [0,1].
type curve func(x float64) float64

func identityCurve(x float64) float64 { return x }

// parseCurve understands curveType ('curv') and parametricCurveType ('para').
func parseCurve(data []byte) (curve, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("curve tag too short")
	}
	switch binary.BigEndian.Uint32(data) {
	case sigCurv:
		return parseCurv(data)
	case sigPara:
		return parsePara(data)
	}
	return nil, fmt.Errorf("unsupported curve type %08x", binary.BigEndian.Uint32(data))
}

func parseCurv(data []byte) (curve, error) {
	n := int(binary.BigEndian.Uint32(data[8:]))
	switch {
	case n == 0:
		return identityCurve, nil
	case n == 1:
		if len(data) < 14 {
			return nil, fmt.Errorf("truncated gamma curve")
		}
		// u8Fixed8 gamma value.
		gamma := float64(binary.BigEndian.Uint16(data[12:])) / 256.0
		return func(x float64) float64 { return math.Pow(x, gamma) }, nil
	default:
		if len(data) < 12+2*n {
			return nil, fmt.Errorf("truncated curve table (%d entries)", n)
		}
		lut := make([]float64, n)
		for i := range lut {
			lut[i] = float64(binary.BigEndian.Uint16(data[12+2*i:])) / 65535.0
		}
		return func(x float64) float64 { return interpolate(lut, x) }, nil
	}
}

func interpolate(lut []float64, x float64) float64 {
	if x <= 0 {
		return lut[0]
	}
	if x >= 1 {
		return lut[len(lut)-1]
	}
	pos := x * float64(len(lut)-1)
	i := int(pos)
	frac := pos - float64(i)
	return lut[i] + (lut[i+1]-lut[i])*frac
}

// parsePara implements the five parametric function types of ICC.1.
func parsePara(data []byte) (curve, error) {
	fnType := binary.BigEndian.Uint16(data[8:])
	params := make([]float64, 0, 7)
	for off := 12; off+4 <= len(data); off += 4 {
		params = append(params, s15Fixed16(data[off:]))
	}
	need := []int{1, 3, 4, 5, 7}
	if int(fnType) >= len(need) || len(params) < need[fnType] {
		return nil, fmt.Errorf("parametric curve type %d with %d params", fnType, len(params))
	}

	p := params
	switch fnType {
	case 0:
		return func(x float64) float64 { return math.Pow(x, p[0]) }, nil
	case 1:
		return func(x float64) float64 {
			if x >= -p[2]/p[1] {
				return math.Pow(p[1]*x+p[2], p[0])
			}
			return 0
		}, nil
	case 2:
		return func(x float64) float64 {
			if x >= -p[2]/p[1] {
				return math.Pow(p[1]*x+p[2], p[0]) + p[3]
			}
			return p[3]
		}, nil
	case 3:
		return func(x float64) float64 {
			if x >= p[4] {
				return math.Pow(p[1]*x+p[2], p[0])
			}
			return p[3] * x
		}, nil
	default: // type 4
		return func(x float64) float64 {
			if x >= p[4] {
				return math.Pow(p[1]*x+p[2], p[0]) + p[5]
			}
			return p[3]*x + p[6]
		}, nil
	}
}
