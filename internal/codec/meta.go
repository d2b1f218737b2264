package codec

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"io"
	"math"
	"sort"
)

type metadata struct {
	icc          []byte
	dpi          [2]int
	transparency bool
}

var (
	pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegSOI      = []byte{0xff, 0xd8}
)

// scanMetadata extracts ICC/DPI/transparency info from the image container.
// It is best-effort: a malformed container simply yields empty metadata,
// pixel decoding has already succeeded at this point.
func scanMetadata(data []byte) metadata {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return scanPNG(data)
	case bytes.HasPrefix(data, jpegSOI):
		return scanJPEG(data)
	}
	return metadata{}
}

// scanPNG walks chunks up to the first IDAT, picking up iCCP, pHYs and tRNS.
func scanPNG(data []byte) metadata {
	var m metadata
	off := len(pngSignature)
	for off+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[off:]))
		typ := string(data[off+4 : off+8])
		dataStart := off + 8
		if length < 0 || dataStart+length+4 > len(data) {
			break
		}
		chunk := data[dataStart : dataStart+length]

		switch typ {
		case "iCCP":
			m.icc = inflateICCP(chunk)
		case "pHYs":
			if length >= 9 && chunk[8] == 1 { // unit: pixels per meter
				x := binary.BigEndian.Uint32(chunk)
				y := binary.BigEndian.Uint32(chunk[4:])
				m.dpi = [2]int{ppmToDPI(x), ppmToDPI(y)}
			}
		case "tRNS":
			m.transparency = true
		case "IDAT", "IEND":
			return m
		}
		off = dataStart + length + 4 // skip data and CRC
	}
	return m
}

// inflateICCP decompresses the profile from an iCCP chunk
// (name, NUL, compression method, zlib stream).
func inflateICCP(chunk []byte) []byte {
	nul := bytes.IndexByte(chunk, 0)
	if nul < 0 || nul+2 >= len(chunk) || chunk[nul+1] != 0 {
		return nil
	}
	zr, err := zlib.NewReader(bytes.NewReader(chunk[nul+2:]))
	if err != nil {
		return nil
	}
	defer zr.Close()
	profile, err := io.ReadAll(io.LimitReader(zr, 8<<20))
	if err != nil {
		return nil
	}
	return profile
}

const (
	iccMarkerTag = "ICC_PROFILE\x00"
	markerAPP0   = 0xe0
	markerAPP2   = 0xe2
	markerSOS    = 0xda
)

// scanJPEG walks marker segments up to SOS, reading JFIF density from APP0
// and reassembling the ICC profile from APP2 chunks.
func scanJPEG(data []byte) metadata {
	var m metadata
	var app2 [][]byte

	off := 2
	for off+4 <= len(data) {
		if data[off] != 0xff {
			break
		}
		marker := data[off+1]
		if marker == 0xff { // fill byte
			off++
			continue
		}
		if marker == markerSOS {
			break
		}
		// standalone markers (RSTn, TEM) have no length field
		if marker == 0x01 || (marker >= 0xd0 && marker <= 0xd7) {
			off += 2
			continue
		}
		length := int(binary.BigEndian.Uint16(data[off+2:]))
		if length < 2 || off+2+length > len(data) {
			break
		}
		payload := data[off+4 : off+2+length]

		switch marker {
		case markerAPP0:
			if len(payload) >= 12 && bytes.HasPrefix(payload, []byte("JFIF\x00")) {
				units := payload[7]
				x := int(binary.BigEndian.Uint16(payload[8:]))
				y := int(binary.BigEndian.Uint16(payload[10:]))
				switch units {
				case 1: // dots per inch
					m.dpi = [2]int{x, y}
				case 2: // dots per cm
					m.dpi = [2]int{int(math.Round(float64(x) * 2.54)), int(math.Round(float64(y) * 2.54))}
				}
			}
		case markerAPP2:
			app2 = append(app2, payload)
		}
		off += 2 + length
	}

	m.icc = reassembleICC(app2)
	return m
}

// reassembleICC stitches an ICC profile back together from APP2 payloads.
// Inconsistent chunk sequences yield no profile rather than a broken one.
func reassembleICC(payloads [][]byte) []byte {
	type chunk struct {
		seq  int
		data []byte
	}
	var chunks []chunk
	expected := 0

	for _, p := range payloads {
		if len(p) < 14 || string(p[:12]) != iccMarkerTag {
			continue
		}
		seq, count := int(p[12]), int(p[13])
		if seq == 0 || seq > count {
			return nil
		}
		if expected == 0 {
			expected = count
		} else if count != expected {
			return nil
		}
		chunks = append(chunks, chunk{seq: seq, data: p[14:]})
	}

	if len(chunks) == 0 || len(chunks) != expected {
		return nil
	}
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].seq < chunks[j].seq })

	var buf bytes.Buffer
	for _, c := range chunks {
		buf.Write(c.data)
	}
	return buf.Bytes()
}

func ppmToDPI(ppm uint32) int {
	return int(math.Round(float64(ppm) * 0.0254))
}

func dpiToPPM(dpi int) uint32 {
	return uint32(math.Round(float64(dpi) / 0.0254))
}
