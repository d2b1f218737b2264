package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"image/png"

	"github.com/youruser/framegen/internal/frame"
)

// ihdrEnd is the offset just past the IHDR chunk in any stdlib-encoded PNG:
// 8-byte signature + 4 length + 4 type + 13 data + 4 CRC.
const ihdrEnd = 33

// EncodePNG serializes r as an uncompressed PNG (maximum fidelity, larger
// output) with the raster's DPI written into a pHYs chunk.
func EncodePNG(r frame.Raster) ([]byte, error) {
	enc := &png.Encoder{CompressionLevel: png.NoCompression}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, r.Img); err != nil {
		return nil, fmt.Errorf("codec: encoding png: %w", err)
	}

	dpi := r.DPI
	if dpi[0] <= 0 || dpi[1] <= 0 {
		dpi = [2]int{frame.DefaultDPI, frame.DefaultDPI}
	}
	return splicePhys(buf.Bytes(), dpi), nil
}

// splicePhys inserts a pHYs chunk right after IHDR. The stdlib encoder never
// writes one itself, so no duplicate handling is needed.
func splicePhys(data []byte, dpi [2]int) []byte {
	if len(data) < ihdrEnd {
		return data
	}

	chunk := make([]byte, 0, 21)
	var length [4]byte
	binary.BigEndian.PutUint32(length[:], 9)
	chunk = append(chunk, length[:]...)
	chunk = append(chunk, "pHYs"...)

	var fields [9]byte
	binary.BigEndian.PutUint32(fields[0:], dpiToPPM(dpi[0]))
	binary.BigEndian.PutUint32(fields[4:], dpiToPPM(dpi[1]))
	fields[8] = 1 // pixels per meter
	chunk = append(chunk, fields[:]...)

	var crc [4]byte
	binary.BigEndian.PutUint32(crc[:], crc32.ChecksumIEEE(chunk[4:]))
	chunk = append(chunk, crc[:]...)

	out := make([]byte, 0, len(data)+len(chunk))
	out = append(out, data[:ihdrEnd]...)
	out = append(out, chunk...)
	out = append(out, data[ihdrEnd:]...)
	return out
}
