package share

import (
	"bytes"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
)

// LinkQR returns PNG bytes of a QR code pointing at a share link.
func LinkQR(link string, size int) ([]byte, error) {
	pngBytes, err := qrcode.Encode(link, qrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	// validate png decode
	if _, err := png.Decode(bytes.NewReader(pngBytes)); err != nil {
		return nil, err
	}
	return pngBytes, nil
}
