// Package verify produces the scannable authenticity stamp of a signed
// contract.
package verify

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

const imageSize = 256

// QRPNG encodes the verification URL as a PNG image.
func QRPNG(verificationURL string) ([]byte, error) {
	png, err := qrcode.Encode(verificationURL, qrcode.Low, imageSize)
	if err != nil {
		return nil, fmt.Errorf("encode verification qr: %w", err)
	}
	return png, nil
}
