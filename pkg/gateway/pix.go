package gateway

import (
	"errors"

	qrcode "github.com/skip2/go-qrcode"
)

var ErrNoPixPayload = errors.New("gateway: payment has no PIX payload")

// PixQRCodePNG renders the payment's copy-and-paste PIX code as a PNG image
// of size x size pixels, for display on the checkout screen. Returns
// ErrNoPixPayload when the payment has no PIX payload (non-PIX billing, or a
// payment already settled).
func (p *PaymentAttempt) PixQRCodePNG(size int) ([]byte, error) {
	if p.PixPayload == "" {
		return nil, ErrNoPixPayload
	}
	png, err := qrcode.Encode(p.PixPayload, qrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	return png, nil
}
