// Package qrcode renders payment-link QR codes.
package qrcode

import (
	qr "github.com/skip2/go-qrcode"
)

const defaultSize = 256

type Provider struct{}

func NewProvider() *Provider {
	return &Provider{}
}

// PaymentLinkPNG encodes the payment URL as a PNG image.
func (p *Provider) PaymentLinkPNG(url string, size int) ([]byte, error) {
	if size <= 0 {
		size = defaultSize
	}
	return qr.Encode(url, qr.Medium, size)
}
