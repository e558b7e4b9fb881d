// Package qr turns ticket tokens into scannable QR images.  The image
// always encodes the approver deep link, never the bare token, so any
// phone camera opens the scan page directly.
package qr

import (
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/festival-ticketing/internal/ticket"
)

const (
	MinSize     = 120
	MaxSize     = 1024
	DefaultSize = 320
)

// Verifier is the part of ticket.Codec the renderer needs.
type Verifier interface {
	Verify(token string) (ticket.Payload, error)
}

// Artifacts bundles every representation handed to a ticket holder.
type Artifacts struct {
	DeepLink string `json:"ticketUrl"`
	ImageURL string `json:"qrImageUrl"`
	DataURL  string `json:"qrDataUrl"`
}

// Renderer builds deep links and QR images for tokens.
type Renderer struct {
	baseURL string
	codec   Verifier
}

// NewRenderer returns a Renderer that builds absolute URLs below
// baseURL and verifies tokens with codec before any image work.
func NewRenderer(baseURL string, codec Verifier) *Renderer {
	return &Renderer{baseURL: strings.TrimRight(baseURL, "/"), codec: codec}
}

// ClampSize bounds a requested edge length in pixels.  Zero or
// negative values select DefaultSize.
func ClampSize(size int) int {
	switch {
	case size <= 0:
		return DefaultSize
	case size < MinSize:
		return MinSize
	case size > MaxSize:
		return MaxSize
	default:
		return size
	}
}

// DeepLink is the canonical URL an approver opens to resolve token.
func (r *Renderer) DeepLink(token string) string {
	return r.baseURL + "/approver/scan?token=" + url.QueryEscape(token)
}

// ImageURL is the stable HTTP URL that regenerates the PNG on request.
func (r *Renderer) ImageURL(token string, size int) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("size", strconv.Itoa(ClampSize(size)))
	return r.baseURL + "/api/qr?" + q.Encode()
}

// PNG verifies token and encodes its deep link as a QR code.
func (r *Renderer) PNG(token string, size int) ([]byte, error) {
	if _, err := r.codec.Verify(token); err != nil {
		return nil, err
	}
	return qrcode.Encode(r.DeepLink(token), qrcode.Medium, ClampSize(size))
}

// DataURL is PNG wrapped as a data:image/png;base64 URL.
func (r *Renderer) DataURL(token string, size int) (string, error) {
	png, err := r.PNG(token, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// Artifacts renders all representations of token at size.
func (r *Renderer) Artifacts(token string, size int) (Artifacts, error) {
	data, err := r.DataURL(token, size)
	if err != nil {
		return Artifacts{}, err
	}
	return Artifacts{
		DeepLink: r.DeepLink(token),
		ImageURL: r.ImageURL(token, size),
		DataURL:  data,
	}, nil
}
