// Package imagesrc resolves image references supplied by callers into raw
// image bytes, either by decoding an inline data URL or by fetching a remote
// address.
package imagesrc

import (
	"context"
	"sort"
)

// Kind tags how a Reference carries its image.
type Kind string

const (
	// KindInline is a data URL embedded in the request.
	KindInline Kind = "base64"

	// KindRemote is an address the gateway must fetch.
	KindRemote Kind = "url"
)

// Reference points at an image, either inline or by address.
type Reference struct {
	Kind Kind
	Data string
}

// Inline returns a reference to an inline data URL.
func Inline(dataURL string) Reference {
	return Reference{Kind: KindInline, Data: dataURL}
}

// Remote returns a reference to an image served at address.
func Remote(address string) Reference {
	return Reference{Kind: KindRemote, Data: address}
}

// RawImage is a resolved image owned by a single request.
type RawImage struct {
	Data []byte

	// MIMEType is the declared type for inline images. For remote images it is
	// whatever Content-Type the host reported and is not validated.
	MIMEType string
}

// Supported inline image types.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEGIF  = "image/gif"
	MIMEWebP = "image/webp"
)

var supportedMIMETypes = map[string]struct{}{
	MIMEJPEG: {},
	MIMEPNG:  {},
	MIMEGIF:  {},
	MIMEWebP: {},
}

// IsSupportedMIMEType reports whether mimeType may be used in an inline image.
func IsSupportedMIMEType(mimeType string) bool {
	_, ok := supportedMIMETypes[mimeType]
	return ok
}

// SupportedMIMETypes returns the accepted inline types in sorted order.
func SupportedMIMETypes() []string {
	types := make([]string, 0, len(supportedMIMETypes))
	for t := range supportedMIMETypes {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Resolver turns a Reference into image bytes.
type Resolver interface {
	Resolve(ctx context.Context, ref Reference) (RawImage, error)
}
