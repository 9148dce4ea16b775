package imagesrc

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var dataURLPattern = regexp.MustCompile(`^data:(image/[A-Za-z0-9.+-]+);base64,(.+)$`)

// DecodeInline parses a data URL of the form data:image/<type>;base64,<payload>
// and returns the decoded bytes. The type must be one of the supported inline
// types; the shape and type are checked before any decoding is attempted.
func DecodeInline(dataURL string) (RawImage, error) {
	match := dataURLPattern.FindStringSubmatch(dataURL)
	if match == nil {
		return RawImage{}, &FormatError{
			Reason: "expected data:image/<type>;base64,<data> where type is one of " +
				strings.Join(SupportedMIMETypes(), ", "),
		}
	}

	mimeType, payload := match[1], match[2]
	if !IsSupportedMIMEType(mimeType) {
		return RawImage{}, &FormatError{
			Reason: "unsupported mime type " + mimeType + "; supported types: " +
				strings.Join(SupportedMIMETypes(), ", "),
		}
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return RawImage{}, &FormatError{Reason: "payload is not valid base64", Err: err}
	}

	return RawImage{Data: data, MIMEType: mimeType}, nil
}
