package imagesrc_test

import (
	"encoding/base64"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/visiongate/pkg/imagesrc"
)

var _ = Describe("DecodeInline", func() {
	Context("with a supported image type", func() {
		It("decodes the payload", func() {
			img, err := imagesrc.DecodeInline("data:image/png;base64,QUJD")
			Expect(err).NotTo(HaveOccurred())
			Expect(img.Data).To(Equal([]byte("ABC")))
			Expect(img.MIMEType).To(Equal(imagesrc.MIMEPNG))
		})

		DescribeTable("round-trips every supported subtype",
			func(mimeType string) {
				raw := []byte{0x00, 0xff, 0x10, 0x80, 'x', 'y'}
				dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(raw)

				img, err := imagesrc.DecodeInline(dataURL)
				Expect(err).NotTo(HaveOccurred())
				Expect(img.Data).To(Equal(raw))
				Expect(img.MIMEType).To(Equal(mimeType))
			},
			Entry("jpeg", imagesrc.MIMEJPEG),
			Entry("png", imagesrc.MIMEPNG),
			Entry("gif", imagesrc.MIMEGIF),
			Entry("webp", imagesrc.MIMEWebP),
		)
	})

	Context("with an invalid data URL", func() {
		DescribeTable("fails with a FormatError",
			func(dataURL string) {
				_, err := imagesrc.DecodeInline(dataURL)
				Expect(err).To(HaveOccurred())

				var formatErr *imagesrc.FormatError
				Expect(err).To(BeAssignableToTypeOf(formatErr))

				var fetchErr *imagesrc.FetchError
				Expect(err).NotTo(BeAssignableToTypeOf(fetchErr))
			},
			Entry("unsupported subtype", "data:image/bmp;base64,QUJD"),
			Entry("svg subtype", "data:image/svg+xml;base64,QUJD"),
			Entry("missing data prefix", "image/png;base64,QUJD"),
			Entry("missing encoding marker", "data:image/png,QUJD"),
			Entry("wrong encoding marker", "data:image/png;base32,QUJD"),
			Entry("non-image type", "data:text/plain;base64,QUJD"),
			Entry("empty payload", "data:image/png;base64,"),
			Entry("bare base64", "QUJD"),
			Entry("empty string", ""),
			Entry("undecodable payload", "data:image/png;base64,!!!notbase64"),
			Entry("bad padding", "data:image/jpeg;base64,QUJ"),
		)

		It("names the unsupported type in the message", func() {
			_, err := imagesrc.DecodeInline("data:image/bmp;base64,QUJD")
			Expect(err).To(MatchError(ContainSubstring("image/bmp")))
		})

		It("wraps the decoding error for bad payloads", func() {
			_, err := imagesrc.DecodeInline("data:image/png;base64,@@@@")

			var corrupt base64.CorruptInputError
			Expect(err).To(BeAssignableToTypeOf(&imagesrc.FormatError{}))
			Expect(errorsAs(err, &corrupt)).To(BeTrue())
		})
	})
})

var _ = Describe("SupportedMIMETypes", func() {
	It("lists the four inline types in order", func() {
		Expect(imagesrc.SupportedMIMETypes()).To(Equal([]string{
			"image/gif", "image/jpeg", "image/png", "image/webp",
		}))
	})
})
