package ollama

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/llm"
)

var _ = Describe("attachImages", func() {
	images := []imagesrc.RawImage{{Data: []byte("ABC")}, {Data: []byte("xyz")}}

	It("attaches the whole bag to the last user message", func() {
		msgs := []llm.Message{
			{Role: "user", Content: "first"},
			{Role: "assistant", Content: "reply"},
			{Role: "user", Content: "second"},
		}

		out := attachImages(msgs, images)
		Expect(out[0].Images).To(BeEmpty())
		Expect(out[1].Images).To(BeEmpty())
		Expect(out[2].Images).To(Equal([]string{"QUJD", "eHl6"}))
	})

	It("skips trailing assistant messages when scanning back", func() {
		msgs := []llm.Message{
			{Role: "user", Content: "look"},
			{Role: "assistant", Content: "ok"},
			{Role: "assistant", Content: "still here"},
		}

		out := attachImages(msgs, images)
		Expect(out[0].Images).To(HaveLen(2))
		Expect(out[1].Images).To(BeEmpty())
		Expect(out[2].Images).To(BeEmpty())
	})

	It("drops images when there is no user message", func() {
		msgs := []llm.Message{{Role: "assistant", Content: "hi"}}

		out := attachImages(msgs, images)
		Expect(out[0].Images).To(BeEmpty())
	})

	It("leaves messages untouched without images", func() {
		msgs := []llm.Message{{Role: "user", Content: "hi"}}

		out := attachImages(msgs, nil)
		Expect(out[0].Images).To(BeNil())
	})
})

var _ = Describe("lastUserIndex", func() {
	DescribeTable("finds the most recent user message",
		func(roles []string, want int) {
			msgs := make([]llm.Message, len(roles))
			for i, r := range roles {
				msgs[i].Role = r
			}
			Expect(lastUserIndex(msgs)).To(Equal(want))
		},
		Entry("empty", []string{}, -1),
		Entry("only assistant", []string{"assistant", "assistant"}, -1),
		Entry("user last", []string{"assistant", "user"}, 1),
		Entry("user in the middle", []string{"user", "user", "assistant"}, 1),
	)
})
