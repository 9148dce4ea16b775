// Package conversation merges caller-supplied history and the current turn
// into the ordered message list and image bag sent to the model backend.
package conversation

import (
	"context"

	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/llm"
)

// Turn is one prior exchange supplied by the caller. History images are always
// addressed remotely.
type Turn struct {
	Role     string
	Content  string
	ImageURL string
}

// Message is a role-tagged text entry ready for the backend.
type Message struct {
	Role string
	Text string
}

// Normalize returns one Message per history turn followed by a final user
// message holding prompt, together with every referenced image in message
// order. The current image, when present, is resolved after history and
// appended last. Images are resolved one at a time and the first failure
// aborts normalization.
func Normalize(
	ctx context.Context,
	resolver imagesrc.Resolver,
	history []Turn,
	prompt string,
	current *imagesrc.Reference,
) ([]Message, []imagesrc.RawImage, error) {
	messages := make([]Message, 0, len(history)+1)
	var images []imagesrc.RawImage

	for _, turn := range history {
		messages = append(messages, Message{Role: turn.Role, Text: turn.Content})

		if turn.ImageURL == "" {
			continue
		}
		img, err := resolver.Resolve(ctx, imagesrc.Remote(turn.ImageURL))
		if err != nil {
			return nil, nil, err
		}
		images = append(images, img)
	}

	if current != nil {
		img, err := resolver.Resolve(ctx, *current)
		if err != nil {
			return nil, nil, err
		}
		images = append(images, img)
	}

	messages = append(messages, Message{Role: llm.RoleUser, Text: prompt})

	return messages, images, nil
}
