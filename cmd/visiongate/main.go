package main

import (
	"os"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/visiongate/cmd/visiongate/ask"
	mcpcmder "github.com/papercomputeco/visiongate/cmd/visiongate/mcp"
	servecmder "github.com/papercomputeco/visiongate/cmd/visiongate/serve"
)

const rootLongDesc string = `visiongate fronts an Ollama vision model with a small, stable
generation API: text prompts, inline or remote images, and caller-held
conversation history go in; one reply with token usage comes out.`

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "visiongate",
		Short:        "Multimodal generation gateway for Ollama vision models",
		Long:         rootLongDesc,
		SilenceUsage: true,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(mcpcmder.NewMCPCmd())

	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
