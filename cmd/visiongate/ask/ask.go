package askcmder

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/papercomputeco/visiongate/gateway"
)

const askLongDesc string = `Send one prompt to a running visiongate server and print the reply.

An image may be attached with --image: a local file is sent inline as a
base64 data URL, an http(s) address is passed through for the server to
fetch. Earlier turns can be supplied with --history as a JSON array of
{"role", "content", "imageUrl"} objects.

Examples:
  visiongate ask "What is in this picture?" --image ./cat.png
  visiongate ask "Describe it" --image https://example.com/photo.jpg
  visiongate ask "And the colors?" --history turns.json --raw`

const askShortDesc string = "Ask a running gateway about text and images"

const (
	defaultServer  = "http://localhost:8080"
	defaultTimeout = 3 * time.Minute
	defaultWidth   = 80
)

var footerStyle = lipgloss.NewStyle().Faint(true)

type askCommander struct {
	server      string
	image       string
	historyPath string
	raw         bool
	timeout     time.Duration
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := cmder.buildRequest(strings.Join(args, " "))
			if err != nil {
				return err
			}
			resp, err := cmder.sendAndWait(req, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			return cmder.print(cmd.OutOrStdout(), resp)
		},
	}

	server := defaultServer
	if env, ok := os.LookupEnv("VISIONGATE_SERVER"); ok && env != "" {
		server = env
	}

	cmd.Flags().StringVarP(&cmder.server, "server", "s", server, "Gateway base URL")
	cmd.Flags().StringVarP(&cmder.image, "image", "i", "", "Image file path, data URL, or http(s) URL")
	cmd.Flags().StringVar(&cmder.historyPath, "history", "", "JSON file with earlier conversation turns")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the reply without markdown rendering")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", defaultTimeout, "Request timeout")

	return cmd
}

func (c *askCommander) buildRequest(prompt string) (*gateway.GenerateRequest, error) {
	req := &gateway.GenerateRequest{Prompt: prompt}

	if c.image != "" {
		image, err := imageInput(c.image)
		if err != nil {
			return nil, err
		}
		req.Image = image
	}

	if c.historyPath != "" {
		data, err := os.ReadFile(c.historyPath)
		if err != nil {
			return nil, fmt.Errorf("could not read history: %w", err)
		}
		if err := json.Unmarshal(data, &req.ConversationHistory); err != nil {
			return nil, fmt.Errorf("could not parse history %s: %w", c.historyPath, err)
		}
	}

	return req, nil
}

// imageInput turns the --image value into the wire form. Local files are
// sniffed for their content type and sent inline.
func imageInput(value string) (*gateway.ImageInput, error) {
	switch {
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return &gateway.ImageInput{Type: "url", Data: value}, nil
	case strings.HasPrefix(value, "data:"):
		return &gateway.ImageInput{Type: "base64", Data: value}, nil
	}

	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("could not read image: %w", err)
	}
	mimeType := http.DetectContentType(data)
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s does not look like an image (detected %s)", value, mimeType)
	}

	return &gateway.ImageInput{
		Type: "base64",
		Data: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}, nil
}

// sendAndWait sends req, showing a spinner on status when it is a terminal.
func (c *askCommander) sendAndWait(req *gateway.GenerateRequest, status io.Writer) (*gateway.GenerateResponse, error) {
	if _, ok := terminalWidth(status); !ok || c.raw {
		return c.send(req)
	}

	program := tea.NewProgram(
		waitModel{spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(footerStyle))},
		tea.WithOutput(status),
		tea.WithInput(nil),
	)

	go func() {
		resp, err := c.send(req)
		program.Send(doneMsg{resp: resp, err: err})
	}()

	final, err := program.Run()
	if err != nil {
		return nil, err
	}
	m := final.(waitModel)
	return m.resp, m.err
}

type doneMsg struct {
	resp *gateway.GenerateResponse
	err  error
}

// waitModel spins until a doneMsg arrives.
type waitModel struct {
	spinner spinner.Model
	resp    *gateway.GenerateResponse
	err     error
	done    bool
}

func (m waitModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m waitModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(doneMsg); ok {
		m.resp, m.err, m.done = msg.resp, msg.err, true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

func (m waitModel) View() string {
	if m.done {
		return ""
	}
	return m.spinner.View() + footerStyle.Render(" waiting for the model…")
}

func (c *askCommander) send(req *gateway.GenerateRequest) (*gateway.GenerateResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not encode request: %w", err)
	}

	url := strings.TrimSuffix(c.server, "/") + "/api/generate"
	client := &http.Client{Timeout: c.timeout}

	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not reach gateway at %s: %w", c.server, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var envelope gateway.ErrorEnvelope
		if err := json.Unmarshal(respBody, &envelope); err != nil || envelope.Error.Code == "" {
			return nil, fmt.Errorf("gateway returned status %d", resp.StatusCode)
		}
		return nil, fmt.Errorf("%s: %s", envelope.Error.Code, envelope.Error.Message)
	}

	var out gateway.GenerateResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("could not decode gateway response: %w", err)
	}
	if out.ID == "" {
		return nil, errors.New("gateway response is missing an id")
	}
	return &out, nil
}

func (c *askCommander) print(out io.Writer, resp *gateway.GenerateResponse) error {
	content := resp.Content

	if width, ok := terminalWidth(out); ok && !c.raw {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(glamourStyle()),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return fmt.Errorf("could not create renderer: %w", err)
		}
		rendered, err := renderer.Render(content)
		if err != nil {
			return fmt.Errorf("could not render reply: %w", err)
		}
		content = rendered
	}

	footer := fmt.Sprintf("%s · %d prompt + %d completion = %d tokens",
		resp.ID, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens)
	if width, ok := terminalWidth(out); ok {
		footer = ansi.Truncate(footer, width, "…")
	}

	fmt.Fprintln(out, strings.TrimRight(content, "\n"))
	fmt.Fprintln(out, footerStyle.Render(footer))
	return nil
}

// glamourStyle picks a markdown theme for the terminal background.
func glamourStyle() string {
	switch {
	case termenv.EnvNoColor():
		return "notty"
	case termenv.HasDarkBackground():
		return "dark"
	default:
		return "light"
	}
}

// terminalWidth reports the width of out when it is a terminal.
func terminalWidth(out io.Writer) (int, bool) {
	f, ok := out.(*os.File)
	if !ok {
		return 0, false
	}
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0, false
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = defaultWidth
	}
	return width, true
}
