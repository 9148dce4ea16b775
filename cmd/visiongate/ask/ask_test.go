package askcmder

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/visiongate/gateway"
	"github.com/papercomputeco/visiongate/pkg/imagesrc"
	"github.com/papercomputeco/visiongate/pkg/llm"
	"github.com/papercomputeco/visiongate/pkg/ollama"
)

// pngHeader is enough for content sniffing to report image/png.
var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

var _ = Describe("Ask Command", func() {
	var (
		tmpDir   string
		backend  *httptest.Server
		received chan llm.ChatRequest
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "visiongate-ask-test-*")
		Expect(err).NotTo(HaveOccurred())

		received = make(chan llm.ChatRequest, 1)
		backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req llm.ChatRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			received <- req

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(llm.ChatResponse{
				Model:           req.Model,
				Message:         llm.Message{Role: llm.RoleAssistant, Content: "A cat on a windowsill."},
				Done:            true,
				PromptEvalCount: 20,
				EvalCount:       5,
			})
		}))
	})

	AfterEach(func() {
		backend.Close()
		os.RemoveAll(tmpDir)
	})

	startGateway := func(ollamaURL string) (string, func()) {
		logger := zap.NewNop()
		gw := gateway.New(
			gateway.Config{},
			imagesrc.NewFetcher(imagesrc.Config{}, logger),
			ollama.NewClient(ollama.Config{URL: ollamaURL, Timeout: 5 * time.Second}, logger),
			logger,
		)

		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		go func() {
			_ = gw.RunWithListener(listener)
		}()

		return "http://" + listener.Addr().String(), func() {
			_ = gw.Shutdown(time.Second)
		}
	}

	runAsk := func(args ...string) (string, error) {
		cmd := NewAskCmd()
		out := &bytes.Buffer{}
		cmd.SetOut(out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(args)
		err := cmd.Execute()
		return out.String(), err
	}

	It("prints the reply and token usage", func() {
		addr, cleanup := startGateway(backend.URL)
		defer cleanup()

		out, err := runAsk("What", "is", "this?", "--server", addr)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("A cat on a windowsill."))
		Expect(out).To(ContainSubstring("20 prompt + 5 completion = 25 tokens"))

		var req llm.ChatRequest
		Eventually(received).Should(Receive(&req))
		Expect(req.Messages).To(HaveLen(1))
		Expect(req.Messages[0].Content).To(Equal("What is this?"))
		Expect(req.Messages[0].Images).To(BeEmpty())
	})

	It("sends a local image file inline", func() {
		addr, cleanup := startGateway(backend.URL)
		defer cleanup()

		imagePath := filepath.Join(tmpDir, "cat.png")
		Expect(os.WriteFile(imagePath, pngHeader, 0o600)).To(Succeed())

		_, err := runAsk("Describe it", "--server", addr, "--image", imagePath, "--raw")
		Expect(err).NotTo(HaveOccurred())

		var req llm.ChatRequest
		Eventually(received).Should(Receive(&req))
		Expect(req.Messages).To(HaveLen(1))
		Expect(req.Messages[0].Images).To(Equal([]string{base64.StdEncoding.EncodeToString(pngHeader)}))
	})

	It("forwards conversation history from a file", func() {
		addr, cleanup := startGateway(backend.URL)
		defer cleanup()

		history := []gateway.HistoryItem{
			{Role: "user", Content: "Hi"},
			{Role: "assistant", Content: "Hello! How can I help?"},
		}
		data, err := json.Marshal(history)
		Expect(err).NotTo(HaveOccurred())
		historyPath := filepath.Join(tmpDir, "history.json")
		Expect(os.WriteFile(historyPath, data, 0o600)).To(Succeed())

		_, err = runAsk("And now?", "--server", addr, "--history", historyPath)
		Expect(err).NotTo(HaveOccurred())

		var req llm.ChatRequest
		Eventually(received).Should(Receive(&req))
		Expect(req.Messages).To(HaveLen(3))
		Expect(req.Messages[0].Role).To(Equal(llm.RoleUser))
		Expect(req.Messages[1].Role).To(Equal(llm.RoleAssistant))
		Expect(req.Messages[2].Content).To(Equal("And now?"))
	})

	It("reports the error code when the backend is down", func() {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())
		closedURL := "http://" + listener.Addr().String()
		Expect(listener.Close()).To(Succeed())

		addr, cleanup := startGateway(closedURL)
		defer cleanup()

		_, err = runAsk("Hello", "--server", addr)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(HavePrefix(gateway.CodeServiceUnavailable + ": "))
	})

	It("reports validation errors from the gateway", func() {
		addr, cleanup := startGateway(backend.URL)
		defer cleanup()

		_, err := runAsk("Hello", "--server", addr, "--image", "data:image/bmp;base64,AAAA")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(HavePrefix(gateway.CodeBadRequest + ": "))
		Consistently(received, 100*time.Millisecond).ShouldNot(Receive())
	})

	It("rejects local files that are not images", func() {
		textPath := filepath.Join(tmpDir, "notes.txt")
		Expect(os.WriteFile(textPath, []byte("just some text"), 0o600)).To(Succeed())

		_, err := runAsk("Hello", "--server", "http://127.0.0.1:1", "--image", textPath)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("does not look like an image"))
	})
})

var _ = Describe("imageInput", func() {
	It("passes http addresses through as url images", func() {
		image, err := imageInput("https://example.com/cat.jpg")
		Expect(err).NotTo(HaveOccurred())
		Expect(image).To(Equal(&gateway.ImageInput{Type: "url", Data: "https://example.com/cat.jpg"}))
	})

	It("passes data URLs through as inline images", func() {
		image, err := imageInput("data:image/png;base64,AAAA")
		Expect(err).NotTo(HaveOccurred())
		Expect(image.Type).To(Equal("base64"))
		Expect(image.Data).To(Equal("data:image/png;base64,AAAA"))
	})

	It("fails for missing files", func() {
		_, err := imageInput(filepath.Join(os.TempDir(), "visiongate-does-not-exist.png"))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("waitModel", func() {
	It("keeps spinning until the reply arrives", func() {
		m := waitModel{spinner: spinner.New()}
		Expect(m.View()).To(ContainSubstring("waiting for the model"))
	})

	It("stores the reply and quits", func() {
		resp := &gateway.GenerateResponse{ID: "abc", Content: "hi"}

		next, cmd := waitModel{spinner: spinner.New()}.Update(doneMsg{resp: resp})
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(tea.Quit()))

		final := next.(waitModel)
		Expect(final.resp).To(Equal(resp))
		Expect(final.err).NotTo(HaveOccurred())
		Expect(final.View()).To(BeEmpty())
	})
})
