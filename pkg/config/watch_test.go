package config_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/visiongate/pkg/config"
)

var _ = Describe("Watch", func() {
	var (
		path    string
		ctx     context.Context
		cancel  context.CancelFunc
		changes chan *config.Config
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "visiongate.toml")
		Expect(os.WriteFile(path, []byte("[log]\ndebug = false\n"), 0o600)).To(Succeed())

		ctx, cancel = context.WithCancel(context.Background())
		changes = make(chan *config.Config, 64)
		Expect(config.Watch(ctx, path, zap.NewNop(), func(cfg *config.Config) {
			select {
			case changes <- cfg:
			default:
			}
		})).To(Succeed())
	})

	AfterEach(func() {
		cancel()
	})

	// latestDebug drains pending reloads and reports whether any enabled debug.
	latestDebug := func() bool {
		for {
			select {
			case cfg := <-changes:
				if cfg.Log.Debug {
					return true
				}
			default:
				return false
			}
		}
	}

	It("delivers the new config after the file is rewritten", func() {
		Expect(os.WriteFile(path, []byte("[log]\ndebug = true\n"), 0o600)).To(Succeed())

		Eventually(latestDebug, 5*time.Second, 20*time.Millisecond).Should(BeTrue())
	})

	It("skips files that do not load", func() {
		Expect(os.WriteFile(path, []byte("[log]\ndebug = \"maybe\"\n"), 0o600)).To(Succeed())

		Consistently(latestDebug, 300*time.Millisecond, 20*time.Millisecond).Should(BeFalse())
	})

	It("ignores other files in the same directory", func() {
		other := filepath.Join(filepath.Dir(path), "other.toml")
		Expect(os.WriteFile(other, []byte("[log]\ndebug = true\n"), 0o600)).To(Succeed())

		Consistently(changes, 300*time.Millisecond).ShouldNot(Receive())
	})

	It("fails for a directory that does not exist", func() {
		err := config.Watch(ctx, filepath.Join(GinkgoT().TempDir(), "missing", "visiongate.toml"), zap.NewNop(), func(*config.Config) {})
		Expect(err).To(HaveOccurred())
	})
})
