package servecmder

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/apoteker/pkg/config"
)

var _ = Describe("apiConfig", func() {
	var configDir string

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
	})

	resolve := func() *config.Config {
		v, err := config.InitViper(configDir)
		Expect(err).NotTo(HaveOccurred())
		return config.FromViper(v)
	}

	It("uses the defaults without a config file", func() {
		cfg := apiConfig(resolve())
		Expect(cfg.Model).To(Equal("gemini-1.5-flash"))
		Expect(cfg.SessionIdle).To(Equal(30 * time.Minute))
	})

	It("passes a zero idle timeout through to the server", func() {
		c, err := config.NewConfiger(configDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.SetConfigValue("server.session_idle_minutes", "0")).To(Succeed())

		Expect(apiConfig(resolve()).SessionIdle).To(BeZero())
	})

	It("reports the configured model", func() {
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"),
			[]byte("[model]\nname = \"gemini-1.5-pro\"\n"), 0o600)).To(Succeed())

		Expect(apiConfig(resolve()).Model).To(Equal("gemini-1.5-pro"))
	})
})
