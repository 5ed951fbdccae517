package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/apoteker/cmd/apoteker/config"
	"github.com/papercomputeco/apoteker/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "apoteker-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .apoteker dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".apoteker"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(run("set", "model.name", "gemini-1.5-pro")).To(Succeed())

			data, err := os.ReadFile(filepath.Join(tmpDir, ".apoteker", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).To(ContainSubstring(`name = "gemini-1.5-pro"`))
		})

		It("rejects unknown keys", func() {
			err := run("set", "proxy.provider", "anthropic")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("rejects out of range values", func() {
			err := run("set", "model.temperature", "3")
			Expect(err).To(MatchError(ContainSubstring("out of range")))
		})

		It("rejects the model provider, which is fixed to Gemini", func() {
			err := run("set", "model.provider", "openai")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("accepts a zero session idle timeout and hands it to the server config", func() {
			Expect(run("set", "server.session_idle_minutes", "0")).To(Succeed())
			out.Reset()

			Expect(run("get", "server.session_idle_minutes")).To(Succeed())
			Expect(out.String()).To(MatchRegexp(`server\.session_idle_minutes\s+0\n`))

			v, err := config.InitViper("")
			Expect(err).NotTo(HaveOccurred())
			Expect(config.FromViper(v).SessionIdle()).To(BeZero())
		})

		It("rejects a negative session idle timeout", func() {
			err := run("set", "server.session_idle_minutes", "-5")
			Expect(err).To(MatchError(ContainSubstring("must not be negative")))
		})

		It("requires exactly two arguments", func() {
			Expect(run("set", "model.name")).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("returns the default when nothing is set", func() {
			Expect(run("get", "model.name")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("gemini-1.5-flash"))
		})

		It("returns a previously set value", func() {
			Expect(run("set", "server.listen", ":9999")).To(Succeed())
			out.Reset()

			Expect(run("get", "server.listen")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":9999"))
		})

		It("rejects unknown keys", func() {
			Expect(run("get", "nope")).To(HaveOccurred())
		})
	})

	Describe("list subcommand", func() {
		It("lists every key with its value", func() {
			Expect(run("set", "model.max_output_tokens", "900")).To(Succeed())
			out.Reset()

			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(`model.max_output_tokens     = "900"`))
			Expect(out.String()).To(ContainSubstring(`server.session_idle_minutes = "30"`))
			Expect(out.String()).To(ContainSubstring(`model.temperature           = "0.4"`))
		})
	})
})
