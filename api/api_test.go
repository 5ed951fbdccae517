package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/papercomputeco/apoteker/pkg/chat"
	"github.com/papercomputeco/apoteker/pkg/gateway"
	"github.com/papercomputeco/apoteker/pkg/metrics"
)

// fakeSender replies through fn and remembers what it was primed with.
type fakeSender struct {
	fn    func(ctx context.Context, text string) (string, error)
	prior []chat.Turn
}

func (f *fakeSender) Send(ctx context.Context, prior []chat.Turn, text string) (string, error) {
	f.prior = prior
	return f.fn(ctx, text)
}

func replyWith(reply string) *fakeSender {
	return &fakeSender{fn: func(context.Context, string) (string, error) { return reply, nil }}
}

func failWith(err error) *fakeSender {
	return &fakeSender{fn: func(context.Context, string) (string, error) { return "", err }}
}

func decode[T any](resp *http.Response) T {
	var out T
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	Expect(json.Unmarshal(body, &out)).To(Succeed(), string(body))
	return out
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

var _ = Describe("Server", func() {
	var (
		server *Server
		sender *fakeSender
		m      *metrics.Metrics
	)

	newServer := func() {
		m = metrics.New()
		server = NewServer(Config{Model: "gemini-1.5-flash"}, sender, m, zap.NewNop())
	}

	post := func(text string, cookie *http.Cookie) *http.Response {
		body, err := json.Marshal(MessageRequest{Text: text})
		Expect(err).NotTo(HaveOccurred())

		req, err := http.NewRequest(http.MethodPost, "/api/messages", bytes.NewReader(body))
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", "application/json")
		if cookie != nil {
			req.AddCookie(cookie)
		}

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	get := func(path string, cookie *http.Cookie) *http.Response {
		req, err := http.NewRequest(http.MethodGet, path, nil)
		Expect(err).NotTo(HaveOccurred())
		if cookie != nil {
			req.AddCookie(cookie)
		}

		resp, err := server.app.Test(req, -1)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	BeforeEach(func() {
		sender = replyWith("Paracetamol 500 mg.")
		newServer()
	})

	Describe("GET /ping", func() {
		It("responds with pong", func() {
			resp := get("/ping", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(decode[string](resp)).To(Equal("pong"))
		})
	})

	Describe("RunWithListener", func() {
		It("serves on the given listener until shut down", func() {
			ln, err := net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())

			done := make(chan error, 1)
			go func() {
				done <- server.RunWithListener(ln)
			}()

			url := "http://" + ln.Addr().String() + "/ping"
			Eventually(func() (int, error) {
				resp, err := http.Get(url)
				if err != nil {
					return 0, err
				}
				defer resp.Body.Close()
				return resp.StatusCode, nil
			}).Should(Equal(fiber.StatusOK))

			Expect(server.Shutdown()).To(Succeed())
			Eventually(done).Should(Receive(BeNil()))
		})
	})

	Describe("GET /", func() {
		It("serves the embedded chat page", func() {
			resp := get("/", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring("<title>Chatbot Apoteker Gemini</title>"))
			Expect(string(body)).To(ContainSubstring("Tanyakan tentang obat..."))
			Expect(string(body)).To(ContainSubstring("Sedang membalas..."))
		})

		It("serves the widget script", func() {
			resp := get("/app.js", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
		})
	})

	Describe("GET /api/session", func() {
		It("creates a seeded session and sets the cookie", func() {
			resp := get("/api/session", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(sessionCookie(resp)).NotTo(BeNil())

			s := decode[SessionResponse](resp)
			Expect(s.Title).To(Equal(PageTitle))
			Expect(s.Heading).To(Equal(Heading))
			Expect(s.Subtitle).To(Equal(Greeting))
			Expect(s.Model).To(Equal("gemini-1.5-flash"))
			Expect(s.Busy).To(BeFalse())

			seed := chat.SeedTurns()
			Expect(s.Messages).To(Equal([]Message{
				{Role: "user", Text: seed[0].Text},
				{Role: "assistant", Text: seed[1].Text},
			}))
		})

		It("reuses the session named by the cookie", func() {
			first := get("/api/session", nil)
			cookie := sessionCookie(first)

			second := get("/api/session", cookie)
			Expect(sessionCookie(second)).To(BeNil())
			Expect(server.sessions.Len()).To(Equal(1))
		})
	})

	Describe("POST /api/messages", func() {
		It("appends the user and model turns on success", func() {
			cookie := sessionCookie(get("/api/session", nil))

			resp := post("Obat untuk sakit kepala?", cookie)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			out := decode[MessageResponse](resp)
			Expect(out.Reply).To(Equal("Paracetamol 500 mg."))
			Expect(out.Messages).To(HaveLen(4))
			Expect(out.Messages[2]).To(Equal(Message{Role: "user", Text: "Obat untuk sakit kepala?"}))
			Expect(out.Messages[3]).To(Equal(Message{Role: "assistant", Text: "Paracetamol 500 mg."}))

			Expect(sender.prior).To(Equal(chat.SeedTurns()))
		})

		It("primes the next request with the whole transcript", func() {
			cookie := sessionCookie(get("/api/session", nil))

			post("pertama", cookie)
			post("kedua", cookie)

			Expect(sender.prior).To(HaveLen(4))
			Expect(sender.prior[2].Text).To(Equal("pertama"))
		})

		It("creates a session when none exists", func() {
			resp := post("halo", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))
			Expect(sessionCookie(resp)).NotTo(BeNil())
		})

		It("rejects empty text without touching the transcript", func() {
			cookie := sessionCookie(get("/api/session", nil))

			resp := post("   ", cookie)
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))

			s := decode[SessionResponse](get("/api/session", cookie))
			Expect(s.Messages).To(HaveLen(2))
		})

		It("rejects a malformed body", func() {
			req, err := http.NewRequest(http.MethodPost, "/api/messages", strings.NewReader("{"))
			Expect(err).NotTo(HaveOccurred())
			req.Header.Set("Content-Type", "application/json")

			resp, err := server.app.Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(fiber.StatusBadRequest))
		})

		Context("when the model returns no text", func() {
			BeforeEach(func() {
				sender = failWith(gateway.ErrEmptyResponse)
				newServer()
			})

			It("reports the apology and keeps only the user turn", func() {
				cookie := sessionCookie(get("/api/session", nil))

				resp := post("Obat flu?", cookie)
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))

				out := decode[ErrorResponse](resp)
				Expect(out.Error).To(Equal("Maaf, saya tidak bisa memberikan balasan."))
				Expect(out.Messages).To(HaveLen(3))
				Expect(out.Messages[2].Role).To(Equal("user"))
			})
		})

		Context("when the transport fails", func() {
			BeforeEach(func() {
				sender = failWith(&gateway.TransportError{Err: errors.New("quota exceeded")})
				newServer()
			})

			It("reports the failure with its detail", func() {
				cookie := sessionCookie(get("/api/session", nil))

				resp := post("Obat batuk?", cookie)
				Expect(resp.StatusCode).To(Equal(fiber.StatusBadGateway))

				out := decode[ErrorResponse](resp)
				Expect(out.Error).To(Equal("Maaf, terjadi kesalahan saat berkomunikasi dengan Gemini:"))
				Expect(out.Detail).To(Equal("quota exceeded"))
				Expect(out.Messages).To(HaveLen(3))
			})

			It("lets the user resubmit", func() {
				cookie := sessionCookie(get("/api/session", nil))
				post("Obat batuk?", cookie)

				sender.fn = func(context.Context, string) (string, error) { return "OBH.", nil }
				resp := post("Obat batuk?", cookie)
				Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

				out := decode[MessageResponse](resp)
				Expect(out.Messages).To(HaveLen(5))
				Expect(out.Messages[2].Role).To(Equal("user"))
				Expect(out.Messages[3].Role).To(Equal("user"))
				Expect(out.Messages[4].Role).To(Equal("assistant"))
			})
		})

		Context("when a request is already in flight", func() {
			var release chan struct{}

			BeforeEach(func() {
				release = make(chan struct{})
				sender = &fakeSender{fn: func(context.Context, string) (string, error) {
					<-release
					return "selesai", nil
				}}
				newServer()
			})

			It("answers 409 for the concurrent request", func() {
				cookie := sessionCookie(get("/api/session", nil))

				done := make(chan int, 1)
				go func() {
					defer GinkgoRecover()
					done <- post("pertama", cookie).StatusCode
				}()

				Eventually(func() bool {
					return decode[SessionResponse](get("/api/session", cookie)).Busy
				}).Should(BeTrue())

				resp := post("kedua", cookie)
				Expect(resp.StatusCode).To(Equal(fiber.StatusConflict))

				body := decode[ErrorResponse](resp)
				Expect(body.Error).To(Equal(MsgBusy))
				Expect(body.Messages).To(HaveLen(3))
				Expect(body.Messages[2]).To(Equal(Message{Role: "user", Text: "pertama"}))

				close(release)
				Eventually(done).Should(Receive(Equal(fiber.StatusOK)))

				s := decode[SessionResponse](get("/api/session", cookie))
				Expect(s.Messages).To(HaveLen(4))
			})
		})
	})

	Describe("GET /metrics", func() {
		It("exposes turn and session counters", func() {
			cookie := sessionCookie(get("/api/session", nil))
			post("halo", cookie)

			resp := get("/metrics", nil)
			Expect(resp.StatusCode).To(Equal(fiber.StatusOK))

			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(body)).To(ContainSubstring(`apoteker_history_turns_appended_total{role="user"} 1`))
			Expect(string(body)).To(ContainSubstring(`apoteker_history_turns_appended_total{role="model"} 1`))
			Expect(string(body)).To(ContainSubstring("apoteker_sessions_active 1"))
		})
	})

	Describe("SweepSessions", func() {
		It("drops idle sessions", func() {
			server.config.SessionIdle = time.Nanosecond
			get("/api/session", nil)
			Expect(server.sessions.Len()).To(Equal(1))

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go server.SweepSessions(ctx, 5*time.Millisecond)

			Eventually(server.sessions.Len).Should(BeZero())
		})

		It("returns immediately when idle expiry is disabled", func() {
			done := make(chan struct{})
			go func() {
				server.SweepSessions(context.Background(), time.Millisecond)
				close(done)
			}()
			Eventually(done).Should(BeClosed())
		})
	})
})
