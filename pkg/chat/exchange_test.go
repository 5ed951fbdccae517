package chat_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/apoteker/pkg/chat"
)

// scriptedSender replays canned replies and records what it was sent.
type scriptedSender struct {
	replies []string
	errs    []error

	calls int
	prior [][]chat.Turn
	texts []string
}

func (s *scriptedSender) Send(_ context.Context, prior []chat.Turn, text string) (string, error) {
	i := s.calls
	s.calls++
	s.prior = append(s.prior, prior)
	s.texts = append(s.texts, text)

	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

var errTimeout = errors.New("context deadline exceeded")

var _ = Describe("Exchange", func() {
	var (
		ctx context.Context
		h   *chat.History
	)

	BeforeEach(func() {
		ctx = context.Background()
		h = chat.NewHistory()
	})

	Context("when the model replies", func() {
		It("grows the history by two with the user and model turns", func() {
			sender := &scriptedSender{replies: []string{"Minum paracetamol"}}

			reply, err := chat.Exchange(ctx, h, sender, "Saya sakit kepala")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("Minum paracetamol"))

			turns := h.All()
			Expect(turns).To(HaveLen(4))
			Expect(turns[2]).To(Equal(chat.Turn{Role: chat.RoleUser, Text: "Saya sakit kepala"}))
			Expect(turns[3]).To(Equal(chat.Turn{Role: chat.RoleModel, Text: "Minum paracetamol"}))
		})

		It("sends only the turns prior to the new user text", func() {
			sender := &scriptedSender{replies: []string{"Minum paracetamol"}}

			_, err := chat.Exchange(ctx, h, sender, "Saya sakit kepala")
			Expect(err).NotTo(HaveOccurred())

			Expect(sender.prior[0]).To(Equal(chat.SeedTurns()))
			Expect(sender.texts[0]).To(Equal("Saya sakit kepala"))
		})

		It("keeps user and model turns alternating across many exchanges", func() {
			sender := &scriptedSender{replies: []string{"satu", "dua", "tiga"}}

			for _, q := range []string{"a", "b", "c"} {
				_, err := chat.Exchange(ctx, h, sender, q)
				Expect(err).NotTo(HaveOccurred())
			}

			turns := h.All()
			Expect(turns).To(HaveLen(8))
			for i, t := range turns {
				if i%2 == 0 {
					Expect(t.Role).To(Equal(chat.RoleUser))
				} else {
					Expect(t.Role).To(Equal(chat.RoleModel))
				}
			}
		})
	})

	Context("when the sender fails", func() {
		It("records only the user turn and returns the error", func() {
			sender := &scriptedSender{errs: []error{errTimeout}}

			_, err := chat.Exchange(ctx, h, sender, "Saya sakit kepala")
			Expect(err).To(MatchError(errTimeout))

			Expect(h.Len()).To(Equal(3))
			last, _ := h.Last()
			Expect(last).To(Equal(chat.Turn{Role: chat.RoleUser, Text: "Saya sakit kepala"}))
		})

		It("lets the user resubmit after a failure", func() {
			sender := &scriptedSender{
				errs:    []error{errTimeout, nil},
				replies: []string{"", "Minum air putih"},
			}

			_, err := chat.Exchange(ctx, h, sender, "Saya haus")
			Expect(err).To(HaveOccurred())

			reply, err := chat.Exchange(ctx, h, sender, "Saya haus")
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("Minum air putih"))
			Expect(h.Len()).To(Equal(5))
		})
	})

	Context("when the sender returns empty text", func() {
		It("does not record a model turn", func() {
			sender := &scriptedSender{replies: []string{"  "}}

			_, err := chat.Exchange(ctx, h, sender, "Saya demam")
			Expect(err).To(MatchError(chat.ErrEmptyText))
			Expect(h.Len()).To(Equal(3))
		})
	})

	Context("when the user text is blank", func() {
		It("does not touch the history or call the sender", func() {
			sender := &scriptedSender{}

			_, err := chat.Exchange(ctx, h, sender, "")
			Expect(err).To(MatchError(chat.ErrEmptyText))
			Expect(h.Len()).To(Equal(2))
			Expect(sender.calls).To(BeZero())
		})
	})

	It("accepts a SenderFunc", func() {
		sender := chat.SenderFunc(func(_ context.Context, _ []chat.Turn, text string) (string, error) {
			return "echo: " + text, nil
		})

		reply, err := chat.Exchange(ctx, h, sender, "halo")
		Expect(err).NotTo(HaveOccurred())
		Expect(reply).To(Equal("echo: halo"))
	})
})
