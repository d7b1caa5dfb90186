package scanning

import (
	"context"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server    *ghttp.Server
		extractor *Ollama
		ctx       context.Context
		imageData []byte
		text      string
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		extractor, newErr = NewOllama(server.URL()+"/", "llava")
		Expect(newErr).NotTo(HaveOccurred())
		ctx = context.Background()
		imageData = testPNG()
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		text, err = extractor.ExtractText(ctx, imageData, "image/png")
	})

	When("the model answers", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					var req ollamaChatRequest
					Expect(decodeJSON(r, &req)).To(Succeed())
					Expect(req.Model).To(Equal("llava"))
					Expect(req.Stream).To(BeFalse())
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "```\n2 Coffee\n4.50\n```"},
					Done:    true,
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the transcription without code fences", func() {
			Expect(text).To(Equal("2 Coffee\n4.50"))
		})
	})

	When("the API returns a non-200 status", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `model "llava" not found`))
		})

		It("returns an ExtractionError with status and body", func() {
			var extErr *ExtractionError
			Expect(errors.As(err, &extErr)).To(BeTrue())
			Expect(extErr.Provider).To(Equal("ollama"))
			Expect(extErr.Message).To(ContainSubstring("status 404"))
			Expect(extErr.Message).To(ContainSubstring(`model "llava" not found`))
		})
	})

	When("the response body reports an error", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{
				"error": "out of memory",
			}))
		})

		It("returns an ExtractionError with that message", func() {
			Expect(err).To(MatchError("out of memory"))
		})
	})

	When("the image cannot be decoded", func() {
		BeforeEach(func() {
			imageData = []byte("garbage")
		})

		It("returns ErrUnsupportedImage without calling the API", func() {
			Expect(err).To(MatchError(ErrUnsupportedImage))
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})
	})

	When("the context is cancelled", func() {
		BeforeEach(func() {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(context.Background(), 50*time.Millisecond)
			DeferCleanup(cancel)
			server.RouteToHandler("POST", "/api/chat", func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-r.Context().Done():
				case <-time.After(2 * time.Second):
				}
			})
		})

		It("returns an error wrapping the context error", func() {
			Expect(err).To(MatchError(context.DeadlineExceeded))
		})
	})
})
