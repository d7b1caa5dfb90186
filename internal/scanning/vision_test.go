package scanning

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"google.golang.org/api/option"
)

var _ = Describe("Vision", func() {
	var (
		server    *ghttp.Server
		extractor *Vision
		text      string
		err       error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		extractor, newErr = NewVision("test-key",
			option.WithEndpoint(server.URL()+"/"),
			option.WithHTTPClient(http.DefaultClient),
		)
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		text, err = extractor.ExtractText(context.Background(), testPNG(), "image/png")
	})

	When("text is detected", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/v1/images:annotate"),
				func(w http.ResponseWriter, r *http.Request) {
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())
					var req map[string]any
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					Expect(string(body)).To(ContainSubstring("TEXT_DETECTION"))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
					"responses": []any{
						map[string]any{
							"textAnnotations": []any{
								map[string]any{"description": "2 Coffee\r\n4.50"},
								map[string]any{"description": "Coffee"},
							},
						},
					},
				}),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the first annotation normalized", func() {
			Expect(text).To(Equal("2 Coffee\n4.50"))
		})
	})

	When("no text is detected", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"responses": []any{map[string]any{}},
			}))
		})

		It("should return empty text without an error", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(BeEmpty())
		})
	})

	When("the response carries an error message", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{
				"responses": []any{
					map[string]any{
						"error": map[string]any{"code": 3, "message": "Bad image data."},
					},
				},
			}))
		})

		It("returns an ExtractionError with the message verbatim", func() {
			var extErr *ExtractionError
			Expect(err).To(BeAssignableToTypeOf(extErr))
			Expect(err.Error()).To(Equal("Bad image data."))
		})
	})

	When("the API call fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusForbidden, `{"error":{"code":403,"message":"API key not valid"}}`))
		})

		It("returns an ExtractionError", func() {
			var extErr *ExtractionError
			Expect(err).To(BeAssignableToTypeOf(extErr))
			Expect(err.Error()).To(ContainSubstring("API key not valid"))
		})
	})
})

var _ = Describe("NewVision", func() {
	It("requires an API key", func() {
		_, err := NewVision("")
		Expect(err).To(HaveOccurred())
	})
})
