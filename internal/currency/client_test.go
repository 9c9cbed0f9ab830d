package currency_test

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	internal "github.com/hanifm/expense-approval/internal"
	"github.com/hanifm/expense-approval/internal/currency"
)

var _ = Describe("CurrencyClient", func() {
	var (
		server   *httptest.Server
		client   *currency.Client
		requests int64
		status   int
		body     string
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		requests = 0
		status = http.StatusOK
		body = `{"base":"EUR","rates":{"USD":1.08,"GBP":0.85}}`

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt64(&requests, 1)
			w.WriteHeader(status)
			fmt.Fprint(w, body)
		}))

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		client = currency.NewClient(server.URL, 5*time.Second, logger)
	})

	AfterEach(func() {
		server.Close()
	})

	It("should return the rate between two currencies", func() {
		rate, err := client.Rate(ctx, "EUR", "USD")

		Expect(err).ToNot(HaveOccurred())
		Expect(rate.Equal(decimal.NewFromFloat(1.08))).To(BeTrue())
	})

	It("should return 1 for a same-currency conversion without calling out", func() {
		rate, err := client.Rate(ctx, "usd", "USD")

		Expect(err).ToNot(HaveOccurred())
		Expect(rate.Equal(decimal.NewFromInt(1))).To(BeTrue())
		Expect(atomic.LoadInt64(&requests)).To(BeZero())
	})

	It("should serve repeated lookups from the cache", func() {
		_, err := client.Rate(ctx, "EUR", "USD")
		Expect(err).ToNot(HaveOccurred())

		_, err = client.Rate(ctx, "EUR", "GBP")
		Expect(err).ToNot(HaveOccurred())

		Expect(atomic.LoadInt64(&requests)).To(Equal(int64(1)))
	})

	It("should fail for an unknown target currency", func() {
		_, err := client.Rate(ctx, "EUR", "XXX")

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeRateLookupFailed))
	})

	It("should fail when the provider returns a non-200 status", func() {
		status = http.StatusBadGateway

		_, err := client.Rate(ctx, "EUR", "USD")

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeRateLookupFailed))
	})

	It("should fail on a malformed response body", func() {
		body = "not json"

		_, err := client.Rate(ctx, "EUR", "USD")

		Expect(err).To(HaveOccurred())
	})

	It("should fail when the provider is unreachable", func() {
		server.Close()

		_, err := client.Rate(ctx, "EUR", "USD")

		appErr, ok := internal.IsAppError(err)
		Expect(ok).To(BeTrue())
		Expect(appErr.Code).To(Equal(internal.ErrCodeRateLookupFailed))
	})
})
