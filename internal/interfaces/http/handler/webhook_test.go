package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appinvoicing "github.com/wasatpay/backend/internal/application/invoicing"
	"github.com/wasatpay/backend/internal/domain/invoicing"
	"github.com/wasatpay/backend/internal/infrastructure/gateway"
	"github.com/wasatpay/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// stubGateway returns canned parse results and records the inputs it saw
type stubGateway struct {
	event         appinvoicing.ProviderEvent
	ok            bool
	err           error
	lastPayload   []byte
	lastSignature string
}

func (g *stubGateway) ParseEvent(payload []byte, signature string) (appinvoicing.ProviderEvent, bool, error) {
	g.lastPayload = payload
	g.lastSignature = signature
	return g.event, g.ok, g.err
}

func newWebhookRouter(env *testEnv, stripe, flutterwave PaymentGateway) *gin.Engine {
	h := NewWebhookHandler(stripe, flutterwave, env.webhookService, zap.NewNop())
	r := gin.New()
	r.POST("/webhooks/stripe", h.Stripe)
	r.POST("/webhooks/flutterwave", h.Flutterwave)
	return r
}

func postWebhook(r *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// seedCorrelatedPayment creates a payment linked to a provider payment intent
func seedCorrelatedPayment(env *testEnv, provider invoicing.PaymentProvider, intentID string) *invoicing.Payment {
	inv := env.seedSentInvoice()
	p, err := env.paymentService.InitiatePayment(context.Background(), appinvoicing.InitiatePaymentRequest{
		InvoiceID: inv.ID,
		Method:    invoicing.PaymentMethodCard,
		Provider:  provider,
	})
	if err != nil {
		panic(err)
	}
	p.SetProviderCorrelation(intentID, "", "")
	if err := env.store.repositories().Payments.Save(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

func TestWebhookHandlerStripe(t *testing.T) {
	t.Run("successful event completes the payment", func(t *testing.T) {
		env := newTestEnv()
		p := seedCorrelatedPayment(env, invoicing.PaymentProviderStripe, "pi_123")
		gw := &stubGateway{
			event: appinvoicing.ProviderEvent{
				Provider:      invoicing.PaymentProviderStripe,
				EventID:       "evt_1",
				CorrelationID: "pi_123",
				Outcome:       appinvoicing.ProviderOutcomeSuccess,
				TransactionID: "ch_456",
				ProcessingFee: decimal.NewFromFloat(6.10),
			},
			ok: true,
		}
		r := newWebhookRouter(env, gw, nil)

		w := postWebhook(r, "/webhooks/stripe", `{"id":"evt_1"}`,
			map[string]string{"Stripe-Signature": "t=1,v1=abc"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]any)
		assert.Equal(t, true, data["processed"])

		// The raw body and signature header reach the gateway untouched
		assert.Equal(t, `{"id":"evt_1"}`, string(gw.lastPayload))
		assert.Equal(t, "t=1,v1=abc", gw.lastSignature)

		updated, err := env.paymentService.GetPayment(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.PaymentStatusCompleted, updated.Status)
		assert.Equal(t, "ch_456", updated.ProviderTransactionID)
	})

	t.Run("failure event records the decline", func(t *testing.T) {
		env := newTestEnv()
		p := seedCorrelatedPayment(env, invoicing.PaymentProviderStripe, "pi_bad")
		gw := &stubGateway{
			event: appinvoicing.ProviderEvent{
				Provider:      invoicing.PaymentProviderStripe,
				EventID:       "evt_2",
				CorrelationID: "pi_bad",
				Outcome:       appinvoicing.ProviderOutcomeFailure,
				FailureReason: "Card declined",
				FailureCode:   "card_declined",
			},
			ok: true,
		}
		r := newWebhookRouter(env, gw, nil)

		w := postWebhook(r, "/webhooks/stripe", `{}`, nil)

		require.Equal(t, http.StatusOK, w.Code)

		updated, err := env.paymentService.GetPayment(context.Background(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.PaymentStatusFailed, updated.Status)
		assert.Equal(t, "Card declined", updated.FailureReason)
	})

	t.Run("invalid signature returns 400", func(t *testing.T) {
		env := newTestEnv()
		gw := &stubGateway{err: gateway.ErrInvalidSignature}
		r := newWebhookRouter(env, gw, nil)

		w := postWebhook(r, "/webhooks/stripe", `{}`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeInvalidSignature, resp.Error.Code)
	})

	t.Run("unparseable payload returns 400", func(t *testing.T) {
		env := newTestEnv()
		gw := &stubGateway{err: assert.AnError}
		r := newWebhookRouter(env, gw, nil)

		w := postWebhook(r, "/webhooks/stripe", `not json`, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	})

	t.Run("unhandled event type is acknowledged", func(t *testing.T) {
		env := newTestEnv()
		gw := &stubGateway{ok: false}
		r := newWebhookRouter(env, gw, nil)

		w := postWebhook(r, "/webhooks/stripe", `{"type":"customer.created"}`, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]any)
		assert.Equal(t, false, data["processed"])
	})

	t.Run("event for unknown payment is acknowledged", func(t *testing.T) {
		env := newTestEnv()
		gw := &stubGateway{
			event: appinvoicing.ProviderEvent{
				Provider:      invoicing.PaymentProviderStripe,
				EventID:       "evt_3",
				CorrelationID: "pi_unknown",
				Outcome:       appinvoicing.ProviderOutcomeSuccess,
			},
			ok: true,
		}
		r := newWebhookRouter(env, gw, nil)

		w := postWebhook(r, "/webhooks/stripe", `{}`, nil)

		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]any)
		assert.Equal(t, false, data["processed"])
	})

	t.Run("unconfigured provider returns 503", func(t *testing.T) {
		env := newTestEnv()
		r := newWebhookRouter(env, nil, nil)

		w := postWebhook(r, "/webhooks/stripe", `{}`, nil)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestWebhookHandlerFlutterwave(t *testing.T) {
	t.Run("passes verif-hash header to the gateway", func(t *testing.T) {
		env := newTestEnv()
		seedCorrelatedPayment(env, invoicing.PaymentProviderFlutterwave, "tx_789")
		gw := &stubGateway{
			event: appinvoicing.ProviderEvent{
				Provider:      invoicing.PaymentProviderFlutterwave,
				EventID:       "flw_evt_1",
				CorrelationID: "tx_789",
				Outcome:       appinvoicing.ProviderOutcomeSuccess,
			},
			ok: true,
		}
		r := newWebhookRouter(env, nil, gw)

		w := postWebhook(r, "/webhooks/flutterwave", `{"event":"charge.completed"}`,
			map[string]string{"verif-hash": "secret-hash"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "secret-hash", gw.lastSignature)
	})

	t.Run("stripe gateway is not consulted", func(t *testing.T) {
		env := newTestEnv()
		stripe := &stubGateway{err: gateway.ErrInvalidSignature}
		flutterwave := &stubGateway{ok: false}
		r := newWebhookRouter(env, stripe, flutterwave)

		w := postWebhook(r, "/webhooks/flutterwave", `{}`, nil)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, stripe.lastPayload)
	})
}

// Guard against UUID parsing shortcuts: correlation ids are provider strings,
// not UUIDs, and must round-trip as-is.
func TestWebhookCorrelationIDsAreOpaque(t *testing.T) {
	env := newTestEnv()
	id := "pi_" + uuid.NewString()
	seedCorrelatedPayment(env, invoicing.PaymentProviderStripe, id)

	p, err := env.store.repositories().Payments.FindByProviderCorrelation(
		context.Background(), invoicing.PaymentProviderStripe, id)
	require.NoError(t, err)
	assert.Equal(t, id, p.ProviderPaymentIntentID)
}
