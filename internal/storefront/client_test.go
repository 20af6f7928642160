package storefront_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/subskit/internal/storefront"
	"github.com/dmitrymomot/subskit/svc/processor"
	"github.com/dmitrymomot/subskit/svc/subscription"
)

func TestClientCreateOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	installments := []*subscription.Installment{
		subscription.NewInstallment(uuid.New(), now),
		subscription.NewInstallment(uuid.New(), now),
	}

	t.Run("maps paid response", func(t *testing.T) {
		t.Parallel()

		orderID := uuid.New()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/subscription-orders", r.URL.Path)
			require.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

			var req struct {
				InstallmentIDs []uuid.UUID `json:"installment_ids"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Len(t, req.InstallmentIDs, 2)

			json.NewEncoder(w).Encode(map[string]any{"order_id": orderID, "status": "paid"})
		}))
		defer srv.Close()

		client, err := storefront.New(storefront.Config{BaseURL: srv.URL, APIKey: "secret"})
		require.NoError(t, err)

		result, err := client.CreateOrder(context.Background(), installments)
		require.NoError(t, err)
		assert.Equal(t, processor.OrderPaid, result.Status)
		require.NotNil(t, result.OrderID)
		assert.Equal(t, orderID, *result.OrderID)
	})

	t.Run("maps failure statuses", func(t *testing.T) {
		t.Parallel()

		for wire, want := range map[string]processor.OrderStatus{
			"payment_failed": processor.OrderPaymentFailed,
			"failed":         processor.OrderFailed,
		} {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"status": wire})
			}))

			client, err := storefront.New(storefront.Config{BaseURL: srv.URL})
			require.NoError(t, err)

			result, err := client.CreateOrder(context.Background(), installments)
			require.NoError(t, err)
			assert.Equal(t, want, result.Status)
			assert.Nil(t, result.OrderID)
			srv.Close()
		}
	})

	t.Run("unknown status is an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"status": "on_hold"})
		}))
		defer srv.Close()

		client, err := storefront.New(storefront.Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.CreateOrder(context.Background(), installments)
		assert.ErrorIs(t, err, storefront.ErrUnexpectedStatus)
	})

	t.Run("non-2xx is an error", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		client, err := storefront.New(storefront.Config{BaseURL: srv.URL})
		require.NoError(t, err)

		_, err = client.CreateOrder(context.Background(), installments)
		assert.ErrorIs(t, err, storefront.ErrRequestFailed)
	})
}

func TestClientOrderService(t *testing.T) {
	t.Parallel()

	orderID := uuid.New()
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := storefront.New(storefront.Config{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	require.NoError(t, client.Cancel(context.Background(), orderID))
	require.NoError(t, client.TouchCompletion(context.Background(), orderID, time.Now()))

	assert.Equal(t, []string{
		"/orders/" + orderID.String() + "/cancel",
		"/orders/" + orderID.String() + "/touch-completion",
	}, paths)
}

func TestClientNew(t *testing.T) {
	t.Parallel()

	_, err := storefront.New(storefront.Config{})
	assert.ErrorIs(t, err, storefront.ErrBaseURLRequired)
}
