package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arexans/lisensi/internal/config"
	"github.com/arexans/lisensi/internal/models"
	"github.com/rs/zerolog"
)

func newTestClient(baseURL string) *Client {
	return New(config.ProviderConfig{
		BaseURL:    baseURL,
		LicenseKey: "lk_test",
		QRID:       "qr_test",
	}, zerolog.Nop())
}

func TestCreatePayment(t *testing.T) {
	var gotReq createRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate/v2/qris" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if key := r.Header.Get("x-license-key"); key != "lk_test" {
			t.Errorf("expected license key header, got %q", key)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": 200,
			"data": map[string]any{
				"transactionId":  "TX1",
				"qr_string":      "00020101021226",
				"originalAmount": 21000,
				"totalAmount":    21007,
				"uniqueNominal":  7,
			},
		})
	}))
	defer server.Close()

	result, err := newTestClient(server.URL).CreatePayment(context.Background(), 21000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.TransactionID != "TX1" {
		t.Errorf("expected TX1, got %s", result.TransactionID)
	}
	if result.TotalAmount != 21007 || result.UniqueNominal != 7 {
		t.Errorf("unexpected amounts: total=%d nominal=%d", result.TotalAmount, result.UniqueNominal)
	}

	if gotReq.QRID != "qr_test" {
		t.Errorf("expected qr_test, got %s", gotReq.QRID)
	}
	if gotReq.ExpiredInMinutes != 15 {
		t.Errorf("expected 15 minute expiry, got %d", gotReq.ExpiredInMinutes)
	}
	if !gotReq.UseUniqueCode {
		t.Error("expected useUniqueCode to be set")
	}
	if gotReq.PaymentMethod != "qris" || gotReq.QRType != "dynamic" {
		t.Errorf("unexpected payment selectors: %s/%s", gotReq.PaymentMethod, gotReq.QRType)
	}
}

func TestCreatePaymentProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  400,
			"message": "invalid qr_id",
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreatePayment(context.Background(), 5000)
	if err == nil {
		t.Fatal("expected error")
	}
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if gwErr.Message != "invalid qr_id" {
		t.Errorf("expected provider message, got %q", gwErr.Message)
	}
}

func TestCreatePaymentMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>gateway timeout</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CreatePayment(context.Background(), 5000)
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		want     models.TransactionStatus
	}{
		{"pending", "pending", models.TransactionStatusPending},
		{"paid", "paid", models.TransactionStatusPaid},
		{"expired", "expired", models.TransactionStatusExpired},
		{"cancelled", "cancelled", models.TransactionStatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/generate/check-status" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				var req map[string]string
				json.NewDecoder(r.Body).Decode(&req)
				if req["transactionId"] != "TX1" {
					t.Errorf("expected TX1, got %s", req["transactionId"])
				}
				json.NewEncoder(w).Encode(map[string]any{
					"status": 200,
					"data":   map[string]string{"status": tt.provider},
				})
			}))
			defer server.Close()

			status, err := newTestClient(server.URL).CheckStatus(context.Background(), "TX1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != tt.want {
				t.Errorf("expected %s, got %s", tt.want, status)
			}
		})
	}
}

func TestCheckStatusUnknownValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status": 200,
			"data":   map[string]string{"status": "settling"},
		})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).CheckStatus(context.Background(), "TX1")
	if err == nil {
		t.Fatal("unknown status must be an error, not implicit pending")
	}
}

func TestCheckStatusTransportFailure(t *testing.T) {
	server := httptest.NewServer(nil)
	server.Close() // refuse connections

	_, err := newTestClient(server.URL).CheckStatus(context.Background(), "TX1")
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
}

func TestCancelPayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate/cancel-status" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": 200,
			"data":   map[string]string{"status": "cancelled"},
		})
	}))
	defer server.Close()

	if err := newTestClient(server.URL).CancelPayment(context.Background(), "TX1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
