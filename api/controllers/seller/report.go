package seller

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/bazar-market/bazar-backend/api/controllers/endpoint"
	"github.com/bazar-market/bazar-backend/pkg/db/models"
	"github.com/bazar-market/bazar-backend/pkg/logger"
)

type ReportReader interface {
	Get(ctx context.Context, sellerID uuid.UUID) (*models.SellerReport, error)
}

type TransactionLister interface {
	ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Transaction, error)
}

type reportResponse struct {
	SellerID           uuid.UUID `json:"seller_id"`
	TotalOrders        int64     `json:"total_orders"`
	TotalEarningsCents int64     `json:"total_earnings_cents"`
	TotalSales         int64     `json:"total_sales"`
	CancelledOrders    int64     `json:"cancelled_orders"`
	TotalRefundsCents  int64     `json:"total_refunds_cents"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type transactionResponse struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	CustomerID     uuid.UUID `json:"customer_id"`
	PaymentOrderID uuid.UUID `json:"payment_order_id"`
	AmountCents    int64     `json:"amount_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

// Report returns the seller's running counters, creating a zeroed row on first read.
func Report(svc ReportReader, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, "report service")
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		sellerID, err := endpoint.SellerID(r)
		if err != nil {
			return nil, err
		}
		rep, err := svc.Get(r.Context(), sellerID)
		if err != nil {
			return nil, err
		}
		return reportResponse{
			SellerID:           rep.SellerID,
			TotalOrders:        rep.TotalOrders,
			TotalEarningsCents: rep.TotalEarningsCents,
			TotalSales:         rep.TotalSales,
			CancelledOrders:    rep.CancelledOrders,
			TotalRefundsCents:  rep.TotalRefundsCents,
			UpdatedAt:          rep.UpdatedAt,
		}, nil
	})
}

// Transactions lists the seller's payment audit rows, newest first.
func Transactions(svc TransactionLister, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return endpoint.Unavailable(logg, "transaction service")
	}
	return endpoint.OK(logg, func(r *http.Request) (any, error) {
		sellerID, err := endpoint.SellerID(r)
		if err != nil {
			return nil, err
		}
		list, err := svc.ListForSeller(r.Context(), sellerID)
		if err != nil {
			return nil, err
		}
		out := make([]transactionResponse, len(list))
		for i, txn := range list {
			out[i] = transactionResponse{
				ID:             txn.ID,
				OrderID:        txn.OrderID,
				CustomerID:     txn.CustomerID,
				PaymentOrderID: txn.PaymentOrderID,
				AmountCents:    txn.AmountCents,
				CreatedAt:      txn.CreatedAt,
			}
		}
		return out, nil
	})
}
