package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/moritahiro/wearmarket-backend/api/responses"
	"github.com/moritahiro/wearmarket-backend/api/validators"
	internalorders "github.com/moritahiro/wearmarket-backend/internal/orders"
	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
	"github.com/moritahiro/wearmarket-backend/pkg/logger"
	"github.com/moritahiro/wearmarket-backend/pkg/pagination"
)

// ListOrders returns the authenticated buyer's orders, newest first.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		orders, next, err := svc.List(r.Context(), buyerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]orderResponse, 0, len(orders))
		for i := range orders {
			items = append(items, newOrderResponse(&orders[i]))
		}

		resp := orderListResponse{Items: items}
		if next != nil {
			resp.Cursor = pagination.EncodeCursor(*next)
		}
		responses.WriteSuccess(w, resp)
	}
}

// GetOrder returns a single order visible to the buyer or a seller with items
// in it.
func GetOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, actorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// CancelOrder cancels the buyer's own order, restoring stock.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Cancel(r.Context(), orderID, actorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

// UpdateOrder replaces the shipping destination on an active order.
func UpdateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		actorID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Update(r.Context(), orderID, actorID, internalorders.ShippingInput{
			Name:    validators.SanitizeString(payload.Shipping.Name, 128),
			Phone:   strings.TrimSpace(payload.Shipping.Phone),
			Address: validators.SanitizeString(payload.Shipping.Address, 512),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type updateOrderRequest struct {
	Shipping checkoutShipping `json:"shipping" validate:"required"`
}

type orderListResponse struct {
	Items  []orderResponse `json:"items"`
	Cursor string          `json:"cursor,omitempty"`
}

type orderResponse struct {
	OrderID         uuid.UUID           `json:"order_id"`
	BuyerID         uuid.UUID           `json:"buyer_id"`
	ShippingName    string              `json:"shipping_name"`
	ShippingPhone   string              `json:"shipping_phone"`
	ShippingAddress string              `json:"shipping_address"`
	SubtotalYen     int64               `json:"subtotal_yen"`
	TotalQuantity   int                 `json:"total_quantity"`
	UsePoint        int64               `json:"use_point"`
	PaymentStatus   string              `json:"payment_status,omitempty"`
	AmountYen       int64               `json:"amount_yen"`
	Items           []orderItemResponse `json:"items,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ItemID      uuid.UUID `json:"item_id"`
	ProductID   uuid.UUID `json:"product_id"`
	SizeID      uuid.UUID `json:"size_id"`
	StoreID     uuid.UUID `json:"store_id"`
	ProductName string    `json:"product_name"`
	PriceYen    int64     `json:"price_yen"`
	Quantity    int       `json:"quantity"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	resp := orderResponse{
		OrderID:         order.ID,
		BuyerID:         order.BuyerID,
		ShippingName:    order.ShippingName,
		ShippingPhone:   order.ShippingPhone,
		ShippingAddress: order.ShippingAddress,
		SubtotalYen:     order.SubtotalYen,
		TotalQuantity:   order.TotalQuantity,
		UsePoint:        order.UsePoint,
		CreatedAt:       order.CreatedAt,
	}
	if order.Payment != nil {
		resp.PaymentStatus = string(order.Payment.Status)
		resp.AmountYen = order.Payment.AmountYen
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, orderItemResponse{
			ItemID:      item.ID,
			ProductID:   item.ProductID,
			SizeID:      item.SizeID,
			StoreID:     item.StoreID,
			ProductName: item.ProductName,
			PriceYen:    item.PriceYen,
			Quantity:    item.Quantity,
		})
	}
	return resp
}

func orderIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return parsed, nil
}
