package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/moritahiro/wearmarket-backend/api/middleware"
	"github.com/moritahiro/wearmarket-backend/api/responses"
	"github.com/moritahiro/wearmarket-backend/api/validators"
	internalorders "github.com/moritahiro/wearmarket-backend/internal/orders"
	"github.com/moritahiro/wearmarket-backend/internal/stock"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
	"github.com/moritahiro/wearmarket-backend/pkg/logger"
)

// Checkout places an order from the submitted lines, charging stock and
// points atomically.
func Checkout(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lines := make([]internalorders.LineInput, 0, len(payload.Lines))
		for _, line := range payload.Lines {
			lines = append(lines, internalorders.LineInput{
				ProductID: line.ProductID,
				SizeID:    line.SizeID,
				Quantity:  line.Quantity,
			})
		}

		placed, err := svc.Place(r.Context(), buyerID, internalorders.PlaceInput{
			Shipping: internalorders.ShippingInput{
				Name:    validators.SanitizeString(payload.Shipping.Name, 128),
				Phone:   strings.TrimSpace(payload.Shipping.Phone),
				Address: validators.SanitizeString(payload.Shipping.Address, 512),
			},
			Lines:    lines,
			UsePoint: payload.UsePoint,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newCheckoutResponse(placed))
	}
}

type checkoutShipping struct {
	Name    string `json:"name" validate:"required,min=1,max=128"`
	Phone   string `json:"phone" validate:"required,min=7,max=32"`
	Address string `json:"address" validate:"required,min=1,max=512"`
}

type checkoutLine struct {
	ProductID uuid.UUID `json:"product_id" validate:"required,uuid4"`
	SizeID    uuid.UUID `json:"size_id" validate:"required,uuid4"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type checkoutRequest struct {
	Shipping checkoutShipping `json:"shipping" validate:"required"`
	Lines    []checkoutLine   `json:"lines" validate:"required,min=1,dive"`
	UsePoint int64            `json:"use_point" validate:"min=0"`
}

type checkoutResponse struct {
	Order        orderResponse    `json:"order"`
	PointsEarned int64            `json:"points_earned"`
	SoldOutKeys  []soldOutKeyItem `json:"sold_out_keys,omitempty"`
}

type soldOutKeyItem struct {
	ProductID uuid.UUID `json:"product_id"`
	SizeID    uuid.UUID `json:"size_id"`
}

func newCheckoutResponse(placed *internalorders.PlacedOrder) checkoutResponse {
	if placed == nil {
		return checkoutResponse{}
	}
	return checkoutResponse{
		Order:        newOrderResponse(placed.Order),
		PointsEarned: placed.PointsEarned,
		SoldOutKeys:  newSoldOutKeys(placed.SoldOutKeys),
	}
}

func newSoldOutKeys(keys []stock.Key) []soldOutKeyItem {
	if len(keys) == 0 {
		return nil
	}
	out := make([]soldOutKeyItem, 0, len(keys))
	for _, key := range keys {
		out = append(out, soldOutKeyItem{ProductID: key.ProductID, SizeID: key.SizeID})
	}
	return out
}

func actorFromContext(r *http.Request) (uuid.UUID, error) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	parsed, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return parsed, nil
}
