package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/moritahiro/wearmarket-backend/internal/cart"
	"github.com/moritahiro/wearmarket-backend/internal/catalog"
	"github.com/moritahiro/wearmarket-backend/internal/grades"
	"github.com/moritahiro/wearmarket-backend/internal/stock"
	"github.com/moritahiro/wearmarket-backend/internal/users"
	"github.com/moritahiro/wearmarket-backend/pkg/db/models"
	"github.com/moritahiro/wearmarket-backend/pkg/enums"
	pkgerrors "github.com/moritahiro/wearmarket-backend/pkg/errors"
	"github.com/moritahiro/wearmarket-backend/pkg/logger"
	"github.com/moritahiro/wearmarket-backend/pkg/metrics"
	"github.com/moritahiro/wearmarket-backend/pkg/outbox"
	"github.com/moritahiro/wearmarket-backend/pkg/outbox/payloads"
	"github.com/moritahiro/wearmarket-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type snapshotFunc func(ctx context.Context, tx *gorm.DB, keys []stock.Key) (map[stock.Key]catalog.ProductSnapshot, error)

type decrementFunc func(ctx context.Context, tx *gorm.DB, lines []stock.Line) ([]stock.Key, error)

type service struct {
	tx        txRunner
	repo      Repository
	usersRepo users.Repository
	cartRepo  cart.Repository
	gradeTbl  *grades.Table
	emitter   outboxEmitter
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	txTimeout time.Duration

	snapshots  snapshotFunc
	decrements decrementFunc
}

// NewService builds the order placement and lifecycle service.
func NewService(
	tx txRunner,
	repo Repository,
	usersRepo users.Repository,
	cartRepo cart.Repository,
	gradeTbl *grades.Table,
	emitter outboxEmitter,
	checkoutMetrics *metrics.CheckoutMetrics,
	logg *logger.Logger,
	txTimeout time.Duration,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if gradeTbl == nil {
		return nil, fmt.Errorf("grade table required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if txTimeout <= 0 {
		txTimeout = 10 * time.Second
	}
	return &service{
		tx:         tx,
		repo:       repo,
		usersRepo:  usersRepo,
		cartRepo:   cartRepo,
		gradeTbl:   gradeTbl,
		emitter:    emitter,
		metrics:    checkoutMetrics,
		logg:       logg,
		txTimeout:  txTimeout,
		snapshots:  catalog.Snapshots,
		decrements: stock.DecrementAll,
	}, nil
}

// Place runs the whole checkout in one transaction: catalog snapshots, stock
// decrements in key order, order/items/payment rows, point redemption and
// accrual, cumulative spend, grade sync, cart cleanup, and outbox events.
// Any failure rolls the entire placement back.
func (s *service) Place(ctx context.Context, buyerID uuid.UUID, input PlaceInput) (*PlacedOrder, error) {
	start := time.Now()
	if err := validatePlaceInput(buyerID, input); err != nil {
		s.recordOutcome("rejected", string(pkgerrors.As(err).Code()), start)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	var placed *PlacedOrder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		usersRepo := s.usersRepo.WithTx(tx)
		cartRepo := s.cartRepo.WithTx(tx)

		buyer, err := usersRepo.FindByID(ctx, buyerID)
		if err != nil {
			return err
		}
		// Accrual uses the grade held before this order.
		rate := s.gradeTbl.AccrualRate(buyer.GradeID)

		lines, keys := normalizeLines(input.Lines)
		snaps, err := s.snapshots(ctx, tx, keys)
		if err != nil {
			return err
		}

		var subtotal int64
		var totalQty int
		for _, line := range lines {
			snap := snaps[line.Key]
			subtotal += snap.PriceYen * int64(line.Qty)
			totalQty += line.Qty
		}

		if input.UsePoint > buyer.Points {
			return pkgerrors.New(pkgerrors.CodeInsufficientPoints, "insufficient point balance")
		}
		if input.UsePoint > subtotal {
			return pkgerrors.New(pkgerrors.CodeInvalidRedemption, "points exceed order subtotal")
		}

		soldOut, err := s.decrements(ctx, tx, lines)
		if err != nil {
			return err
		}

		// Stored subtotal is net of point redemption.
		charged := subtotal - input.UsePoint
		order := &models.Order{
			ID:              uuid.New(),
			BuyerID:         buyerID,
			ShippingName:    input.Shipping.Name,
			ShippingPhone:   input.Shipping.Phone,
			ShippingAddress: input.Shipping.Address,
			SubtotalYen:     charged,
			TotalQuantity:   totalQty,
			UsePoint:        input.UsePoint,
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			snap := snaps[line.Key]
			items = append(items, models.OrderItem{
				ID:          uuid.New(),
				OrderID:     order.ID,
				ProductID:   line.Key.ProductID,
				SizeID:      line.Key.SizeID,
				StoreID:     snap.StoreID,
				ProductName: snap.Name,
				PriceYen:    snap.PriceYen,
				Quantity:    line.Qty,
			})
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return err
		}

		payment := &models.Payment{
			ID:        uuid.New(),
			OrderID:   order.ID,
			AmountYen: charged,
			Status:    enums.PaymentStatusCompleted,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return err
		}

		earned := grades.PointsEarned(charged, rate)
		if err := usersRepo.ApplyPointDelta(ctx, buyerID, input.UsePoint, earned); err != nil {
			return err
		}
		// Grade progression tracks gross spend, before redemption.
		if err := usersRepo.AddTotalAmount(ctx, buyerID, subtotal); err != nil {
			return err
		}

		updated, err := usersRepo.FindByID(ctx, buyerID)
		if err != nil {
			return err
		}
		next, changed := s.gradeTbl.SyncGrade(buyer.GradeID, updated.TotalAmountYen)
		if changed {
			if err := usersRepo.SetGrade(ctx, buyerID, next.ID); err != nil {
				return err
			}
			err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventGradeChanged,
				AggregateType: enums.AggregateUser,
				AggregateID:   buyerID,
				Version:       1,
				Data: payloads.GradeChangedEvent{
					UserID:     buyerID,
					OldGradeID: buyer.GradeID,
					NewGradeID: next.ID,
					OrderID:    order.ID,
				},
			})
			if err != nil {
				return err
			}
		}

		if err := cartRepo.RemoveItems(ctx, buyerID, keys); err != nil {
			return err
		}

		err = s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				BuyerID:       buyerID,
				SubtotalYen:   charged,
				TotalQuantity: totalQty,
				PlacedAt:      time.Now().UTC(),
			},
		})
		if err != nil {
			return err
		}

		if len(soldOut) > 0 {
			eventKeys := make([]payloads.SoldOutKeyData, 0, len(soldOut))
			for _, key := range soldOut {
				eventKeys = append(eventKeys, payloads.SoldOutKeyData{
					ProductID: key.ProductID,
					SizeID:    key.SizeID,
				})
			}
			err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventStockSoldOut,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Data:          payloads.StockSoldOutEvent{OrderID: order.ID, Keys: eventKeys},
			})
			if err != nil {
				return err
			}
		}

		order.Items = items
		order.Payment = payment
		placed = &PlacedOrder{
			Order:        order,
			PointsEarned: earned,
			SoldOutKeys:  soldOut,
		}
		return nil
	})
	if err != nil {
		reason := "internal"
		if typed := pkgerrors.As(err); typed != nil {
			reason = string(typed.Code())
		}
		s.recordOutcome("rejected", reason, start)
		return nil, err
	}

	s.recordOutcome("placed", "", start)
	if s.metrics != nil {
		s.metrics.IncPlaced()
		s.metrics.AddSoldOut(len(placed.SoldOutKeys))
	}
	logCtx := s.logg.WithOrderID(ctx, placed.Order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"buyer_id":     buyerID.String(),
		"subtotal_yen": placed.Order.SubtotalYen,
		"sold_out":     len(placed.SoldOutKeys),
	})
	s.logg.Info(logCtx, "order placed")
	return placed, nil
}

// Cancel restores stock and flips the payment to cancelled. Points, spend,
// and grade are intentionally untouched.
func (s *service) Cancel(ctx context.Context, orderID, actorID uuid.UUID) error {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.BuyerID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may cancel an order")
	}
	if err := guardPayment(order); err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.TransitionPayment(ctx, order.ID, enums.PaymentStatusCompleted, enums.PaymentStatusCancelled); err != nil {
			return err
		}
		for _, item := range order.Items {
			key := stock.Key{ProductID: item.ProductID, SizeID: item.SizeID}
			if _, err := stock.Increment(ctx, tx, key, item.Quantity); err != nil {
				return err
			}
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCanceled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCanceledEvent{
				OrderID:    order.ID,
				BuyerID:    order.BuyerID,
				CanceledAt: time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(logCtx, "order cancelled")
	return nil
}

// Update mutates the shipping destination only.
func (s *service) Update(ctx context.Context, orderID, actorID uuid.UUID, shipping ShippingInput) (*models.Order, error) {
	if err := validateShipping(shipping); err != nil {
		return nil, err
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != actorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer may update an order")
	}
	if err := guardPayment(order); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateShipping(ctx, order.ID, shipping); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, order.ID)
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	if buyerID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	return s.repo.ListByBuyer(ctx, buyerID, params)
}

// Get returns the order to its buyer, or to a seller whose store appears in
// the items.
func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID == actorID {
		return order, nil
	}
	for _, item := range order.Items {
		owner, err := s.repo.StoreOwner(ctx, item.StoreID)
		if err != nil {
			return nil, err
		}
		if owner == actorID {
			return order, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a participant in this order")
}

func (s *service) recordOutcome(outcome, reason string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveDuration(outcome, time.Since(start))
	if outcome == "rejected" {
		s.metrics.IncRejected(reason)
	}
}

func guardPayment(order *models.Order) error {
	if order.Payment == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment")
	}
	if order.Payment.Status != enums.PaymentStatusCompleted {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order payment is not active")
	}
	return nil
}

// normalizeLines merges duplicate (product, size) pairs and returns the
// deduplicated keys alongside.
func normalizeLines(inputs []LineInput) ([]stock.Line, []stock.Key) {
	index := map[stock.Key]int{}
	lines := make([]stock.Line, 0, len(inputs))
	for _, in := range inputs {
		key := stock.Key{ProductID: in.ProductID, SizeID: in.SizeID}
		if pos, ok := index[key]; ok {
			lines[pos].Qty += in.Quantity
			continue
		}
		index[key] = len(lines)
		lines = append(lines, stock.Line{Key: key, Qty: in.Quantity})
	}
	keys := make([]stock.Key, 0, len(lines))
	for _, line := range lines {
		keys = append(keys, line.Key)
	}
	return lines, keys
}

func validatePlaceInput(buyerID uuid.UUID, input PlaceInput) error {
	if buyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one line")
	}
	for _, line := range input.Lines {
		if line.ProductID == uuid.Nil || line.SizeID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line requires product and size")
		}
		if line.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive")
		}
	}
	if input.UsePoint < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "use_point must be non-negative")
	}
	return validateShipping(input.Shipping)
}

func validateShipping(shipping ShippingInput) error {
	if strings.TrimSpace(shipping.Name) == "" ||
		strings.TrimSpace(shipping.Phone) == "" ||
		strings.TrimSpace(shipping.Address) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping name, phone, and address are required")
	}
	return nil
}
