package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/sandeepkv93/booking-scheduler-backend/internal/domain"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/observability"
	"github.com/sandeepkv93/booking-scheduler-backend/internal/repository"
)

type ReductionInput struct {
	Amount     float64
	Percentage float64
}

type OrderService struct {
	tx       repository.Transactor
	orders   repository.OrderRepository
	bookings repository.BookingRepository
	logger   *slog.Logger
	now      func() time.Time
}

func NewOrderService(tx repository.Transactor, orders repository.OrderRepository, bookings repository.BookingRepository, logger *slog.Logger) *OrderService {
	return &OrderService{tx: tx, orders: orders, bookings: bookings, logger: logger, now: time.Now}
}

func (s *OrderService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*domain.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, ErrOrderNotFound)
	}
	if !actor.canActFor(order.StudentID) {
		return nil, ErrNotOwner
	}
	return order, nil
}

func (s *OrderService) Mine(ctx context.Context, studentID uuid.UUID) ([]domain.Order, error) {
	return s.orders.ListByStudent(ctx, studentID)
}

func (s *OrderService) Search(ctx context.Context, state repository.TableState) (repository.Page[domain.Order], error) {
	return s.orders.Search(ctx, state)
}

// ApplyReduction replaces both reductions of an order. The flat amount cannot exceed
// the booked total and the percentage must stay within [0, 100].
func (s *OrderService) ApplyReduction(ctx context.Context, id uuid.UUID, in ReductionInput) (order *domain.Order, err error) {
	defer func() { observability.RecordOrderEvent(ctx, "reduction", outcomeOf(err)) }()

	if invalidAmount(in.Amount) || invalidAmount(in.Percentage) || in.Percentage > 100 {
		return nil, ErrInvalidReduction
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		total, err := recomputeOrderTotal(ctx, s.orders, id)
		if err != nil {
			return err
		}
		if in.Amount > total {
			return ErrInvalidReduction
		}
		return fromRepo(s.orders.Update(ctx, id, map[string]any{
			"reduction_amount":     in.Amount,
			"reduction_percentage": in.Percentage,
		}), ErrOrderNotFound)
	})
	if err != nil {
		return nil, err
	}
	order, err = s.orders.FindByID(ctx, id)
	return order, fromRepo(err, ErrOrderNotFound)
}

// Archive cancels the order together with every booking it holds, freeing their slots.
func (s *OrderService) Archive(ctx context.Context, actor Actor, id uuid.UUID) (err error) {
	defer func() { observability.RecordOrderEvent(ctx, "archive", outcomeOf(err)) }()

	if _, err := s.Get(ctx, actor, id); err != nil {
		return err
	}
	at := s.now().UTC()
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.bookings.ArchiveByOrder(ctx, id, at); err != nil {
			return err
		}
		return fromRepo(s.orders.Archive(ctx, id, at), ErrOrderNotFound)
	})
	if err == nil {
		s.logger.InfoContext(ctx, "order archived", "order_id", id, "actor_id", actor.UserID)
	}
	return err
}

// recomputeOrderTotal stores the sum of the active bookings' slot prices on the order.
// A flat reduction larger than the new total is lowered to the total.
func recomputeOrderTotal(ctx context.Context, orders repository.OrderRepository, id uuid.UUID) (float64, error) {
	order, err := orders.FindByID(ctx, id)
	if err != nil {
		return 0, fromRepo(err, ErrOrderNotFound)
	}
	total, err := orders.BookedTotal(ctx, id)
	if err != nil {
		return 0, err
	}
	updates := map[string]any{"total_amount": total}
	if order.ReductionAmount > total {
		updates["reduction_amount"] = total
	}
	if err := orders.Update(ctx, id, updates); err != nil {
		return 0, fromRepo(err, ErrOrderNotFound)
	}
	return total, nil
}

func invalidAmount(v float64) bool {
	return v < 0 || math.IsNaN(v) || math.IsInf(v, 0)
}
