package service

import (
	"context"
	"sort"
	"time"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Dashboard holds the back-office headline counters
type Dashboard struct {
	TotalProducts int `json:"total_products"`
	TotalOrders   int `json:"total_orders"`
	OrdersToday   int `json:"orders_today"`
	Customers     int `json:"customers"`
	PendingOrders int `json:"pending_orders"`
}

// CustomerSummary is a non-admin profile with its order totals
type CustomerSummary struct {
	Profile    *domain.Profile `json:"profile"`
	OrderCount int             `json:"order_count"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// AdminService defines the interface for back-office projections. All
// methods require an admin identity.
type AdminService interface {
	Dashboard(ctx context.Context, actor *domain.Identity) (*Dashboard, error)
	Customers(ctx context.Context, actor *domain.Identity) ([]CustomerSummary, error)
	Orders(ctx context.Context, actor *domain.Identity, status domain.OrderStatus) ([]*domain.Order, error)
}

type adminService struct {
	store  repository.Store
	logger *zap.Logger
	clock  Clock
	loc    *time.Location
}

// NewAdminService creates a new instance of AdminService. "Today" is the
// calendar day in loc.
func NewAdminService(store repository.Store, loc *time.Location, logger *zap.Logger) AdminService {
	if loc == nil {
		loc = time.UTC
	}
	return &adminService{
		store:  store,
		logger: logger,
		clock:  systemClock,
		loc:    loc,
	}
}

func (s *adminService) Dashboard(ctx context.Context, actor *domain.Identity) (*Dashboard, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	now := s.clock().In(s.loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)

	var d Dashboard
	var err error

	if d.TotalProducts, err = s.store.Products().Count(ctx); err != nil {
		return nil, storeErr("count products", err)
	}
	if d.TotalOrders, err = s.store.Orders().Count(ctx, domain.OrderFilter{}); err != nil {
		return nil, storeErr("count orders", err)
	}
	if d.OrdersToday, err = s.store.Orders().Count(ctx, domain.OrderFilter{CreatedAfter: &startOfDay}); err != nil {
		return nil, storeErr("count orders", err)
	}
	if d.PendingOrders, err = s.store.Orders().Count(ctx, domain.OrderFilter{Status: domain.OrderStatusPending}); err != nil {
		return nil, storeErr("count orders", err)
	}

	profiles, err := s.store.Profiles().Find(ctx)
	if err != nil {
		return nil, storeErr("list profiles", err)
	}
	for _, p := range profiles {
		if !p.IsAdmin {
			d.Customers++
		}
	}

	s.logger.Debug("Dashboard computed",
		zap.Int("orders_today", d.OrdersToday),
		zap.Int("pending_orders", d.PendingOrders),
	)
	return &d, nil
}

// Customers lists non-admin profiles with their order count and lifetime
// spend, biggest spenders first. Cancelled orders are not counted as spend.
func (s *adminService) Customers(ctx context.Context, actor *domain.Identity) ([]CustomerSummary, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}

	profiles, err := s.store.Profiles().Find(ctx)
	if err != nil {
		return nil, storeErr("list profiles", err)
	}
	orders, err := s.store.Orders().Find(ctx, domain.OrderFilter{})
	if err != nil {
		return nil, storeErr("list orders", err)
	}

	byUser := make(map[uuid.UUID]*CustomerSummary)
	summaries := make([]CustomerSummary, 0, len(profiles))
	for _, p := range profiles {
		if p.IsAdmin {
			continue
		}
		summaries = append(summaries, CustomerSummary{Profile: p, TotalSpent: decimal.Zero})
	}
	for i := range summaries {
		byUser[summaries[i].Profile.ID] = &summaries[i]
	}

	for _, order := range orders {
		summary, ok := byUser[order.UserID]
		if !ok {
			continue
		}
		summary.OrderCount++
		if order.OrderStatus != domain.OrderStatusCancelled {
			summary.TotalSpent = summary.TotalSpent.Add(order.TotalAmount)
		}
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalSpent.GreaterThan(summaries[j].TotalSpent)
	})
	return summaries, nil
}

// Orders lists every order, optionally narrowed to one status
func (s *adminService) Orders(ctx context.Context, actor *domain.Identity, status domain.OrderStatus) ([]*domain.Order, error) {
	if err := domain.RequireAdmin(actor); err != nil {
		return nil, err
	}
	if status != "" && !status.IsValid() {
		return nil, domain.NewValidationError("status", "unknown order status")
	}

	orders, err := s.store.Orders().Find(ctx, domain.OrderFilter{Status: status})
	if err != nil {
		return nil, storeErr("list orders", err)
	}
	return orders, nil
}
