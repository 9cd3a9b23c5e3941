// Package seed fills a store with a demo catalog, customers and orders.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mansara-store/internal/domain"
	"mansara-store/internal/repository"
	"mansara-store/internal/service"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Options struct {
	Customers         int
	OrdersPerCustomer int
	AdminEmail        string
	AdminPassword     string
	CustomerPassword  string
}

func DefaultOptions() Options {
	return Options{
		Customers:         5,
		OrdersPerCustomer: 1,
		AdminEmail:        "admin@mansara.test",
		AdminPassword:     "admin-password",
		CustomerPassword:  "customer-password",
	}
}

// Result lists what a run created or found already present
type Result struct {
	Admin     *domain.Profile
	Products  []*domain.Product
	Combos    []*domain.Combo
	Customers []*domain.Profile
	Orders    []*domain.Order
}

type catalogEntry struct {
	name        string
	category    string
	subCategory string
	weight      string
	minPrice    int
	maxPrice    int
}

var catalog = []catalogEntry{
	{"Ragi Flour", "flours", "millet-flours", "500g", 90, 140},
	{"Foxtail Millet", "grains", "millets", "1kg", 120, 180},
	{"Little Millet", "grains", "millets", "1kg", 130, 190},
	{"Kodo Millet", "grains", "millets", "1kg", 110, 170},
	{"Barnyard Millet", "grains", "millets", "1kg", 120, 175},
	{"Pearl Millet Flour", "flours", "millet-flours", "500g", 70, 110},
	{"Multi Millet Dosa Mix", "ready-mix", "breakfast", "500g", 150, 220},
	{"Ragi Malt", "health-mix", "drinks", "250g", 160, 240},
	{"Millet Noodles", "ready-mix", "snacks", "180g", 60, 95},
	{"Jowar Flakes", "breakfast", "cereals", "400g", 140, 200},
}

type comboEntry struct {
	name     string
	products []string
	discount int64
}

var combos = []comboEntry{
	{"Millet Starter Pack", []string{"foxtail-millet", "little-millet", "kodo-millet"}, 10},
	{"Breakfast Bundle", []string{"multi-millet-dosa-mix", "ragi-malt", "jowar-flakes"}, 12},
}

var cities = []struct{ city, state string }{
	{"Chennai", "Tamil Nadu"},
	{"Coimbatore", "Tamil Nadu"},
	{"Bengaluru", "Karnataka"},
	{"Hyderabad", "Telangana"},
	{"Kochi", "Kerala"},
}

type Seeder struct {
	profiles service.ProfileService
	catalog  service.CatalogService
	cart     service.CartService
	orders   service.OrderService
	store    repository.Store
	faker    *gofakeit.Faker
	logger   *zap.Logger
}

// New wires a Seeder over store. The same seed gives the same data on an
// empty store; 0 picks a random seed. Services are built the same way the API
// builds them, so seeded data passes the same validation.
func New(store repository.Store, tokens service.TokenConfig, seed uint64, logger *zap.Logger) *Seeder {
	locks := service.NewIdentityLocks()
	return &Seeder{
		profiles: service.NewProfileService(store, tokens, logger),
		catalog:  service.NewCatalogService(store, logger),
		cart:     service.NewCartService(store, locks, nil, logger),
		orders:   service.NewOrderService(store, locks, service.NewOrderNumbers(nil), nil, logger),
		store:    store,
		faker:    gofakeit.New(seed),
		logger:   logger,
	}
}

// Run seeds the store. Rows that already exist by slug or email are reused,
// so running twice against the same database is safe.
func (s *Seeder) Run(ctx context.Context, opts Options) (*Result, error) {
	res := &Result{}

	admin, err := s.ensureAdmin(ctx, opts.AdminEmail, opts.AdminPassword)
	if err != nil {
		return nil, fmt.Errorf("seed admin: %w", err)
	}
	res.Admin = admin
	actor := admin.Identity()

	bySlug := make(map[string]*domain.Product, len(catalog))
	for _, entry := range catalog {
		p, err := s.ensureProduct(ctx, actor, entry)
		if err != nil {
			return nil, fmt.Errorf("seed product %q: %w", entry.name, err)
		}
		bySlug[p.Slug] = p
		res.Products = append(res.Products, p)
	}

	for _, entry := range combos {
		c, err := s.ensureCombo(ctx, actor, entry, bySlug)
		if err != nil {
			return nil, fmt.Errorf("seed combo %q: %w", entry.name, err)
		}
		res.Combos = append(res.Combos, c)
	}

	for i := 0; i < opts.Customers; i++ {
		customer, err := s.ensureCustomer(ctx, i, opts.CustomerPassword)
		if err != nil {
			return nil, fmt.Errorf("seed customer %d: %w", i, err)
		}
		res.Customers = append(res.Customers, customer)

		for n := 0; n < opts.OrdersPerCustomer; n++ {
			order, err := s.placeOrder(ctx, customer, res)
			if err != nil {
				return nil, fmt.Errorf("seed order for %s: %w", customer.Email, err)
			}
			res.Orders = append(res.Orders, order)
		}
	}

	s.logger.Info("Seed complete",
		zap.Int("products", len(res.Products)),
		zap.Int("combos", len(res.Combos)),
		zap.Int("customers", len(res.Customers)),
		zap.Int("orders", len(res.Orders)),
	)
	return res, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, email, password string) (*domain.Profile, error) {
	profile, err := s.profiles.Register(ctx, email, password, "Store Admin", "")
	if errors.Is(err, repository.ErrProfileAlreadyExists) {
		profile, err = s.store.Profiles().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	}
	if err != nil {
		return nil, err
	}
	if profile.IsAdmin {
		return profile, nil
	}

	// Admin rights are never granted through the API
	profile.IsAdmin = true
	profile.UpdatedAt = time.Now()
	if err := s.store.Profiles().Update(ctx, profile); err != nil {
		return nil, err
	}
	s.logger.Info("Admin profile ready", zap.String("email", profile.Email))
	return profile, nil
}

func (s *Seeder) ensureProduct(ctx context.Context, actor *domain.Identity, entry catalogEntry) (*domain.Product, error) {
	slug := slugify(entry.name)
	if existing, err := s.catalog.GetProductBySlug(ctx, slug); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrProductNotFound) {
		return nil, err
	}

	f := s.faker
	price := decimal.NewFromInt(int64(f.Number(entry.minPrice, entry.maxPrice)))
	product := &domain.Product{
		Name:                entry.name,
		Slug:                slug,
		Category:            entry.category,
		SubCategory:         entry.subCategory,
		ShortDescription:    f.Sentence(8),
		FullDescription:     f.Paragraph(2, 3, 12, " "),
		Ingredients:         entry.name,
		HowToUse:            f.Sentence(10),
		StorageInstructions: "Store in an airtight container away from moisture.",
		Weight:              entry.weight,
		Price:               price,
		StockQuantity:       f.Number(20, 200),
		Images:              []string{imageURL(slug, 1), imageURL(slug, 2)},
		IsNewArrival:        f.Bool(),
		IsFeatured:          f.Bool(),
		IsActive:            true,
	}
	if f.Bool() {
		off := decimal.NewFromInt(int64(100 - f.Number(5, 25))).Div(decimal.NewFromInt(100))
		offer := price.Mul(off).Floor()
		product.OfferPrice = &offer
		product.IsOffer = true
	}

	return s.catalog.CreateProduct(ctx, actor, product)
}

func (s *Seeder) ensureCombo(ctx context.Context, actor *domain.Identity, entry comboEntry, bySlug map[string]*domain.Product) (*domain.Combo, error) {
	slug := slugify(entry.name)
	if existing, err := s.catalog.GetComboBySlug(ctx, slug); err == nil {
		return existing, nil
	} else if !errors.Is(err, repository.ErrComboNotFound) {
		return nil, err
	}

	combo := &domain.Combo{
		Name:        entry.name,
		Slug:        slug,
		Description: s.faker.Sentence(10),
		ImageURL:    imageURL(slug, 1),
		IsActive:    true,
	}
	original := decimal.Zero
	for _, ps := range entry.products {
		p, ok := bySlug[ps]
		if !ok {
			return nil, fmt.Errorf("unknown product %q", ps)
		}
		combo.Items = append(combo.Items, domain.ComboItem{ProductID: p.ID, Quantity: 1})
		original = original.Add(p.UnitPrice())
	}
	combo.ComboPrice = original.Mul(decimal.NewFromInt(100 - entry.discount)).Div(decimal.NewFromInt(100)).Floor()

	return s.catalog.CreateCombo(ctx, actor, combo)
}

func (s *Seeder) ensureCustomer(ctx context.Context, i int, password string) (*domain.Profile, error) {
	f := s.faker
	first, last := f.FirstName(), f.LastName()
	email := fmt.Sprintf("%s.%s%d@mansara.test", strings.ToLower(first), strings.ToLower(last), i)

	profile, err := s.profiles.Register(ctx, email, password, first+" "+last, f.Phone())
	if errors.Is(err, repository.ErrProfileAlreadyExists) {
		return s.store.Profiles().FindByEmail(ctx, email)
	}
	return profile, err
}

func (s *Seeder) placeOrder(ctx context.Context, customer *domain.Profile, res *Result) (*domain.Order, error) {
	f := s.faker
	identity := customer.Identity()

	product := res.Products[f.Number(0, len(res.Products)-1)]
	if _, err := s.cart.AddItem(ctx, identity, domain.ProductRef(product.ID), f.Number(1, 3)); err != nil {
		return nil, err
	}
	if len(res.Combos) > 0 && f.Bool() {
		combo := res.Combos[f.Number(0, len(res.Combos)-1)]
		if _, err := s.cart.AddItem(ctx, identity, domain.ComboRef(combo.ID), 1); err != nil {
			return nil, err
		}
	}

	place := cities[f.Number(0, len(cities)-1)]
	address := domain.ShippingAddress{
		FullName:     customer.FullName,
		Phone:        f.Phone(),
		AddressLine1: f.Street(),
		City:         place.city,
		State:        place.state,
		Pincode:      fmt.Sprintf("%06d", f.Number(110001, 855999)),
	}
	return s.orders.Checkout(ctx, identity, address, domain.PaymentMethodCOD)
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "-")
}

func imageURL(slug string, n int) string {
	return fmt.Sprintf("https://images.mansara.in/products/%s-%d.jpg", slug, n)
}
