package transport

import (
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogWritesRequireAdmin(t *testing.T) {
	f := newAPIFixture(t)
	customer := f.customer(t)

	body := map[string]interface{}{"name": "Ragi Malt", "slug": "ragi-malt", "category": "Drinks", "price": 180, "images": []string{"https://img.example/a.jpg"}}
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/api/admin/products", "", body).Code)
	assert.Equal(t, http.StatusForbidden, f.do(t, http.MethodPost, "/api/admin/products", customer, body).Code)
	assert.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/admin/products", f.admin, body).Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/admin/products", f.admin, body).Code, "slug is taken")
}

func TestCreateProductValidation(t *testing.T) {
	f := newAPIFixture(t)

	valid := func() map[string]interface{} {
		return map[string]interface{}{
			"name":     "Jowar Roti Mix",
			"slug":     "jowar-" + uuid.NewString(),
			"category": "Ready Mixes",
			"price":    200,
			"images":   []string{"https://img.example/jowar.jpg"},
		}
	}

	tests := []struct {
		name   string
		mutate func(map[string]interface{})
		field  string
	}{
		{"missing name", func(b map[string]interface{}) { delete(b, "name") }, "name"},
		{"no images", func(b map[string]interface{}) { b["images"] = []string{} }, "images"},
		{"negative stock", func(b map[string]interface{}) { b["stock_quantity"] = -1 }, "stock_quantity"},
		{"offer equals price", func(b map[string]interface{}) { b["offer_price"] = 200 }, "offer_price"},
		{"offer above price", func(b map[string]interface{}) { b["offer_price"] = 250 }, "offer_price"},
		{"bad slug", func(b map[string]interface{}) { b["slug"] = "Jowar Mix" }, "slug"},
		{"image index out of range", func(b map[string]interface{}) { b["main_image_index"] = 3 }, "main_image_index"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := valid()
			tt.mutate(body)
			w := f.do(t, http.MethodPost, "/api/admin/products", f.admin, body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"field":"`+tt.field+`"`)
		})
	}
}

func TestProductViewPricing(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, http.MethodPost, "/api/admin/products", f.admin, map[string]interface{}{
		"name":             "Pearl Millet Cookies",
		"slug":             "pearl-millet-cookies",
		"category":         "Snacks",
		"price":            300,
		"offer_price":      250,
		"is_offer":         true,
		"images":           []string{"https://img.example/1.jpg", "https://img.example/2.jpg"},
		"main_image_index": 1,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var view ProductView
	decode(t, f.do(t, http.MethodGet, "/api/products/pearl-millet-cookies", "", nil), &view)
	assert.True(t, decimal.NewFromInt(250).Equal(view.UnitPrice))
	assert.Equal(t, int64(17), view.DiscountPercent)
	assert.Equal(t, "https://img.example/2.jpg", view.MainImage)
}

func TestPublicCatalogHidesInactive(t *testing.T) {
	f := newAPIFixture(t)
	product := f.createProduct(t, "Seasonal Pickle", 140)

	body := map[string]interface{}{
		"name":      product.Name,
		"slug":      product.Slug,
		"category":  product.Category,
		"price":     140,
		"images":    product.Images,
		"is_active": false,
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/api/admin/products/"+product.ID.String(), f.admin, body).Code)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/products/"+product.Slug, "", nil).Code)

	var public []ProductView
	decode(t, f.do(t, http.MethodGet, "/api/products", "", nil), &public)
	assert.Empty(t, public)

	var all []ProductView
	decode(t, f.do(t, http.MethodGet, "/api/admin/products", f.admin, nil), &all)
	assert.Len(t, all, 1)
}

func TestProductListFilters(t *testing.T) {
	f := newAPIFixture(t)
	for _, p := range []map[string]interface{}{
		{"name": "Ragi Malt", "category": "Drinks", "is_featured": true},
		{"name": "Kambu Malt", "category": "Drinks"},
		{"name": "Millet Murukku", "category": "Snacks", "is_featured": true},
	} {
		p["slug"] = "p-" + uuid.NewString()
		p["price"] = 100
		p["images"] = []string{"https://img.example/x.jpg"}
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/admin/products", f.admin, p).Code)
	}

	var drinks []ProductView
	decode(t, f.do(t, http.MethodGet, "/api/products?category=Drinks", "", nil), &drinks)
	assert.Len(t, drinks, 2)

	var featured []ProductView
	decode(t, f.do(t, http.MethodGet, "/api/products?featured=true", "", nil), &featured)
	assert.Len(t, featured, 2)

	var featuredDrinks []ProductView
	decode(t, f.do(t, http.MethodGet, "/api/products?category=Drinks&featured=true", "", nil), &featuredDrinks)
	require.Len(t, featuredDrinks, 1)
	assert.Equal(t, "Ragi Malt", featuredDrinks[0].Name)
}

func TestComboLifecycle(t *testing.T) {
	f := newAPIFixture(t)
	mix := f.createProduct(t, "Ragi Dosa Mix", 150)
	malt := f.createProduct(t, "Ragi Malt", 120)

	w := f.do(t, http.MethodPost, "/api/admin/combos", f.admin, map[string]interface{}{
		"name":        "Breakfast Combo",
		"slug":        "breakfast-combo",
		"combo_price": 380,
		"items": []map[string]interface{}{
			{"product_id": mix.ID, "quantity": 2},
			{"product_id": malt.ID, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var combo ComboView
	decode(t, w, &combo)
	assert.True(t, decimal.NewFromInt(420).Equal(combo.OriginalPrice), combo.OriginalPrice.String())
	assert.True(t, decimal.NewFromInt(40).Equal(combo.Savings))
	assert.Equal(t, int64(10), combo.SavingsPercent)

	w = f.do(t, http.MethodPut, "/api/admin/combos/"+combo.ID.String()+"/items", f.admin, map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": malt.ID, "quantity": 4}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &combo)
	assert.True(t, decimal.NewFromInt(480).Equal(combo.OriginalPrice))

	var public ComboView
	decode(t, f.do(t, http.MethodGet, "/api/combos/breakfast-combo", "", nil), &public)
	assert.Len(t, public.Items, 1)

	customer := f.customer(t)
	w = f.do(t, http.MethodPost, "/api/cart/items", customer, map[string]interface{}{"combo_id": combo.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/admin/combos/"+combo.ID.String(), f.admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/combos/breakfast-combo", "", nil).Code)
}
