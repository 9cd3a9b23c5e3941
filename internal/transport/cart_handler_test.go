package transport

import (
	"net/http"
	"testing"

	"mansara-store/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperty_RepeatedAddsMergeIntoOneLine(t *testing.T) {
	f := newAPIFixture(t)
	product := f.createProduct(t, "Ragi Dosa Mix", 150)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	properties.Property("adding the same product n times keeps one line with the summed quantity", prop.ForAll(
		func(quantities []int) bool {
			customer := f.customer(t)
			want := 0
			for _, qty := range quantities {
				w := f.do(t, http.MethodPost, "/api/cart/items", customer, map[string]interface{}{"product_id": product.ID, "quantity": qty})
				if w.Code != http.StatusOK {
					t.Logf("add returned %d: %s", w.Code, w.Body.String())
					return false
				}
				want += qty
			}

			var cart domain.CartSnapshot
			decode(t, f.do(t, http.MethodGet, "/api/cart", customer, nil), &cart)
			return len(cart.Lines) == 1 &&
				cart.Lines[0].Item.Quantity == want &&
				cart.Subtotal.Equal(decimal.NewFromInt(int64(150*want)))
		},
		gen.SliceOfN(4, gen.IntRange(1, 5)).SuchThat(func(qs []int) bool { return len(qs) > 0 }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_OutOfRangeQuantityIsRejected(t *testing.T) {
	f := newAPIFixture(t)
	customer := f.customer(t)
	product := f.createProduct(t, "Millet Muesli", 240)

	properties := gopter.NewProperties(nil)

	properties.Property("quantities outside 1..99 get 400", prop.ForAll(
		func(qty int) bool {
			w := f.do(t, http.MethodPost, "/api/cart/items", customer, map[string]interface{}{"product_id": product.ID, "quantity": qty})
			return w.Code == http.StatusBadRequest
		},
		gen.OneGenOf(gen.IntRange(-100, 0), gen.IntRange(100, 1000)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAddItemReferences(t *testing.T) {
	f := newAPIFixture(t)
	customer := f.customer(t)
	product := f.createProduct(t, "Foxtail Upma Mix", 110)

	tests := []struct {
		name    string
		body    map[string]interface{}
		want    int
		message string
	}{
		{"neither reference", map[string]interface{}{"quantity": 1}, http.StatusBadRequest, domain.ErrInvalidReference.Error()},
		{"both references", map[string]interface{}{"product_id": product.ID, "combo_id": uuid.New()}, http.StatusBadRequest, domain.ErrInvalidReference.Error()},
		{"nil product id", map[string]interface{}{"product_id": uuid.Nil}, http.StatusBadRequest, domain.ErrInvalidReference.Error()},
		{"unknown product", map[string]interface{}{"product_id": uuid.New()}, http.StatusNotFound, ""},
		{"unknown combo", map[string]interface{}{"combo_id": uuid.New()}, http.StatusNotFound, ""},
		{"malformed json", nil, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body interface{} = tt.body
			if tt.body == nil {
				body = `{"product_id":`
			}
			w := f.do(t, http.MethodPost, "/api/cart/items", customer, body)
			require.Equal(t, tt.want, w.Code, w.Body.String())
			if tt.message != "" {
				resp := errorBody(t, w)
				assert.Equal(t, tt.message, resp.Error.Message)
				assert.NotContains(t, resp.Error.Details, "validation_errors")
			}
		})
	}
}

func TestCartLineUpdates(t *testing.T) {
	f := newAPIFixture(t)
	customer := f.customer(t)
	product := f.createProduct(t, "Kambu Laddu", 200)

	w := f.do(t, http.MethodPost, "/api/cart/items", customer, map[string]interface{}{"product_id": product.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, w.Code)
	var item domain.CartItem
	decode(t, w, &item)
	itemPath := "/api/cart/items/" + item.ID.String()

	w = f.do(t, http.MethodPatch, itemPath, customer, SetQuantityRequest{Quantity: 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &item)
	assert.Equal(t, 5, item.Quantity)

	t.Run("other customers cannot touch the line", func(t *testing.T) {
		stranger := f.customer(t)
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPatch, itemPath, stranger, SetQuantityRequest{Quantity: 1}).Code)
		assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, itemPath, stranger, nil).Code)
	})

	t.Run("zero removes the line", func(t *testing.T) {
		assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPatch, itemPath, customer, SetQuantityRequest{Quantity: 0}).Code)

		var count CartCountResponse
		decode(t, f.do(t, http.MethodGet, "/api/cart/count", customer, nil), &count)
		assert.Zero(t, count.Count)
	})
}

func TestClearCart(t *testing.T) {
	f := newAPIFixture(t)
	customer := f.customer(t)
	for _, price := range []int{80, 120, 160} {
		p := f.createProduct(t, "Snack", price)
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/cart/items", customer, map[string]interface{}{"product_id": p.ID}).Code)
	}

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/cart", customer, nil).Code)

	var cart domain.CartSnapshot
	decode(t, f.do(t, http.MethodGet, "/api/cart", customer, nil), &cart)
	assert.Empty(t, cart.Lines)
	assert.True(t, cart.Subtotal.IsZero())
}

func TestCartRequiresAuthentication(t *testing.T) {
	f := newAPIFixture(t)

	for _, path := range []string{"/api/cart", "/api/cart/count"} {
		w := f.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
	}
	w := f.do(t, http.MethodGet, "/api/cart", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
