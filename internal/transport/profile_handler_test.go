package transport

import (
	"net/http"
	"testing"

	"mansara-store/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProperty_InvalidRegistrationDataIsRejected(t *testing.T) {
	f := newAPIFixture(t)
	properties := gopter.NewProperties(nil)

	properties.Property("registration with invalid data returns a structured 400", prop.ForAll(
		func(invalidCase int) bool {
			req := RegisterRequest{
				Email:    "meena@example.com",
				Password: "ValidPass123",
				FullName: "Meena Iyer",
			}

			switch invalidCase % 5 {
			case 0:
				req.Email = ""
			case 1:
				req.Email = "not-an-email"
			case 2:
				req.Password = "short"
			case 3:
				req.FullName = ""
			case 4:
				req.Phone = "12"
			}

			w := f.do(t, http.MethodPost, "/api/auth/register", "", req)
			if w.Code != http.StatusBadRequest {
				t.Logf("case %d: expected 400, got %d", invalidCase%5, w.Code)
				return false
			}
			resp := errorBody(t, w)
			return resp.Error.Details["validation_errors"] != nil
		},
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_RegisteredProfilesCanLogIn(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 10
	properties := gopter.NewProperties(parameters)

	properties.Property("login after registration returns both tokens and the profile", prop.ForAll(
		func(email, password, fullName string) bool {
			f := newAPIFixture(t)

			w := f.do(t, http.MethodPost, "/api/auth/register", "", RegisterRequest{Email: email, Password: password, FullName: fullName})
			if w.Code != http.StatusCreated {
				t.Logf("register returned %d: %s", w.Code, w.Body.String())
				return false
			}

			w = f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: email, Password: password})
			if w.Code != http.StatusOK {
				t.Logf("login returned %d: %s", w.Code, w.Body.String())
				return false
			}

			var resp LoginResponse
			decode(t, w, &resp)
			return resp.AccessToken != "" &&
				resp.RefreshToken != "" &&
				resp.Profile != nil &&
				resp.Profile.Email == email &&
				resp.Profile.FullName == fullName &&
				!resp.Profile.IsAdmin
		},
		gen.RegexMatch(`[a-z]{3,10}@[a-z]{3,8}\.(com|org|net)`),
		gen.RegexMatch(`[A-Za-z0-9!@#$%]{8,20}`),
		gen.RegexMatch(`[A-Z][a-z]{2,15}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAuthFlow(t *testing.T) {
	f := newAPIFixture(t)

	register := RegisterRequest{Email: "Priya@Example.com", Password: "millets-4-all", FullName: "Priya Nair", Phone: "9840012345"}
	w := f.do(t, http.MethodPost, "/api/auth/register", "", register)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created domain.Profile
	decode(t, w, &created)
	assert.Equal(t, "priya@example.com", created.Email)
	assert.NotContains(t, w.Body.String(), "password")

	t.Run("duplicate email conflicts", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/auth/register", "", register)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: register.Email, Password: "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "invalid email or password", errorBody(t, w).Error.Message)
	})

	w = f.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: register.Email, Password: register.Password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var session LoginResponse
	decode(t, w, &session)

	t.Run("profile read and update", func(t *testing.T) {
		var profile domain.Profile
		decode(t, f.do(t, http.MethodGet, "/api/profile", session.AccessToken, nil), &profile)
		assert.Equal(t, created.ID, profile.ID)

		name := "Priya N."
		w := f.do(t, http.MethodPatch, "/api/profile", session.AccessToken, UpdateProfileRequest{FullName: &name})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		decode(t, w, &profile)
		assert.Equal(t, "Priya N.", profile.FullName)
		assert.Equal(t, "9840012345", profile.Phone)
	})

	t.Run("refresh then logout", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: session.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code)
		var refreshed RefreshResponse
		decode(t, w, &refreshed)
		assert.NotEmpty(t, refreshed.AccessToken)

		w = f.do(t, http.MethodPost, "/api/auth/logout", session.AccessToken, RefreshRequest{RefreshToken: session.RefreshToken})
		require.Equal(t, http.StatusOK, w.Code)

		w = f.do(t, http.MethodPost, "/api/auth/refresh", "", RefreshRequest{RefreshToken: session.RefreshToken})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("profile needs a token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/profile", "", nil).Code)
	})
}
