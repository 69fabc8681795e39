package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/isdelr/unseen-britain/internal/models"
	"github.com/stretchr/testify/assert"
)

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestPlaceFormValidation(t *testing.T) {
	form := parsePlaceForm(postForm(url.Values{
		"title":       {"   "},
		"description": {"Quiet cove"},
		"region":      {"Cornwall"},
		"category":    {"Beach"},
		"difficulty":  {"easy"},
		"travel_cost": {"-3"},
		"food_cost":   {"lots"},
		"stay_cost":   {""},
		"footwear":    {"on"},
	}))

	msgs := validationMessages(form)
	assert.Equal(t, []string{
		"Title is required",
		"Travel cost must be a number of zero or more",
		"Food cost must be a number of zero or more",
	}, msgs)
	assert.True(t, form.Requirements.Footwear)
	assert.False(t, form.Requirements.Water)
}

func TestPlaceCostFormConversion(t *testing.T) {
	form := PlaceCostForm{TravelCost: "12.50", EntryFee: "3"}
	assert.Empty(t, validationMessages(form))
	assert.Equal(t, models.PlaceCost{TravelCost: 12.5, EntryFee: 3}, form.Cost())

	assert.Equal(t, PlaceCostForm{TravelCost: "12.5", FoodCost: "0", StayCost: "0", EntryFee: "3"}, costForm(form.Cost()))
}

func TestRegistrationFormFirstFailure(t *testing.T) {
	messages := map[string]string{"required": msgAllRequired}
	order := []string{"required", "min", "eqfield"}
	full := RegistrationForm{FullName: "Ada", Email: "ada@example.com", Phone: "0123", Password: "secret1", ConfirmPassword: "secret1"}

	assert.Empty(t, firstFailure(full, messages, order...))

	missing := full
	missing.Phone = ""
	missing.Password = "abc"
	assert.Equal(t, msgAllRequired, firstFailure(missing, messages, order...))

	short := full
	short.Password, short.ConfirmPassword = "abc", "abd"
	assert.Equal(t, "Password must be at least 6 characters", firstFailure(short, messages, order...))

	mismatch := full
	mismatch.ConfirmPassword = "secret2"
	assert.Equal(t, "Passwords do not match", firstFailure(mismatch, messages, order...))
}
