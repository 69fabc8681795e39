package handlers

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/isdelr/unseen-britain/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Error messages use the human label rather than the Go field name.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})
	if err := v.RegisterValidation("money", isMoney); err != nil {
		panic(err)
	}
	return v
}

// isMoney accepts non-negative decimal amounts.
func isMoney(fl validator.FieldLevel) bool {
	v, err := strconv.ParseFloat(strings.TrimSpace(fl.Field().String()), 64)
	return err == nil && v >= 0 && !math.IsInf(v, 0)
}

// LoginForm is the POST /authenticate body.
type LoginForm struct {
	Email    string `label:"Email" validate:"required"`
	Password string `label:"Password" validate:"required"`
}

func parseLoginForm(r *http.Request) LoginForm {
	return LoginForm{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
	}
}

// RegistrationForm is the POST /registration body.
type RegistrationForm struct {
	FullName        string `label:"Full name" validate:"required"`
	Email           string `label:"Email" validate:"required"`
	Phone           string `label:"Phone" validate:"required"`
	Password        string `label:"Password" validate:"required,min=6"`
	ConfirmPassword string `label:"Confirm password" validate:"required,eqfield=Password"`
}

func parseRegistrationForm(r *http.Request) RegistrationForm {
	return RegistrationForm{
		FullName:        strings.TrimSpace(r.PostFormValue("fullName")),
		Email:           strings.TrimSpace(r.PostFormValue("email")),
		Phone:           strings.TrimSpace(r.PostFormValue("phone")),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
}

// ChangePasswordForm is the POST /account/password body.
type ChangePasswordForm struct {
	CurrentPassword string `label:"Current password" validate:"required"`
	NewPassword     string `label:"New password" validate:"required,min=6"`
	ConfirmPassword string `label:"Confirm password" validate:"required,eqfield=NewPassword"`
}

func parseChangePasswordForm(r *http.Request) ChangePasswordForm {
	return ChangePasswordForm{
		CurrentPassword: r.PostFormValue("currentPassword"),
		NewPassword:     r.PostFormValue("newPassword"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
}

// PlaceCostForm holds the raw cost inputs. Empty means zero.
type PlaceCostForm struct {
	TravelCost string `label:"Travel cost" validate:"omitempty,money"`
	FoodCost   string `label:"Food cost" validate:"omitempty,money"`
	StayCost   string `label:"Stay cost" validate:"omitempty,money"`
	EntryFee   string `label:"Entry fee" validate:"omitempty,money"`
}

// Cost converts validated inputs into a PlaceCost.
func (f PlaceCostForm) Cost() models.PlaceCost {
	return models.PlaceCost{
		TravelCost: parseAmount(f.TravelCost),
		FoodCost:   parseAmount(f.FoodCost),
		StayCost:   parseAmount(f.StayCost),
		EntryFee:   parseAmount(f.EntryFee),
	}
}

func costForm(c models.PlaceCost) PlaceCostForm {
	return PlaceCostForm{
		TravelCost: formatAmount(c.TravelCost),
		FoodCost:   formatAmount(c.FoodCost),
		StayCost:   formatAmount(c.StayCost),
		EntryFee:   formatAmount(c.EntryFee),
	}
}

// PlaceDetailsForm is the cost and requirement part shared by create and edit.
type PlaceDetailsForm struct {
	Costs        PlaceCostForm
	Requirements models.PlaceRequirement
}

// PlaceForm is the POST /place/create body.
type PlaceForm struct {
	Title       string `label:"Title" validate:"required"`
	Description string `label:"Description" validate:"required"`
	Region      string `label:"Region" validate:"required"`
	Category    string `label:"Category" validate:"required"`
	Difficulty  string `label:"Difficulty" validate:"required"`
	PlaceDetailsForm
}

func parsePlaceForm(r *http.Request) PlaceForm {
	return PlaceForm{
		Title:            strings.TrimSpace(r.FormValue("title")),
		Description:      strings.TrimSpace(r.FormValue("description")),
		Region:           strings.TrimSpace(r.FormValue("region")),
		Category:         strings.TrimSpace(r.FormValue("category")),
		Difficulty:       strings.TrimSpace(r.FormValue("difficulty")),
		PlaceDetailsForm: parsePlaceDetailsForm(r),
	}
}

func parsePlaceDetailsForm(r *http.Request) PlaceDetailsForm {
	return PlaceDetailsForm{
		Costs: PlaceCostForm{
			TravelCost: strings.TrimSpace(r.FormValue("travel_cost")),
			FoodCost:   strings.TrimSpace(r.FormValue("food_cost")),
			StayCost:   strings.TrimSpace(r.FormValue("stay_cost")),
			EntryFee:   strings.TrimSpace(r.FormValue("entry_fee")),
		},
		// A checkbox is only submitted when ticked.
		Requirements: models.PlaceRequirement{
			Footwear: r.FormValue("footwear") != "",
			Water:    r.FormValue("water") != "",
			Food:     r.FormValue("food") != "",
			Raincoat: r.FormValue("raincoat") != "",
		},
	}
}

// validationMessages validates form and returns one message per failed field, in field order.
func validationMessages(form any) []string {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid form submission"}
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return msgs
}

// firstFailure reports the first message for the highest-priority tag that failed.
// It mirrors how the auth forms show a single error at a time.
func firstFailure(form any, messages map[string]string, order ...string) string {
	err := validate.Struct(form)
	if err == nil {
		return ""
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "Invalid form submission"
	}
	for _, tag := range order {
		for _, fe := range verrs {
			if fe.Tag() == tag {
				if msg, ok := messages[tag]; ok {
					return msg
				}
				return fieldMessage(fe)
			}
		}
	}
	return fieldMessage(verrs[0])
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "money":
		return fe.Field() + " must be a number of zero or more"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "eqfield":
		return "Passwords do not match"
	default:
		return fe.Field() + " is invalid"
	}
}

func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
