package handlers

import (
	"errors"
	"net/http"

	"github.com/isdelr/unseen-britain/internal/auth"
	"github.com/isdelr/unseen-britain/internal/services"
	"github.com/isdelr/unseen-britain/internal/web"
	"github.com/rs/zerolog/log"
)

const (
	msgLoginRequired   = "Email and password are required"
	msgBadCredentials  = "Invalid email or password"
	msgSomethingWrong  = "Something went wrong. Please try again."
	msgAllRequired     = "All fields are required"
	msgEmailTaken      = "Email is already registered"
	msgRegisterFailed  = "Registration failed. Try again."
	msgPasswordUpdated = "Password updated"
)

// SessionStarter begins and ends login sessions.
type SessionStarter interface {
	Login(w http.ResponseWriter, r *http.Request, userID int64) error
	Logout(w http.ResponseWriter, r *http.Request) error
}

// UserHandler handles login, registration and account requests.
type UserHandler struct {
	service  services.UserServiceProvider
	sessions SessionStarter
	render   *web.Renderer
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(service services.UserServiceProvider, sessions SessionStarter, render *web.Renderer) *UserHandler {
	return &UserHandler{service: service, sessions: sessions, render: render}
}

type loginPage struct {
	Page
	Error string
	Email string
}

type registrationPage struct {
	Page
	Error string
	Form  RegistrationForm
}

type changePasswordPage struct {
	Page
	Error   string
	Success string
}

// LoginPage renders the login form.
func (h *UserHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "login", loginPage{Page: newPage(r, "Log in")})
}

// Authenticate checks the submitted credentials and starts a session.
func (h *UserHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	form := parseLoginForm(r)
	data := loginPage{Page: newPage(r, "Log in"), Email: form.Email}

	if msgs := validationMessages(form); len(msgs) > 0 {
		data.Error = msgLoginRequired
		h.render.Render(w, http.StatusOK, "login", data)
		return
	}

	user, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		log.Warn().Str("email", form.Email).Msg("Failed authentication attempt")
		data.Error = msgBadCredentials
		h.render.Render(w, http.StatusOK, "login", data)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("email", form.Email).Msg("Failed to authenticate user")
		data.Error = msgSomethingWrong
		h.render.Render(w, http.StatusOK, "login", data)
		return
	}

	if err := h.sessions.Login(w, r, user.ID); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to start session")
		data.Error = msgSomethingWrong
		h.render.Render(w, http.StatusOK, "login", data)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// RegistrationPage renders the signup form.
func (h *UserHandler) RegistrationPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "registration", registrationPage{Page: newPage(r, "Register")})
}

// Register creates an account, logs the new user in and sends them to the dashboard.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	form := parseRegistrationForm(r)
	data := registrationPage{Page: newPage(r, "Register"), Form: form}
	data.Form.Password, data.Form.ConfirmPassword = "", ""

	if msg := firstFailure(form, map[string]string{"required": msgAllRequired}, "required", "min", "eqfield"); msg != "" {
		data.Error = msg
		h.render.Render(w, http.StatusOK, "registration", data)
		return
	}

	user, err := h.service.Register(r.Context(), form.FullName, form.Email, form.Phone, form.Password)
	if errors.Is(err, services.ErrEmailTaken) {
		data.Error = msgEmailTaken
		h.render.Render(w, http.StatusOK, "registration", data)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("email", form.Email).Msg("Failed to register user")
		data.Error = msgRegisterFailed
		h.render.Render(w, http.StatusOK, "registration", data)
		return
	}

	log.Info().Int64("user_id", user.ID).Msg("User registered")

	if err := h.sessions.Login(w, r, user.ID); err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to start session")
		data.Error = msgRegisterFailed
		h.render.Render(w, http.StatusOK, "registration", data)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout ends the session and returns to the login page.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(w, r); err != nil {
		log.Error().Err(err).Msg("Failed to end session")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// ChangePasswordPage renders the password form.
func (h *UserHandler) ChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "change_password", changePasswordPage{Page: newPage(r, "Change password")})
}

// ChangePassword verifies the current password and stores the new one.
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	form := parseChangePasswordForm(r)
	data := changePasswordPage{Page: newPage(r, "Change password")}

	if msg := firstFailure(form, map[string]string{"required": msgAllRequired}, "required", "min", "eqfield"); msg != "" {
		data.Error = msg
		h.render.Render(w, http.StatusOK, "change_password", data)
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to load user")
		data.Error = msgSomethingWrong
		h.render.Render(w, http.StatusOK, "change_password", data)
		return
	}
	if _, err := h.service.Authenticate(r.Context(), user.Email, form.CurrentPassword); err != nil {
		if !errors.Is(err, services.ErrInvalidCredentials) {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to verify password")
			data.Error = msgSomethingWrong
		} else {
			data.Error = "Current password is incorrect"
		}
		h.render.Render(w, http.StatusOK, "change_password", data)
		return
	}

	if err := h.service.UpdatePassword(r.Context(), userID, form.NewPassword); err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to update password")
		data.Error = msgSomethingWrong
		h.render.Render(w, http.StatusOK, "change_password", data)
		return
	}
	data.Success = msgPasswordUpdated
	h.render.Render(w, http.StatusOK, "change_password", data)
}
