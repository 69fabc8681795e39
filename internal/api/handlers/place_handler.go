package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/unseen-britain/internal/auth"
	"github.com/isdelr/unseen-britain/internal/models"
	"github.com/isdelr/unseen-britain/internal/services"
	"github.com/isdelr/unseen-britain/internal/upload"
	"github.com/isdelr/unseen-britain/internal/web"
	"github.com/rs/zerolog/log"
)

const (
	msgPlaceCreated   = "Place created successfully"
	msgDetailsUpdated = "Details updated successfully"
	msgSinglePhoto    = "Only one photo can be attached to a new place"

	recentEventsLimit = 5
	multipartMemory   = 8 << 20
	// Room for the text fields on top of the largest allowed set of photos.
	formOverhead = 1 << 20
)

// PlaceHandler handles place creation, editing, listing and deletion.
type PlaceHandler struct {
	service services.PlaceServiceProvider
	events  services.EventServiceProvider
	uploads *upload.Uploader
	render  *web.Renderer
}

// NewPlaceHandler creates a new PlaceHandler.
func NewPlaceHandler(service services.PlaceServiceProvider, events services.EventServiceProvider, uploads *upload.Uploader, render *web.Renderer) *PlaceHandler {
	return &PlaceHandler{service: service, events: events, uploads: uploads, render: render}
}

type createPlacePage struct {
	Page
	Success string
	Errors  []string
	Form    PlaceForm
}

type editDetailsPage struct {
	Page
	Place   models.Place
	Success string
	Errors  []string
	Form    PlaceDetailsForm
	Photos  []models.PlacePhoto
}

type dashboardPage struct {
	Page
	Filter models.PlaceFilter
	Places []models.PlaceSummary
	Events []models.Event
}

type placeDetailPage struct {
	Page
	Details models.PlaceDetails
}

// CreatePage renders the empty place form.
func (h *PlaceHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "create_place", createPlacePage{Page: newPage(r, "Add a place")})
}

// Create validates the form and optional photo, then stores the place and its details.
func (h *PlaceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	if !h.parseForm(w, r) {
		return
	}

	form := parsePlaceForm(r)
	data := createPlacePage{Page: newPage(r, "Add a place"), Form: form}
	data.Errors = validationMessages(form)

	photos := formFiles(r, "photo")
	if len(data.Errors) == 0 && len(photos) > 1 {
		data.Errors = append(data.Errors, msgSinglePhoto)
	}
	if len(data.Errors) == 0 {
		for _, fh := range photos {
			if err := h.uploads.Validate(fh); err != nil {
				data.Errors = append(data.Errors, h.uploads.Message(err))
			}
		}
	}
	if len(data.Errors) > 0 {
		h.render.Render(w, http.StatusUnprocessableEntity, "create_place", data)
		return
	}

	var paths []string
	for _, fh := range photos {
		p, err := h.uploads.Save(fh)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userID).Msg("Failed to store photo")
			data.Errors = append(data.Errors, h.uploads.Message(err))
			h.render.Render(w, http.StatusUnprocessableEntity, "create_place", data)
			return
		}
		paths = append(paths, p)
	}

	place := models.Place{
		UserID:      userID,
		Title:       form.Title,
		Description: form.Description,
		Region:      form.Region,
		Category:    form.Category,
		Difficulty:  form.Difficulty,
	}
	created, err := h.service.CreatePlace(r.Context(), place, form.Costs.Cost(), form.Requirements, paths)
	if err != nil {
		h.uploads.Remove(paths)
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to create place")
		http.Error(w, "Failed to create place", http.StatusInternalServerError)
		return
	}

	log.Info().Int64("place_id", created.ID).Int64("user_id", userID).Msg("Place created")
	h.render.Render(w, http.StatusOK, "create_place", createPlacePage{
		Page:    newPage(r, "Add a place"),
		Success: msgPlaceCreated,
	})
}

// EditDetailsPage renders the cost and requirement form for an owned place.
func (h *PlaceHandler) EditDetailsPage(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	placeID, ok := placeIDParam(r)
	if !ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	details, err := h.service.GetPlaceDetails(r.Context(), userID, placeID)
	if errors.Is(err, services.ErrPlaceNotFound) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("place_id", placeID).Msg("Failed to load place details")
		http.Error(w, "Failed to load place details", http.StatusInternalServerError)
		return
	}

	h.render.Render(w, http.StatusOK, "edit_place_details", editDetailsPage{
		Page:   newPage(r, "Edit details"),
		Place:  details.Place,
		Form:   PlaceDetailsForm{Costs: costForm(details.Cost), Requirements: details.Requirements},
		Photos: details.Photos,
	})
}

// EditDetails overwrites the cost and requirement rows of an owned place and appends any
// uploaded photos.
func (h *PlaceHandler) EditDetails(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	placeID, ok := placeIDParam(r)
	if !ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	details, err := h.service.GetPlaceDetails(r.Context(), userID, placeID)
	if errors.Is(err, services.ErrPlaceNotFound) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("place_id", placeID).Msg("Failed to load place details")
		http.Error(w, "Failed to load place details", http.StatusInternalServerError)
		return
	}
	if !h.parseForm(w, r) {
		return
	}

	form := parsePlaceDetailsForm(r)
	data := editDetailsPage{
		Page:   newPage(r, "Edit details"),
		Place:  details.Place,
		Form:   form,
		Photos: details.Photos,
		Errors: validationMessages(form),
	}

	var paths []string
	if len(data.Errors) == 0 {
		if files := formFiles(r, "photos"); len(files) > 0 {
			if paths, err = h.uploads.SaveAll(files); err != nil {
				data.Errors = append(data.Errors, h.uploads.Message(err))
			}
		}
	}
	if len(data.Errors) > 0 {
		h.render.Render(w, http.StatusUnprocessableEntity, "edit_place_details", data)
		return
	}

	err = h.service.UpdatePlaceDetails(r.Context(), userID, placeID, form.Costs.Cost(), form.Requirements, paths)
	if errors.Is(err, services.ErrPlaceNotFound) {
		h.uploads.Remove(paths)
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err != nil {
		h.uploads.Remove(paths)
		log.Error().Err(err).Int64("place_id", placeID).Msg("Failed to update place details")
		http.Error(w, "Failed to update place details", http.StatusInternalServerError)
		return
	}

	for _, p := range paths {
		data.Photos = append(data.Photos, models.PlacePhoto{PlaceID: placeID, ImagePath: p})
	}
	data.Form.Costs = costForm(form.Costs.Cost())
	data.Success = msgDetailsUpdated
	h.render.Render(w, http.StatusOK, "edit_place_details", data)
}

// Delete removes an owned place. Requests for other users' places change nothing.
func (h *PlaceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	placeID, ok := placeIDParam(r)
	if !ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	deleted, paths, err := h.service.DeletePlace(r.Context(), userID, placeID)
	if err != nil {
		log.Error().Err(err).Int64("place_id", placeID).Msg("Failed to delete place")
		http.Error(w, "Failed to delete place", http.StatusInternalServerError)
		return
	}
	if deleted {
		h.uploads.Remove(paths)
	} else {
		log.Warn().Int64("place_id", placeID).Int64("user_id", userID).Msg("Delete matched no owned place")
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Dashboard lists the user's places, optionally filtered, with their recent activity.
func (h *PlaceHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	q := r.URL.Query()
	filter := models.PlaceFilter{
		Category:   strings.TrimSpace(q.Get("category")),
		Difficulty: strings.TrimSpace(q.Get("difficulty")),
		Region:     strings.TrimSpace(q.Get("region")),
	}

	places, err := h.service.ListPlaces(r.Context(), userID, filter)
	if err != nil {
		log.Error().Err(err).Int64("user_id", userID).Msg("Failed to list places")
		http.Error(w, "Failed to load dashboard", http.StatusInternalServerError)
		return
	}

	events, err := h.events.GetRecentEvents(r.Context(), userID, recentEventsLimit)
	if err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to load recent events")
	}

	h.render.Render(w, http.StatusOK, "dashboard", dashboardPage{
		Page:   newPage(r, "Dashboard"),
		Filter: filter,
		Places: places,
		Events: events,
	})
}

// Detail shows one owned place with its costs, requirements and photos.
func (h *PlaceHandler) Detail(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())
	placeID, ok := placeIDParam(r)
	if !ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	details, err := h.service.GetPlaceDetails(r.Context(), userID, placeID)
	if errors.Is(err, services.ErrPlaceNotFound) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("place_id", placeID).Msg("Failed to load place")
		http.Error(w, "Failed to load place", http.StatusInternalServerError)
		return
	}
	h.render.Render(w, http.StatusOK, "place_detail", placeDetailPage{
		Page:    newPage(r, details.Place.Title),
		Details: details,
	})
}

// parseForm reads a urlencoded or multipart body, capped at what the uploader allows.
// It writes the error response itself and reports whether the handler should continue.
func (h *PlaceHandler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxSize*int64(h.uploads.MaxFiles)+formOverhead)
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		http.Error(w, "Request too large", http.StatusRequestEntityTooLarge)
		return false
	}
	log.Warn().Err(err).Msg("Failed to parse form")
	http.Error(w, "Invalid form submission", http.StatusBadRequest)
	return false
}

func formFiles(r *http.Request, field string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	var files []*multipart.FileHeader
	for _, fh := range r.MultipartForm.File[field] {
		// Browsers submit an empty part when no file was chosen.
		if fh.Filename == "" && fh.Size == 0 {
			continue
		}
		files = append(files, fh)
	}
	return files
}

func placeIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
