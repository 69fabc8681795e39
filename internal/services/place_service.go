package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/isdelr/unseen-britain/internal/database"
	"github.com/isdelr/unseen-britain/internal/models"
)

// ErrPlaceNotFound is returned when a place does not exist or belongs to someone else.
var ErrPlaceNotFound = errors.New("place not found")

// PlaceServiceProvider defines the interface for place services.
// Every method is scoped to the owning user.
type PlaceServiceProvider interface {
	CreatePlace(ctx context.Context, place models.Place, cost models.PlaceCost, reqs models.PlaceRequirement, photoPaths []string) (models.Place, error)
	GetPlace(ctx context.Context, userID, placeID int64) (models.Place, error)
	GetPlaceDetails(ctx context.Context, userID, placeID int64) (models.PlaceDetails, error)
	UpdatePlaceDetails(ctx context.Context, userID, placeID int64, cost models.PlaceCost, reqs models.PlaceRequirement, photoPaths []string) error
	DeletePlace(ctx context.Context, userID, placeID int64) (deleted bool, photoPaths []string, err error)
	ListPlaces(ctx context.Context, userID int64, filter models.PlaceFilter) ([]models.PlaceSummary, error)
}

// PlaceService provides business logic for places and their dependent records.
type PlaceService struct {
	db     *sql.DB
	events EventServiceProvider
}

// NewPlaceService creates a new PlaceService.
func NewPlaceService(db *sql.DB, events EventServiceProvider) *PlaceService {
	return &PlaceService{db: db, events: events}
}

// CreatePlace inserts a place together with its cost, requirement and photo rows.
// Nothing is written unless every insert succeeds.
func (s *PlaceService) CreatePlace(ctx context.Context, place models.Place, cost models.PlaceCost, reqs models.PlaceRequirement, photoPaths []string) (models.Place, error) {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO places (user_id, title, description, region, category, difficulty)
			VALUES (?, ?, ?, ?, ?, ?)`,
			place.UserID, place.Title, place.Description, place.Region, place.Category, place.Difficulty)
		if err != nil {
			return fmt.Errorf("insert place: %w", err)
		}
		if place.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		if err := insertCost(ctx, tx, place.ID, cost); err != nil {
			return err
		}
		if err := insertRequirements(ctx, tx, place.ID, reqs); err != nil {
			return err
		}
		return insertPhotos(ctx, tx, place.ID, photoPaths)
	})
	if err != nil {
		return models.Place{}, err
	}

	s.events.CreateEvent(ctx, "place.create", "info", fmt.Sprintf("Place '%s' created.", place.Title), &place.UserID)
	return place, nil
}

// GetPlace retrieves a single place owned by userID.
func (s *PlaceService) GetPlace(ctx context.Context, userID, placeID int64) (models.Place, error) {
	return scanPlace(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, region, category, difficulty, created_at
		FROM places WHERE id = ? AND user_id = ?`, placeID, userID))
}

// GetPlaceDetails retrieves a place with its cost, requirements and photos. Missing cost
// or requirement rows come back as zero values.
func (s *PlaceService) GetPlaceDetails(ctx context.Context, userID, placeID int64) (models.PlaceDetails, error) {
	place, err := s.GetPlace(ctx, userID, placeID)
	if err != nil {
		return models.PlaceDetails{}, err
	}

	details := models.PlaceDetails{
		Place:        place,
		Cost:         models.PlaceCost{PlaceID: placeID},
		Requirements: models.PlaceRequirement{PlaceID: placeID},
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT travel_cost, food_cost, stay_cost, entry_fee FROM place_costs WHERE place_id = ?", placeID).
		Scan(&details.Cost.TravelCost, &details.Cost.FoodCost, &details.Cost.StayCost, &details.Cost.EntryFee)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.PlaceDetails{}, fmt.Errorf("load place cost: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		"SELECT footwear, water, food, raincoat FROM place_requirements WHERE place_id = ?", placeID).
		Scan(&details.Requirements.Footwear, &details.Requirements.Water, &details.Requirements.Food, &details.Requirements.Raincoat)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return models.PlaceDetails{}, fmt.Errorf("load place requirements: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT id, place_id, image_path FROM place_photos WHERE place_id = ? ORDER BY id", placeID)
	if err != nil {
		return models.PlaceDetails{}, fmt.Errorf("load place photos: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var photo models.PlacePhoto
		if err := rows.Scan(&photo.ID, &photo.PlaceID, &photo.ImagePath); err != nil {
			return models.PlaceDetails{}, err
		}
		details.Photos = append(details.Photos, photo)
	}
	return details, rows.Err()
}

// UpdatePlaceDetails overwrites the cost and requirement rows of an owned place and appends
// photos. Existing photos are kept.
func (s *PlaceService) UpdatePlaceDetails(ctx context.Context, userID, placeID int64, cost models.PlaceCost, reqs models.PlaceRequirement, photoPaths []string) error {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, userID, placeID); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE place_costs SET travel_cost = ?, food_cost = ?, stay_cost = ?, entry_fee = ?
			WHERE place_id = ?`,
			cost.TravelCost, cost.FoodCost, cost.StayCost, cost.EntryFee, placeID)
		if err != nil {
			return fmt.Errorf("update place cost: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if err := insertCost(ctx, tx, placeID, cost); err != nil {
				return err
			}
		}

		res, err = tx.ExecContext(ctx, `
			UPDATE place_requirements SET footwear = ?, water = ?, food = ?, raincoat = ?
			WHERE place_id = ?`,
			reqs.Footwear, reqs.Water, reqs.Food, reqs.Raincoat, placeID)
		if err != nil {
			return fmt.Errorf("update place requirements: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if err := insertRequirements(ctx, tx, placeID, reqs); err != nil {
				return err
			}
		}

		return insertPhotos(ctx, tx, placeID, photoPaths)
	})
	if err != nil {
		return err
	}

	s.events.CreateEvent(ctx, "place.update", "info", fmt.Sprintf("Details of place %d updated.", placeID), &userID)
	return nil
}

// DeletePlace removes a place owned by userID. A place owned by someone else matches no
// rows and deleted is false. The returned paths belong to the removed photo rows.
func (s *PlaceService) DeletePlace(ctx context.Context, userID, placeID int64) (bool, []string, error) {
	var deleted bool
	var photoPaths []string
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			SELECT ph.image_path FROM place_photos ph
			JOIN places p ON p.id = ph.place_id
			WHERE p.id = ? AND p.user_id = ?`, placeID, userID)
		if err != nil {
			return fmt.Errorf("load place photos: %w", err)
		}
		for rows.Next() {
			var path string
			if err := rows.Scan(&path); err != nil {
				rows.Close()
				return err
			}
			photoPaths = append(photoPaths, path)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, "DELETE FROM places WHERE id = ? AND user_id = ?", placeID, userID)
		if err != nil {
			return fmt.Errorf("delete place: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	if !deleted {
		return false, nil, nil
	}

	s.events.CreateEvent(ctx, "place.delete", "warn", fmt.Sprintf("Place %d was deleted.", placeID), &userID)
	return true, photoPaths, nil
}

// ListPlaces returns the user's places matching filter, newest first, with photo and risk counts.
func (s *PlaceService) ListPlaces(ctx context.Context, userID int64, filter models.PlaceFilter) ([]models.PlaceSummary, error) {
	var where database.Conditions
	where.Add("p.user_id = ?", userID).
		AddIf(filter.Category, "p.category = ?", filter.Category).
		AddIf(filter.Difficulty, "p.difficulty = ?", filter.Difficulty).
		AddIf(filter.Region, "p.region LIKE ? ESCAPE '"+database.LikeEscape+"'", "%"+database.EscapeLike(filter.Region)+"%")

	query := `
		SELECT p.id, p.user_id, p.title, p.description, p.region, p.category, p.difficulty, p.created_at,
			COUNT(DISTINCT ph.id) AS photo_count,
			COUNT(DISTINCT pr.id) AS risk_count
		FROM places p
		LEFT JOIN place_photos ph ON p.id = ph.place_id
		LEFT JOIN place_risks pr ON p.id = pr.place_id
		WHERE ` + where.SQL() + `
		GROUP BY p.id, p.user_id, p.title, p.description, p.region, p.category, p.difficulty, p.created_at
		ORDER BY p.created_at DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, where.Args()...)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	var places []models.PlaceSummary
	for rows.Next() {
		var p models.PlaceSummary
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Region, &p.Category, &p.Difficulty, &p.CreatedAt,
			&p.PhotoCount, &p.RiskCount); err != nil {
			return nil, err
		}
		places = append(places, p)
	}
	return places, rows.Err()
}

// scanPlace is a helper to scan a place from a row.
func scanPlace(scanner interface{ Scan(...any) error }) (models.Place, error) {
	var p models.Place
	err := scanner.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.Region, &p.Category, &p.Difficulty, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Place{}, ErrPlaceNotFound
		}
		return models.Place{}, err
	}
	return p, nil
}

func checkOwner(ctx context.Context, tx *sql.Tx, userID, placeID int64) error {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM places WHERE id = ? AND user_id = ?", placeID, userID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPlaceNotFound
	}
	return err
}

func insertCost(ctx context.Context, tx *sql.Tx, placeID int64, cost models.PlaceCost) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO place_costs (place_id, travel_cost, food_cost, stay_cost, entry_fee)
		VALUES (?, ?, ?, ?, ?)`,
		placeID, cost.TravelCost, cost.FoodCost, cost.StayCost, cost.EntryFee)
	if err != nil {
		return fmt.Errorf("insert place cost: %w", err)
	}
	return nil
}

func insertRequirements(ctx context.Context, tx *sql.Tx, placeID int64, reqs models.PlaceRequirement) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO place_requirements (place_id, footwear, water, food, raincoat)
		VALUES (?, ?, ?, ?, ?)`,
		placeID, reqs.Footwear, reqs.Water, reqs.Food, reqs.Raincoat)
	if err != nil {
		return fmt.Errorf("insert place requirements: %w", err)
	}
	return nil
}

func insertPhotos(ctx context.Context, tx *sql.Tx, placeID int64, paths []string) error {
	for _, path := range paths {
		if _, err := tx.ExecContext(ctx, "INSERT INTO place_photos (place_id, image_path) VALUES (?, ?)", placeID, path); err != nil {
			return fmt.Errorf("insert place photo: %w", err)
		}
	}
	return nil
}
