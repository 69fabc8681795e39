package services

import (
	"context"
	"testing"

	"github.com/isdelr/unseen-britain/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type placeFixture struct {
	places *PlaceService
	users  *UserService
	ada    models.User
	bob    models.User
}

func newPlaceFixture(t *testing.T) (*placeFixture, func(string, ...any) int) {
	t.Helper()
	db := newTestDB(t)
	events := NewEventService(db, nil)
	f := &placeFixture{
		places: NewPlaceService(db, events),
		users:  NewUserService(db, events),
	}
	f.ada = createUser(t, f.users, "ada@example.com")
	f.bob = createUser(t, f.users, "bob@example.com")
	return f, func(query string, args ...any) int { return count(t, db, query, args...) }
}

func (f *placeFixture) create(t *testing.T, owner models.User, title, category, region string) models.Place {
	t.Helper()
	place, err := f.places.CreatePlace(context.Background(), models.Place{
		UserID:      owner.ID,
		Title:       title,
		Description: "A quiet spot",
		Region:      region,
		Category:    category,
		Difficulty:  "easy",
	}, models.PlaceCost{TravelCost: 12.5, EntryFee: 3}, models.PlaceRequirement{Footwear: true}, nil)
	require.NoError(t, err)
	return place
}

func TestCreatePlaceWithDetails(t *testing.T) {
	f, _ := newPlaceFixture(t)
	ctx := context.Background()

	place, err := f.places.CreatePlace(ctx, models.Place{
		UserID: f.ada.ID, Title: "Kinder Scout", Description: "Moorland plateau",
		Region: "Peak District", Category: "Hiking", Difficulty: "hard",
	}, models.PlaceCost{TravelCost: 20, FoodCost: 8.5}, models.PlaceRequirement{Water: true, Raincoat: true},
		[]string{"/uploads/1-a.png"})
	require.NoError(t, err)
	assert.NotZero(t, place.ID)

	details, err := f.places.GetPlaceDetails(ctx, f.ada.ID, place.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kinder Scout", details.Place.Title)
	assert.Equal(t, 28.5, details.Cost.Total())
	assert.True(t, details.Requirements.Water)
	assert.True(t, details.Requirements.Raincoat)
	assert.False(t, details.Requirements.Footwear)
	require.Len(t, details.Photos, 1)
	assert.Equal(t, "/uploads/1-a.png", details.Photos[0].ImagePath)
}

func TestCreatePlaceRollsBackOnDependentFailure(t *testing.T) {
	f, count := newPlaceFixture(t)
	_, err := f.places.db.Exec("DROP TABLE place_requirements")
	require.NoError(t, err)

	_, err = f.places.CreatePlace(context.Background(), models.Place{
		UserID: f.ada.ID, Title: "Doomed", Description: "d", Region: "r", Category: "c", Difficulty: "easy",
	}, models.PlaceCost{}, models.PlaceRequirement{}, nil)
	require.Error(t, err)

	assert.Zero(t, count("SELECT COUNT(*) FROM places"))
	assert.Zero(t, count("SELECT COUNT(*) FROM place_costs"))
}

func TestPlacesAreOwnerScoped(t *testing.T) {
	f, _ := newPlaceFixture(t)
	place := f.create(t, f.ada, "Secret Cove", "Beach", "Cornwall")
	ctx := context.Background()

	_, err := f.places.GetPlace(ctx, f.bob.ID, place.ID)
	assert.ErrorIs(t, err, ErrPlaceNotFound)
	_, err = f.places.GetPlaceDetails(ctx, f.bob.ID, place.ID)
	assert.ErrorIs(t, err, ErrPlaceNotFound)

	err = f.places.UpdatePlaceDetails(ctx, f.bob.ID, place.ID, models.PlaceCost{TravelCost: 999}, models.PlaceRequirement{}, nil)
	assert.ErrorIs(t, err, ErrPlaceNotFound)

	details, err := f.places.GetPlaceDetails(ctx, f.ada.ID, place.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.5, details.Cost.TravelCost)
}

func TestUpdatePlaceDetailsOverwritesAndAppends(t *testing.T) {
	f, _ := newPlaceFixture(t)
	ctx := context.Background()
	place, err := f.places.CreatePlace(ctx, models.Place{
		UserID: f.ada.ID, Title: "Tor", Description: "d", Region: "Dartmoor", Category: "Hiking", Difficulty: "easy",
	}, models.PlaceCost{TravelCost: 1}, models.PlaceRequirement{Footwear: true}, []string{"/uploads/1-a.png"})
	require.NoError(t, err)

	err = f.places.UpdatePlaceDetails(ctx, f.ada.ID, place.ID,
		models.PlaceCost{TravelCost: 5, StayCost: 40}, models.PlaceRequirement{Food: true},
		[]string{"/uploads/2-b.jpg", "/uploads/3-c.png"})
	require.NoError(t, err)

	details, err := f.places.GetPlaceDetails(ctx, f.ada.ID, place.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PlaceCost{PlaceID: place.ID, TravelCost: 5, StayCost: 40}, details.Cost)
	assert.Equal(t, models.PlaceRequirement{PlaceID: place.ID, Food: true}, details.Requirements)
	assert.Len(t, details.Photos, 3)
}

func TestUpdatePlaceDetailsCreatesMissingRows(t *testing.T) {
	f, count := newPlaceFixture(t)
	ctx := context.Background()
	res, err := f.places.db.Exec(
		"INSERT INTO places (user_id, title, description, region, category, difficulty) VALUES (?, 'Bare', 'd', 'r', 'c', 'easy')",
		f.ada.ID)
	require.NoError(t, err)
	placeID, _ := res.LastInsertId()

	details, err := f.places.GetPlaceDetails(ctx, f.ada.ID, placeID)
	require.NoError(t, err)
	assert.Zero(t, details.Cost.Total())

	require.NoError(t, f.places.UpdatePlaceDetails(ctx, f.ada.ID, placeID, models.PlaceCost{EntryFee: 7}, models.PlaceRequirement{Water: true}, nil))
	assert.Equal(t, 1, count("SELECT COUNT(*) FROM place_costs WHERE place_id = ?", placeID))
	assert.Equal(t, 1, count("SELECT COUNT(*) FROM place_requirements WHERE place_id = ?", placeID))

	// Saving identical values again must not insert a duplicate row.
	require.NoError(t, f.places.UpdatePlaceDetails(ctx, f.ada.ID, placeID, models.PlaceCost{EntryFee: 7}, models.PlaceRequirement{Water: true}, nil))
	assert.Equal(t, 1, count("SELECT COUNT(*) FROM place_costs WHERE place_id = ?", placeID))
}

func TestDeletePlace(t *testing.T) {
	f, count := newPlaceFixture(t)
	ctx := context.Background()
	place, err := f.places.CreatePlace(ctx, models.Place{
		UserID: f.ada.ID, Title: "Tor", Description: "d", Region: "Dartmoor", Category: "Hiking", Difficulty: "easy",
	}, models.PlaceCost{}, models.PlaceRequirement{}, []string{"/uploads/1-a.png"})
	require.NoError(t, err)

	deleted, paths, err := f.places.DeletePlace(ctx, f.bob.ID, place.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Empty(t, paths)
	assert.Equal(t, 1, count("SELECT COUNT(*) FROM places"))

	deleted, paths, err = f.places.DeletePlace(ctx, f.ada.ID, place.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Equal(t, []string{"/uploads/1-a.png"}, paths)
	assert.Zero(t, count("SELECT COUNT(*) FROM places"))
	assert.Zero(t, count("SELECT COUNT(*) FROM place_photos"))
	assert.Zero(t, count("SELECT COUNT(*) FROM place_costs"))
}

func TestListPlacesFilters(t *testing.T) {
	f, _ := newPlaceFixture(t)
	ctx := context.Background()
	first := f.create(t, f.ada, "Tor", "Hiking", "Dartmoor")
	f.create(t, f.ada, "Cove", "Beach", "Cornwall")
	second := f.create(t, f.ada, "Edge", "Hiking", "Peak District")
	f.create(t, f.bob, "Bob's hike", "Hiking", "Dartmoor")

	all, err := f.places.ListPlaces(ctx, f.ada.ID, models.PlaceFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	hiking, err := f.places.ListPlaces(ctx, f.ada.ID, models.PlaceFilter{Category: "Hiking"})
	require.NoError(t, err)
	require.Len(t, hiking, 2)
	assert.Equal(t, second.ID, hiking[0].ID, "newest first")
	assert.Equal(t, first.ID, hiking[1].ID)

	peak, err := f.places.ListPlaces(ctx, f.ada.ID, models.PlaceFilter{Region: "peak"})
	require.NoError(t, err)
	require.Len(t, peak, 1)
	assert.Equal(t, "Edge", peak[0].Title)

	wildcard, err := f.places.ListPlaces(ctx, f.ada.ID, models.PlaceFilter{Region: "%"})
	require.NoError(t, err)
	assert.Empty(t, wildcard)

	none, err := f.places.ListPlaces(ctx, f.ada.ID, models.PlaceFilter{Category: "Hiking", Difficulty: "hard"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListPlacesCounts(t *testing.T) {
	f, _ := newPlaceFixture(t)
	ctx := context.Background()
	place, err := f.places.CreatePlace(ctx, models.Place{
		UserID: f.ada.ID, Title: "Tor", Description: "d", Region: "Dartmoor", Category: "Hiking", Difficulty: "easy",
	}, models.PlaceCost{}, models.PlaceRequirement{}, []string{"/uploads/1.png", "/uploads/2.png"})
	require.NoError(t, err)
	for _, risk := range []string{"Bog", "Fog", "Adders"} {
		_, err := f.places.db.Exec("INSERT INTO place_risks (place_id, description) VALUES (?, ?)", place.ID, risk)
		require.NoError(t, err)
	}

	list, err := f.places.ListPlaces(ctx, f.ada.ID, models.PlaceFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].PhotoCount)
	assert.Equal(t, 3, list[0].RiskCount)
}
