package services_test

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"testing"

	"github.com/farrukhll0/pigeon-management-system/internal/models"
	"github.com/farrukhll0/pigeon-management-system/internal/repositories"
	"github.com/farrukhll0/pigeon-management-system/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testPNG = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 16)...)

func pngDataURL() string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(testPNG)
}

func newMemoryPigeonService() *services.PigeonService {
	return services.NewPigeonService(repositories.NewMemoryPigeonRepository(), nil, 0)
}

func TestPigeonService_CreateRequiresName(t *testing.T) {
	mockRepo := new(MockPigeonRepository)
	service := services.NewPigeonService(mockRepo, nil, 0)

	for _, in := range []services.PigeonInput{
		{},
		{Name: strPtr("   ")},
		{Color: strPtr("Blue")},
	} {
		_, err := service.Create(context.Background(), "user-a", in)
		var verr *services.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "name")
	}
	mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestPigeonService_CreateSetsOwnerAndDefaults(t *testing.T) {
	service := newMemoryPigeonService()

	pigeon, err := service.Create(context.Background(), "user-a", services.PigeonInput{Name: strPtr(" Rocky ")})
	require.NoError(t, err)
	assert.NotEmpty(t, pigeon.ID)
	assert.Equal(t, "user-a", pigeon.OwnerID)
	assert.Equal(t, "Rocky", pigeon.Name)
	assert.Equal(t, models.SexUnknown, pigeon.Sex)
	assert.NotNil(t, pigeon.Images)
	assert.False(t, pigeon.CreatedAt.IsZero())
}

func TestPigeonService_CreateThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	service := newMemoryPigeonService()
	dob, err := models.ParseDate("2023-04-01")
	require.NoError(t, err)

	in := services.PigeonInput{
		Name:         strPtr("Rocky"),
		RingNumber:   strPtr("BE-2023-123456"),
		DateOfBirth:  strPtr("2023-04-01"),
		Color:        strPtr("Blue Bar"),
		Sex:          strPtr(models.SexMale),
		Strain:       strPtr("Janssen"),
		Breeder:      strPtr("Van Loon"),
		Notes:        strPtr("Strong flier"),
		Achievements: []string{"1st Club 2024"},
		RaceResults:  []models.RaceResult{{Date: &dob, Location: "Orleans", Distance: 520, Position: 3, Speed: 1450.5}},
		Vaccinations: []models.Vaccination{{Type: "Paramyxo", Date: &dob}},
		FatherName:   strPtr("Bolt"),
		MotherName:   strPtr("Daisy"),
		PigeonImage:  strPtr(pngDataURL()),
		Images:       []string{pngDataURL()},
		Pedigree: &models.Pedigree{
			Grandfather: &models.Ancestor{Name: "Old Bolt", Image: pngDataURL()},
		},
	}
	created, err := service.Create(ctx, "user-a", in)
	require.NoError(t, err)

	fetched, err := service.Get(ctx, created.ID, "user-a")
	require.NoError(t, err)
	assert.Equal(t, "Rocky", fetched.Name)
	assert.Equal(t, "BE-2023-123456", fetched.RingNumber)
	assert.Equal(t, "2023-04-01", fetched.DateOfBirth.String())
	assert.Equal(t, "Blue Bar", fetched.Color)
	assert.Equal(t, models.SexMale, fetched.Sex)
	assert.Equal(t, "Janssen", fetched.Strain)
	assert.Equal(t, "Van Loon", fetched.Breeder)
	assert.Equal(t, "Strong flier", fetched.Notes)
	assert.Equal(t, in.Achievements, fetched.Achievements)
	assert.Equal(t, in.RaceResults, fetched.RaceResults)
	assert.Equal(t, in.Vaccinations, fetched.Vaccinations)
	assert.Equal(t, "Bolt", fetched.FatherName)
	assert.Equal(t, "Daisy", fetched.MotherName)
	assert.Equal(t, pngDataURL(), fetched.PigeonImage)
	assert.Equal(t, []string{pngDataURL()}, fetched.Images)
	require.NotNil(t, fetched.Pedigree.Grandfather)
	assert.Equal(t, "Old Bolt", fetched.Pedigree.Grandfather.Name)
	assert.Nil(t, fetched.Pedigree.Grandmother)
}

func TestPigeonService_OwnershipChecks(t *testing.T) {
	ctx := context.Background()
	service := newMemoryPigeonService()

	pigeon, err := service.Create(ctx, "user-a", services.PigeonInput{Name: strPtr("Rocky"), Color: strPtr("Red")})
	require.NoError(t, err)

	_, err = service.Get(ctx, pigeon.ID, "user-b")
	assert.ErrorIs(t, err, services.ErrForbidden)

	updated, err := service.Update(ctx, pigeon.ID, "user-b", services.PigeonInput{Name: strPtr("Stolen")})
	assert.ErrorIs(t, err, services.ErrForbidden)
	assert.Nil(t, updated)

	err = service.Delete(ctx, pigeon.ID, "user-b")
	assert.ErrorIs(t, err, services.ErrForbidden)

	// The owner still sees the untouched record.
	fetched, err := service.Get(ctx, pigeon.ID, "user-a")
	require.NoError(t, err)
	assert.Equal(t, "Rocky", fetched.Name)

	_, err = service.Get(ctx, "does-not-exist", "user-a")
	assert.ErrorIs(t, err, services.ErrNotFound)
	_, err = service.Update(ctx, "does-not-exist", "user-a", services.PigeonInput{})
	assert.ErrorIs(t, err, services.ErrNotFound)
	assert.ErrorIs(t, service.Delete(ctx, "does-not-exist", "user-a"), services.ErrNotFound)
}

func TestPigeonService_UpdateMergesSuppliedFields(t *testing.T) {
	ctx := context.Background()
	service := newMemoryPigeonService()

	pigeon, err := service.Create(ctx, "user-a", services.PigeonInput{
		Name:       strPtr("Rocky"),
		RingNumber: strPtr("R-1"),
		Color:      strPtr("Red"),
		Pedigree: &models.Pedigree{
			Grandfather: &models.Ancestor{Name: "Old Bolt"},
		},
	})
	require.NoError(t, err)

	updated, err := service.Update(ctx, pigeon.ID, "user-a", services.PigeonInput{
		Color:      strPtr("Checker"),
		RingNumber: strPtr(""),
		Pedigree: &models.Pedigree{
			Grandmother: &models.Ancestor{Name: "Old Daisy"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Rocky", updated.Name)
	assert.Equal(t, "Checker", updated.Color)
	assert.Empty(t, updated.RingNumber)
	require.NotNil(t, updated.Pedigree.Grandfather)
	require.NotNil(t, updated.Pedigree.Grandmother)

	// A tier with neither name nor image is removed.
	updated, err = service.Update(ctx, pigeon.ID, "user-a", services.PigeonInput{
		Pedigree: &models.Pedigree{Grandfather: &models.Ancestor{}},
	})
	require.NoError(t, err)
	assert.Nil(t, updated.Pedigree.Grandfather)
	assert.NotNil(t, updated.Pedigree.Grandmother)

	_, err = service.Update(ctx, pigeon.ID, "user-a", services.PigeonInput{Name: strPtr("")})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")
}

func TestPigeonService_ImageValidation(t *testing.T) {
	service := services.NewPigeonService(repositories.NewMemoryPigeonRepository(), nil, 64)
	big := base64.StdEncoding.EncodeToString(append(testPNG, make([]byte, 128)...))
	text := base64.StdEncoding.EncodeToString([]byte("definitely not an image"))

	_, err := service.Create(context.Background(), "user-a", services.PigeonInput{
		Name:        strPtr("Rocky"),
		PigeonImage: strPtr(big),
		FatherImage: strPtr(text),
		Images:      []string{"%%%"},
		Pedigree:    &models.Pedigree{Grandmother: &models.Ancestor{Name: "G", Image: text}},
	})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Image is too large", verr.Fields["pigeonImage"])
	assert.Equal(t, "Only image files are allowed", verr.Fields["fatherImage"])
	assert.Contains(t, verr.Fields, "images[0]")
	assert.Contains(t, verr.Fields, "pedigree.grandmother.image")
}

func TestPigeonService_InvalidSexAndDate(t *testing.T) {
	service := newMemoryPigeonService()

	_, err := service.Create(context.Background(), "user-a", services.PigeonInput{
		Name:        strPtr("Rocky"),
		Sex:         strPtr("Other"),
		DateOfBirth: strPtr("last spring"),
	})
	var verr *services.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "sex")
	assert.Contains(t, verr.Fields, "dateOfBirth")
}

func TestPigeonService_ListScopedToOwner(t *testing.T) {
	ctx := context.Background()
	service := newMemoryPigeonService()

	for _, owner := range []string{"user-a", "user-b"} {
		_, err := service.Create(ctx, owner, services.PigeonInput{Name: strPtr("Rocky")})
		require.NoError(t, err)
	}
	_, err := service.Create(ctx, "user-a", services.PigeonInput{Name: strPtr("Blue Streak"), Strain: strPtr("Janssen")})
	require.NoError(t, err)

	listA, err := service.List(ctx, "user-a", models.PigeonFilter{})
	require.NoError(t, err)
	require.Len(t, listA, 2)
	assert.Equal(t, "Blue Streak", listA[0].Name, "newest first")
	for _, p := range listA {
		assert.Equal(t, "user-a", p.OwnerID)
	}

	listB, err := service.List(ctx, "user-b", models.PigeonFilter{})
	require.NoError(t, err)
	require.Len(t, listB, 1)
	assert.Equal(t, "Rocky", listB[0].Name)
	assert.Equal(t, "user-b", listB[0].OwnerID)

	filtered, err := service.List(ctx, "user-a", models.PigeonFilter{Search: "JANS"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Blue Streak", filtered[0].Name)
}

func TestPigeonService_StoreUnavailable(t *testing.T) {
	mockRepo := new(MockPigeonRepository)
	service := services.NewPigeonService(mockRepo, nil, 0)
	outage := fmt.Errorf("dial tcp: %w", repositories.ErrUnavailable)

	mockRepo.On("GetByID", mock.Anything, "p-1").Return(nil, outage).Once()
	_, err := service.Get(context.Background(), "p-1", "user-a")
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)

	mockRepo.On("ListByOwner", mock.Anything, "user-a", models.PigeonFilter{}).Return(nil, outage).Once()
	_, err = service.List(context.Background(), "user-a", models.PigeonFilter{})
	assert.ErrorIs(t, err, services.ErrStoreUnavailable)
	mockRepo.AssertExpectations(t)
}

func TestPigeonService_PublishesEvents(t *testing.T) {
	ctx := context.Background()
	publisher := new(MockPublisher)
	service := services.NewPigeonService(repositories.NewMemoryPigeonRepository(), publisher, 0)

	publisher.On("Publish", services.EventPigeonCreated, mock.Anything).Return(nil).Once()
	publisher.On("Publish", services.EventPigeonUpdated, mock.Anything).Return(fmt.Errorf("channel closed")).Once()
	publisher.On("Publish", services.EventPigeonDeleted, mock.MatchedBy(func(body []byte) bool {
		return strings.Contains(string(body), `"event":"pigeon.deleted"`) && !strings.Contains(string(body), "base64")
	})).Return(nil).Once()

	pigeon, err := service.Create(ctx, "user-a", services.PigeonInput{Name: strPtr("Rocky"), PigeonImage: strPtr(pngDataURL())})
	require.NoError(t, err)
	// A failed publish never fails the request.
	_, err = service.Update(ctx, pigeon.ID, "user-a", services.PigeonInput{Color: strPtr("Red")})
	require.NoError(t, err)
	require.NoError(t, service.Delete(ctx, pigeon.ID, "user-a"))
	publisher.AssertExpectations(t)
}
