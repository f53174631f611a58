package services_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gigmarket/marketplace/backend/internal/application/services"
	"github.com/gigmarket/marketplace/backend/internal/domain/document"
	"github.com/gigmarket/marketplace/backend/internal/domain/entities"
	"github.com/gigmarket/marketplace/backend/internal/domain/repositories"
	apperrors "github.com/gigmarket/marketplace/backend/pkg/errors"
)

func venueDoc(name string) document.Document {
	return document.Document{
		"category":        document.String("Venues"),
		"venueName":       document.String(name),
		"serviceLocation": document.String("Austin, TX"),
	}
}

func TestProviderService_List(t *testing.T) {
	docs := new(MockProviderDocumentRepository)
	service := services.NewProviderService(docs, nil)
	venues := entities.CategoryVenues

	docs.On("List", mock.Anything, repositories.ProviderFilter{Category: &venues, Limit: services.DefaultPageSize}).
		Return([]*document.Record{record("v1", venueDoc("The Barn"))}, 12, nil)

	page, err := service.List(context.Background(), repositories.ProviderFilter{Category: &venues})
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	require.Len(t, page.Providers, 1)
	assert.Equal(t, "The Barn", page.Providers[0].DisplayName)
	assert.Equal(t, "Austin", *page.Providers[0].City)
	docs.AssertExpectations(t)
}

func TestProviderService_ListClampsAndValidates(t *testing.T) {
	docs := new(MockProviderDocumentRepository)
	service := services.NewProviderService(docs, nil)

	docs.On("List", mock.Anything, repositories.ProviderFilter{Limit: services.MaxPageSize}).
		Return([]*document.Record{}, 0, nil)

	page, err := service.List(context.Background(), repositories.ProviderFilter{Limit: 5000})
	require.NoError(t, err)
	assert.Empty(t, page.Providers)

	_, err = service.List(context.Background(), repositories.ProviderFilter{Limit: -1})
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))

	_, err = service.List(context.Background(), repositories.ProviderFilter{Offset: -3})
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestProviderService_ListPropagatesStoreErrors(t *testing.T) {
	docs := new(MockProviderDocumentRepository)
	service := services.NewProviderService(docs, nil)

	docs.On("List", mock.Anything, mock.Anything).Return(nil, 0, apperrors.NewUnavailableError("down", nil))

	_, err := service.List(context.Background(), repositories.ProviderFilter{})
	assert.Equal(t, apperrors.ErrorTypeUnavailable, apperrors.TypeOf(err))
}

func TestProviderService_Get(t *testing.T) {
	docs := new(MockProviderDocumentRepository)
	service := services.NewProviderService(docs, nil)

	docs.On("GetByID", mock.Anything, "v1").Return(record("v1", venueDoc("The Barn")), nil)
	docs.On("GetByID", mock.Anything, "nope").Return(nil, apperrors.NewNotFoundError("provider with id nope not found"))

	provider, err := service.Get(context.Background(), " v1 ")
	require.NoError(t, err)
	assert.Equal(t, "v1", provider.ID)
	assert.Equal(t, entities.CategoryVenues, provider.Category)

	_, err = service.Get(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = service.Get(context.Background(), "  ")
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestProviderService_GetMany(t *testing.T) {
	docs := new(MockProviderDocumentRepository)
	service := services.NewProviderService(docs, nil)

	docs.On("GetByIDs", mock.Anything, mock.MatchedBy(sameIDs("a", "b", "missing"))).Return([]*document.Record{
		record("b", venueDoc("B")),
		record("a", venueDoc("A")),
	}, nil).Once()

	page, err := service.GetMany(context.Background(), []string{"a", "missing", "b", "a", " "})
	require.NoError(t, err)
	require.Len(t, page.Providers, 2)
	assert.Equal(t, "a", page.Providers[0].ID)
	assert.Equal(t, "b", page.Providers[1].ID)
	assert.Equal(t, 2, page.Total)
	docs.AssertExpectations(t)
}

func TestProviderService_GetManyCoalescesConcurrentReads(t *testing.T) {
	docs := new(MockProviderDocumentRepository)
	service := services.NewProviderService(docs, nil)

	docs.On("GetByIDs", mock.Anything, mock.Anything).Return(func(ctx context.Context, ids []string) []*document.Record {
		out := make([]*document.Record, 0, len(ids))
		for _, id := range ids {
			out = append(out, record(id, venueDoc(id)))
		}
		return out
	}, nil)

	var wg sync.WaitGroup
	for _, id := range []string{"x", "y", "z"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			page, err := service.GetMany(context.Background(), []string{id})
			assert.NoError(t, err)
			if assert.Len(t, page.Providers, 1) {
				assert.Equal(t, id, page.Providers[0].DisplayName)
			}
		}(id)
	}
	wg.Wait()

	calls := 0
	for _, c := range docs.Calls {
		if c.Method == "GetByIDs" {
			calls++
		}
	}
	assert.LessOrEqual(t, calls, 3)
	assert.GreaterOrEqual(t, calls, 1)
}

func TestProviderService_GetManyStoreError(t *testing.T) {
	docs := new(MockProviderDocumentRepository)
	service := services.NewProviderService(docs, nil)

	docs.On("GetByIDs", mock.Anything, mock.Anything).Return(nil, apperrors.NewUnavailableError("down", nil))

	_, err := service.GetMany(context.Background(), []string{"a"})
	assert.Equal(t, apperrors.ErrorTypeUnavailable, apperrors.TypeOf(err))
}

func TestProviderService_GetManyLimits(t *testing.T) {
	service := services.NewProviderService(new(MockProviderDocumentRepository), nil)

	page, err := service.GetMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, page.Providers)

	ids := make([]string, services.MaxBatchIDs+1)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i)
	}
	_, err = service.GetMany(context.Background(), ids)
	assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err))
}

func TestProviderService_SearchKeepsRankOrder(t *testing.T) {
	docs := new(MockProviderDocumentRepository)
	search := new(MockProviderSearchRepository)
	service := services.NewProviderService(docs, search)

	lat, lng := 30.2672, -97.7431
	params := repositories.ProviderSearchParams{Query: "barn", Latitude: &lat, Longitude: &lng, RadiusKm: 40}
	expected := params
	expected.Limit = services.DefaultPageSize

	search.On("Search", mock.Anything, expected).Return([]string{"c", "gone", "a"}, 57, nil)
	docs.On("GetByIDs", mock.Anything, []string{"c", "gone", "a"}).Return([]*document.Record{
		record("a", venueDoc("A")),
		record("c", venueDoc("C")),
	}, nil)

	page, err := service.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, 57, page.Total)
	require.Len(t, page.Providers, 2)
	assert.Equal(t, "c", page.Providers[0].ID)
	assert.Equal(t, "a", page.Providers[1].ID)
}

func TestProviderService_SearchValidation(t *testing.T) {
	service := services.NewProviderService(new(MockProviderDocumentRepository), new(MockProviderSearchRepository))
	lat, lng, bad := 30.0, -97.0, 123.0

	cases := map[string]repositories.ProviderSearchParams{
		"lat without lng":  {Latitude: &lat},
		"radius alone":     {RadiusKm: 10},
		"negative radius":  {Latitude: &lat, Longitude: &lng, RadiusKm: -1},
		"lat out of range": {Latitude: &bad, Longitude: &lng},
		"negative offset":  {Offset: -1},
	}
	for name, params := range cases {
		_, err := service.Search(context.Background(), params)
		assert.Equal(t, apperrors.ErrorTypeValidation, apperrors.TypeOf(err), name)
	}
}

func TestProviderService_SearchDisabled(t *testing.T) {
	service := services.NewProviderService(new(MockProviderDocumentRepository), nil)

	_, err := service.Search(context.Background(), repositories.ProviderSearchParams{Query: "x"})
	assert.Equal(t, apperrors.ErrorTypeUnavailable, apperrors.TypeOf(err))
}

func TestProviderService_Reindex(t *testing.T) {
	docs := new(MockProviderDocumentRepository)
	search := new(MockProviderSearchRepository)
	service := services.NewProviderService(docs, search)

	docs.On("List", mock.Anything, repositories.ProviderFilter{Limit: 2, Offset: 0}).
		Return([]*document.Record{record("a", venueDoc("A")), record("b", venueDoc("B"))}, 3, nil)
	docs.On("List", mock.Anything, repositories.ProviderFilter{Limit: 2, Offset: 2}).
		Return([]*document.Record{record("c", venueDoc("C"))}, 3, nil)

	search.On("Index", mock.Anything, mock.MatchedBy(func(p *entities.Provider) bool { return p.ID == "b" })).
		Return(assert.AnError)
	search.On("Index", mock.Anything, mock.Anything).Return(nil)

	indexed, err := service.Reindex(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)
	docs.AssertExpectations(t)
}

func sameIDs(want ...string) func([]string) bool {
	sort.Strings(want)
	return func(got []string) bool {
		sorted := append([]string(nil), got...)
		sort.Strings(sorted)
		return assert.ObjectsAreEqual(want, sorted)
	}
}
