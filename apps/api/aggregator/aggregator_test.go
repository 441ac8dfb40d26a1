package aggregator

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/frankfurt-bikes/stationmap/apps/api/models"
	"github.com/frankfurt-bikes/stationmap/apps/api/repository"
)

// fakeRepository serves station rows and routes from memory
type fakeRepository struct {
	rows    []models.StationRow
	routes  map[int64][]models.DestinationCount
	listErr error
}

func (f *fakeRepository) ListStations(ctx context.Context) ([]models.StationRow, error) {
	return f.rows, f.listErr
}

func (f *fakeRepository) GetStation(ctx context.Context, stationID int64) (*models.StationRow, error) {
	for i := range f.rows {
		if f.rows[i].StationID == stationID {
			return &f.rows[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeRepository) MostPopularDestination(ctx context.Context, stationID int64) (string, error) {
	counts := f.routes[stationID]
	if len(counts) == 0 {
		return "", nil
	}
	return counts[0].Destination, nil
}

func (f *fakeRepository) EndNodes(ctx context.Context, stationID int64) ([]string, error) {
	var names []string
	for _, c := range f.routes[stationID] {
		names = append(names, c.Destination)
	}
	return names, nil
}

func (f *fakeRepository) DestinationCounts(ctx context.Context, stationID int64) ([]models.DestinationCount, error) {
	return f.routes[stationID], nil
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		rows: []models.StationRow{
			{StationID: 1, StationName: "Hauptbahnhof", Latitude: 50.1071, Longitude: 8.6638, StartCount: 5, EndCount: 1},
			{StationID: 2, StationName: "Römer", Latitude: 50.1104, Longitude: 8.6821, StartCount: 1, EndCount: 3},
			{StationID: 3, StationName: "Zoo", Latitude: 50.1153, Longitude: 8.6995, StartCount: 0, EndCount: 2},
		},
		routes: map[int64][]models.DestinationCount{
			1: {{Destination: "Römer", Count: 3}, {Destination: "Zoo", Count: 2}},
			2: {{Destination: "Hauptbahnhof", Count: 1}},
		},
	}
}

func TestBuild(t *testing.T) {
	agg := New(newFakeRepository())

	stations, err := agg.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(stations) != 3 {
		t.Fatalf("expected 3 stations, got %d", len(stations))
	}

	first := stations[0]
	if first.MostPopular != "Römer" {
		t.Errorf("station 1 most popular = %q, expected Römer", first.MostPopular)
	}
	if len(first.EndNodes) != 2 {
		t.Errorf("station 1 end nodes = %v, expected 2 entries", first.EndNodes)
	}
	if first.StartCount != 5 || first.Latitude != 50.1071 {
		t.Errorf("station 1 row fields not carried over: %+v", first)
	}
}

func TestBuild_StationWithoutRoutes(t *testing.T) {
	agg := New(newFakeRepository())

	stations, err := agg.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	zoo := stations[2]
	if zoo.MostPopular != models.NoDestination {
		t.Errorf("most popular = %q, expected placeholder %q", zoo.MostPopular, models.NoDestination)
	}
	if zoo.EndNodes == nil || len(zoo.EndNodes) != 0 {
		t.Errorf("end nodes = %#v, expected empty non-nil slice", zoo.EndNodes)
	}
}

func TestBuild_ListError(t *testing.T) {
	repo := newFakeRepository()
	repo.listErr = errors.New("database is locked")

	if _, err := New(repo).Build(context.Background()); err == nil {
		t.Fatal("expected Build to fail when stations cannot be listed")
	}
}

func TestBuild_EmptyDatabase(t *testing.T) {
	stations, err := New(&fakeRepository{}).Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if stations == nil || len(stations) != 0 {
		t.Errorf("expected empty non-nil station list, got %#v", stations)
	}
}

func TestDestinations(t *testing.T) {
	agg := New(newFakeRepository())

	d, err := agg.Destinations(context.Background(), 1)
	if err != nil {
		t.Fatalf("Destinations failed: %v", err)
	}
	if d.TotalRoutes != 5 {
		t.Errorf("total routes = %d, expected 5", d.TotalRoutes)
	}

	if _, err := agg.Destinations(context.Background(), 99); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown station, got %v", err)
	}
}

// TestSummarize_SQL runs the aggregation against the SQL repository to check the
// two per-station queries are issued with the station ID.
func TestSummarize_SQL(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("LIMIT 1").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"Ende_Station", "route_count"}))
	mock.ExpectQuery("SELECT DISTINCT Ende_Station").WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"Ende_Station"}))

	agg := New(repository.NewMySQLStationRepository(db))
	mostPopular, endNodes, err := agg.Summarize(context.Background(), 7)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if mostPopular != models.NoDestination {
		t.Errorf("most popular = %q, expected placeholder", mostPopular)
	}
	if len(endNodes) != 0 {
		t.Errorf("end nodes = %v, expected none", endNodes)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
