package csvdata

// Station is one row of the stations export
type Station struct {
	StationID   int64
	StationName string
	Latitude    float64
	Longitude   float64
}

// Trip is one rental from a start station to an end station
type Trip struct {
	StartStationID int64
	EndStationID   int64
}

// Data holds both exports and how many rows had to be dropped while parsing
type Data struct {
	Stations        []Station
	Trips           []Trip
	SkippedStations int
	SkippedTrips    int
}
