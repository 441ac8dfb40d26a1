package models

import (
	"errors"
	"strings"
)

// NoDestination is the placeholder used when a station has no outgoing routes
const NoDestination = "N/A"

// StationRow is a single row of the stations table
// Column names follow the external schema (Station_ID, Station_Name, ...)
type StationRow struct {
	StationID   int64   `db:"Station_ID"`
	StationName string  `db:"Station_Name"`
	Latitude    float64 `db:"Latitude"`
	Longitude   float64 `db:"Longitude"`
	StartCount  int     `db:"Startvorgaenge"`
	EndCount    int     `db:"Endvorgaenge"`
}

// Station is a station row annotated with its route statistics.
// This is the record serialized into the cache artifact and consumed by the map.
type Station struct {
	StationID   int64   `json:"stationId"`
	StationName string  `json:"stationName"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	StartCount  int     `json:"startCount"`
	EndCount    int     `json:"endCount"`

	// Computed from the routes table
	MostPopular string   `json:"mostPopular"`
	EndNodes    []string `json:"endNodes"`
}

// NewStation builds a Station from a row and its computed route statistics.
// An empty mostPopular becomes NoDestination and a nil endNodes becomes an empty slice,
// so the JSON never carries "" or null for either field.
func NewStation(row StationRow, mostPopular string, endNodes []string) Station {
	if mostPopular == "" {
		mostPopular = NoDestination
	}
	if endNodes == nil {
		endNodes = []string{}
	}
	return Station{
		StationID:   row.StationID,
		StationName: row.StationName,
		Latitude:    row.Latitude,
		Longitude:   row.Longitude,
		StartCount:  row.StartCount,
		EndCount:    row.EndCount,
		MostPopular: mostPopular,
		EndNodes:    endNodes,
	}
}

// Validate checks if the Station has usable data for the map
func (s *Station) Validate() error {
	if s.StationID <= 0 {
		return errors.New("station_id must be positive")
	}

	if strings.TrimSpace(s.StationName) == "" {
		return errors.New("station_name is required")
	}

	if s.Latitude < -90 || s.Latitude > 90 {
		return errors.New("latitude out of range: must be between -90 and 90")
	}

	if s.Longitude < -180 || s.Longitude > 180 {
		return errors.New("longitude out of range: must be between -180 and 180")
	}

	if s.StartCount < 0 || s.EndCount < 0 {
		return errors.New("start/end counts cannot be negative")
	}

	return nil
}

// ReachableFrom reports whether name is one of the station's distinct destinations
func (s *Station) ReachableFrom(name string) bool {
	for _, n := range s.EndNodes {
		if n == name {
			return true
		}
	}
	return false
}

// DestinationCount is the number of routes from one station to a destination
type DestinationCount struct {
	Destination string `json:"destination"`
	Count       int    `json:"count"`
}

// StationDestinations is the per-destination breakdown for a single station
type StationDestinations struct {
	StationID    int64              `json:"stationId"`
	Destinations []DestinationCount `json:"destinations"`
	TotalRoutes  int                `json:"totalRoutes"`
}

// FindStation returns the station with the given ID from a slice
func FindStation(stations []Station, id int64) (*Station, bool) {
	for i := range stations {
		if stations[i].StationID == id {
			return &stations[i], true
		}
	}
	return nil, false
}
