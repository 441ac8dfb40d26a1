package csvdata

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
)

var stationColumns = []string{"station_id", "station_name", "latitude", "longitude"}

var tripColumns = []string{"start_station_id", "end_station_id"}

// Parse reads the stations and trips exports from disk
func Parse(stationsPath, tripsPath string) (*Data, error) {
	data := &Data{}

	sf, err := os.Open(stationsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open stations file: %w", err)
	}
	defer sf.Close()

	data.Stations, data.SkippedStations, err = ParseStations(sf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", stationsPath, err)
	}

	tf, err := os.Open(tripsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open trips file: %w", err)
	}
	defer tf.Close()

	data.Trips, data.SkippedTrips, err = ParseTrips(tf)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", tripsPath, err)
	}

	log.Printf("CSV parsed: %d stations (%d skipped), %d trips (%d skipped)",
		len(data.Stations), data.SkippedStations, len(data.Trips), data.SkippedTrips)

	return data, nil
}

// ParseStations reads a stations export. Rows that cannot be parsed and repeated
// station IDs are skipped; the number skipped is returned alongside the stations.
func ParseStations(r io.Reader) ([]Station, int, error) {
	reader, idx, err := newReader(r, stationColumns)
	if err != nil {
		return nil, 0, err
	}

	var stations []Station
	seen := make(map[int64]bool)
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if isBlank(record) {
			continue
		}

		id, errID := strconv.ParseInt(getField(record, idx, "station_id"), 10, 64)
		lat, errLat := strconv.ParseFloat(getField(record, idx, "latitude"), 64)
		lon, errLon := strconv.ParseFloat(getField(record, idx, "longitude"), 64)
		name := getField(record, idx, "station_name")
		line, _ := reader.FieldPos(0)
		if errID != nil || errLat != nil || errLon != nil || name == "" {
			log.Printf("Warning: skipping malformed station on line %d", line)
			skipped++
			continue
		}
		if seen[id] {
			log.Printf("Warning: skipping duplicate station %d on line %d", id, line)
			skipped++
			continue
		}
		seen[id] = true

		stations = append(stations, Station{
			StationID:   id,
			StationName: name,
			Latitude:    lat,
			Longitude:   lon,
		})
	}

	return stations, skipped, nil
}

// ParseTrips reads a trips export. Only the start and end station columns are used.
func ParseTrips(r io.Reader) ([]Trip, int, error) {
	reader, idx, err := newReader(r, tripColumns)
	if err != nil {
		return nil, 0, err
	}

	var trips []Trip
	skipped := 0

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if isBlank(record) {
			continue
		}

		start, errStart := strconv.ParseInt(getField(record, idx, "start_station_id"), 10, 64)
		end, errEnd := strconv.ParseInt(getField(record, idx, "end_station_id"), 10, 64)
		if errStart != nil || errEnd != nil {
			skipped++
			continue
		}

		trips = append(trips, Trip{StartStationID: start, EndStationID: end})
	}

	return trips, skipped, nil
}

// newReader reads the header row and checks that every required column is present.
// Semicolon separated files are detected from the header line.
func newReader(r io.Reader, required []string) (*csv.Reader, map[string]int, error) {
	br := bufio.NewReader(r)

	reader := csv.NewReader(br)
	reader.Comma = detectDelimiter(br)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	idx := makeIndex(header)
	var missing []string
	for _, col := range required {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}

	return reader, idx, nil
}

func detectDelimiter(br *bufio.Reader) rune {
	// Peek returns what it has along with an error when the file is shorter
	head, _ := br.Peek(4096)
	if i := bytes.IndexByte(head, '\n'); i >= 0 {
		head = head[:i]
	}
	if bytes.Count(head, []byte(";")) > bytes.Count(head, []byte(",")) {
		return ';'
	}
	return ','
}

func makeIndex(header []string) map[string]int {
	idx := make(map[string]int)
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func getField(record []string, idx map[string]int, field string) string {
	if i, ok := idx[field]; ok && i < len(record) {
		return strings.TrimSpace(record[i])
	}
	return ""
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
