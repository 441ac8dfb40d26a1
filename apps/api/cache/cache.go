// Package cache stores the aggregated station list as a JSON file whose
// modification time is its freshness timestamp.
package cache

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/frankfurt-bikes/stationmap/apps/api/models"
)

// DefaultMaxAge is how long an artifact is served before it is regenerated
const DefaultMaxAge = time.Hour

const memKey = "stations"

// Artifact is one generation of the station list, both encoded and decoded
type Artifact struct {
	Raw         []byte
	Stations    []models.Station
	GeneratedAt time.Time
}

// FileCache is the stations.json artifact plus an in-process copy of it.
// There is no locking: two requests that miss at once both regenerate.
type FileCache struct {
	path    string
	maxAge  time.Duration
	enabled bool
	mem     *gocache.Cache
	now     func() time.Time
}

// New creates a FileCache for the artifact at path. When enabled is false every
// read misses, but writes still refresh the file.
func New(path string, maxAge time.Duration, enabled bool) *FileCache {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &FileCache{
		path:    path,
		maxAge:  maxAge,
		enabled: enabled,
		mem:     gocache.New(gocache.NoExpiration, 10*time.Minute),
		now:     time.Now,
	}
}

// Path returns the artifact location
func (c *FileCache) Path() string {
	return c.path
}

// MaxAge returns the freshness window
func (c *FileCache) MaxAge() time.Duration {
	return c.maxAge
}

// Enabled reports whether reads can be served from the artifact
func (c *FileCache) Enabled() bool {
	return c.enabled
}

// ReadStale returns the artifact on disk regardless of its age or the enabled flag.
// It is the fallback when the database cannot be aggregated.
func (c *FileCache) ReadStale() (*Artifact, bool) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, false
	}
	a, err := readArtifact(c.path, info.ModTime())
	if err != nil {
		return nil, false
	}
	return a, true
}

// Write stores the stations as pretty-printed JSON. The file is written to a
// temp file and renamed into place so readers never see a partial artifact.
// The artifact is returned even when the write itself fails, so callers can
// still serve what they computed.
func (c *FileCache) Write(stations []models.Station) (*Artifact, error) {
	if stations == nil {
		stations = []models.Station{}
	}
	data, err := Encode(stations)
	if err != nil {
		return nil, err
	}
	a := &Artifact{Raw: data, Stations: stations, GeneratedAt: c.now()}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return a, fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".stations-*.json")
	if err != nil {
		return a, fmt.Errorf("failed to create temp cache file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return a, fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return a, fmt.Errorf("failed to close cache file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		log.Printf("Warning: failed to chmod cache file: %v", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return a, fmt.Errorf("failed to move cache file into place: %w", err)
	}

	if info, err := os.Stat(c.path); err == nil {
		a.GeneratedAt = info.ModTime()
	}
	c.mem.Set(memKey, a, c.maxAge)

	log.Printf("Cache updated: %d stations written to %s", len(stations), c.path)
	return a, nil
}

// Freshness reports the artifact state for health checks
func (c *FileCache) Freshness() models.CacheFreshness {
	f := models.CacheFreshness{
		Path:          c.path,
		Enabled:       c.enabled,
		AgeSeconds:    -1,
		MaxAgeSeconds: int(c.maxAge.Seconds()),
	}

	info, err := os.Stat(c.path)
	if err != nil {
		f.Status = models.CalculateFreshnessStatus(-1, c.maxAge)
		return f
	}

	generatedAt := info.ModTime().UTC()
	age := c.now().Sub(info.ModTime())
	if age < 0 {
		age = 0
	}
	f.GeneratedAt = &generatedAt
	f.AgeSeconds = int(age.Seconds())
	f.Status = models.CalculateFreshnessStatus(age, c.maxAge)
	return f
}

// Encode renders stations the way they are stored in the artifact
func Encode(stations []models.Station) ([]byte, error) {
	if stations == nil {
		stations = []models.Station{}
	}
	data, err := json.MarshalIndent(stations, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode stations: %w", err)
	}
	return data, nil
}

// Read returns the artifact if it exists on disk and is younger than the
// freshness window. A false result means the caller should recompute and Write.
// The in-process copy is only used while the file on disk is the one it was
// decoded from, so removing or replacing the file is seen on the next call.
func (c *FileCache) Read() (*Artifact, bool) {
	if !c.enabled {
		return nil, false
	}

	info, err := os.Stat(c.path)
	if err != nil {
		// File doesn't exist or can't be read
		c.mem.Delete(memKey)
		return nil, false
	}

	age := c.now().Sub(info.ModTime())
	if age >= c.maxAge {
		return nil, false
	}

	if v, ok := c.mem.Get(memKey); ok {
		if a := v.(*Artifact); a.GeneratedAt.Equal(info.ModTime()) {
			return a, true
		}
	}

	a, err := readArtifact(c.path, info.ModTime())
	if err != nil {
		log.Printf("Warning: ignoring cache file %s: %v", c.path, err)
		c.mem.Delete(memKey)
		return nil, false
	}
	c.mem.Set(memKey, a, c.maxAge-age)

	log.Println("Using cached data")
	return a, true
}

func readArtifact(path string, modTime time.Time) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var stations []models.Station
	if err := json.Unmarshal(data, &stations); err != nil {
		return nil, fmt.Errorf("corrupt artifact: %w", err)
	}
	if stations == nil {
		stations = []models.Station{}
	}

	return &Artifact{Raw: data, Stations: stations, GeneratedAt: modTime}, nil
}
