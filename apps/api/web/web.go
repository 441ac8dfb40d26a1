// Package web serves the map page and its assets. The page is rendered once
// per request so the map view from the server config is injected into it.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
)

//go:embed static
var embedded embed.FS

// MapView is handed to the browser as window.STATION_MAP
type MapView struct {
	CenterLat       float64 `json:"centerLat"`
	CenterLon       float64 `json:"centerLon"`
	Zoom            int     `json:"zoom"`
	DataURL         string  `json:"dataUrl"`
	SwapCoordinates bool    `json:"swapCoordinates"`
}

// Handler renders index.html and serves the remaining static files
type Handler struct {
	view   MapView
	index  *template.Template
	assets http.Handler
}

// New loads the assets. With an empty staticDir the embedded copy is used.
func New(view MapView, staticDir string) (*Handler, error) {
	var assets fs.FS
	if staticDir != "" {
		assets = os.DirFS(staticDir)
		log.Printf("Serving renderer assets from %s", staticDir)
	} else {
		sub, err := fs.Sub(embedded, "static")
		if err != nil {
			return nil, fmt.Errorf("failed to open embedded assets: %w", err)
		}
		assets = sub
	}

	index, err := template.ParseFS(assets, "index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse index.html: %w", err)
	}

	return &Handler{
		view:   view,
		index:  index,
		assets: http.FileServer(http.FS(assets)),
	}, nil
}

// ServeHTTP handles GET / and the asset paths below it
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" || r.URL.Path == "/index.html" {
		h.serveIndex(w)
		return
	}
	h.assets.ServeHTTP(w, r)
}

func (h *Handler) serveIndex(w http.ResponseWriter) {
	var buf bytes.Buffer
	if err := h.index.Execute(&buf, h.view); err != nil {
		log.Printf("Failed to render index.html: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
