package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/lyricgraph/internal/datastore"
	"github.com/tphakala/lyricgraph/internal/errors"
	"github.com/tphakala/lyricgraph/internal/llm"
	"github.com/tphakala/lyricgraph/internal/retrieval"
	"github.com/tphakala/lyricgraph/internal/search"
)

// Search limits.
const (
	DefaultSearchLimit = 10
	MaxSearchLimit     = 50
)

// ArtistInfo describes a configured artist.
type ArtistInfo struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	HasGraph bool   `json:"has_graph"`
}

// GenerateRequest is the body of a generate call.
type GenerateRequest struct {
	Topic string `json:"topic"`
}

// ChatRequest is the body of a chat call. History holds earlier turns,
// oldest first.
type ChatRequest struct {
	Message string        `json:"message"`
	History []llm.Message `json:"history"`
}

// SearchResponse is the body of a search call.
type SearchResponse struct {
	Query    string          `json:"query"`
	NodeType string          `json:"node_type"`
	Results  []search.Result `json:"results"`
}

// RetrievalResponse is the body of a retrieval call.
type RetrievalResponse struct {
	Request *retrieval.RequestAnalysis `json:"request"`
	Result  *retrieval.Result          `json:"result"`
}

// healthCheck handles the server health check endpoint.
func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"version":        s.settings.Version,
		"build_date":     s.settings.BuildDate,
		"artists":        len(s.settings.Artists),
		"uptime":         uptime.String(),
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().Format(time.RFC3339),
	})
}

// listArtists returns the configured artists and whether each has a graph.
func (s *Server) listArtists(c echo.Context) error {
	ctx := c.Request().Context()
	slugs := s.settings.ArtistSlugs()
	artists := make([]ArtistInfo, 0, len(slugs))
	for _, slug := range slugs {
		cfg, _ := s.settings.Artist(slug)
		exists, err := s.service.Stores().GraphExists(ctx, slug)
		if err != nil {
			return s.HandleError(c, err, "Failed to check artist graph", http.StatusInternalServerError)
		}
		artists = append(artists, ArtistInfo{
			Slug:     slug,
			Name:     cfg.Name,
			Language: cfg.Language,
			HasGraph: exists,
		})
	}
	return c.JSON(http.StatusOK, artists)
}

// generate writes a song about the requested topic.
func (s *Server) generate(c echo.Context) error {
	var req GenerateRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "Invalid request body", http.StatusBadRequest)
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if req.Topic == "" {
		return s.HandleError(c, errors.ValidationError("topic is required"), "Missing topic", http.StatusBadRequest)
	}

	song, err := s.service.Generate(c.Request().Context(), c.Param("artist"), req.Topic)
	if err != nil {
		return s.HandleError(c, err, "Song generation failed", 0)
	}
	return c.JSON(http.StatusOK, song)
}

// chat answers a message in the artist's persona.
func (s *Server) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return s.HandleError(c, err, "Invalid request body", http.StatusBadRequest)
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return s.HandleError(c, errors.ValidationError("message is required"), "Missing message", http.StatusBadRequest)
	}
	for _, m := range req.History {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			return s.HandleError(c, errors.ValidationError("history roles must be user or assistant"),
				"Invalid history", http.StatusBadRequest)
		}
	}

	reply, err := s.service.Chat(c.Request().Context(), c.Param("artist"), req.Message, req.History)
	if err != nil {
		return s.HandleError(c, err, "Chat failed", 0)
	}
	return c.JSON(http.StatusOK, reply)
}

// searchGraph runs a hybrid search over one node type of the artist graph.
func (s *Server) searchGraph(c echo.Context) error {
	artist := c.Param("artist")
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return s.HandleError(c, errors.ValidationError("q is required"), "Missing query", http.StatusBadRequest)
	}
	limit := DefaultSearchLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return s.HandleError(c, errors.ValidationError("limit must be a positive integer"), "Invalid limit", http.StatusBadRequest)
		}
		limit = min(n, MaxSearchLimit)
	}
	nodeType := datastore.ParseNodeType(c.QueryParam("type"))

	store, err := s.openGraph(c, artist)
	if err != nil || store == nil {
		return err
	}

	results, err := search.New(store, s.service.Embedder()).Hybrid(c.Request().Context(), query, nodeType, limit)
	if err != nil {
		return s.HandleError(c, err, "Search failed", http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, SearchResponse{
		Query:    query,
		NodeType: string(nodeType),
		Results:  results,
	})
}

// retrieve exposes the retrieval pipeline result for a topic.
func (s *Server) retrieve(c echo.Context) error {
	topic := strings.TrimSpace(c.QueryParam("topic"))
	if topic == "" {
		return s.HandleError(c, errors.ValidationError("topic is required"), "Missing topic", http.StatusBadRequest)
	}
	req, res, err := s.service.Retrieve(c.Request().Context(), c.Param("artist"), topic)
	if err != nil {
		return s.HandleError(c, err, "Retrieval failed", 0)
	}
	return c.JSON(http.StatusOK, RetrievalResponse{Request: req, Result: res})
}

// openGraph returns the artist's store. When the artist or its graph is
// missing it writes the error response and returns a nil store.
func (s *Server) openGraph(c echo.Context, artist string) (datastore.Interface, error) {
	if _, err := s.settings.Artist(artist); err != nil {
		return nil, s.HandleError(c, err, "Unknown artist", http.StatusNotFound)
	}
	ctx := c.Request().Context()
	exists, err := s.service.Stores().GraphExists(ctx, artist)
	if err != nil {
		return nil, s.HandleError(c, err, "Failed to check artist graph", http.StatusInternalServerError)
	}
	if !exists {
		return nil, s.HandleError(c, errors.MissingData(artist+" graph", "run setup for this artist first"),
			"No graph for artist", http.StatusNotFound)
	}
	store, err := s.service.Stores().Get(ctx, artist)
	if err != nil {
		return nil, s.HandleError(c, err, "Failed to open artist graph", http.StatusInternalServerError)
	}
	return store, nil
}

// overview returns node counts and the style fingerprint of an artist graph.
func (s *Server) overview(c echo.Context) error {
	store, err := s.openGraph(c, c.Param("artist"))
	if err != nil || store == nil {
		return err
	}
	ov, err := store.Overview(c.Request().Context())
	if err != nil {
		return s.HandleError(c, err, "Failed to read graph overview", 0)
	}
	return c.JSON(http.StatusOK, ov)
}

// storeStats returns size, row counts and pool statistics of an artist graph.
func (s *Server) storeStats(c echo.Context) error {
	store, err := s.openGraph(c, c.Param("artist"))
	if err != nil || store == nil {
		return err
	}
	stats, err := store.Stats(c.Request().Context())
	if err != nil {
		return s.HandleError(c, err, "Failed to read graph statistics", 0)
	}
	return c.JSON(http.StatusOK, stats)
}
