package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gwi.com/photo-search-assistant/internal/config"
	"gwi.com/photo-search-assistant/internal/store"
)

const (
	PageSize         = 32
	PlaceholderImage = "/placeholder.svg?height=300&width=300"

	catalogItemType     = "photos"
	catalogLanguage     = "en"
	catalogUserAgent    = "Photo-Search-Assistant/1.0"
	maxCatalogBodyBytes = 8 << 20
)

var subcategoryTags = map[string]string{
	"business":   "business",
	"people":     "people",
	"nature":     "nature",
	"technology": "technology",
	"lifestyle":  "lifestyle",
}

type SearchConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	AuthUser     string
	AuthPassword string
	Timeout      time.Duration
}

// SearchConfigFromApp reads the catalog settings from config.AppConfig.
func SearchConfigFromApp() SearchConfig {
	return SearchConfig{
		Endpoint:     config.AppConfig.CatalogEndpoint,
		ClientID:     config.AppConfig.CatalogClientID,
		ClientSecret: config.AppConfig.CatalogClientSecret,
		AuthUser:     config.AppConfig.CatalogAuthUser,
		AuthPassword: config.AppConfig.CatalogAuthPassword,
		Timeout:      time.Duration(config.AppConfig.SearchTimeoutSeconds) * time.Second,
	}
}

type SearchResponse struct {
	Results     []store.SearchResult `json:"results"`
	Total       int                  `json:"total"`
	Page        int                  `json:"page"`
	HasMore     bool                 `json:"hasMore"`
	Placeholder bool                 `json:"-"`
}

// SearchService queries the external catalog. It never fails: every error
// path returns placeholder results built from the query.
type SearchService struct {
	cfg        SearchConfig
	httpClient *http.Client
}

func NewSearchService(cfg SearchConfig) *SearchService {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SearchService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (s *SearchService) Search(ctx context.Context, query string, filters store.FilterSet, page int) SearchResponse {
	if page < 1 {
		page = 1
	}
	logger := config.Logger.WithFields(logrus.Fields{
		"query": query,
		"page":  page,
	})

	if s.cfg.Endpoint == "" {
		logger.Debug("No catalog endpoint configured, using placeholder results")
		return placeholderResponse(query, page)
	}

	req, err := s.buildRequest(ctx, query, filters, page)
	if err != nil {
		logger.WithError(err).Warn("Could not build catalog request, using placeholder results")
		return placeholderResponse(query, page)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.WithError(err).Warn("Catalog request failed, using placeholder results")
		return placeholderResponse(query, page)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBodyBytes))
	if err != nil {
		logger.WithError(err).Warn("Could not read catalog response, using placeholder results")
		return placeholderResponse(query, page)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   truncate(string(body), 200),
		}).Warn("Catalog returned an error status, using placeholder results")
		return placeholderResponse(query, page)
	}

	env, err := decodeEnvelope(body)
	if err != nil {
		logger.WithError(err).Warn("Could not decode catalog response, using placeholder results")
		return placeholderResponse(query, page)
	}
	results := env.results()
	if len(results) == 0 {
		logger.WithField("envelope", env.kind).Info("Catalog returned no results, using placeholder results")
		return placeholderResponse(query, page)
	}

	total := env.total
	if total <= 0 {
		total = len(results)
	}
	logger.WithFields(logrus.Fields{
		"results":  len(results),
		"total":    total,
		"envelope": env.kind,
		"duration": time.Since(start).String(),
	}).Info("Catalog search complete")

	return SearchResponse{
		Results: results,
		Total:   total,
		Page:    page,
		HasMore: len(results) == PageSize,
	}
}

func (s *SearchService) buildRequest(ctx context.Context, query string, filters store.FilterSet, page int) (*http.Request, error) {
	endpoint, err := url.Parse(s.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog endpoint: %w", err)
	}

	params := endpoint.Query()
	params.Set("term", query)
	params.Set("item_type", catalogItemType)
	params.Set("page_size", strconv.Itoa(PageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("language_code", catalogLanguage)

	if filters.Active(store.FilterOrientation) {
		params.Set("orientation", filters.Get(store.FilterOrientation))
	}
	if filters.Active(store.FilterSubcategory) {
		if tag, ok := subcategoryTags[strings.ToLower(filters.Get(store.FilterSubcategory))]; ok {
			params.Set("tags", tag)
		}
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", catalogUserAgent)
	if s.cfg.ClientID != "" && s.cfg.ClientSecret != "" {
		req.Header.Set("CF-Access-Client-Id", s.cfg.ClientID)
		req.Header.Set("CF-Access-Client-Secret", s.cfg.ClientSecret)
	}
	if s.cfg.AuthUser != "" && s.cfg.AuthPassword != "" {
		req.SetBasicAuth(s.cfg.AuthUser, s.cfg.AuthPassword)
	}
	return req, nil
}

// PlaceholderResults is the fixed result page shown when the catalog cannot answer.
func PlaceholderResults(query string) []store.SearchResult {
	variants := []struct{ prefix, suffix, author string }{
		{"Beautiful", "Photo", "Stock Photographer"},
		{"Stunning", "Image", "Professional Photographer"},
		{"Amazing", "Shot", "Creative Artist"},
		{"Perfect", "Capture", "Visual Creator"},
	}

	results := make([]store.SearchResult, 0, len(variants))
	for i, v := range variants {
		results = append(results, store.SearchResult{
			ID:       fmt.Sprintf("placeholder-%d", i+1),
			ImageURL: PlaceholderImage,
			AltText:  fmt.Sprintf("%s - Photo %d", query, i+1),
			Title:    fmt.Sprintf("%s %s %s", v.prefix, query, v.suffix),
			Author:   v.author,
			Tags:     strings.Fields(query),
		})
	}
	return results
}

func placeholderResponse(query string, page int) SearchResponse {
	results := PlaceholderResults(query)
	return SearchResponse{
		Results:     results,
		Total:       len(results),
		Page:        page,
		HasMore:     false,
		Placeholder: true,
	}
}

type envelopeKind string

const (
	envelopeDataItems envelopeKind = "data.items"
	envelopeItems     envelopeKind = "items"
	envelopeArray     envelopeKind = "array"
)

// catalogEnvelope is one of the three response shapes the catalog is known
// to return, detected in the order data.items, items, bare array.
type catalogEnvelope struct {
	kind  envelopeKind
	items []json.RawMessage
	total int
}

type objectEnvelope struct {
	Data      json.RawMessage   `json:"data"`
	Items     []json.RawMessage `json:"items"`
	TotalHits *float64          `json:"total_hits"`
	Total     *float64          `json:"total"`
}

type nestedData struct {
	Items     []json.RawMessage `json:"items"`
	TotalHits *float64          `json:"total_hits"`
}

func decodeEnvelope(body []byte) (catalogEnvelope, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return catalogEnvelope{}, fmt.Errorf("failed to decode array envelope: %w", err)
		}
		return catalogEnvelope{kind: envelopeArray, items: items}, nil
	}

	var obj objectEnvelope
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return catalogEnvelope{}, fmt.Errorf("failed to decode catalog envelope: %w", err)
	}

	total := firstPositive(obj.TotalHits, obj.Total)

	var data nestedData
	if len(obj.Data) > 0 && json.Unmarshal(obj.Data, &data) == nil && data.Items != nil {
		return catalogEnvelope{
			kind:  envelopeDataItems,
			items: data.Items,
			total: firstPositive(data.TotalHits, obj.TotalHits, obj.Total),
		}, nil
	}
	if obj.Items != nil {
		return catalogEnvelope{kind: envelopeItems, items: obj.Items, total: total}, nil
	}
	return catalogEnvelope{}, fmt.Errorf("unrecognized catalog response shape")
}

// catalogItem fields are loosely typed so one mistyped field only loses that
// field, not the item.
type catalogItem struct {
	ID                  any `json:"id"`
	HumaneID            any `json:"humane_id"`
	Title               any `json:"title"`
	Name                any `json:"name"`
	CoverImageURLs      any `json:"cover_image_urls"`
	ThumbnailURL        any `json:"thumbnail_url"`
	PreviewURL          any `json:"preview_url"`
	Thumbnail           any `json:"thumbnail"`
	Preview             any `json:"preview"`
	ImageURL            any `json:"image_url"`
	ContributorUsername any `json:"contributor_username"`
	Author              any `json:"author"`
	Username            any `json:"username"`
	ItemPageURL         any `json:"item_page_url"`
	URL                 any `json:"url"`
	Link                any `json:"link"`
	Tags                any `json:"tags"`
}

func (e catalogEnvelope) results() []store.SearchResult {
	results := make([]store.SearchResult, 0, len(e.items))
	for _, raw := range e.items {
		var item catalogItem
		if err := json.Unmarshal(raw, &item); err != nil {
			config.Logger.WithError(err).Debug("Skipping catalog item that is not an object")
			continue
		}
		if e.kind == envelopeDataItems {
			results = append(results, item.fromDataItems())
		} else {
			results = append(results, item.fromFlatItems())
		}
	}
	return results
}

func (item catalogItem) fromDataItems() store.SearchResult {
	title := textValue(item.Title)
	return store.SearchResult{
		ID:        firstNonEmpty(textValue(item.HumaneID), textValue(item.ID), uuid.NewString()),
		ImageURL:  firstNonEmpty(widestCover(item.CoverImageURLs), textValue(item.ThumbnailURL), textValue(item.PreviewURL), PlaceholderImage),
		AltText:   firstNonEmpty(title, "Catalog photo"),
		Title:     firstNonEmpty(title, "Untitled"),
		Author:    firstNonEmpty(textValue(item.ContributorUsername), textValue(item.Author), "Unknown"),
		SourceURL: firstNonEmpty(textValue(item.ItemPageURL), textValue(item.URL)),
		Tags:      stringTags(item.Tags),
	}
}

func (item catalogItem) fromFlatItems() store.SearchResult {
	title := firstNonEmpty(textValue(item.Title), textValue(item.Name))
	return store.SearchResult{
		ID:        firstNonEmpty(textValue(item.ID), uuid.NewString()),
		ImageURL:  firstNonEmpty(textValue(item.Thumbnail), textValue(item.Preview), textValue(item.ImageURL), PlaceholderImage),
		AltText:   firstNonEmpty(title, "Catalog photo"),
		Title:     firstNonEmpty(title, "Untitled"),
		Author:    firstNonEmpty(textValue(item.Author), textValue(item.Username), "Unknown"),
		SourceURL: firstNonEmpty(textValue(item.URL), textValue(item.Link)),
		Tags:      stringTags(item.Tags),
	}
}

// widestCover picks the widest "w<pixels>" entry, e.g. w400 over w300.
// Anything other than an object of URLs yields "".
func widestCover(raw any) string {
	urls, ok := raw.(map[string]any)
	if !ok {
		return ""
	}
	type sized struct {
		width int
		url   string
	}
	var sizes []sized
	for key, v := range urls {
		u, ok := v.(string)
		if !ok || u == "" || !strings.HasPrefix(key, "w") {
			continue
		}
		width, err := strconv.Atoi(key[1:])
		if err != nil {
			continue
		}
		sizes = append(sizes, sized{width, u})
	}
	if len(sizes) == 0 {
		return ""
	}
	sort.Slice(sizes, func(i, j int) bool { return sizes[i].width > sizes[j].width })
	return sizes[0].url
}

// textValue renders JSON strings and numbers as text; anything else gives "".
func textValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return ""
}

// stringTags accepts a list of tags or a single comma-separated string.
func stringTags(raw any) []string {
	tags := []string{}
	switch val := raw.(type) {
	case []any:
		for _, t := range val {
			if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
				tags = append(tags, s)
			}
		}
	case string:
		for _, s := range strings.Split(val, ",") {
			if s = strings.TrimSpace(s); s != "" {
				tags = append(tags, s)
			}
		}
	}
	return tags
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...*float64) int {
	for _, v := range values {
		if v != nil && *v > 0 {
			return int(*v)
		}
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
