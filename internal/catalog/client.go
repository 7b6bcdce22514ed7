// Package catalog talks to the AniList GraphQL API and to Kitsu for cover
// images.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mangashelf/apiserver/config"
	"github.com/mangashelf/apiserver/internal/library"
	"github.com/mangashelf/apiserver/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PageSize is the fixed number of media per catalog page.
const PageSize = 24

// enrichLimit bounds concurrent image lookups per request.
const enrichLimit = 8

const (
	defaultTimeout      = 10 * time.Second
	defaultImageTimeout = 3 * time.Second
)

// ErrUpstream reports a failed or rejected catalog call.
var ErrUpstream = errors.New("catalog unavailable")

const (
	sortTrending   = "TRENDING_DESC"
	sortPopularity = "POPULARITY_DESC"
	sortNewest     = "ID_DESC"
	sortUpdated    = "UPDATED_AT_DESC"
	statusReleases = "RELEASING"
)

// Client is safe for concurrent use.
type Client struct {
	graphql    *resty.Client
	images     *resty.Client
	anilistURL string
	kitsuURL   string
	log        *zap.Logger
}

// New builds a client. The image lookup client gets its own, shorter
// timeout.
func New(cfg config.CatalogConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.ImageLookupTimeout <= 0 {
		cfg.ImageLookupTimeout = defaultImageTimeout
	}
	graphql := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(zapLogger{log.Sugar()})
	images := resty.New().
		SetTimeout(cfg.ImageLookupTimeout).
		SetHeader("Accept", "application/vnd.api+json").
		SetLogger(zapLogger{log.Sugar()})

	return &Client{
		graphql:    graphql,
		images:     images,
		anilistURL: strings.TrimRight(cfg.AniListURL, "/"),
		kitsuURL:   strings.TrimRight(cfg.KitsuURL, "/"),
		log:        log,
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []graphQLError `json:"errors"`
}

func query[T any](ctx context.Context, c *Client, q string, vars map[string]any) (T, error) {
	var out graphQLResponse[T]
	resp, err := c.graphql.R().
		SetContext(ctx).
		SetBody(graphQLRequest{Query: q, Variables: vars}).
		SetResult(&out).
		SetError(&out).
		Post(c.anilistURL)
	if err != nil {
		return out.Data, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if len(out.Errors) > 0 {
		return out.Data, fmt.Errorf("%w: %s", ErrUpstream, out.Errors[0].Message)
	}
	if resp.IsError() {
		return out.Data, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode())
	}
	return out.Data, nil
}

type pageData struct {
	Page struct {
		PageInfo struct {
			CurrentPage int  `json:"currentPage"`
			HasNextPage bool `json:"hasNextPage"`
		} `json:"pageInfo"`
		Media []Media `json:"media"`
	} `json:"Page"`
}

func (c *Client) page(ctx context.Context, page int, sort, status, search string) (Page, error) {
	if page < 1 {
		page = 1
	}
	vars := map[string]any{
		"page":    page,
		"perPage": PageSize,
		"sort":    []string{sort},
	}
	if status != "" {
		vars["status"] = status
	}
	if search != "" {
		vars["search"] = search
	}

	data, err := query[pageData](ctx, c, pageQuery, vars)
	if err != nil {
		return Page{}, err
	}
	return Page{
		Page:        data.Page.PageInfo.CurrentPage,
		HasNextPage: data.Page.PageInfo.HasNextPage,
		Items:       c.Enrich(ctx, data.Page.Media),
	}, nil
}

func (c *Client) Trending(ctx context.Context, page int) (Page, error) {
	return c.page(ctx, page, sortTrending, "", "")
}

func (c *Client) Popular(ctx context.Context, page int) (Page, error) {
	return c.page(ctx, page, sortPopularity, "", "")
}

func (c *Client) NewlyAdded(ctx context.Context, page int) (Page, error) {
	return c.page(ctx, page, sortNewest, "", "")
}

// RecentlyUpdated lists releasing manga by last update.
func (c *Client) RecentlyUpdated(ctx context.Context, page int) (Page, error) {
	return c.page(ctx, page, sortUpdated, statusReleases, "")
}

// Search matches titles, most popular first.
func (c *Client) Search(ctx context.Context, term string, page int) (Page, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return Page{Page: 1, Items: []Manga{}}, nil
	}
	return c.page(ctx, page, sortPopularity, "", term)
}

// PopularMedia returns the raw records of one popularity page, without image
// lookups.
func (c *Client) PopularMedia(ctx context.Context, page int) ([]Media, bool, error) {
	if page < 1 {
		page = 1
	}
	data, err := query[pageData](ctx, c, pageQuery, map[string]any{
		"page":    page,
		"perPage": PageSize,
		"sort":    []string{sortPopularity},
	})
	if err != nil {
		return nil, false, err
	}
	return data.Page.Media, data.Page.PageInfo.HasNextPage, nil
}

type listCollection struct {
	Lists []struct {
		Entries []struct {
			Progress *int  `json:"progress"`
			Media    Media `json:"media"`
		} `json:"entries"`
	} `json:"lists"`
}

type userListData struct {
	Reading    *listCollection `json:"reading"`
	Completed  *listCollection `json:"completed"`
	PlanToRead *listCollection `json:"planToRead"`
	Dropped    *listCollection `json:"dropped"`
	Paused     *listCollection `json:"paused"`
}

// UserList loads a catalog user's manga list grouped into buckets.
func (c *Client) UserList(ctx context.Context, userID int) (library.Buckets, error) {
	data, err := query[userListData](ctx, c, userListQuery, map[string]any{"userId": userID})
	if err != nil {
		return library.Buckets{}, err
	}

	buckets := library.NewBuckets()
	collections := []struct {
		status     string
		collection *listCollection
	}{
		{types.RemoteStatusCurrent, data.Reading},
		{types.RemoteStatusCompleted, data.Completed},
		{types.RemoteStatusPlanning, data.PlanToRead},
		{types.RemoteStatusDropped, data.Dropped},
		{types.RemoteStatusPaused, data.Paused},
	}
	for _, item := range collections {
		if item.collection == nil {
			continue
		}
		bucket, _ := types.RemoteBucket(item.status)
		for _, list := range item.collection.Lists {
			for _, e := range list.Entries {
				buckets.Add(bucket, libraryEntry(e.Media, item.status, e.Progress))
			}
		}
	}
	return buckets, nil
}

type kitsuResponse struct {
	Data []struct {
		Attributes struct {
			PosterImage *struct {
				Original string `json:"original"`
			} `json:"posterImage"`
		} `json:"attributes"`
	} `json:"data"`
}

// LookupImage searches Kitsu for a poster matching title.
func (c *Client) LookupImage(ctx context.Context, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", errors.New("empty title")
	}
	var out kitsuResponse
	resp, err := c.images.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"filter[text]": title,
			"page[limit]":  "1",
		}).
		SetResult(&out).
		Get(c.kitsuURL + "/manga")
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("kitsu status %d", resp.StatusCode())
	}
	if len(out.Data) == 0 || out.Data[0].Attributes.PosterImage == nil || out.Data[0].Attributes.PosterImage.Original == "" {
		return "", errors.New("no poster image")
	}
	return out.Data[0].Attributes.PosterImage.Original, nil
}

// Cover resolves the image shown for m. Lookup failures fall back to the
// catalog cover and are only logged.
func (c *Client) Cover(ctx context.Context, m Media) string {
	image, err := c.LookupImage(ctx, m.Title.Display())
	if err != nil {
		c.log.Debug("image lookup failed", zap.Int("media_id", m.ID), zap.Error(err))
		return m.CoverImage.Fallback()
	}
	return image
}

// Enrich resolves covers for items in parallel. The result keeps the input
// order.
func (c *Client) Enrich(ctx context.Context, items []Media) []Manga {
	out := make([]Manga, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichLimit)
	for i, m := range items {
		g.Go(func() error {
			out[i] = newManga(m, c.Cover(gctx, m))
			return nil
		})
	}
	_ = g.Wait()
	return out
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, v ...any) { l.s.Errorf(format, v...) }
func (l zapLogger) Warnf(format string, v ...any)  { l.s.Warnf(format, v...) }
func (l zapLogger) Debugf(format string, v ...any) { l.s.Debugf(format, v...) }

var _ library.RemoteSource = (*Client)(nil)
