package scholar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	searchFields = "title,authors.name,authors.authorId,authors.affiliations"
	authorFields = "name,affiliations,paperCount,citationCount,hIndex"
)

// Paper is the best match of a title search.
type Paper struct {
	ID      string        `json:"paperId"`
	Title   string        `json:"title"`
	Authors []PaperAuthor `json:"authors"`
}

// PaperAuthor is an author entry attached to a search result.
type PaperAuthor struct {
	AuthorID     string   `json:"authorId"`
	Name         string   `json:"name"`
	Affiliations []string `json:"affiliations"`
}

// AuthorIDs returns the non-empty author identifiers in listed order.
func (p *Paper) AuthorIDs() []string {
	ids := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if a.AuthorID != "" {
			ids = append(ids, a.AuthorID)
		}
	}
	return ids
}

// AuthorInfo is an author's profile as returned by the author endpoint.
// Counts are nil when Semantic Scholar did not report them.
type AuthorInfo struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Affiliations  string `json:"affiliations"`
	PaperCount    *int   `json:"paper_count,omitempty"`
	CitationCount *int   `json:"citation_count,omitempty"`
	HIndex        *int   `json:"h_index,omitempty"`
}

type searchResponse struct {
	Total int     `json:"total"`
	Data  []Paper `json:"data"`
}

type authorResponse struct {
	AuthorID      string   `json:"authorId"`
	Name          *string  `json:"name"`
	Affiliations  []string `json:"affiliations"`
	PaperCount    *int     `json:"paperCount"`
	CitationCount *int     `json:"citationCount"`
	HIndex        *int     `json:"hIndex"`
}

// SearchPaper returns the single best match for a free-text title query.
func (c *Client) SearchPaper(ctx context.Context, title string) (*Paper, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("title cannot be empty")
	}

	params := url.Values{}
	params.Set("query", title)
	params.Set("fields", searchFields)
	params.Set("limit", strconv.Itoa(1))

	body, err := c.doGet(ctx, "paper/search", params)
	if err != nil {
		return nil, fmt.Errorf("paper search failed: %w", err)
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing paper search response: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, ErrNoResults
	}
	return &resp.Data[0], nil
}

// Author fetches the profile of a single author.
func (c *Client) Author(ctx context.Context, id string) (*AuthorInfo, error) {
	if id == "" {
		return nil, fmt.Errorf("author ID cannot be empty")
	}

	params := url.Values{}
	params.Set("fields", authorFields)

	body, err := c.doGet(ctx, "author/"+url.PathEscape(id), params)
	if err != nil {
		return nil, fmt.Errorf("author %s: %w", id, err)
	}

	var resp authorResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing author %s: %w", id, err)
	}

	info := &AuthorInfo{
		ID:            id,
		Name:          "N/A",
		Affiliations:  strings.Join(resp.Affiliations, ", "),
		PaperCount:    resp.PaperCount,
		CitationCount: resp.CitationCount,
		HIndex:        resp.HIndex,
	}
	if resp.Name != nil {
		info.Name = *resp.Name
	}
	return info, nil
}

// LookupAuthorsByTitle resolves the authors of the paper best matching title.
// It never fails: search problems yield an empty slice and individual author
// failures drop that author. Results keep the order of the paper's author list.
func (c *Client) LookupAuthorsByTitle(ctx context.Context, title string) []AuthorInfo {
	paper, err := c.SearchPaper(ctx, title)
	if err != nil {
		c.logger.Warn("author lookup: paper search failed", zap.String("title", title), zap.Error(err))
		return nil
	}

	ids := paper.AuthorIDs()
	if len(ids) == 0 {
		c.logger.Debug("author lookup: best match lists no author IDs", zap.String("paper", paper.ID))
		return nil
	}

	found := make([]*AuthorInfo, len(ids))
	if c.concurrency <= 1 {
		for i, id := range ids {
			found[i] = c.authorOrNil(ctx, id)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for i, id := range ids {
			g.Go(func() error {
				found[i] = c.authorOrNil(gctx, id)
				return nil
			})
		}
		_ = g.Wait()
	}

	results := make([]AuthorInfo, 0, len(ids))
	for _, info := range found {
		if info != nil {
			results = append(results, *info)
		}
	}
	return results
}

func (c *Client) authorOrNil(ctx context.Context, id string) *AuthorInfo {
	info, err := c.Author(ctx, id)
	if err != nil {
		c.logger.Warn("author lookup: dropping author", zap.String("author_id", id), zap.Error(err))
		return nil
	}
	return info
}
