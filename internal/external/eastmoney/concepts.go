package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ConceptBoard is one thematic board with its daily aggregate.
type ConceptBoard struct {
	Code          string
	Name          string
	ChangePct     float64
	MainNetInflow float64
	LimitUpCount  int
}

type conceptRow struct {
	Code          string    `json:"f12"`
	Name          string    `json:"f14"`
	ChangePct     flexFloat `json:"f3"`
	MainNetInflow flexFloat `json:"f62"`
	LimitUpCount  flexFloat `json:"f104"`
}

// FetchConceptBoards retrieves the day's concept board list.
func (c *Client) FetchConceptBoards(ctx context.Context) ([]ConceptBoard, error) {
	url := fmt.Sprintf(
		"%s/api/qt/clist/get?pn=1&pz=500&fs=m:90+t:3&fields=f3,f12,f14,f62,f104",
		c.quoteBaseURL,
	)

	var resp listResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch concept boards: %w", err)
	}
	if resp.Data == nil {
		return nil, nil
	}

	boards := make([]ConceptBoard, 0, len(resp.Data.Diff))
	for _, raw := range resp.Data.Diff {
		var row conceptRow
		if err := json.Unmarshal(raw, &row); err != nil {
			c.logger.WithError(err).Warn("Skipping unparsable concept row")
			continue
		}
		if row.Code == "" {
			continue
		}
		boards = append(boards, ConceptBoard{
			Code:          row.Code,
			Name:          row.Name,
			ChangePct:     row.ChangePct.float(),
			MainNetInflow: row.MainNetInflow.float(),
			LimitUpCount:  int(row.LimitUpCount.float()),
		})
	}

	c.logger.WithField("count", len(boards)).Debug("Fetched concept boards")
	return boards, nil
}

// FetchConstituents scrapes the constituent stock codes of one concept
// board from its quote page table.
func (c *Client) FetchConstituents(ctx context.Context, boardCode string) ([]string, error) {
	url := fmt.Sprintf("%s/center/boardlist.html#boards-%s", c.conceptBaseURL, boardCode)

	resp, err := c.httpClient.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch constituents page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d for board %s", resp.StatusCode, boardCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse constituents page: %w", err)
	}

	var codes []string
	seen := make(map[string]struct{})
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		code := strings.TrimSpace(row.Find("td.code, td:nth-child(2)").First().Text())
		if !isStockCode(code) {
			return
		}
		if _, ok := seen[code]; ok {
			return
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	})

	c.logger.WithFields(map[string]interface{}{
		"board": boardCode,
		"count": len(codes),
	}).Debug("Fetched constituents")
	return codes, nil
}

// isStockCode accepts six-digit A-share codes.
func isStockCode(s string) bool {
	if len(s) != 6 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
