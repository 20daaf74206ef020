package eastmoney

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IndexBar is one daily bar of a market index.
type IndexBar struct {
	Date  time.Time
	Open  float64
	Close float64
	High  float64
	Low   float64
}

type klineResponse struct {
	Data *struct {
		Klines []string `json:"klines"`
	} `json:"data"`
}

// FetchIndexBars retrieves the most recent daily bars for an index
// secid such as "1.000001" (Shanghai Composite). Bars are returned in
// ascending date order.
func (c *Client) FetchIndexBars(ctx context.Context, secid string, limit int) ([]IndexBar, error) {
	url := fmt.Sprintf(
		"%s/api/qt/stock/kline/get?secid=%s&klt=101&fqt=1&lmt=%d&end=20500101&fields1=f1,f2,f3&fields2=f51,f52,f53,f54,f55",
		c.quoteBaseURL, secid, limit,
	)

	var resp klineResponse
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch index klines: %w", err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("empty kline response for %s", secid)
	}

	bars := make([]IndexBar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		bar, err := parseKline(line)
		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"secid": secid,
				"line":  line,
			}).Warn("Skipping unparsable kline")
			continue
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

// parseKline splits a "date,open,close,high,low" kline string.
func parseKline(line string) (IndexBar, error) {
	parts := strings.Split(line, ",")
	if len(parts) < 5 {
		return IndexBar{}, fmt.Errorf("malformed kline: %q", line)
	}

	date, err := time.Parse("2006-01-02", parts[0])
	if err != nil {
		return IndexBar{}, fmt.Errorf("kline date: %w", err)
	}

	vals := make([]float64, 4)
	for i, raw := range parts[1:5] {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return IndexBar{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		vals[i] = v
	}

	return IndexBar{
		Date:  date,
		Open:  vals[0],
		Close: vals[1],
		High:  vals[2],
		Low:   vals[3],
	}, nil
}
