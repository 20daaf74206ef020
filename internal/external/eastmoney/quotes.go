package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
)

// Quote is one stock's raw end-of-day quote from the list endpoint.
type Quote struct {
	Code         string
	Name         string
	Close        float64
	Open         float64
	High         float64
	Low          float64
	PrevClose    float64
	ChangePct    float64
	Volume       int64 // lots of 100 shares
	Amount       float64
	TurnoverRate float64
	VolumeRatio  float64
}

// quoteRow maps the push2 field codes used by the quote list.
type quoteRow struct {
	Code         string    `json:"f12"`
	Name         string    `json:"f14"`
	Close        flexFloat `json:"f2"`
	ChangePct    flexFloat `json:"f3"`
	Volume       flexFloat `json:"f5"`
	Amount       flexFloat `json:"f6"`
	TurnoverRate flexFloat `json:"f8"`
	VolumeRatio  flexFloat `json:"f10"`
	High         flexFloat `json:"f15"`
	Low          flexFloat `json:"f16"`
	Open         flexFloat `json:"f17"`
	PrevClose    flexFloat `json:"f18"`
}

// FetchQuotes pages through the full A-share quote list.
func (c *Client) FetchQuotes(ctx context.Context) ([]Quote, error) {
	const pageSize = 200

	var quotes []Quote
	for page := 1; ; page++ {
		url := fmt.Sprintf(
			"%s/api/qt/clist/get?pn=%d&pz=%d&fs=m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23&fields=f2,f3,f5,f6,f8,f10,f12,f14,f15,f16,f17,f18",
			c.quoteBaseURL, page, pageSize,
		)

		var resp listResponse
		if err := c.getJSON(ctx, url, &resp); err != nil {
			return nil, fmt.Errorf("fetch quote page %d: %w", page, err)
		}
		if resp.Data == nil || len(resp.Data.Diff) == 0 {
			break
		}

		for _, raw := range resp.Data.Diff {
			var row quoteRow
			if err := json.Unmarshal(raw, &row); err != nil {
				c.logger.WithError(err).Warn("Skipping unparsable quote row")
				continue
			}
			if row.Code == "" {
				continue
			}
			quotes = append(quotes, Quote{
				Code:         row.Code,
				Name:         row.Name,
				Close:        row.Close.float(),
				Open:         row.Open.float(),
				High:         row.High.float(),
				Low:          row.Low.float(),
				PrevClose:    row.PrevClose.float(),
				ChangePct:    row.ChangePct.float(),
				Volume:       int64(row.Volume.float()),
				Amount:       row.Amount.float(),
				TurnoverRate: row.TurnoverRate.float(),
				VolumeRatio:  row.VolumeRatio.float(),
			})
		}

		if len(quotes) >= resp.Data.Total || len(resp.Data.Diff) < pageSize {
			break
		}
	}

	c.logger.WithField("count", len(quotes)).Debug("Fetched quotes")
	return quotes, nil
}

// MoneyFlow is one stock's daily net inflow by order-size tier.
type MoneyFlow struct {
	Code           string
	MainNet        float64
	SuperLargeNet  float64
	LargeNet       float64
	MediumNet      float64
	SmallNet       float64
}

type moneyFlowRow struct {
	Code          string    `json:"f12"`
	MainNet       flexFloat `json:"f62"`
	SuperLargeNet flexFloat `json:"f66"`
	LargeNet      flexFloat `json:"f72"`
	MediumNet     flexFloat `json:"f78"`
	SmallNet      flexFloat `json:"f84"`
}

// FetchMoneyFlow pages through the full-market money-flow ranking.
func (c *Client) FetchMoneyFlow(ctx context.Context) ([]MoneyFlow, error) {
	const pageSize = 200

	var flows []MoneyFlow
	for page := 1; ; page++ {
		url := fmt.Sprintf(
			"%s/api/qt/clist/get?pn=%d&pz=%d&fs=m:0+t:6,m:0+t:80,m:1+t:2,m:1+t:23&fields=f12,f62,f66,f72,f78,f84",
			c.quoteBaseURL, page, pageSize,
		)

		var resp listResponse
		if err := c.getJSON(ctx, url, &resp); err != nil {
			return nil, fmt.Errorf("fetch money flow page %d: %w", page, err)
		}
		if resp.Data == nil || len(resp.Data.Diff) == 0 {
			break
		}

		for _, raw := range resp.Data.Diff {
			var row moneyFlowRow
			if err := json.Unmarshal(raw, &row); err != nil {
				c.logger.WithError(err).Warn("Skipping unparsable money-flow row")
				continue
			}
			if row.Code == "" {
				continue
			}
			flows = append(flows, MoneyFlow{
				Code:          row.Code,
				MainNet:       row.MainNet.float(),
				SuperLargeNet: row.SuperLargeNet.float(),
				LargeNet:      row.LargeNet.float(),
				MediumNet:     row.MediumNet.float(),
				SmallNet:      row.SmallNet.float(),
			})
		}

		if len(flows) >= resp.Data.Total || len(resp.Data.Diff) < pageSize {
			break
		}
	}

	c.logger.WithField("count", len(flows)).Debug("Fetched money flow")
	return flows, nil
}
