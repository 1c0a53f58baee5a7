package pricefeed

import "eps-report/internal/api"

const (
	TWSEURL = "https://openapi.twse.com.tw/v1/exchangeReport/STOCK_DAY_AVG_ALL"
	TPExURL = "https://www.tpex.org.tw/openapi/v1/tpex_mainboard_quotes"
)

// NewTWSE reads the listed-market daily quote list. An empty url uses TWSEURL.
func NewTWSE(client *api.Client, url string) Source {
	if url == "" {
		url = TWSEURL
	}
	return &quoteSource{
		name:       "twse",
		url:        url,
		codeField:  "Code",
		priceField: "ClosingPrice",
		client:     client,
	}
}

// NewTPEx reads the OTC mainboard quote list. An empty url uses TPExURL.
func NewTPEx(client *api.Client, url string) Source {
	if url == "" {
		url = TPExURL
	}
	return &quoteSource{
		name:       "tpex",
		url:        url,
		codeField:  "SecuritiesCompanyCode",
		priceField: "Close",
		client:     client,
	}
}
