package alphavantage

// dailyResponse is the TIME_SERIES_DAILY payload. The API reports errors
// and throttling with HTTP 200 and one of the message fields set.
type dailyResponse struct {
	TimeSeries   map[string]dailyBar `json:"Time Series (Daily)"`
	ErrorMessage string              `json:"Error Message"`
	Note         string              `json:"Note"`
	Information  string              `json:"Information"`
}

type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}
