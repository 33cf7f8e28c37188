package requests

import (
	"time"

	"github.com/birbparty/flat-client/sdk"
)

// HistoryOrder sorts RTM history queries.
type HistoryOrder string

const (
	OrderDesc HistoryOrder = "desc"
	OrderAsc  HistoryOrder = "asc"
)

// HistoryFilter restricts a history query to one channel and a time window.
type HistoryFilter struct {
	Destination string    `json:"destination"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// HistoryMessageSource creates an RTM history query. The response is the
// location of the query resource, read with HistoryMessages.
type HistoryMessageSource struct {
	sdk.Agora
	sdk.Returns[string]

	AppID  string        `json:"-"`
	Filter HistoryFilter `json:"filter"`
	Offset int           `json:"offset"`
	Limit  int           `json:"limit"`
	Order  HistoryOrder  `json:"order"`
}

// NewHistoryMessageSource queries the newest 100 messages of a channel.
func NewHistoryMessageSource(appID, channel string, start, end time.Time) HistoryMessageSource {
	return HistoryMessageSource{
		AppID:  appID,
		Filter: HistoryFilter{Destination: channel, StartTime: start, EndTime: end},
		Limit:  100,
		Order:  OrderDesc,
	}
}

// Path implements sdk.Request
func (r HistoryMessageSource) Path() string {
	return "/dev/v2/project/" + r.AppID + "/rtm/message/history/query"
}

// Task implements sdk.Request
func (r HistoryMessageSource) Task() sdk.Task { return sdk.JSONTask(r) }

// Decoder implements sdk.DecoderOverrider
func (HistoryMessageSource) Decoder() sdk.Decoder {
	return sdk.NewDecoder("location", sdk.DateISO8601)
}

// HistoryMessage is one RTM message. Ms is sent as epoch milliseconds.
type HistoryMessage struct {
	Src         string    `json:"src"`
	Dst         string    `json:"dst"`
	MessageType string    `json:"message_type"`
	Payload     string    `json:"payload"`
	Ms          time.Time `json:"ms"`
}

// HistoryMessages reads the result of a history query created with
// HistoryMessageSource. Location is the value that request returned.
type HistoryMessages struct {
	sdk.Agora
	sdk.Returns[[]HistoryMessage]

	Location string
}

// Path implements sdk.Request
func (r HistoryMessages) Path() string {
	// location is an absolute path on the Agora host
	return r.Location
}

// Method implements sdk.MethodOverrider
func (HistoryMessages) Method() sdk.Method { return sdk.MethodGet }

// Task implements sdk.Request
func (HistoryMessages) Task() sdk.Task { return sdk.PlainTask() }

// Decoder implements sdk.DecoderOverrider
func (HistoryMessages) Decoder() sdk.Decoder {
	return sdk.NewDecoder("messages", sdk.DateMillis)
}
