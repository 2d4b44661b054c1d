package api

// Envelope is the uniform response wrapper every endpoint returns. Data is a
// single record, an array of records, or an empty object; TotalData counts
// the records carried in Data.
type Envelope struct {
	Status    bool   `json:"status"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	TotalData int    `json:"totalData"`
}

// PagedEnvelope extends Envelope with the pagination block returned by the
// paginated list endpoints.
type PagedEnvelope struct {
	Envelope
	TotalCount  int `json:"totalCount"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}

// emptyData is the data payload for envelopes that carry no record.
func emptyData() map[string]any { return map[string]any{} }

func ok(message string, data any, totalData int) Envelope {
	return Envelope{Status: true, Message: message, Data: data, TotalData: totalData}
}

func fail(message string) Envelope {
	return Envelope{Status: false, Message: message, Data: emptyData()}
}
