package model

// ImportReport is the outcome of importing one CSV file. It is returned as JSON by the import
// endpoint of the API and printed by the command line client.
//
// Committed is false when the whole batch was rolled back because of a file-level error. The
// counters then still describe what the rows would have done, so they must not be presented as
// persisted changes.
type ImportReport struct {
	Total     int      `json:"total"`
	Imported  int      `json:"imported"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Errors    []string `json:"errors"`
	Committed bool     `json:"committed"`
}

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}
