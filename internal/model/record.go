package model

// RawLine is one unit of input text before parsing.
type RawLine struct {
	Text   string `json:"text"`
	Source string `json:"source"` // originating file path, "-" for stdin
	Number int    `json:"number"` // 1-based line number within Source
}

// Record is the structured result of a line that matched the access-log pattern.
type Record struct {
	ClientAddress string `json:"client_address"`
	StatusCode    string `json:"status_code"` // kept as text, never normalized
}
