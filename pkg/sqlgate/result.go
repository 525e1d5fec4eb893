package sqlgate

import (
	"encoding/json"
)

// ExecMessage is the message reported for successful mutating statements.
const ExecMessage = "Query executed successfully"

// Kind identifies the shape of a Result.
type Kind int

const (
	// KindError is a rejected or failed statement.
	KindError Kind = iota
	// KindRows is a successful SELECT.
	KindRows
	// KindExec is a successful INSERT, UPDATE or DELETE.
	KindExec
)

// Result is the envelope returned for every statement passed to the gate.
// It encodes as one of:
//
//	{"success": true, "data": [...], "row_count": n, "query": "..."}
//	{"success": true, "message": "...", "affected_rows": n, "query": "..."}
//	{"error": "..."}
type Result struct {
	Kind         Kind
	Data         []Row
	AffectedRows int64
	Query        string
	Error        string
}

// OK reports whether the statement executed successfully.
func (r Result) OK() bool {
	return r.Kind != KindError
}

// ErrorResult builds a failed envelope.
func ErrorResult(message string) Result {
	return Result{Kind: KindError, Error: message}
}

type rowsEnvelope struct {
	Success  bool   `json:"success"`
	Data     []Row  `json:"data"`
	RowCount int    `json:"row_count"`
	Query    string `json:"query"`
}

type execEnvelope struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	AffectedRows int64  `json:"affected_rows"`
	Query        string `json:"query"`
}

type errorEnvelope struct {
	Error string `json:"error"`
}

// MarshalJSON implements json.Marshaler for Result.
func (r Result) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case KindRows:
		data := r.Data
		if data == nil {
			data = []Row{}
		}
		return json.Marshal(rowsEnvelope{
			Success:  true,
			Data:     data,
			RowCount: len(data),
			Query:    r.Query,
		})
	case KindExec:
		return json.Marshal(execEnvelope{
			Success:      true,
			Message:      ExecMessage,
			AffectedRows: r.AffectedRows,
			Query:        r.Query,
		})
	default:
		return json.Marshal(errorEnvelope{Error: r.Error})
	}
}
