/*
Package server implements the msgpack IPC used by editors and input methods
to talk to revisa.

Messages are msgpack maps streamed back to back over stdin and stdout, with
no extra framing. Every request carries an "id" and an "action"; the response
echoes the id. Diagnostics go to stderr only.

Correct a word as it is typed:

	{"id": "r1", "action": "correct", "w": "voce"}
	{"id": "r1", "o": "voce", "c": "você", "st": "typo", "t": 12}

Correct a whole sentence with "text" instead of "w".

Escalation is asynchronous. The request is acknowledged at once and the
answer arrives later as a frame with an empty id and the caller's context:

	{"id": "r2", "action": "escalate", "text": "eu vou la", "ctx": 42}
	{"id": "r2", "status": "queued"}
	{"id": "", "ctx": 42, "o": "eu vou la", "c": "eu vou lá"}

Other actions:

	{"id": "r3", "action": "add_word", "w": "revisa"}
	{"id": "r4", "action": "complete", "p": "cas", "l": 5}
	{"id": "r5", "action": "variants", "w": "caça"}
	{"id": "r6", "action": "health"}

Failures are reported as {"id": ..., "e": message, "c": code} with HTTP-like
codes: 400 bad request, 429 queue full, 500 internal, 503 unavailable.
*/
package server

// Request is the envelope of every incoming message. Which fields matter
// depends on Action.
type Request struct {
	ID     string `msgpack:"id"`
	Action string `msgpack:"action"`
	Word   string `msgpack:"w,omitempty"`
	Text   string `msgpack:"text,omitempty"`
	Prefix string `msgpack:"p,omitempty"`
	Limit  int    `msgpack:"l,omitempty"`
	// Aggressiveness overrides the server default when set.
	Aggressiveness *int   `msgpack:"agg,omitempty"`
	Context        uint32 `msgpack:"ctx,omitempty"`
}

// CorrectionResponse answers "correct". TimeTaken is in microseconds.
type CorrectionResponse struct {
	ID        string `msgpack:"id"`
	Original  string `msgpack:"o"`
	Corrected string `msgpack:"c"`
	Stage     string `msgpack:"st,omitempty"`
	TimeTaken int64  `msgpack:"t"`
}

// StatusResponse acknowledges "escalate" and "add_word".
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
	Added  *bool  `msgpack:"added,omitempty"`
}

// EscalationResult is pushed when the slow path finishes. ID is always empty.
type EscalationResult struct {
	ID        string `msgpack:"id"`
	Context   uint32 `msgpack:"ctx"`
	Original  string `msgpack:"o"`
	Corrected string `msgpack:"c"`
}

// CompletionSuggestion - minimal suggestion response
type CompletionSuggestion struct {
	Word      string `msgpack:"w"`
	Rank      uint16 `msgpack:"r"`
	Frequency uint32 `msgpack:"f"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"c"`
	TimeTaken   int64                  `msgpack:"t"`
}

// VariantsResponse answers "variants".
type VariantsResponse struct {
	ID       string   `msgpack:"id"`
	Key      string   `msgpack:"k"`
	Variants []string `msgpack:"v"`
	Count    int      `msgpack:"c"`
}

// HealthResponse answers "health" and doubles as the startup banner.
type HealthResponse struct {
	ID        string         `msgpack:"id"`
	Status    string         `msgpack:"status"`
	Inference bool           `msgpack:"inference"`
	Pending   int            `msgpack:"pending"`
	Stats     map[string]int `msgpack:"stats,omitempty"`
}

// ErrorResponse holds basic error information for a failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}

const (
	CodeBadRequest  = 400
	CodeQueueFull   = 429
	CodeInternal    = 500
	CodeUnavailable = 503
)
