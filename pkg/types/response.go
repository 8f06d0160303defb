package types

// SuccessEnvelope wraps every 2xx JSON body. The storefront client unwraps
// the data key unconditionally.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a coded failure. Code matches the
// pkg/errors code strings.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
