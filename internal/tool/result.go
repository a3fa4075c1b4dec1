package tool

import "encoding/json"

// Result is the envelope every tool returns to the model. Failures
// ride inside the envelope; the Handler error return is reserved for
// infrastructure problems.
type Result struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(data interface{}, message string) (string, error) {
	return marshalResult(Result{Success: true, Data: data, Message: message})
}

func fail(errMsg string) (string, error) {
	return marshalResult(Result{Success: false, Error: errMsg})
}

func marshalResult(r Result) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
