package commands

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/brandon/mailbox-adapter/internal/adapter"
)

// Request is one command of a batch stream
type Request struct {
	ID      interface{}            `json:"id,omitempty"`
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response answers one Request. Exactly one of Result and Error is set.
type Response struct {
	ID     interface{}    `json:"id,omitempty"`
	Result interface{}    `json:"result,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError describes a failed command
type ResponseError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Batch runs a stream of JSON requests against a registry
type Batch struct {
	registry *Registry
	logger   *logrus.Logger
}

// NewBatch creates a batch runner over registry
func NewBatch(registry *Registry, logger *logrus.Logger) *Batch {
	if logger == nil {
		logger = logrus.New()
	}
	return &Batch{registry: registry, logger: logger}
}

// Run reads requests from r until EOF or ctx is done and writes one response
// per request to w
func (b *Batch) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	decoder := json.NewDecoder(r)
	encoder := json.NewEncoder(w)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		var req Request
		if err := decoder.Decode(&req); err != nil {
			if err == io.EOF {
				return nil
			}
			b.logger.WithError(err).Error("Failed to decode request")
			return err
		}

		resp := b.handle(req)
		if err := encoder.Encode(resp); err != nil {
			b.logger.WithError(err).Error("Failed to encode response")
			return err
		}
	}
}

func (b *Batch) handle(req Request) Response {
	result, err := b.registry.Execute(req.Command, req.Params)
	if err != nil {
		b.logger.WithError(err).WithField("command", req.Command).Warn("Command failed")
		return Response{ID: req.ID, Error: responseError(err)}
	}
	return Response{ID: req.ID, Result: result}
}

// responseError reports the adapter error kind, or "command" for errors
// raised before reaching the adapter
func responseError(err error) *ResponseError {
	kind := "command"
	var ae *adapter.Error
	if errors.As(err, &ae) {
		kind = ae.Kind.String()
	}
	return &ResponseError{Kind: kind, Message: err.Error()}
}
