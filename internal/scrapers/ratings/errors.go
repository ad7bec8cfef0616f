package ratings

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRemoteTransport is wrapped by every error caused by an HTTP failure
	// or a response body that could not be parsed.
	ErrRemoteTransport = errors.New("remote transport error")
	// ErrRemoteSchema is wrapped by every error caused by a response that
	// carried a graphql `errors` list.
	ErrRemoteSchema = errors.New("remote schema error")
	// ErrStopWalk can be returned by a Walk visitor to stop walking without
	// an error.
	ErrStopWalk = errors.New("stop walk")
)

type graphqlErrorEntry struct {
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

// GraphqlError is returned when the remote answered with a graphql errors
// list, it unwraps to ErrRemoteSchema.
type GraphqlError struct {
	Operation string
	Messages  []string
}

func newGraphqlError(operation string, entries []graphqlErrorEntry) *GraphqlError {
	messages := make([]string, len(entries))
	for i, e := range entries {
		messages[i] = e.Message
	}
	return &GraphqlError{Operation: operation, Messages: messages}
}

func (e *GraphqlError) Error() string {
	return fmt.Sprintf("graphql %s: %s", e.Operation, strings.Join(e.Messages, "; "))
}

func (e *GraphqlError) Unwrap() error {
	return ErrRemoteSchema
}

func transportError(operation, step string, err error) error {
	return fmt.Errorf("%w: graphql %s: %s: %w", ErrRemoteTransport, operation, step, err)
}
