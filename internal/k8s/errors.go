package k8s

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"slices"
	"strings"

	k8serrors "k8s.io/apimachinery/pkg/api/errors"
)

type ErrorKind string

const (
	ErrKubeconfigNotFound ErrorKind = "kubeconfig_not_found"
	ErrKubeconfigInvalid  ErrorKind = "kubeconfig_invalid"
	ErrContextNotFound    ErrorKind = "context_not_found"
	ErrAuthFailed         ErrorKind = "auth_failed"
	ErrForbidden          ErrorKind = "forbidden"
	ErrClusterUnreachable ErrorKind = "cluster_unreachable"
	ErrNodeNotFound       ErrorKind = "node_not_found"
	ErrUnknown            ErrorKind = "unknown"
)

// Node operations reported in APIError.
const (
	OpListNodes = "list"
	OpGetNode   = "get"
)

var kindMessages = map[ErrorKind]string{
	ErrKubeconfigNotFound: "kubeconfig not found",
	ErrKubeconfigInvalid:  "invalid kubeconfig",
	ErrContextNotFound:    "kubeconfig context not found",
	ErrAuthFailed:         "authentication failed",
	ErrForbidden:          "not allowed to read nodes",
	ErrClusterUnreachable: "cluster unreachable",
	ErrNodeNotFound:       "node no longer exists",
}

// ConfigError reports a kubeconfig that could not be resolved or loaded.
type ConfigError struct {
	Kind  ErrorKind
	Paths []string
	Err   error
}

func (e *ConfigError) Error() string {
	msg, ok := kindMessages[e.Kind]
	if !ok {
		msg = "kubeconfig error"
	}
	if len(e.Paths) > 0 {
		msg += " (" + strings.Join(e.Paths, ", ") + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// APIError reports a failed node read against the API server. Node is
// empty for list calls.
type APIError struct {
	Kind ErrorKind
	Op   string
	Node string
	Err  error
}

func (e *APIError) Error() string {
	target := "nodes"
	if e.Node != "" {
		target = "node " + e.Node
	}
	prefix := "kubernetes"
	if e.Op != "" {
		prefix = fmt.Sprintf("kubernetes %s %s", e.Op, target)
	}
	switch e.Kind {
	case ErrAuthFailed, ErrForbidden:
		return prefix + ": " + kindMessages[e.Kind]
	case ErrUnknown, "":
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", prefix, kindMessages[e.Kind], e.Err)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNodeNotFound reports whether err is an API read of a node that has
// been deleted.
func IsNodeNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == ErrNodeNotFound
}

var classifiers = []struct {
	kind  ErrorKind
	match func(error) bool
}{
	{ErrAuthFailed, k8serrors.IsUnauthorized},
	{ErrForbidden, k8serrors.IsForbidden},
	{ErrNodeNotFound, k8serrors.IsNotFound},
	{ErrClusterUnreachable, isUnreachable},
}

func classifyK8sError(op, node string, err error) *APIError {
	if err == nil {
		return nil
	}
	apiErr := &APIError{Kind: ErrUnknown, Op: op, Node: node, Err: err}
	for _, c := range classifiers {
		if c.match(err) {
			apiErr.Kind = c.kind
			break
		}
	}
	return apiErr
}

var unreachableHints = []string{
	"connection refused",
	"no such host",
	"i/o timeout",
	"context deadline exceeded",
}

func isUnreachable(err error) bool {
	if errors.Is(err, net.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return slices.ContainsFunc(unreachableHints, func(hint string) bool {
		return strings.Contains(msg, hint)
	})
}
