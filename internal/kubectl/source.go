package kubectl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	v1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// CommandError reports a failed or unparsable kubectl invocation.
type CommandError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("kubectl %s failed: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Source reads nodes by running kubectl.
type Source struct {
	Binary     string
	Kubeconfig string
	Context    string
}

func (s *Source) ListNodes(ctx context.Context, selector labels.Selector) ([]v1.Node, error) {
	args := []string{"get", "nodes", "-o", "json"}
	if selector != nil && !selector.Empty() {
		args = append(args, "-l", selector.String())
	}
	var list v1.NodeList
	if err := s.run(ctx, args, &list); err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (s *Source) GetNode(ctx context.Context, name string) (*v1.Node, error) {
	var node v1.Node
	if err := s.run(ctx, []string{"get", "node", name, "-o", "json"}, &node); err != nil {
		return nil, err
	}
	return &node, nil
}

func (s *Source) run(ctx context.Context, args []string, out any) error {
	binary := s.Binary
	if binary == "" {
		binary = "kubectl"
	}
	full := make([]string, 0, len(args)+4)
	if s.Kubeconfig != "" {
		full = append(full, "--kubeconfig", s.Kubeconfig)
	}
	if s.Context != "" {
		full = append(full, "--context", s.Context)
	}
	full = append(full, args...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, full...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return &CommandError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	if err := json.Unmarshal(stdout.Bytes(), out); err != nil {
		return &CommandError{Args: args, Err: fmt.Errorf("invalid JSON output: %w", err)}
	}
	return nil
}
