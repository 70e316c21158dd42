package k8s

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-homedir"
	"k8s.io/client-go/tools/clientcmd"
)

// KubeconfigInfo describes where the kubeconfig came from.
type KubeconfigInfo struct {
	Source  string
	Paths   []string
	Context string
}

// KeysAndValues returns the info as logr key/value pairs.
func (i KubeconfigInfo) KeysAndValues() []any {
	paths := strings.Join(i.Paths, string(os.PathListSeparator))
	if paths == "" {
		paths = "(none)"
	}
	return []any{"source", i.Source, "paths", paths, "context", i.Context}
}

// ResolveKubeconfig picks the kubeconfig from the explicit path, then
// KUBECONFIG, then the client-go default location.
func ResolveKubeconfig(explicitPath, contextOverride string) (clientcmd.ClientConfig, KubeconfigInfo, error) {
	info := KubeconfigInfo{}
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	paths := []string{}

	switch {
	case explicitPath != "":
		info.Source = "flag"
		paths = []string{expandPath(explicitPath)}
		rules.ExplicitPath = paths[0]
	case os.Getenv("KUBECONFIG") != "":
		info.Source = "env"
		paths = expandPaths(filepath.SplitList(os.Getenv("KUBECONFIG")))
		rules.Precedence = paths
	default:
		info.Source = "default"
		paths = expandPaths(rules.Precedence)
	}
	info.Paths = paths

	if len(existingPaths(paths)) == 0 {
		return nil, info, &ConfigError{Kind: ErrKubeconfigNotFound, Paths: paths}
	}

	overrides := &clientcmd.ConfigOverrides{}
	if contextOverride != "" {
		overrides.CurrentContext = contextOverride
	}

	clientConfig := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)
	rawConfig, err := clientConfig.RawConfig()
	if err != nil {
		return nil, info, &ConfigError{Kind: ErrKubeconfigInvalid, Paths: paths, Err: err}
	}

	contextName := overrides.CurrentContext
	if contextName == "" {
		contextName = rawConfig.CurrentContext
	}
	if contextName == "" {
		return nil, info, &ConfigError{Kind: ErrKubeconfigInvalid, Paths: paths, Err: fmt.Errorf("missing current context")}
	}
	info.Context = contextName
	if _, ok := rawConfig.Contexts[contextName]; !ok {
		return nil, info, &ConfigError{Kind: ErrContextNotFound, Paths: paths, Err: fmt.Errorf("context %q not found", contextName)}
	}
	return clientConfig, info, nil
}

func existingPaths(paths []string) []string {
	var existing []string
	for _, path := range paths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			existing = append(existing, path)
		}
	}
	return existing
}

func expandPaths(paths []string) []string {
	if len(paths) == 0 {
		return nil
	}
	expanded := make([]string, 0, len(paths))
	for _, path := range paths {
		expanded = append(expanded, expandPath(path))
	}
	return expanded
}

func expandPath(path string) string {
	path = strings.TrimSpace(path)
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
