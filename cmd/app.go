package cmd

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/goldyfruit/kube-inventory/internal/cache"
	"github.com/goldyfruit/kube-inventory/internal/config"
	"github.com/goldyfruit/kube-inventory/internal/exit"
	"github.com/goldyfruit/kube-inventory/internal/k8s"
	"github.com/goldyfruit/kube-inventory/internal/kubectl"
	"github.com/goldyfruit/kube-inventory/internal/logging"
	"github.com/goldyfruit/kube-inventory/internal/query"
	"github.com/goldyfruit/kube-inventory/internal/selector"
)

type app struct {
	orch *query.Orchestrator
	log  logr.Logger
}

// newApp resolves settings and wires the node source, cache and
// orchestrator for one invocation.
func newApp(cmd *cobra.Command) (*app, error) {
	log := logging.New(cmd.ErrOrStderr(), verbose)

	settings, err := config.Load(settingsPath)
	if err != nil {
		return nil, exit.New(exit.CodeUsage, err)
	}
	if settings.File != "" {
		log.V(1).Info("settings loaded", "file", settings.File)
	}
	if cmd.Flags().Changed("source") {
		source, err := config.ParseSource(sourceName)
		if err != nil {
			return nil, exit.New(exit.CodeUsage, err)
		}
		settings.Source = source
	}
	if cmd.Flags().Changed("selector") {
		settings.Selector = selectorRaw
	}

	sel, err := selector.Parse(settings.Selector)
	if err != nil {
		return nil, exit.New(exit.CodeUsage, err)
	}

	source, err := newSource(settings, log)
	if err != nil {
		return nil, err
	}

	store := cache.NewStore(settings.CachePath, selector.Scope(sel))
	orch := query.New(query.Options{
		Source:   source,
		Store:    store,
		Policy:   settings.Policy(),
		MaxAge:   settings.CacheMaxAge,
		Selector: sel,
		Log:      log,
	})
	return &app{orch: orch, log: log}, nil
}

func newSource(settings config.Settings, log logr.Logger) (query.NodeSource, error) {
	if settings.Source == config.SourceKubectl {
		log.V(1).Info("using kubectl node source", "binary", settings.Kubectl)
		return &kubectl.Source{
			Binary:     settings.Kubectl,
			Kubeconfig: kubeconfigPath,
			Context:    kubeContext,
		}, nil
	}

	kubeConfig, info, err := k8s.ResolveKubeconfig(kubeconfigPath, kubeContext)
	if err != nil {
		return nil, exit.New(exit.CodeUsage, err)
	}
	log.V(1).Info("kubeconfig resolved", info.KeysAndValues()...)

	client, err := k8s.NewClient(kubeConfig)
	if err != nil {
		return nil, exit.New(exit.CodeUsage, err)
	}
	return client, nil
}

// classify maps orchestrator errors to exit codes.
func classify(err error) error {
	var (
		cacheErr *cache.IOError
		apiErr   *k8s.APIError
		cmdErr   *kubectl.CommandError
	)
	switch {
	case errors.As(err, &cacheErr):
		return exit.New(exit.CodeCache, err)
	case k8s.IsNodeNotFound(err):
		return exit.New(exit.CodeSource, fmt.Errorf("%w (the cache is out of date, rerun with --refresh-cache)", err))
	case errors.As(err, &apiErr), errors.As(err, &cmdErr):
		return exit.New(exit.CodeSource, fmt.Errorf("failed to query nodes: %w", err))
	default:
		return exit.New(exit.CodeUsage, err)
	}
}
