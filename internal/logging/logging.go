package logging

import (
	"fmt"
	"io"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"k8s.io/klog/v2"
)

// New returns a logger writing one line per entry to w. verbose enables
// V(1) messages. client-go's klog output is routed to the same logger.
func New(w io.Writer, verbose bool) logr.Logger {
	verbosity := 0
	if verbose {
		verbosity = 1
	}
	logger := funcr.New(func(prefix, args string) {
		if prefix != "" {
			fmt.Fprintf(w, "%s: %s\n", prefix, args)
			return
		}
		fmt.Fprintln(w, args)
	}, funcr.Options{
		Verbosity: verbosity,
	}).WithName("kube-inventory")

	klog.SetLogger(logger.WithName("client-go"))
	return logger
}
