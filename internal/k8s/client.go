package k8s

import (
	"context"
	"time"

	v1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
)

const (
	listTimeout = 20 * time.Second
	getTimeout  = 10 * time.Second
)

// Client reads nodes from the Kubernetes API.
type Client struct {
	clientset kubernetes.Interface
}

func NewClient(clientConfig clientcmd.ClientConfig) (*Client, error) {
	config, err := clientConfig.ClientConfig()
	if err != nil {
		return nil, &ConfigError{Kind: ErrKubeconfigInvalid, Err: err}
	}
	config.Timeout = 15 * time.Second
	config.UserAgent = "kube-inventory"
	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, &APIError{Kind: ErrUnknown, Err: err}
	}
	return &Client{clientset: clientset}, nil
}

// NewClientFromInterface wraps an existing clientset, typically a fake one.
func NewClientFromInterface(clientset kubernetes.Interface) *Client {
	return &Client{clientset: clientset}
}

func (c *Client) ListNodes(ctx context.Context, selector labels.Selector) ([]v1.Node, error) {
	if selector == nil {
		selector = labels.Everything()
	}
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{LabelSelector: selector.String()})
	if err != nil {
		return nil, classifyK8sError(OpListNodes, "", err)
	}
	return nodes.Items, nil
}

func (c *Client) GetNode(ctx context.Context, name string) (*v1.Node, error) {
	ctx, cancel := context.WithTimeout(ctx, getTimeout)
	defer cancel()

	node, err := c.clientset.CoreV1().Nodes().Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, classifyK8sError(OpGetNode, name, err)
	}
	return node, nil
}
