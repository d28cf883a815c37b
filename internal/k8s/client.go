// Package k8s is a thin facade over client-go: list namespaces, list pods
// with server-side label filtering, stream container logs, and watch pod
// lifecycle events. It is the sole seam between KuLo and the Kubernetes
// API.
package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/JoseManuelPS/KuLo/internal/kuloerr"
	"github.com/JoseManuelPS/KuLo/internal/model"
)

// Client wraps a client-go Clientset with the operations KuLo's discovery
// and streaming layers need.
type Client struct {
	clientset  kubernetes.Interface
	config     *rest.Config
	kubeconfig string
}

// NewClient creates a client using default kubeconfig discovery.
func NewClient() (*Client, error) {
	return NewClientWithConfig("")
}

// NewClientWithConfig creates a client from a specific kubeconfig path, or
// falls back to in-cluster config, then $KUBECONFIG, then ~/.kube/config.
func NewClientWithConfig(kubeconfigPath string) (*Client, error) {
	config, kubeconfig, err := getKubeConfig(kubeconfigPath)
	if err != nil {
		return nil, err
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, err
	}

	return &Client{
		clientset:  clientset,
		config:     config,
		kubeconfig: kubeconfig,
	}, nil
}

// GetKubeConfigPath returns the kubeconfig path in use, or "(in-cluster)".
func (c *Client) GetKubeConfigPath() string {
	return c.kubeconfig
}

func getKubeConfig(kubeconfigPath string) (*rest.Config, string, error) {
	if kubeconfigPath != "" {
		config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
		if err != nil {
			return nil, "", err
		}
		return config, kubeconfigPath, nil
	}

	config, err := rest.InClusterConfig()
	if err == nil {
		return config, "(in-cluster)", nil
	}

	kubeconfig := os.Getenv("KUBECONFIG")
	if kubeconfig == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, "", err
		}
		kubeconfig = filepath.Join(home, ".kube", "config")
	}

	config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, "", err
	}
	return config, kubeconfig, nil
}

// CurrentNamespace returns the namespace from the active kubeconfig
// context, or "default" if unset/unavailable.
func (c *Client) CurrentNamespace() string {
	path := c.kubeconfig
	if path == "" || path == "(in-cluster)" {
		return "default"
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	rules.ExplicitPath = path
	cfg, err := rules.Load()
	if err != nil {
		return "default"
	}

	ctx, ok := cfg.Contexts[cfg.CurrentContext]
	if !ok || ctx.Namespace == "" {
		return "default"
	}
	return ctx.Namespace
}

// ListNamespaces returns all namespace names in the cluster.
func (c *Client) ListNamespaces(ctx context.Context) ([]string, error) {
	namespaces, err := c.clientset.CoreV1().Namespaces().List(ctx, metav1.ListOptions{})
	if err != nil {
		if apierrors.IsForbidden(err) {
			return nil, fmt.Errorf("%w: list namespaces", kuloerr.ErrPermissionDenied)
		}
		return nil, err
	}

	names := make([]string, 0, len(namespaces.Items))
	for _, ns := range namespaces.Items {
		names = append(names, ns.Name)
	}
	sort.Strings(names)
	return names, nil
}

// CheckNamespaceExists reports whether namespace exists. A 403 is treated
// as "assume it exists" since it can't be disproven without list rights.
func (c *Client) CheckNamespaceExists(ctx context.Context, namespace string) (bool, error) {
	_, err := c.clientset.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
	if err == nil {
		return true, nil
	}
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if apierrors.IsForbidden(err) {
		return true, nil
	}
	return false, err
}

// ListPods lists pods in namespace with an optional server-side label
// selector, returning them as immutable PodRecord snapshots.
func (c *Client) ListPods(ctx context.Context, namespace, labelSelector string) ([]model.PodRecord, error) {
	opts := metav1.ListOptions{}
	if labelSelector != "" {
		opts.LabelSelector = labelSelector
	}

	list, err := c.clientset.CoreV1().Pods(namespace).List(ctx, opts)
	if err != nil {
		if apierrors.IsForbidden(err) {
			return nil, fmt.Errorf("%w: list pods in %q", kuloerr.ErrPermissionDenied, namespace)
		}
		if apierrors.IsNotFound(err) {
			return nil, fmt.Errorf("namespace %q not found", namespace)
		}
		return nil, err
	}

	records := make([]model.PodRecord, 0, len(list.Items))
	for i := range list.Items {
		records = append(records, toPodRecord(&list.Items[i]))
	}
	return records, nil
}

func toPodRecord(pod *corev1.Pod) model.PodRecord {
	rec := model.PodRecord{
		Namespace: pod.Namespace,
		Name:      pod.Name,
		UID:       string(pod.UID),
		Labels:    pod.Labels,
		Phase:     string(pod.Status.Phase),
	}

	for _, cs := range pod.Spec.Containers {
		rec.Containers = append(rec.Containers, model.ContainerIdentity{
			Namespace: pod.Namespace, PodName: pod.Name,
			ContainerName: cs.Name, Kind: model.KindMain,
		})
	}
	for _, cs := range pod.Spec.InitContainers {
		rec.Containers = append(rec.Containers, model.ContainerIdentity{
			Namespace: pod.Namespace, PodName: pod.Name,
			ContainerName: cs.Name, Kind: model.KindInit,
		})
	}
	for _, cs := range pod.Spec.EphemeralContainers {
		rec.Containers = append(rec.Containers, model.ContainerIdentity{
			Namespace: pod.Namespace, PodName: pod.Name,
			ContainerName: cs.Name, Kind: model.KindEphemeral,
		})
	}

	return rec
}
