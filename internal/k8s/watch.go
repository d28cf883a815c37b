package k8s

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/JoseManuelPS/KuLo/internal/kuloerr"
	"github.com/JoseManuelPS/KuLo/internal/model"
)

// WatchPods watches pod lifecycle events in one namespace, translating
// client-go watch.Event values into model.PodEvent. The returned channel is
// closed when ctx is cancelled or the watch ends; the caller should
// re-invoke WatchPods (the rotation watcher does, with backoff) to resume
// after a transient disconnect or a 410 Gone (resource-version expiry).
func (c *Client) WatchPods(ctx context.Context, namespace, labelSelector string) (<-chan model.PodEvent, error) {
	opts := metav1.ListOptions{Watch: true}
	if labelSelector != "" {
		opts.LabelSelector = labelSelector
	}

	w, err := c.clientset.CoreV1().Pods(namespace).Watch(ctx, opts)
	if err != nil {
		if apierrors.IsForbidden(err) {
			return nil, fmt.Errorf("%w: watch pods in %q", kuloerr.ErrPermissionDenied, namespace)
		}
		return nil, fmt.Errorf("%w: watch pods in %q: %v", kuloerr.ErrStreamInterrupted, namespace, err)
	}

	out := make(chan model.PodEvent)
	go func() {
		defer close(out)
		defer w.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.ResultChan():
				if !ok {
					return
				}

				pe, ok := translateEvent(event, namespace)
				if !ok {
					continue
				}

				select {
				case out <- pe:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func translateEvent(event watch.Event, namespace string) (model.PodEvent, bool) {
	var kind model.PodEventKind
	switch event.Type {
	case watch.Added:
		kind = model.PodEventAdded
	case watch.Modified:
		kind = model.PodEventModified
	case watch.Deleted:
		kind = model.PodEventDeleted
	case watch.Bookmark:
		return model.PodEvent{Kind: model.PodEventBookmark}, true
	default:
		return model.PodEvent{}, false
	}

	pod, ok := event.Object.(*corev1.Pod)
	if !ok {
		return model.PodEvent{}, false
	}

	return model.PodEvent{Kind: kind, Pod: toPodRecord(pod)}, true
}
