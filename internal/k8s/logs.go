package k8s

import (
	"context"
	"fmt"
	"io"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/JoseManuelPS/KuLo/internal/kuloerr"
	"github.com/JoseManuelPS/KuLo/internal/model"
)

// StreamLogs opens the log stream for one container. The caller owns the
// returned ReadCloser and must Close it (directly, or via ctx cancellation
// racing the read) to release the underlying HTTP connection — this is the
// one place an in-flight body can leak if forgotten.
//
// Errors are translated into the stream failure taxonomy: 404/410 become
// kuloerr.ErrStreamGone, 403 becomes kuloerr.ErrPermissionDenied, anything
// else is wrapped as kuloerr.ErrStreamInterrupted so producers know to
// retry.
func (c *Client) StreamLogs(ctx context.Context, sc model.StreamContext) (io.ReadCloser, error) {
	container := sc.Container
	opts := &corev1.PodLogOptions{
		Container: container.ContainerName,
		Follow:    sc.Follow,
		Timestamps: false,
	}
	if sc.TailLines > 0 {
		opts.TailLines = &sc.TailLines
	}
	if sc.SinceSeconds > 0 {
		opts.SinceSeconds = &sc.SinceSeconds
	}

	req := c.clientset.CoreV1().Pods(container.Namespace).GetLogs(container.PodName, opts)
	stream, err := req.Stream(ctx)
	if err != nil {
		switch {
		case apierrors.IsNotFound(err) || apierrors.IsGone(err):
			return nil, fmt.Errorf("%w: %s", kuloerr.ErrStreamGone, container.UniqueID())
		case apierrors.IsForbidden(err):
			return nil, fmt.Errorf("%w: %s", kuloerr.ErrPermissionDenied, container.UniqueID())
		default:
			return nil, fmt.Errorf("%w: %s: %v", kuloerr.ErrStreamInterrupted, container.UniqueID(), err)
		}
	}

	return stream, nil
}
