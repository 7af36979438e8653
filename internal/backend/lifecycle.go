package backend

import (
	"context"
	"fmt"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"

	"github.com/seqra/migtest/internal/commonerr"
)

// StartupGrace is how long a freshly started container gets to become
// ready. There is no readiness polling: the delay is fixed, which keeps
// the lifecycle trivial at the cost of not adapting to slow hosts.
const StartupGrace = 30 * time.Second

// ContainerAPI is the subset of the Docker client the lifecycle uses.
type ContainerAPI interface {
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
}

// Lifecycle starts and stops the database container for a run. Both
// operations are no-ops for the embedded store.
type Lifecycle struct {
	api   ContainerAPI
	log   *zap.Logger
	grace time.Duration
	sleep func(time.Duration)
}

// NewLifecycle returns a lifecycle over the given container API. api may
// be nil when only the embedded store is in play.
func NewLifecycle(api ContainerAPI, log *zap.Logger) *Lifecycle {
	return &Lifecycle{api: api, log: log, grace: StartupGrace, sleep: time.Sleep}
}

// Start brings up a fresh database container for b: any same-named
// leftover is removed first, then a detached container is created with
// the fixed published port and root credential, and the startup grace
// period is waited out. Failure is a ProvisionError.
func (l *Lifecycle) Start(ctx context.Context, b Backend) error {
	if b.Embedded() {
		return nil
	}
	if l.api == nil {
		return &commonerr.ProvisionError{Target: "database", Err: fmt.Errorf("no container runtime available")}
	}

	// A previous run may have left the container behind.
	l.removeExisting(ctx, b)

	portKey := nat.Port(fmt.Sprintf("%d/tcp", b.Port))
	created, err := l.api.ContainerCreate(ctx,
		&container.Config{
			Image: b.Image,
			Env: []string{
				"MYSQL_ROOT_PASSWORD=" + b.RootPassword,
				"MYSQL_DATABASE=" + b.Database,
			},
			ExposedPorts: nat.PortSet{portKey: struct{}{}},
		},
		&container.HostConfig{
			PortBindings: nat.PortMap{
				portKey: []nat.PortBinding{{HostIP: "127.0.0.1", HostPort: fmt.Sprintf("%d", b.Port)}},
			},
		},
		nil, nil, b.ContainerName,
	)
	if err != nil {
		return &commonerr.ProvisionError{Target: "database", Err: fmt.Errorf("create container %s: %w", b.ContainerName, err)}
	}
	if err := l.api.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return &commonerr.ProvisionError{Target: "database", Err: fmt.Errorf("start container %s: %w", b.ContainerName, err)}
	}

	l.log.Info("database container started, waiting for readiness grace",
		zap.String("backend", string(b.Kind)),
		zap.String("container", b.ContainerName),
		zap.Duration("grace", l.grace))
	l.sleep(l.grace)
	return nil
}

// Stop tears the container down. Best effort: failures are logged and
// swallowed, since teardown runs on every exit path.
func (l *Lifecycle) Stop(ctx context.Context, b Backend) {
	if b.Embedded() || l.api == nil {
		return
	}
	l.removeExisting(ctx, b)
}

func (l *Lifecycle) removeExisting(ctx context.Context, b Backend) {
	if err := l.api.ContainerStop(ctx, b.ContainerName, container.StopOptions{}); err != nil {
		l.log.Debug("container stop", zap.String("container", b.ContainerName), zap.Error(err))
	}
	if err := l.api.ContainerRemove(ctx, b.ContainerName, container.RemoveOptions{Force: true}); err != nil {
		l.log.Debug("container remove", zap.String("container", b.ContainerName), zap.Error(err))
	}
}
