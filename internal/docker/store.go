package docker

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// DefaultRedisImage is the image of the development store
const DefaultRedisImage = "redis:7-alpine"

const redisContainerPort = nat.Port("6379/tcp")

const (
	// Host port range for store containers
	startPort = 6379
	endPort   = 6478
)

// StoreInfo describes the store container of a workspace.
type StoreInfo struct {
	ID      string
	Name    string
	Port    int
	Running bool
	Created bool // Set by StartRedis when the container did not exist before
}

// URL returns the redis:// URL clients use to reach the store.
func (s *StoreInfo) URL() string {
	return RedisURL(s.Port)
}

// FindRedis returns the store container of workspace, or nil if there is none.
func FindRedis(ctx context.Context, cli *client.Client, workspace string) (*StoreInfo, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=true", LabelProject)),
			filters.Arg("label", fmt.Sprintf("%s=%s", LabelComponent, ComponentRedis)),
			filters.Arg("label", fmt.Sprintf("%s=%s", LabelWorkspace, workspace)),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return nil, nil
	}

	return storeInfo(containers[0]), nil
}

func storeInfo(c types.Container) *StoreInfo {
	info := &StoreInfo{ID: c.ID, Running: c.State == "running"}
	if len(c.Names) > 0 {
		info.Name = trimSlash(c.Names[0])
	}
	if port, err := strconv.Atoi(c.Labels[LabelRedisPort]); err == nil {
		info.Port = port
	}
	return info
}

// StartRedis makes sure the store container of workspace is running and returns it.
// An existing container is started if stopped; otherwise the image is pulled and a new
// container is bound to the next free host port.
func StartRedis(ctx context.Context, cli *client.Client, workspace, image string) (*StoreInfo, error) {
	existing, err := FindRedis(ctx, cli, workspace)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.Running {
			if err := cli.ContainerStart(ctx, existing.ID, container.StartOptions{}); err != nil {
				return nil, fmt.Errorf("failed to start %s: %w", existing.Name, err)
			}
			existing.Running = true
		}
		return existing, nil
	}

	if image == "" {
		image = DefaultRedisImage
	}

	port, err := FindNextAvailablePort(ctx, cli)
	if err != nil {
		return nil, err
	}

	if err := pullImage(ctx, cli, image); err != nil {
		return nil, err
	}

	name := RedisContainerName(workspace)
	config, hostConfig := redisContainerConfig(workspace, GenerateRunID(), image, port)

	resp, err := cli.ContainerCreate(ctx, config, hostConfig, nil, nil, name)
	if err != nil {
		return nil, fmt.Errorf("failed to create store container: %w", err)
	}

	if err := cli.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Leave nothing half-created behind
		_ = cli.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start store container: %w", err)
	}

	return &StoreInfo{ID: resp.ID, Name: name, Port: port, Running: true, Created: true}, nil
}

// StopRedis stops and removes the store container of workspace.
// Returns false if there was nothing to remove.
func StopRedis(ctx context.Context, cli *client.Client, workspace string) (bool, error) {
	existing, err := FindRedis(ctx, cli, workspace)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, nil
	}

	timeout := 10
	_ = cli.ContainerStop(ctx, existing.ID, container.StopOptions{Timeout: &timeout})

	if err := cli.ContainerRemove(ctx, existing.ID, container.RemoveOptions{Force: true, RemoveVolumes: true}); err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", existing.Name, err)
	}
	return true, nil
}

func redisContainerConfig(workspace, runID, image string, port int) (*container.Config, *container.HostConfig) {
	labels := BuildLabels(workspace, runID, ComponentRedis)
	labels[LabelRedisPort] = strconv.Itoa(port)

	config := &container.Config{
		Image:  image,
		Labels: labels,
		ExposedPorts: nat.PortSet{
			redisContainerPort: struct{}{},
		},
	}
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			redisContainerPort: []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: strconv.Itoa(port)},
			},
		},
		RestartPolicy: container.RestartPolicy{Name: "unless-stopped"},
	}
	return config, hostConfig
}

func pullImage(ctx context.Context, cli *client.Client, image string) error {
	if _, _, err := cli.ImageInspectWithRaw(ctx, image); err == nil {
		return nil
	}

	reader, err := cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull %s: %w", image, err)
	}
	defer reader.Close()

	// The pull only completes once the progress stream is drained
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to pull %s: %w", image, err)
	}
	return nil
}

// FindNextAvailablePort finds the next free host port for a store container, starting at 6379.
// Ports recorded on existing store containers are skipped, as are ports already bound on the host.
func FindNextAvailablePort(ctx context.Context, cli *client.Client) (int, error) {
	containers, err := cli.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=true", LabelProject)),
			filters.Arg("label", fmt.Sprintf("%s=%s", LabelComponent, ComponentRedis)),
		),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to query Docker containers: %w", err)
	}

	used := make(map[int]bool)
	for _, c := range containers {
		if port, err := strconv.Atoi(c.Labels[LabelRedisPort]); err == nil {
			used[port] = true
		}
	}

	return nextFreePort(used, isPortBindable)
}

func nextFreePort(used map[int]bool, bindable func(int) bool) (int, error) {
	for port := startPort; port <= endPort; port++ {
		if used[port] {
			continue
		}
		if bindable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("no available Redis ports (range %d-%d exhausted)", startPort, endPort)
}

// isPortBindable reports whether port can be bound on localhost.
func isPortBindable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// RedisHost returns the host under which published ports are reachable.
// Inside a container that is host.docker.internal.
func RedisHost() string {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return "host.docker.internal"
	}
	return "localhost"
}

// RedisURL builds the URL of a store published on port.
func RedisURL(port int) string {
	return fmt.Sprintf("redis://%s:%d", RedisHost(), port)
}

func trimSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}
