// Package docker implements the image engine adapter using the Docker API.
package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/opencontainers/go-digest"

	"github.com/bnema/imagerelay/internal/boundaries/out"
	"github.com/bnema/imagerelay/internal/domain"
	"github.com/bnema/imagerelay/internal/logging"
)

// Runtime implements the ImageEngine interface using the Docker API.
type Runtime struct {
	client *client.Client
}

var _ out.ImageEngine = (*Runtime)(nil)

// NewRuntime creates a Docker runtime from the environment (DOCKER_HOST and
// friends). A non-empty host overrides the environment.
func NewRuntime(host string) (*Runtime, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &Runtime{
		client: cli,
	}, nil
}

// NewRuntimeWithClient creates a Docker runtime with a custom client (for testing).
func NewRuntimeWithClient(cli *client.Client) *Runtime {
	return &Runtime{
		client: cli,
	}
}

// Close releases the underlying client transport.
func (r *Runtime) Close() error {
	return r.client.Close()
}

func adapterCtx(ctx context.Context, action string, fields map[string]any) context.Context {
	base := map[string]any{
		logging.FieldLayer:   "adapter",
		logging.FieldAdapter: "docker",
		logging.FieldAction:  action,
	}
	for k, v := range fields {
		base[k] = v
	}
	return logging.CtxWithFields(ctx, base)
}

// PullImage pulls an image and reads the progress stream to completion.
func (r *Runtime) PullImage(ctx context.Context, imageRef string) error {
	ctx = adapterCtx(ctx, "PullImage", map[string]any{logging.FieldImage: imageRef})
	log := logging.FromCtx(ctx)

	log.Info().Msg("pulling image")

	reader, err := r.client.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return logging.WrapErr(log, err, "failed to pull image")
	}
	defer reader.Close()

	// The pull only completes once the stream is drained.
	if _, err := consumeStream(reader); err != nil {
		return logging.WrapErr(log, err, "pull stream reported an error")
	}

	log.Info().Msg("image pulled")
	return nil
}

// TagImage creates target as a new name for source.
func (r *Runtime) TagImage(ctx context.Context, source, target string) error {
	ctx = adapterCtx(ctx, "TagImage", map[string]any{
		logging.FieldImage: source,
		"target":           target,
	})
	log := logging.FromCtx(ctx)

	if err := r.client.ImageTag(ctx, source, target); err != nil {
		return logging.WrapErr(log, err, "failed to tag image")
	}

	log.Debug().Msg("image tagged")
	return nil
}

// PushImage pushes imageRef to its registry with creds.
func (r *Runtime) PushImage(ctx context.Context, imageRef string, creds domain.Credentials) (out.PushResult, error) {
	ctx = adapterCtx(ctx, "PushImage", map[string]any{
		logging.FieldImage: imageRef,
		"username":         creds.Username,
	})
	log := logging.FromCtx(ctx)

	serverAddress, err := registryDomain(imageRef)
	if err != nil {
		return out.PushResult{}, logging.WrapErr(log, err, "failed to resolve registry")
	}

	auth, err := registry.EncodeAuthConfig(registry.AuthConfig{
		Username:      creds.Username,
		Password:      creds.Password,
		ServerAddress: serverAddress,
	})
	if err != nil {
		return out.PushResult{}, logging.WrapErr(log, err, "failed to encode auth config")
	}

	log.Info().Str("server_address", serverAddress).Msg("pushing image")

	reader, err := r.client.ImagePush(ctx, imageRef, image.PushOptions{RegistryAuth: auth})
	if err != nil {
		return out.PushResult{}, logging.WrapErr(log, err, "failed to push image")
	}
	defer reader.Close()

	result, err := consumeStream(reader)
	if err != nil {
		return out.PushResult{}, logging.WrapErr(log, err, "push stream reported an error")
	}

	log.Info().Str("digest", result.Digest).Msg("image pushed")
	return result, nil
}

// RemoveImage removes an image.
func (r *Runtime) RemoveImage(ctx context.Context, imageRef string, force bool) error {
	ctx = adapterCtx(ctx, "RemoveImage", map[string]any{
		logging.FieldImage: imageRef,
		"force":            force,
	})
	log := logging.FromCtx(ctx)

	_, err := r.client.ImageRemove(ctx, imageRef, image.RemoveOptions{Force: force})
	if err != nil {
		return logging.WrapErr(log, err, "failed to remove image")
	}

	log.Info().Msg("image removed")
	return nil
}

// PruneImages removes unused images created before until and returns the
// engine report unchanged.
func (r *Runtime) PruneImages(ctx context.Context, until string) (domain.PruneReport, error) {
	ctx = adapterCtx(ctx, "PruneImages", map[string]any{"until": until})
	log := logging.FromCtx(ctx)

	args := filters.NewArgs()
	if until != "" {
		args.Add("until", until)
	}

	report, err := r.client.ImagesPrune(ctx, args)
	if err != nil {
		return domain.PruneReport{}, logging.WrapErr(log, err, "failed to prune images")
	}

	deleted := make([]domain.DeletedImage, 0, len(report.ImagesDeleted))
	for _, item := range report.ImagesDeleted {
		deleted = append(deleted, domain.DeletedImage{
			Untagged: item.Untagged,
			Deleted:  item.Deleted,
		})
	}

	log.Info().
		Int("images_deleted", len(deleted)).
		Uint64("space_reclaimed", report.SpaceReclaimed).
		Msg("images pruned")

	return domain.PruneReport{
		ImagesDeleted:  deleted,
		SpaceReclaimed: report.SpaceReclaimed,
	}, nil
}

// Ping checks if Docker is responsive.
func (r *Runtime) Ping(ctx context.Context) error {
	ctx = adapterCtx(ctx, "Ping", nil)
	log := logging.FromCtx(ctx)

	if _, err := r.client.Ping(ctx); err != nil {
		return logging.WrapErr(log, err, "Docker ping failed")
	}
	return nil
}

// registryDomain returns the registry host of imageRef, e.g. "docker.io" for
// "dierbei/csi_demo:tag".
func registryDomain(imageRef string) (string, error) {
	named, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", err
	}
	return reference.Domain(named), nil
}

// consumeStream drains a pull or push progress stream. It stops at the first
// message carrying an error and returns the last push result seen in an aux
// message.
func consumeStream(r io.Reader) (out.PushResult, error) {
	var result out.PushResult

	dec := json.NewDecoder(r)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return result, nil
			}
			return result, fmt.Errorf("decode progress stream: %w", err)
		}

		if msg.Error != nil {
			return result, msg.Error
		}
		if msg.ErrorMessage != "" {
			return result, errors.New(msg.ErrorMessage)
		}

		if msg.Aux != nil {
			var aux struct {
				Tag    string `json:"Tag"`
				Digest string `json:"Digest"`
				Size   int    `json:"Size"`
			}
			if err := json.Unmarshal(*msg.Aux, &aux); err != nil {
				continue
			}
			if aux.Digest == "" {
				continue
			}
			if _, err := digest.Parse(aux.Digest); err != nil {
				return result, fmt.Errorf("invalid pushed digest %q: %w", aux.Digest, err)
			}
			result = out.PushResult{Tag: aux.Tag, Digest: aux.Digest, Size: aux.Size}
		}
	}
}
