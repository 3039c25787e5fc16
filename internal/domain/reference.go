package domain

import (
	"fmt"
	"strings"
)

// DefaultTag is used when a reference carries neither a tag nor a digest.
const DefaultTag = "latest"

// ImageReference is a parsed source image reference.
//
// Exactly one of Tag and Digest is set.
type ImageReference struct {
	// Raw is the reference as received.
	Raw string
	// Repository is the name part, without tag or digest.
	Repository string
	Tag        string
	Digest     string
	// Joined is the canonical identifier reported back to callers. For
	// repo:tag references it is the repo:tag string; for digest references it
	// is the flattened token.
	Joined string
	// PullRef is the identifier handed to the engine for pull and tag.
	PullRef string
	// DestinationTag names the re-tagged artifact in the destination repository.
	DestinationTag string
}

// HasDigest reports whether the reference pins a content digest.
func (r ImageReference) HasDigest() bool {
	return r.Digest != ""
}

// ParseImageReference parses a raw image string.
//
// Digest references ("repo@sha256:...") are never split on colons since the
// digest itself contains one. Otherwise the string must split into at most two
// colon-delimited segments, and a bare repository receives the "latest" tag.
func ParseImageReference(raw string) (ImageReference, error) {
	if raw == "" {
		return ImageReference{}, fmt.Errorf("%w: image is empty", ErrMalformedReference)
	}

	if strings.Contains(raw, "@") {
		repository, digest, _ := strings.Cut(raw, "@")
		if repository == "" || digest == "" {
			return ImageReference{}, fmt.Errorf("%w: %q has an empty repository or digest", ErrMalformedReference, raw)
		}
		flat := SanitizeReferenceForTag(raw)
		return ImageReference{
			Raw:            raw,
			Repository:     repository,
			Digest:         digest,
			Joined:         flat,
			PullRef:        raw,
			DestinationTag: flat,
		}, nil
	}

	segments := strings.Split(raw, ":")
	if len(segments) > 2 {
		return ImageReference{}, fmt.Errorf("%w: %q has %d colon-separated segments", ErrMalformedReference, raw, len(segments))
	}
	if len(segments) == 1 {
		segments = append(segments, DefaultTag)
	}

	joined := strings.Join(segments, ":")
	return ImageReference{
		Raw:            raw,
		Repository:     segments[0],
		Tag:            segments[1],
		Joined:         joined,
		PullRef:        joined,
		DestinationTag: strings.Join(segments, "_"),
	}, nil
}
