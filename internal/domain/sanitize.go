package domain

import "strings"

// tagReplacer maps every character that is illegal in a tag to an underscore.
var tagReplacer = strings.NewReplacer("/", "_", "@", "_", ":", "_")

// SanitizeReferenceForTag flattens a full image reference into a token that is
// usable as a tag in another repository.
//
// Replacements:
//
//	/ → _
//	@ → _
//	: → _
//
// "ghcr.io/org/app@sha256:ab" becomes "ghcr.io_org_app_sha256_ab".
func SanitizeReferenceForTag(ref string) string {
	return tagReplacer.Replace(ref)
}
