package domain

// Credentials authenticate against the destination registry.
type Credentials struct {
	Username string
	Password string
}

// IsZero reports whether no credentials were supplied.
func (c Credentials) IsZero() bool {
	return c.Username == "" && c.Password == ""
}

// SyncRequest asks for one image to be relayed to the destination repository.
type SyncRequest struct {
	Image string
	// Credentials overrides the configured destination credentials when set.
	Credentials Credentials
}

// SyncResult echoes the source identifier and the destination tag.
type SyncResult struct {
	SourceImage string `json:"source_image"`
	DestImage   string `json:"dest_image"`
}

// DeletedImage is a single entry of an engine prune report.
type DeletedImage struct {
	Untagged string `json:"Untagged,omitempty"`
	Deleted  string `json:"Deleted,omitempty"`
}

// PruneReport is the engine's prune summary, passed through verbatim.
type PruneReport struct {
	ImagesDeleted []DeletedImage `json:"ImagesDeleted"`
	// SpaceReclaimed is reported in bytes.
	SpaceReclaimed uint64 `json:"SpaceReclaimed"`
}
