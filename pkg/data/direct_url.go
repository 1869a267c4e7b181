package data

// Wire form of a direct_url.json provenance record. One of VCSInfo,
// ArchiveInfo, or DirInfo accompanies the url.
type DirectURL struct {
	URL string `json:"url"`

	VCSInfo     *VCSInfo     `json:"vcs_info,omitempty"`
	ArchiveInfo *ArchiveInfo `json:"archive_info,omitempty"`
	DirInfo     *DirInfo     `json:"dir_info,omitempty"`
}

type VCSInfo struct {
	VCS               string `json:"vcs"`
	CommitID          string `json:"commit_id"`
	RequestedRevision string `json:"requested_revision,omitempty"`
}

type ArchiveInfo struct {
	Hash   string            `json:"hash,omitempty"`
	Hashes map[string]string `json:"hashes,omitempty"`
}

type DirInfo struct {
	Editable bool `json:"editable,omitempty"`
}
