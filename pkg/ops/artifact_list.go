package ops

import (
	"lab47.dev/sitevet/pkg/pymeta"
	"lab47.dev/sitevet/pkg/scan"
)

// ArtifactList enumerates the files recorded for discovered
// packages. Read only, missing RECORDs are reported as packages with
// no artifacts.
type ArtifactList struct {
	common
}

type PackageArtifacts struct {
	Package   *pymeta.Package
	Artifacts *pymeta.ArtifactSet
}

// List resolves artifacts for every package matching the query, in
// the query's stable order.
func (a *ArtifactList) List(set *scan.PackageSet, q scan.Query) []PackageArtifacts {
	var out []PackageArtifacts

	for _, p := range q.Select(set) {
		arts, err := p.Artifacts()
		if err != nil {
			a.L().Debug("no artifact record", "package", p.Name, "error", err)

			out = append(out, PackageArtifacts{Package: p})
			continue
		}

		out = append(out, PackageArtifacts{Package: p, Artifacts: arts})
	}

	return out
}
