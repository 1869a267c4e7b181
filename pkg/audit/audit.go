package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"lab47.dev/sitevet/pkg/cleanhttp"
	"lab47.dev/sitevet/pkg/pymeta"
)

const (
	defaultEndpoint = "https://api.osv.dev"

	// the batch endpoint degrades with large bodies, keep requests
	// small and run them in parallel instead
	chunkSize = 4
)

type httpDo interface {
	Do(*http.Request) (*http.Response, error)
}

// Checker queries the OSV service for known vulnerabilities in
// discovered packages. The HTTP client is injectable; live use goes
// through the pooled transport.
type Checker struct {
	Endpoint string
	Workers  int

	client httpDo
}

func NewChecker(client httpDo) *Checker {
	if client == nil {
		client = cleanhttp.DefaultClient
	}

	return &Checker{
		Endpoint: defaultEndpoint,
		Workers:  runtime.NumCPU(),
		client:   client,
	}
}

// Finding is one advisory attached to one discovered package.
type Finding struct {
	Key       string
	Package   *pymeta.Package
	VulnID    string
	Summary   string
	Reference string
	Severity  string
}

type osvPackage struct {
	Name      string `json:"name"`
	Ecosystem string `json:"ecosystem"`
}

type osvQuery struct {
	Package osvPackage `json:"package"`
	Version string     `json:"version"`
}

type osvBatch struct {
	Queries []osvQuery `json:"queries"`
}

type osvVulnRef struct {
	ID string `json:"id"`
}

type osvBatchResponse struct {
	Results []struct {
		Vulns []osvVulnRef `json:"vulns"`
	} `json:"results"`
}

type osvVuln struct {
	ID         string `json:"id"`
	Summary    string `json:"summary"`
	References []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"references"`
	Severity []struct {
		Type  string `json:"type"`
		Score string `json:"score"`
	} `json:"severity"`
}

// Check queries every package and resolves each hit to its advisory
// detail. Findings come back sorted by package key then advisory id,
// independent of request scheduling.
func (c *Checker) Check(ctx context.Context, pkgs []*pymeta.Package) ([]Finding, error) {
	chunks := chunked(pkgs, chunkSize)

	type chunkResult struct {
		idx int
		ids [][]string
		err error
	}

	jobs := make(chan int)
	res := make(chan chunkResult, len(chunks))

	var wg sync.WaitGroup

	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}

	if workers > len(chunks) {
		workers = len(chunks)
	}

	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()

			for idx := range jobs {
				ids, err := c.queryBatch(ctx, chunks[idx])
				res <- chunkResult{idx: idx, ids: ids, err: err}
			}
		}()
	}

	for idx := range chunks {
		select {
		case jobs <- idx:
		case <-ctx.Done():
		}
	}

	close(jobs)

	wg.Wait()

	close(res)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	perPkg := make([][]string, len(pkgs))

	for r := range res {
		if r.err != nil {
			return nil, r.err
		}

		for i, ids := range r.ids {
			perPkg[r.idx*chunkSize+i] = ids
		}
	}

	var findings []Finding

	details := make(map[string]*osvVuln)

	for i, ids := range perPkg {
		for _, id := range ids {
			vuln, ok := details[id]
			if !ok {
				var err error

				vuln, err = c.vulnDetail(ctx, id)
				if err != nil {
					return nil, err
				}

				details[id] = vuln
			}

			findings = append(findings, Finding{
				Key:       pkgs[i].Key(),
				Package:   pkgs[i],
				VulnID:    id,
				Summary:   vuln.Summary,
				Reference: primeReference(vuln),
				Severity:  primeSeverity(vuln),
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Key != findings[j].Key {
			return findings[i].Key < findings[j].Key
		}

		return findings[i].VulnID < findings[j].VulnID
	})

	return findings, nil
}

func chunked(pkgs []*pymeta.Package, size int) [][]*pymeta.Package {
	var out [][]*pymeta.Package

	for len(pkgs) > size {
		out = append(out, pkgs[:size])
		pkgs = pkgs[size:]
	}

	if len(pkgs) > 0 {
		out = append(out, pkgs)
	}

	return out
}

func (c *Checker) queryBatch(ctx context.Context, pkgs []*pymeta.Package) ([][]string, error) {
	batch := osvBatch{}

	for _, p := range pkgs {
		batch.Queries = append(batch.Queries, osvQuery{
			Package: osvPackage{Name: p.Name, Ecosystem: "PyPI"},
			Version: p.Version.String(),
		})
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(
		ctx, "POST", c.Endpoint+"/v1/querybatch", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "osv batch query")
	}

	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, errors.Errorf("osv batch query: status %d", resp.StatusCode)
	}

	var decoded osvBatchResponse

	err = json.NewDecoder(resp.Body).Decode(&decoded)
	if err != nil {
		return nil, err
	}

	if len(decoded.Results) != len(pkgs) {
		return nil, errors.Errorf(
			"osv batch query: %d results for %d queries", len(decoded.Results), len(pkgs))
	}

	out := make([][]string, len(pkgs))

	for i, r := range decoded.Results {
		for _, v := range r.Vulns {
			out[i] = append(out[i], v.ID)
		}
	}

	return out, nil
}

func (c *Checker) vulnDetail(ctx context.Context, id string) (*osvVuln, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.Endpoint+"/v1/vulns/"+id, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "osv vuln %s", id)
	}

	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, errors.Errorf("osv vuln %s: status %d", id, resp.StatusCode)
	}

	data, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var vuln osvVuln

	err = json.Unmarshal(data, &vuln)
	if err != nil {
		return nil, err
	}

	return &vuln, nil
}

// primeReference prefers the advisory link over anything else.
func primeReference(v *osvVuln) string {
	for _, r := range v.References {
		if r.Type == "ADVISORY" {
			return r.URL
		}
	}

	if len(v.References) > 0 {
		return v.References[0].URL
	}

	return ""
}

// primeSeverity prefers a CVSS score.
func primeSeverity(v *osvVuln) string {
	for _, s := range v.Severity {
		if strings.HasPrefix(s.Type, "CVSS_") {
			return s.Score
		}
	}

	if len(v.Severity) > 0 {
		return v.Severity[0].Score
	}

	return ""
}
