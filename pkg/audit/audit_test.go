package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lab47.dev/sitevet/pkg/pathintern"
	"lab47.dev/sitevet/pkg/pymeta"
	"lab47.dev/sitevet/pkg/pyver"
)

var tbl = pathintern.NewTable()

func pkg(name, version string) *pymeta.Package {
	return &pymeta.Package{
		Name:     name,
		Version:  pyver.Parse(version),
		Location: tbl.Intern("/site/" + name + ".dist-info"),
		Site:     tbl.Intern("/site"),
	}
}

// fakeClient answers querybatch and vulns requests from a canned
// vulnerability table.
type fakeClient struct {
	mu      sync.Mutex
	batches []int
	vulns   map[string][]string
}

func (f *fakeClient) Do(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.HasSuffix(req.URL.Path, "/v1/querybatch"):
		var batch osvBatch

		err := json.NewDecoder(req.Body).Decode(&batch)
		if err != nil {
			return nil, err
		}

		f.batches = append(f.batches, len(batch.Queries))

		var resp osvBatchResponse

		for _, q := range batch.Queries {
			var result struct {
				Vulns []osvVulnRef `json:"vulns"`
			}

			for _, id := range f.vulns[q.Package.Name] {
				result.Vulns = append(result.Vulns, osvVulnRef{ID: id})
			}

			resp.Results = append(resp.Results, result)
		}

		return jsonResponse(resp), nil

	case strings.Contains(req.URL.Path, "/v1/vulns/"):
		id := req.URL.Path[strings.LastIndex(req.URL.Path, "/")+1:]

		return jsonResponse(map[string]interface{}{
			"id":      id,
			"summary": "summary of " + id,
			"references": []map[string]string{
				{"type": "WEB", "url": "https://example.com/web/" + id},
				{"type": "ADVISORY", "url": "https://example.com/advisory/" + id},
			},
			"severity": []map[string]string{
				{"type": "CVSS_V3", "score": "7.5"},
			},
		}), nil
	}

	return nil, fmt.Errorf("unexpected request: %s", req.URL)
}

func jsonResponse(v interface{}) *http.Response {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return &http.Response{
		StatusCode: 200,
		Body:       ioutil.NopCloser(strings.NewReader(string(data))),
	}
}

func TestCheck(t *testing.T) {
	t.Run("chunks batches by four", func(t *testing.T) {
		fc := &fakeClient{vulns: map[string][]string{}}

		c := NewChecker(fc)
		c.Workers = 1

		var pkgs []*pymeta.Package
		for i := 0; i < 9; i++ {
			pkgs = append(pkgs, pkg(fmt.Sprintf("pkg%d", i), "1.0"))
		}

		_, err := c.Check(context.Background(), pkgs)
		require.NoError(t, err)

		assert.Equal(t, []int{4, 4, 1}, fc.batches)
	})

	t.Run("findings are sorted and carry advisory detail", func(t *testing.T) {
		fc := &fakeClient{vulns: map[string][]string{
			"gradio": {"GHSA-34rf-p3r3-58x2", "GHSA-3f95-mxq2-2f63"},
			"mesop":  {"GHSA-pmv9-3xqp-8w42"},
		}}

		c := NewChecker(fc)

		findings, err := c.Check(context.Background(), []*pymeta.Package{
			pkg("mesop", "0.11.1"),
			pkg("gradio", "4.0.0"),
			pkg("numpy", "1.24.0"),
		})
		require.NoError(t, err)

		require.Len(t, findings, 3)

		assert.Equal(t, "gradio", findings[0].Key)
		assert.Equal(t, "GHSA-34rf-p3r3-58x2", findings[0].VulnID)
		assert.Equal(t, "https://example.com/advisory/GHSA-34rf-p3r3-58x2", findings[0].Reference)
		assert.Equal(t, "7.5", findings[0].Severity)
		assert.Equal(t, "summary of GHSA-34rf-p3r3-58x2", findings[0].Summary)

		assert.Equal(t, "mesop", findings[2].Key)
	})

	t.Run("clean set has no findings", func(t *testing.T) {
		fc := &fakeClient{vulns: map[string][]string{}}

		c := NewChecker(fc)

		findings, err := c.Check(context.Background(), []*pymeta.Package{pkg("numpy", "1.24.0")})
		require.NoError(t, err)
		assert.Empty(t, findings)
	})
}
