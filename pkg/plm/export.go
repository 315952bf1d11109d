package plm

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rackworks/bomctl/internal/logger"
	"github.com/rackworks/bomctl/pkg/propstore"
)

// Export run polling budget: 40 polls at 2s = 80s wall clock.
const (
	exportPollInterval = 2 * time.Second
	exportPollLimit    = 40
)

// Export run terminal states.
const (
	exportStatusComplete = "COMPLETE"
	exportStatusFailed   = "FAILED"
	exportStatusAborted  = "ABORTED"
)

// exportDefinition is the reusable server-side export description.
var exportDefinitionBody = map[string]any{
	"name":   "bomctl multi-level BOM export",
	"world":  "items",
	"view":   "BOM",
	"level":  "full",
	"format": "json",
}

// exportRun is the run status payload.
type exportRun struct {
	GUID   string `json:"guid"`
	Status string `json:"status"`
	Files  []struct {
		GUID string `json:"guid"`
		Name string `json:"name"`
	} `json:"files"`
}

// RunBOMExport materializes the full multi-level BOM of the given root item
// through the server-side export machinery and returns the raw JSON payload
// extracted from the result archive.
//
// The export definition is created once and its id persisted in the
// property store; a 404 on the run request means the definition was purged
// server-side, in which case it is recreated and the run retried once.
func (c *Client) RunBOMExport(ctx context.Context, store propstore.Store, itemNumber, itemGUID string) ([]byte, error) {
	defID, err := c.ensureExportDefinition(ctx, store)
	if err != nil {
		return nil, err
	}

	runID, err := c.startExportRun(ctx, defID, itemNumber, itemGUID)
	if err != nil {
		if IsNotFound(err) {
			logger.Info("export definition gone, recreating", "definition", defID)
			_ = store.Delete(propstore.KeyExportDefinitionID)
			if defID, err = c.ensureExportDefinition(ctx, store); err != nil {
				return nil, err
			}
			if runID, err = c.startExportRun(ctx, defID, itemNumber, itemGUID); err != nil {
				return nil, err
			}
		} else {
			return nil, err
		}
	}

	run, err := c.waitForExportRun(ctx, defID, runID)
	if err != nil {
		return nil, err
	}
	if len(run.Files) == 0 {
		return nil, fmt.Errorf("export run %s completed without files", runID)
	}

	archive, err := c.downloadExportFile(ctx, defID, runID, run.Files[0].GUID)
	if err != nil {
		return nil, err
	}
	return extractJSONEntry(archive)
}

// ensureExportDefinition returns the persisted definition id, creating the
// definition on first use.
func (c *Client) ensureExportDefinition(ctx context.Context, store propstore.Store) (string, error) {
	if stored, err := store.Get(propstore.KeyExportDefinitionID); err == nil && len(stored) > 0 {
		return string(stored), nil
	}

	var created struct {
		GUID string `json:"guid"`
	}
	if err := c.post(ctx, "/exports", exportDefinitionBody, &created); err != nil {
		return "", fmt.Errorf("failed to create export definition: %w", err)
	}
	if created.GUID == "" {
		return "", fmt.Errorf("export definition response carried no id")
	}
	if err := store.Set(propstore.KeyExportDefinitionID, []byte(created.GUID)); err != nil {
		return "", err
	}
	logger.Debug("created export definition", "definition", created.GUID)
	return created.GUID, nil
}

// startExportRun posts a run scoped to the root item.
func (c *Client) startExportRun(ctx context.Context, defID, itemNumber, itemGUID string) (string, error) {
	body := map[string]any{
		"criteria": []map[string]any{
			{
				"attribute": "number",
				"operator":  "IS_EQUAL_TO",
				"value":     itemNumber,
			},
		},
		"item": map[string]string{"guid": itemGUID},
	}

	var run exportRun
	if err := c.post(ctx, "/exports/"+url.PathEscape(defID)+"/runs", body, &run); err != nil {
		return "", err
	}
	if run.GUID == "" {
		return "", fmt.Errorf("export run response carried no id")
	}
	return run.GUID, nil
}

// waitForExportRun polls the run until it reaches a terminal state or the
// polling budget is exhausted.
func (c *Client) waitForExportRun(ctx context.Context, defID, runID string) (*exportRun, error) {
	path := "/exports/" + url.PathEscape(defID) + "/runs/" + url.PathEscape(runID)

	for attempt := 0; attempt < exportPollLimit; attempt++ {
		var run exportRun
		if err := c.get(ctx, path, nil, &run); err != nil {
			return nil, err
		}

		switch strings.ToUpper(run.Status) {
		case exportStatusComplete:
			return &run, nil
		case exportStatusFailed, exportStatusAborted:
			return nil, fmt.Errorf("export run %s ended with status %s", runID, run.Status)
		}

		if err := c.sleep(ctx, exportPollInterval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("export run %s did not complete within %s", runID, exportPollLimit*exportPollInterval)
}

// downloadExportFile fetches the raw archive bytes of a run result file.
func (c *Client) downloadExportFile(ctx context.Context, defID, runID, fileID string) ([]byte, error) {
	path := "/exports/" + url.PathEscape(defID) + "/runs/" + url.PathEscape(runID) + "/files/" + url.PathEscape(fileID) + "/content"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	token, err := c.session.Session(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set(SessionHeader, token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport error: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read export archive: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, newAPIError(resp.StatusCode, extractServerMessage(data))
	}
	return data, nil
}

// extractJSONEntry locates the JSON entry inside the export archive.
// Some server versions return the JSON directly instead of a zip.
func extractJSONEntry(archive []byte) ([]byte, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		// Not a zip: assume plain JSON payload.
		trimmed := bytes.TrimSpace(archive)
		if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
			return trimmed, nil
		}
		return nil, fmt.Errorf("export archive is neither zip nor JSON: %w", err)
	}

	for _, entry := range reader.File {
		if !strings.HasSuffix(strings.ToLower(entry.Name), ".json") {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open archive entry %s: %w", entry.Name, err)
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry %s: %w", entry.Name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("export archive contains no JSON entry")
}
