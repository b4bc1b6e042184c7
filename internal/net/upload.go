package net

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"LocalBoard/internal/export"
)

// UploadSnapshot posts a snapshot artifact to the relay at addr (host:port)
// and returns the file name the relay stored it under.
func UploadSnapshot(ctx context.Context, client *http.Client, addr string, a export.Artifact) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	body, err := json.Marshal(snapshotRequest{
		Snapshot: fmt.Sprintf("data:%s;base64,%s", a.ContentType, base64.StdEncoding.EncodeToString(a.Data)),
	})
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+SnapshotPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload snapshot: relay answered %s", resp.Status)
	}
	var out snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode snapshot response: %w", err)
	}
	return out.Filename, nil
}
