// Copyright 2025 Magnus Pierre
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package deltasharing loads tables shared through a Delta Sharing server.
package deltasharing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/goccy/go-json"
	"github.com/magpierre/tabula/adapters/arrowadapter"
	"github.com/magpierre/tabula/datatable"
	"github.com/magpierre/tabula/filter"

	delta_sharing "github.com/magpierre/go_delta_sharing_client"
)

// DefaultTimeoutSeconds bounds every server call when Options leaves the
// timeout unset.
const DefaultTimeoutSeconds = 60

// Options control how a shared table is loaded.
type Options struct {
	// TimeoutSeconds bounds each server call; zero or less means
	// DefaultTimeoutSeconds.
	TimeoutSeconds int
	// FileID selects one data file of the table; empty means the first.
	FileID string
	// Query is applied to the loaded rows, see filter.QueryOptions.
	Query *filter.QueryOptions
}

// Client talks to one Delta Sharing server described by a profile.
type Client struct {
	client delta_sharing.SharingClientV2
	opts   Options
}

// IsProfile reports whether content looks like a Delta Sharing profile, that
// is a JSON object carrying shareCredentialsVersion, endpoint and bearerToken.
func IsProfile(content []byte) bool {
	var profile map[string]interface{}
	if err := json.Unmarshal(content, &profile); err != nil {
		return false
	}
	_, hasVersion := profile["shareCredentialsVersion"]
	_, hasEndpoint := profile["endpoint"]
	_, hasBearerToken := profile["bearerToken"]
	return hasVersion && hasEndpoint && hasBearerToken
}

// NewClient parses a profile (the JSON document issued by the data
// provider) and returns a client for its endpoint.
func NewClient(profile string, opts Options) (*Client, error) {
	c, err := delta_sharing.NewSharingClientV2FromString(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to create Delta Sharing client: %w", err)
	}
	return &Client{client: c, opts: opts}, nil
}

// createTimeoutContext derives a context bounded by timeoutSeconds.
func createTimeoutContext(parent context.Context, timeoutSeconds int) (context.Context, context.CancelFunc) {
	if timeoutSeconds <= 0 {
		timeoutSeconds = DefaultTimeoutSeconds
	}
	return context.WithTimeout(parent, time.Duration(timeoutSeconds)*time.Second)
}

// ListTables returns every table visible through the profile.
func (c *Client) ListTables(ctx context.Context) ([]delta_sharing.Table, error) {
	ctx, cancel := createTimeoutContext(ctx, c.opts.TimeoutSeconds)
	defer cancel()
	tables, _, err := c.client.ListAllTables_V2(ctx, 0, "", 0)
	if err != nil {
		return nil, fmt.Errorf("failed to list all tables: %w", err)
	}
	logger().V(1).Info("listed tables", "count", len(tables))
	return tables, nil
}

// FindTable looks up a table by its share.schema.table name.
func (c *Client) FindTable(ctx context.Context, name string) (delta_sharing.Table, error) {
	share, schema, table, err := ParseTableName(name)
	if err != nil {
		return delta_sharing.Table{}, err
	}
	tables, err := c.ListTables(ctx)
	if err != nil {
		return delta_sharing.Table{}, err
	}
	for _, t := range tables {
		if t.Share == share && t.Schema == schema && t.Name == table {
			return t, nil
		}
	}
	return delta_sharing.Table{}, fmt.Errorf("%w: shared table %s", datatable.ErrColumnNotFound, name)
}

// Files returns the ids of the data files of table.
func (c *Client) Files(ctx context.Context, table delta_sharing.Table) ([]string, error) {
	ctx, cancel := createTimeoutContext(ctx, c.opts.TimeoutSeconds)
	defer cancel()
	resp, err := c.client.ListFilesInTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list files of %s: %w", table.Name, err)
	}
	ids := make([]string, 0, len(resp.AddFiles))
	for _, f := range resp.AddFiles {
		ids = append(ids, f.Id)
	}
	return ids, nil
}

// Load reads one data file of table into a new datatable.Table and applies
// the configured query.
func (c *Client) Load(ctx context.Context, table delta_sharing.Table) (*datatable.Table, error) {
	files, err := c.Files(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("table %s has no data files", table.Name)
	}
	fileID := files[0]
	if c.opts.FileID != "" {
		fileID = ""
		for _, id := range files {
			if id == c.opts.FileID {
				fileID = id
				break
			}
		}
		if fileID == "" {
			return nil, fmt.Errorf("table %s has no file %s", table.Name, c.opts.FileID)
		}
	}

	ctx, cancel := createTimeoutContext(ctx, c.opts.TimeoutSeconds)
	defer cancel()
	at, err := delta_sharing.LoadArrowTable(ctx, c.client, table, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table.Name, err)
	}
	defer at.Release()

	tbl, err := arrowadapter.FromTable(at)
	if err != nil {
		return nil, err
	}
	logger().V(1).Info("loaded shared table", "table", table.Name, "file", fileID, "rows", tbl.NumberOfRows())
	if c.opts.Query == nil {
		return tbl, nil
	}
	v, err := filter.Select(tbl, c.opts.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to apply query options: %w", err)
	}
	return v.ToDataTable()
}

// ParseTableName splits share.schema.table.
func ParseTableName(name string) (share, schema, table string, err error) {
	parts := strings.Split(name, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("table name %q must have the form share.schema.table", name)
	}
	return parts[0], parts[1], parts[2], nil
}

func logger() logr.Logger {
	return datatable.Logger().WithName("deltasharing")
}
