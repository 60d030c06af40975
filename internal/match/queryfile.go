// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package match

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"
)

// QueryFile is the on-disk form of a search and, optionally, its results.
// A saved search can be re-run later or reviewed without querying sources.
type QueryFile struct {
	Request  Request      `yaml:"request"`
	Response *Response    `yaml:"response,omitempty"`
	Summary  QuerySummary `yaml:"summary"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	Total         int       `yaml:"total"`
	FailedSources []string  `yaml:"failed_sources,omitempty"`
	Timestamp     time.Time `yaml:"timestamp"`
}

// WriteQueryFile saves a request and its response to a YAML file.
func WriteQueryFile(path string, req Request, resp Response) error {
	qf := QueryFile{
		Request:  req,
		Response: &resp,
		Summary: QuerySummary{
			Total:         resp.Total,
			FailedSources: resp.Manifest.FailedIDs(),
			Timestamp:     time.Now().UTC(),
		},
	}
	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file. A file holding only a
// request section is accepted.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	if len(qf.Request.Criteria) == 0 {
		return nil, fmt.Errorf("query file %s has no criteria", path)
	}
	return &qf, nil
}
