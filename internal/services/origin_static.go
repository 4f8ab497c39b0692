package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/information-sharing-networks/passbook/internal/passbook"
	"github.com/information-sharing-networks/passbook/internal/pkpass"
	"gopkg.in/yaml.v3"
)

// StaticOriginProvider serves pass content for one origin type from a YAML file loaded at startup.
// It is intended for development and demos.
//
// The file maps origin type -> origin id -> record:
//
//	member:
//	  "1001":
//	    lastModified: 2024-05-01T12:00:00Z
//	    pass:
//	      formatVersion: 1
//	      passTypeIdentifier: pass.org.example.member
//	      ...
//	    files:
//	      icon.png: images/icon.png
//
// File paths are relative to the directory of the YAML file.
type StaticOriginProvider struct {
	originType string
	records    map[string]staticRecord
}

type staticRecord struct {
	lastModified time.Time
	passJSON     []byte
	files        map[string][]byte
}

// staticRecordFile is a record as it appears in the YAML file
type staticRecordFile struct {
	LastModified time.Time         `yaml:"lastModified"`
	Pass         map[string]any    `yaml:"pass"`
	Files        map[string]string `yaml:"files"`
}

// LoadStaticOrigins reads the YAML file and returns a provider per origin type
func LoadStaticOrigins(path string) (map[string]*StaticOriginProvider, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is from server config
	if err != nil {
		return nil, fmt.Errorf("failed to read static origins file: %w", err)
	}

	var doc map[string]map[string]staticRecordFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse static origins file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	providers := make(map[string]*StaticOriginProvider, len(doc))

	for originType, records := range doc {
		p := &StaticOriginProvider{
			originType: originType,
			records:    make(map[string]staticRecord, len(records)),
		}

		for originID, rf := range records {
			if rf.LastModified.IsZero() {
				return nil, fmt.Errorf("static origin %s,%s: lastModified is required", originType, originID)
			}

			passJSON, err := json.Marshal(rf.Pass)
			if err != nil {
				return nil, fmt.Errorf("static origin %s,%s: pass content cannot be converted to JSON: %w", originType, originID, err)
			}

			files := make(map[string][]byte, len(rf.Files))
			for name, rel := range rf.Files {
				fileData, err := os.ReadFile(filepath.Join(dir, filepath.Clean(rel))) // #nosec G304 -- paths are from server config
				if err != nil {
					return nil, fmt.Errorf("static origin %s,%s: %w", originType, originID, err)
				}
				files[name] = fileData
			}

			p.records[originID] = staticRecord{
				lastModified: rf.LastModified,
				passJSON:     passJSON,
				files:        files,
			}
		}
		providers[originType] = p
	}

	return providers, nil
}

// PassContent returns a fresh copy of the record's content
func (p *StaticOriginProvider) PassContent(ctx context.Context, originID string) (*pkpass.Content, error) {
	r, ok := p.records[originID]
	if !ok {
		return nil, passbook.ErrOriginNotFound
	}

	var content pkpass.Content
	if err := json.Unmarshal(r.passJSON, &content); err != nil {
		return nil, fmt.Errorf("static origin %s,%s: %w", p.originType, originID, err)
	}

	content.Files = make(map[string][]byte, len(r.files))
	for name, data := range r.files {
		content.Files[name] = data
	}
	return &content, nil
}

// LastModified returns the record's lastModified value
func (p *StaticOriginProvider) LastModified(ctx context.Context, originID string) (time.Time, error) {
	r, ok := p.records[originID]
	if !ok {
		return time.Time{}, passbook.ErrOriginNotFound
	}
	return r.lastModified, nil
}
