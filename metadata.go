// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package percnorm

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/arvados/percnorm/norm"
	log "github.com/sirupsen/logrus"
)

// sampleMetadata is a tab-separated sample metadata file: a header
// row of column names, then one row per sample with the sample id in
// the first column. Rows starting with "#q2:" are type annotations
// and are skipped. Empty cells are missing values.
type sampleMetadata struct {
	columns []string
	ids     []string
	values  map[string][]string // column name => values, same order as ids
}

func loadSampleMetadata(r io.Reader, source string) (*sampleMetadata, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	md := &sampleMetadata{values: map[string][]string{}}
	seen := map[string]bool{}
	lineNum := 0
	for _, tsv := range bytes.Split(buf, []byte{'\n'}) {
		lineNum++
		tsv = bytes.TrimSuffix(tsv, []byte{'\r'})
		if len(tsv) == 0 || bytes.HasPrefix(tsv, []byte("#q2:")) {
			continue
		}
		if md.columns != nil && bytes.HasPrefix(tsv, []byte("#")) {
			// comment
			continue
		}
		split := strings.Split(string(tsv), "\t")
		if md.columns == nil {
			if len(split) < 2 {
				return nil, fmt.Errorf("%s: header row has no metadata columns: %q", source, tsv)
			}
			md.columns = split[1:]
			continue
		}
		id := strings.TrimSpace(split[0])
		if id == "" {
			continue
		}
		if seen[id] {
			return nil, fmt.Errorf("%s line %d: duplicate sample id %q", source, lineNum, id)
		}
		seen[id] = true
		if len(split) > len(md.columns)+1 {
			return nil, fmt.Errorf("%s line %d: %d fields, header has %d", source, lineNum, len(split), len(md.columns)+1)
		}
		md.ids = append(md.ids, id)
		for i, col := range md.columns {
			v := ""
			if i+1 < len(split) {
				v = strings.TrimSpace(split[i+1])
			}
			md.values[col] = append(md.values[col], v)
		}
	}
	if md.columns == nil {
		return nil, fmt.Errorf("%s: no header row", source)
	}
	log.Infof("%s: %d samples, %d columns", source, len(md.ids), len(md.columns))
	return md, nil
}

// Column returns the named column as a LabelSource.
func (md *sampleMetadata) Column(name string) (norm.Column, error) {
	values, ok := md.values[name]
	if !ok {
		return nil, fmt.Errorf("no column named %q in metadata (have %q)", name, md.columns)
	}
	col := make(norm.Column, len(md.ids))
	for i, id := range md.ids {
		col[id] = values[i]
	}
	return col, nil
}

func loadSampleMetadataFile(fnm string) (*sampleMetadata, error) {
	f, err := zopen(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return loadSampleMetadata(f, fnm)
}
