// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog loads the pipe-delimited application, category, and
// language definitions that drive selection and installation.
//
// # File Format
//
// Each source file holds one record per line, fields separated by "|".
// A line is ignored when it is blank or its first non-space character
// is "#". A short line pads its missing trailing fields with empty
// strings rather than failing. Parsing itself never errors; a record
// with an empty key field is dropped.
//
// Three record shapes exist:
//
//	categories.conf  key|display_name|description|order
//	apps.conf        key|display_name|category_key|install_action|description
//	languages.conf   key|display_name|description|version_spec
//
// Defaults ship embedded in the binary; a catalog directory (normally
// ~/.drydock/catalog) may override any of the three files wholesale.
package catalog

import (
	"bufio"
	"bytes"
	"sort"
	"strconv"
	"strings"
)

// fieldSeparator splits a record line into positional fields.
const fieldSeparator = "|"

// Field counts per record shape.
const (
	categoryFieldCount = 4
	appFieldCount      = 5
	languageFieldCount = 4
)

// splitRecords turns raw file content into per-line field tuples.
//
// Comment and blank lines are skipped, fields are whitespace-trimmed,
// short lines are padded to fieldCount, and lines with an empty key
// field are dropped. Extra trailing fields beyond fieldCount are
// ignored.
func splitRecords(data []byte, fieldCount int) [][]string {
	var records [][]string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, fieldSeparator)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		for len(fields) < fieldCount {
			fields = append(fields, "")
		}
		if fields[0] == "" {
			continue
		}
		records = append(records, fields)
	}
	return records
}

// ParseCategories parses category records and returns them in canonical
// iteration order: ascending by Order, stable with respect to file
// order on ties.
func ParseCategories(data []byte) []Category {
	var categories []Category
	for _, f := range splitRecords(data, categoryFieldCount) {
		order, err := strconv.Atoi(f[3])
		if err != nil {
			order = 0
		}
		categories = append(categories, Category{
			Key:         f[0],
			DisplayName: f[1],
			Description: f[2],
			Order:       order,
		})
	}
	sort.SliceStable(categories, func(i, j int) bool {
		return categories[i].Order < categories[j].Order
	})
	return categories
}

// ParseApps parses application records in file order.
func ParseApps(data []byte) []App {
	var apps []App
	for _, f := range splitRecords(data, appFieldCount) {
		apps = append(apps, App{
			Key:           f[0],
			DisplayName:   f[1],
			CategoryKey:   f[2],
			InstallAction: f[3],
			Description:   f[4],
		})
	}
	return apps
}

// ParseLanguages parses language records in file order.
func ParseLanguages(data []byte) []Language {
	var languages []Language
	for _, f := range splitRecords(data, languageFieldCount) {
		languages = append(languages, Language{
			Key:         f[0],
			DisplayName: f[1],
			Description: f[2],
			VersionSpec: f[3],
		})
	}
	return languages
}
