// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"testing"
)

// =============================================================================
// Line Handling Tests
// =============================================================================

func TestParseApps_SkipsCommentsAndBlanks(t *testing.T) {
	data := []byte(`# header comment

wget|wget|devtools|formula:wget|Network downloader
   # indented comment
jq|jq|devtools|formula:jq|JSON processor
`)

	apps := ParseApps(data)
	if len(apps) != 2 {
		t.Fatalf("Expected 2 apps, got %d", len(apps))
	}
	if apps[0].Key != "wget" {
		t.Errorf("apps[0].Key = %q, want wget", apps[0].Key)
	}
	if apps[1].Key != "jq" {
		t.Errorf("apps[1].Key = %q, want jq", apps[1].Key)
	}
}

func TestParseApps_ShortLinePadsEmptyFields(t *testing.T) {
	data := []byte("neovim|Neovim\n")

	apps := ParseApps(data)
	if len(apps) != 1 {
		t.Fatalf("Expected 1 app, got %d", len(apps))
	}
	app := apps[0]
	if app.Key != "neovim" || app.DisplayName != "Neovim" {
		t.Errorf("Unexpected leading fields: %+v", app)
	}
	if app.CategoryKey != "" || app.InstallAction != "" || app.Description != "" {
		t.Errorf("Missing trailing fields should be empty strings: %+v", app)
	}
}

func TestParseApps_TrimsFieldWhitespace(t *testing.T) {
	data := []byte("  tmux | tmux | terminals | formula:tmux | Terminal multiplexer  \n")

	apps := ParseApps(data)
	if len(apps) != 1 {
		t.Fatalf("Expected 1 app, got %d", len(apps))
	}
	if apps[0].Key != "tmux" {
		t.Errorf("Key = %q, want tmux", apps[0].Key)
	}
	if apps[0].InstallAction != "formula:tmux" {
		t.Errorf("InstallAction = %q, want formula:tmux", apps[0].InstallAction)
	}
	if apps[0].Description != "Terminal multiplexer" {
		t.Errorf("Description = %q, want trimmed value", apps[0].Description)
	}
}

func TestParseApps_DropsEmptyKeyRecords(t *testing.T) {
	data := []byte("|orphan|devtools|formula:orphan|No key\nwget|wget|devtools|formula:wget|Downloader\n")

	apps := ParseApps(data)
	if len(apps) != 1 {
		t.Fatalf("Expected 1 app, got %d", len(apps))
	}
	if apps[0].Key != "wget" {
		t.Errorf("Key = %q, want wget", apps[0].Key)
	}
}

func TestParseApps_ExtraFieldsIgnored(t *testing.T) {
	data := []byte("wget|wget|devtools|formula:wget|Downloader|unexpected|more\n")

	apps := ParseApps(data)
	if len(apps) != 1 {
		t.Fatalf("Expected 1 app, got %d", len(apps))
	}
	if apps[0].Description != "Downloader" {
		t.Errorf("Description = %q, want Downloader", apps[0].Description)
	}
}

func TestParseApps_WindowsLineEndings(t *testing.T) {
	data := []byte("wget|wget|devtools|formula:wget|Downloader\r\njq|jq|devtools|formula:jq|JSON\r\n")

	apps := ParseApps(data)
	if len(apps) != 2 {
		t.Fatalf("Expected 2 apps, got %d", len(apps))
	}
	if apps[1].Description != "JSON" {
		t.Errorf("Description = %q, want JSON without carriage return", apps[1].Description)
	}
}

func TestParseApps_Empty(t *testing.T) {
	if apps := ParseApps(nil); len(apps) != 0 {
		t.Errorf("Expected no apps from nil input, got %d", len(apps))
	}
	if apps := ParseApps([]byte("# only a comment\n")); len(apps) != 0 {
		t.Errorf("Expected no apps from comment-only input, got %d", len(apps))
	}
}

// =============================================================================
// Category Tests
// =============================================================================

func TestParseCategories_SortedByOrderAscending(t *testing.T) {
	data := []byte(`editors|Editors|Code editors|3
browsers|Browsers|Web browsers|1
terminals|Terminals|Terminal emulators|2
`)

	categories := ParseCategories(data)
	if len(categories) != 3 {
		t.Fatalf("Expected 3 categories, got %d", len(categories))
	}

	wantOrder := []int{1, 2, 3}
	wantKeys := []string{"browsers", "terminals", "editors"}
	for i, cat := range categories {
		if cat.Order != wantOrder[i] {
			t.Errorf("categories[%d].Order = %d, want %d", i, cat.Order, wantOrder[i])
		}
		if cat.Key != wantKeys[i] {
			t.Errorf("categories[%d].Key = %q, want %q", i, cat.Key, wantKeys[i])
		}
	}
}

func TestParseCategories_StableOnEqualOrder(t *testing.T) {
	data := []byte(`second|Second|Tied|5
first|First|Tied|5
zeroth|Zeroth|Comes first|1
`)

	categories := ParseCategories(data)
	if len(categories) != 3 {
		t.Fatalf("Expected 3 categories, got %d", len(categories))
	}
	if categories[0].Key != "zeroth" {
		t.Errorf("categories[0].Key = %q, want zeroth", categories[0].Key)
	}
	// File order preserved within the tie
	if categories[1].Key != "second" || categories[2].Key != "first" {
		t.Errorf("Tie not stable: got [%s %s]", categories[1].Key, categories[2].Key)
	}
}

func TestParseCategories_InvalidOrderSortsAsZero(t *testing.T) {
	data := []byte(`late|Late|Numeric order|4
unordered|Unordered|No order field
bogus|Bogus|Non-numeric order|abc
`)

	categories := ParseCategories(data)
	if len(categories) != 3 {
		t.Fatalf("Expected 3 categories, got %d", len(categories))
	}
	// Both zero-order records sort before the numeric one, file order kept.
	if categories[0].Key != "unordered" || categories[1].Key != "bogus" {
		t.Errorf("Zero-order records misplaced: [%s %s %s]",
			categories[0].Key, categories[1].Key, categories[2].Key)
	}
	if categories[2].Key != "late" {
		t.Errorf("categories[2].Key = %q, want late", categories[2].Key)
	}
}

// =============================================================================
// Language Tests
// =============================================================================

func TestParseLanguages_FileOrderPreserved(t *testing.T) {
	data := []byte(`node|Node.js|JavaScript runtime|latest
python|Python|Python interpreter|3.12
`)

	languages := ParseLanguages(data)
	if len(languages) != 2 {
		t.Fatalf("Expected 2 languages, got %d", len(languages))
	}
	if languages[0].Key != "node" || languages[1].Key != "python" {
		t.Errorf("File order not preserved: [%s %s]", languages[0].Key, languages[1].Key)
	}
	if languages[0].VersionSpec != "latest" {
		t.Errorf("VersionSpec = %q, want latest", languages[0].VersionSpec)
	}
	if languages[1].VersionSpec != "3.12" {
		t.Errorf("VersionSpec = %q, want 3.12", languages[1].VersionSpec)
	}
}
