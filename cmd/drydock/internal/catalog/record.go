// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

// Category groups applications for selection, presented in Order.
//
// Record line: key|display_name|description|order
type Category struct {
	// Key is the unique category identifier referenced by App.CategoryKey.
	Key string

	// DisplayName is the human-readable name shown in menus.
	DisplayName string

	// Description is shown alongside the name in selection screens.
	Description string

	// Order defines the display and processing position, ascending.
	// A missing or non-numeric order sorts as zero.
	Order int
}

// App is one installable application.
//
// Record line: key|display_name|category_key|install_action|description
type App struct {
	// Key is the unique application identifier.
	Key string

	// DisplayName is the human-readable name shown in menus.
	DisplayName string

	// CategoryKey references the Category this app belongs to.
	CategoryKey string

	// InstallAction tells the package-manager adapter how to install the
	// app: "formula:<name>", "cask:<name>", or a bare formula name.
	// Only the Homebrew adapter interprets this value.
	InstallAction string

	// Description is shown alongside the name in selection screens.
	Description string
}

// Language is one installable programming-language runtime.
//
// Record line: key|display_name|description|version_spec
type Language struct {
	// Key is the unique language identifier, as the version manager
	// knows it (for example "node" or "python").
	Key string

	// DisplayName is the human-readable name shown in menus.
	DisplayName string

	// Description is shown alongside the name in selection screens.
	Description string

	// VersionSpec is a literal version ("3.12") or the sentinel
	// "latest".
	VersionSpec string
}
