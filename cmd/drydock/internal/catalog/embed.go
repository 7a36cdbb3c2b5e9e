// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import _ "embed"

// Default catalog content compiled into the binary. A per-user catalog
// directory can replace any of these per file; see Load.

//go:embed defaults/categories.conf
var defaultCategories []byte

//go:embed defaults/apps.conf
var defaultApps []byte

//go:embed defaults/languages.conf
var defaultLanguages []byte
