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
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Source file names recognized inside a catalog directory.
const (
	CategoriesFile = "categories.conf"
	AppsFile       = "apps.conf"
	LanguagesFile  = "languages.conf"
)

// ErrNotFound marks a lookup for a key the catalog does not contain.
// Always wrapped with the record kind and key; match with errors.Is.
var ErrNotFound = errors.New("catalog record not found")

// Catalog holds the loaded records. Immutable once loaded; duplicate
// keys are tolerated and lookups return the first match.
type Catalog struct {
	categories []Category
	apps       []App
	languages  []Language
}

// Load builds a Catalog from the embedded defaults, replacing any of
// the three sources wholesale with a same-named file found in dir.
// An empty dir loads defaults only. A missing override file is not an
// error; an unreadable one is.
func Load(dir string) (*Catalog, error) {
	catData, err := readSource(dir, CategoriesFile, defaultCategories)
	if err != nil {
		return nil, err
	}
	appData, err := readSource(dir, AppsFile, defaultApps)
	if err != nil {
		return nil, err
	}
	langData, err := readSource(dir, LanguagesFile, defaultLanguages)
	if err != nil {
		return nil, err
	}
	return &Catalog{
		categories: ParseCategories(catData),
		apps:       ParseApps(appData),
		languages:  ParseLanguages(langData),
	}, nil
}

// readSource returns the override file content when present, the
// embedded fallback otherwise.
func readSource(dir, name string, fallback []byte) ([]byte, error) {
	if dir == "" {
		return fallback, nil
	}
	path := filepath.Join(dir, name)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fallback, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog override %s: %w", path, err)
	}
	return data, nil
}

// Categories returns all categories in canonical order (ascending by
// Order, stable on ties). The returned slice is shared; treat it as
// read-only.
func (c *Catalog) Categories() []Category {
	return c.categories
}

// Category returns the first category with the given key.
func (c *Catalog) Category(key string) (Category, error) {
	for _, cat := range c.categories {
		if cat.Key == key {
			return cat, nil
		}
	}
	return Category{}, fmt.Errorf("category %q: %w", key, ErrNotFound)
}

// Apps returns all application records in file order.
func (c *Catalog) Apps() []App {
	return c.apps
}

// AppsInCategory returns the applications belonging to the given
// category, in file order. An unknown category yields an empty slice.
func (c *Catalog) AppsInCategory(categoryKey string) []App {
	var apps []App
	for _, a := range c.apps {
		if a.CategoryKey == categoryKey {
			apps = append(apps, a)
		}
	}
	return apps
}

// App returns the first application with the given key.
func (c *Catalog) App(key string) (App, error) {
	for _, a := range c.apps {
		if a.Key == key {
			return a, nil
		}
	}
	return App{}, fmt.Errorf("app %q: %w", key, ErrNotFound)
}

// Languages returns all language records in file order.
func (c *Catalog) Languages() []Language {
	return c.languages
}

// Language returns the first language with the given key.
func (c *Catalog) Language(key string) (Language, error) {
	for _, l := range c.languages {
		if l.Key == key {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("language %q: %w", key, ErrNotFound)
}
