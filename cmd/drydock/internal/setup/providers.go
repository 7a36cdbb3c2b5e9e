// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package setup

import (
	"context"
	"fmt"

	"github.com/AleutianAI/drydock/cmd/drydock/internal/catalog"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/state"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/tools"
	"github.com/AleutianAI/drydock/cmd/drydock/internal/ui"
)

// =============================================================================
// Provider Interface
// =============================================================================

// Screen is one multi-select presentation unit: a titled option list.
// A screen with no options is skipped by the selection pipeline with a
// notice instead of an empty prompt.
type Screen struct {
	// Title is the prompt heading.
	Title string

	// Options are the selectable catalog entries.
	Options []ui.Option
}

// Provider supplies the candidates, satisfaction probes, and install
// actions for one item family.
//
// # Description
//
// The selection and installation pipelines are generic over this
// interface, so applications (Homebrew) and languages (mise) share one
// pipeline implementation instead of two divergent copies. Everything
// tool-specific, including how "already installed" is detected, lives
// behind a Provider.
//
// # Thread Safety
//
// Providers are driven sequentially by the pipelines and need no
// internal locking.
type Provider interface {
	// Kind identifies which state sets this provider feeds.
	Kind() state.ItemKind

	// Screens returns the selection screens in presentation order.
	Screens() []Screen

	// DisplayName resolves a key to its human-readable name, falling
	// back to the key itself for entries missing from the catalog.
	DisplayName(key string) string

	// IsSatisfied reports whether key is already installed, with an
	// optional detail such as the active version.
	IsSatisfied(ctx context.Context, key string) (satisfied bool, detail string)

	// Apply installs key. The returned detail describes the outcome on
	// success; a key the catalog cannot resolve is an error.
	Apply(ctx context.Context, key string) (detail string, err error)

	// Remediation returns a copy-pasteable command to install key by
	// hand after a failure.
	Remediation(key string) string
}

// =============================================================================
// Application Provider
// =============================================================================

// AppProvider feeds the pipelines from the application catalog,
// installing through Homebrew.
type AppProvider struct {
	catalog *catalog.Catalog
	brew    *tools.Homebrew
}

var _ Provider = (*AppProvider)(nil)

// NewAppProvider creates an application provider.
func NewAppProvider(cat *catalog.Catalog, brew *tools.Homebrew) *AppProvider {
	return &AppProvider{catalog: cat, brew: brew}
}

// Kind returns the application family.
func (p *AppProvider) Kind() state.ItemKind { return state.KindApps }

// Screens returns one screen per catalog category, in category order.
// Categories without apps still get a screen so the pipeline can say
// they were skipped.
func (p *AppProvider) Screens() []Screen {
	categories := p.catalog.Categories()
	screens := make([]Screen, 0, len(categories))
	for _, c := range categories {
		apps := p.catalog.AppsInCategory(c.Key)
		options := make([]ui.Option, 0, len(apps))
		for _, a := range apps {
			options = append(options, ui.Option{
				Key:   a.Key,
				Label: a.DisplayName,
				Note:  a.Description,
			})
		}
		screens = append(screens, Screen{Title: c.DisplayName, Options: options})
	}
	return screens
}

// DisplayName resolves an app key to its display name.
func (p *AppProvider) DisplayName(key string) string {
	if app, err := p.catalog.App(key); err == nil {
		return app.DisplayName
	}
	return key
}

// IsSatisfied asks Homebrew whether the app's target is installed.
// Unknown keys report unsatisfied and fail later in Apply, so the
// failure lands in failed_apps where the summary can show it.
func (p *AppProvider) IsSatisfied(ctx context.Context, key string) (bool, string) {
	app, err := p.catalog.App(key)
	if err != nil {
		return false, ""
	}
	if p.brew.PackageInstalled(ctx, tools.ParseInstallTarget(app.InstallAction)) {
		return true, "already installed"
	}
	return false, ""
}

// Apply installs the app through Homebrew.
func (p *AppProvider) Apply(ctx context.Context, key string) (string, error) {
	app, err := p.catalog.App(key)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %q: %w", key, err)
	}
	outcome, err := p.brew.Install(ctx, tools.ParseInstallTarget(app.InstallAction))
	if err != nil {
		return "", err
	}
	return outcome.String(), nil
}

// Remediation returns the brew command for key.
func (p *AppProvider) Remediation(key string) string {
	target := tools.InstallTarget{Name: key}
	if app, err := p.catalog.App(key); err == nil {
		target = tools.ParseInstallTarget(app.InstallAction)
	}
	if target.Cask {
		return fmt.Sprintf("brew install --cask %s", target.Name)
	}
	return fmt.Sprintf("brew install %s", target.Name)
}

// =============================================================================
// Language Provider
// =============================================================================

// LanguageProvider feeds the pipelines from the language catalog,
// installing runtimes through mise.
type LanguageProvider struct {
	catalog *catalog.Catalog
	mise    *tools.Mise
}

var _ Provider = (*LanguageProvider)(nil)

// NewLanguageProvider creates a language provider.
func NewLanguageProvider(cat *catalog.Catalog, mise *tools.Mise) *LanguageProvider {
	return &LanguageProvider{catalog: cat, mise: mise}
}

// Kind returns the language family.
func (p *LanguageProvider) Kind() state.ItemKind { return state.KindLanguages }

// Screens returns a single screen listing every language in catalog
// file order.
func (p *LanguageProvider) Screens() []Screen {
	languages := p.catalog.Languages()
	options := make([]ui.Option, 0, len(languages))
	for _, l := range languages {
		options = append(options, ui.Option{
			Key:   l.Key,
			Label: fmt.Sprintf("%s (%s)", l.DisplayName, l.VersionSpec),
			Note:  l.Description,
		})
	}
	return []Screen{{Title: "Languages", Options: options}}
}

// DisplayName resolves a language key to its display name.
func (p *LanguageProvider) DisplayName(key string) string {
	if lang, err := p.catalog.Language(key); err == nil {
		return lang.DisplayName
	}
	return key
}

// IsSatisfied asks mise whether the catalog's version spec is already
// the active version.
func (p *LanguageProvider) IsSatisfied(ctx context.Context, key string) (bool, string) {
	lang, err := p.catalog.Language(key)
	if err != nil {
		return false, ""
	}
	satisfied, current := p.mise.IsSatisfied(ctx, lang.Key, lang.VersionSpec)
	if satisfied && current != "" {
		return true, fmt.Sprintf("%s active", current)
	}
	return satisfied, current
}

// Apply makes the catalog's version the global one through mise.
func (p *LanguageProvider) Apply(ctx context.Context, key string) (string, error) {
	lang, err := p.catalog.Language(key)
	if err != nil {
		return "", fmt.Errorf("cannot resolve %q: %w", key, err)
	}
	if err := p.mise.Install(ctx, lang.Key, lang.VersionSpec); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s@%s installed", lang.Key, lang.VersionSpec), nil
}

// Remediation returns the mise command for key.
func (p *LanguageProvider) Remediation(key string) string {
	spec := "latest"
	if lang, err := p.catalog.Language(key); err == nil && lang.VersionSpec != "" {
		spec = lang.VersionSpec
	}
	return fmt.Sprintf("mise use --global %s@%s", key, spec)
}
