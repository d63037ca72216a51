package deb

import (
	"strings"
	"testing"

	"github.com/devops-csmake/debpack/internal/models"
	"github.com/google/go-cmp/cmp"
)

func TestRenderCopyright(t *testing.T) {
	defaults := []models.CopyrightRight{
		{Years: "2019-2024", Holder: "Acme", License: "MIT", Disclaimer: "no warranty"},
		{Years: "2024", Holder: "Bob", License: "BSD-3-Clause"},
	}
	perPath := []models.CopyrightBlock{
		{Path: "src/vendor/*", Rights: []models.CopyrightRight{{Years: "2018", Holder: "Vendor", License: "MIT"}}},
		{Path: "empty/*"},
	}
	header := []models.Field{
		{Key: "Name", Value: "demo"},
		{Key: "Upstream-Contact", Value: "x@example.com"},
		{Key: "Format-Specification", Value: "http://example.com/dep5"},
		{Key: "Maintainer", Value: "M <m@example.com>"},
	}

	want := `Format-Specification: http://example.com/dep5
Name: demo
Maintainer: M <m@example.com>
Upstream-Contact: x@example.com

Copyright: 2019-2024 Acme
    2024 Bob
License: BSD-3-Clause
Disclaimer: no warranty

Files: *
Copyright: 2019-2024 Acme
    2024 Bob
License: BSD-3-Clause
Disclaimer: no warranty

Files: src/vendor/*
Copyright: 2018 Vendor
License: MIT

`
	got := string(RenderCopyright(defaults, perPath, header))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("copyright mismatch (-want +got):\n%s", diff)
	}
}

func TestRenderCopyrightWithoutDefaults(t *testing.T) {
	perPath := []models.CopyrightBlock{
		{Path: "debian/*", Rights: []models.CopyrightRight{{Years: "2024", Holder: "Packager", License: "LGPL-2.1"}}},
	}
	got := string(RenderCopyright(nil, perPath, []models.Field{{Key: "Name", Value: "demo"}}))

	if strings.Contains(got, "Files: *") {
		t.Errorf("Default section rendered without default rights:\n%s", got)
	}
	if !strings.HasPrefix(got, "Name: demo\n\nFiles: debian/*\nCopyright: 2024 Packager\nLicense: LGPL-2.1\n") {
		t.Errorf("Unexpected copyright:\n%s", got)
	}

	text, _ := LicenseText("LGPL-2.1")
	if strings.Count(got, text) != 1 {
		t.Errorf("LGPL-2.1 text should appear once:\n%s", got)
	}
	if !strings.HasSuffix(got, text+"\n\n") {
		t.Errorf("License text should close the block:\n%s", got)
	}
}

func TestMultipleDisclaimers(t *testing.T) {
	rights := []models.CopyrightRight{
		{Years: "2020", Holder: "A", License: "MIT", Disclaimer: "first "},
		{Years: "2021", Holder: "B", License: "MIT", Disclaimer: "second"},
	}
	got := string(RenderCopyright(nil, []models.CopyrightBlock{{Path: "x/*", Rights: rights}}, nil))

	if !strings.Contains(got, "Disclaimer: first\n second\n") {
		t.Errorf("Disclaimers not joined as continuation lines:\n%s", got)
	}
}

func TestRegisterLicense(t *testing.T) {
	RegisterLicense("Test-1.0", "Line one\n\nLine two\n")

	text, ok := LicenseText("Test-1.0")
	if !ok {
		t.Fatalf("Registered license not found")
	}
	if text != " Line one\n .\n Line two" {
		t.Errorf("Unexpected license text %q", text)
	}

	if _, ok := LicenseText("Unknown-9"); ok {
		t.Errorf("Unknown license should not be found")
	}
}

func TestLGPLTextIsContinuation(t *testing.T) {
	text, ok := LicenseText("LGPL-2.1")
	if !ok {
		t.Fatal("LGPL-2.1 not registered")
	}
	for i, line := range strings.Split(text, "\n") {
		if !strings.HasPrefix(line, " ") {
			t.Errorf("line %d is not a continuation line: %q", i+1, line)
		}
	}
	if !strings.Contains(text, "\n .\n On Debian systems, the complete text") {
		t.Errorf("Debian notice is not a separate paragraph:\n%s", text)
	}
}
