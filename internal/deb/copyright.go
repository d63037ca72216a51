package deb

import (
	"fmt"
	"strings"

	"github.com/devops-csmake/debpack/internal/models"
)

// copyrightHeaderOrder lists the header keys that always come first
var copyrightHeaderOrder = []string{"Format-Specification", "Name", "Maintainer"}

// RenderCopyright renders a machine-readable copyright file.
//
// The header comes first, then the default rights twice (once as the
// unqualified stanza and once as "Files: *"), then every per-path block.
// Blocks without rights are left out.
func RenderCopyright(defaults []models.CopyrightRight, perPath []models.CopyrightBlock, header []models.Field) []byte {
	var b strings.Builder

	for _, key := range copyrightHeaderOrder {
		if value, ok := fieldValue(header, key); ok {
			fmt.Fprintf(&b, "%s: %s\n", key, value)
		}
	}
	for _, f := range header {
		if isFixedHeader(f.Key) {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", f.Key, f.Value)
	}
	b.WriteString("\n")

	writeCopyrightBlock(&b, "", defaults)
	writeCopyrightBlock(&b, "*", defaults)
	for _, block := range perPath {
		writeCopyrightBlock(&b, block.Path, block.Rights)
	}

	return []byte(b.String())
}

func writeCopyrightBlock(b *strings.Builder, files string, rights []models.CopyrightRight) {
	if len(rights) == 0 {
		return
	}

	if files != "" {
		fmt.Fprintf(b, "Files: %s\n", files)
	}

	var disclaimers []string
	for i, r := range rights {
		if i == 0 {
			fmt.Fprintf(b, "Copyright: %s %s\n", r.Years, r.Holder)
		} else {
			fmt.Fprintf(b, "    %s %s\n", r.Years, r.Holder)
		}
		if d := strings.TrimSpace(r.Disclaimer); d != "" {
			disclaimers = append(disclaimers, d)
		}
	}

	license := strings.TrimSpace(rights[len(rights)-1].License)
	fmt.Fprintf(b, "License: %s\n", license)
	if text, ok := LicenseText(license); ok {
		b.WriteString(text)
		b.WriteString("\n")
	}

	if len(disclaimers) > 0 {
		// One disclaimer per continuation line
		fmt.Fprintf(b, "Disclaimer: %s\n", strings.Join(disclaimers, "\n "))
	}
	b.WriteString("\n")
}

func fieldValue(fields []models.Field, key string) (string, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

func isFixedHeader(key string) bool {
	for _, k := range copyrightHeaderOrder {
		if k == key {
			return true
		}
	}
	return false
}
