package exporter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mblydenburgh/postie/internal/core"
	"github.com/mblydenburgh/postie/internal/interpolate"
)

// CurlExporter writes one curl command per saved request.
type CurlExporter struct {
	// Pretty puts each option on its own continuation line.
	Pretty bool
	// IncludeAuth adds the header derived from request or collection auth.
	IncludeAuth bool
	// Environment, when set, is substituted into URLs before export.
	Environment *core.EnvironmentFile
}

// NewCurlExporter creates a curl exporter with pretty output and auth.
func NewCurlExporter() *CurlExporter {
	return &CurlExporter{
		Pretty:      true,
		IncludeAuth: true,
	}
}

func (c *CurlExporter) Name() string          { return "curl command" }
func (c *CurlExporter) Format() Format        { return FormatCurl }
func (c *CurlExporter) FileExtension() string { return ".sh" }

// Export writes a shell script with a comment per folder and request.
func (c *CurlExporter) Export(_ context.Context, coll core.Collection) ([]byte, error) {
	var sb strings.Builder

	fmt.Fprintf(&sb, "#!/bin/sh\n# Collection: %s\n", coll.Info.Name)
	if coll.Info.Description != "" {
		fmt.Fprintf(&sb, "# %s\n", coll.Info.Description)
	}
	sb.WriteString("\n")

	c.writeNodes(&sb, coll.Item, coll.Auth, nil)
	return []byte(sb.String()), nil
}

func (c *CurlExporter) writeNodes(sb *strings.Builder, nodes core.Nodes, auth *core.CollectionAuth, path []string) {
	for _, node := range nodes {
		switch n := node.(type) {
		case core.Item:
			fmt.Fprintf(sb, "# %s\n", n.Name)
			sb.WriteString(c.Command(n, auth))
			sb.WriteString("\n\n")
		case core.Folder:
			folderPath := append(append([]string{}, path...), n.Name)
			fmt.Fprintf(sb, "# === %s ===\n\n", strings.Join(folderPath, " / "))
			c.writeNodes(sb, n.Item, auth, folderPath)
		}
	}
}

// Command renders one request. The request's own auth wins over the
// collection's.
func (c *CurlExporter) Command(item core.Item, collectionAuth *core.CollectionAuth) string {
	req := item.Request
	parts := []string{"curl"}

	if req.Method != core.MethodGet && req.Method != "" {
		parts = append(parts, "-X", req.Method.String())
	}

	headers := req.Headers()
	if c.IncludeAuth {
		auth := req.Auth
		if auth == nil {
			auth = collectionAuth
		}
		if h, ok := core.AuthFromCollection(auth).Header(); ok {
			headers = core.MergeHeaders(headers, []core.Header{h})
		}
	}
	for _, h := range headers {
		parts = append(parts, "-H", h.Key+": "+h.Value)
	}

	if req.Body != nil && req.Body.Raw != "" {
		parts = append(parts, "--data-raw", req.Body.Raw)
	}

	url := req.URL.Raw
	if c.Environment != nil {
		url = interpolate.Substitute(*c.Environment, url)
	}
	parts = append(parts, url)

	if c.Pretty {
		return formatPretty(parts)
	}
	return formatInline(parts)
}

func formatInline(parts []string) string {
	quoted := make([]string, len(parts))
	for i, p := range parts {
		quoted[i] = shellQuote(p)
	}
	return strings.Join(quoted, " ")
}

// formatPretty keeps "curl" on the first line and puts each option and
// the URL on a continuation line of its own.
func formatPretty(parts []string) string {
	var sb strings.Builder
	sb.WriteString(parts[0])

	for i := 1; i < len(parts); i++ {
		sb.WriteString(" \\\n  ")
		sb.WriteString(shellQuote(parts[i]))
		if strings.HasPrefix(parts[i], "-") && i+1 < len(parts)-1 {
			i++
			sb.WriteString(" ")
			sb.WriteString(shellQuote(parts[i]))
		}
	}
	return sb.String()
}

func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'$`\\!*?[]{}()<>|&;#~") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
