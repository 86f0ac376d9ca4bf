package ui

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/a-h/templ"
)

// Object is a single inventory entry for display.
type Object struct {
	Key          string
	Size         int64
	LastModified string
	StorageClass string
}

// DashboardData carries everything the main page renders.
type DashboardData struct {
	Endpoint string
	Bucket   string

	Objects      []Object
	UsedMB       float64
	QuotaMB      float64
	UsagePercent float64
	ClassCounts  map[string]int

	// Degraded indicates the listing failed and the page shows an empty
	// fallback rather than an actually empty bucket.
	Degraded bool

	Notice      string
	NoticeLevel string
}

// Layout renders a full HTML page with a title and body component.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<!DOCTYPE html><html lang=\"en\">")
		if err != nil {
			return err
		}

		_, err = io.WriteString(w, "<head><meta charset=\"utf-8\">")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "<title>")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, html.EscapeString(title))
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "</title>")
		if err != nil {
			return err
		}
		// Minimal modern CSS framework (Pico.css) via CDN.
		_, err = io.WriteString(w, "<link rel=\"stylesheet\" href=\"https://unpkg.com/@picocss/pico@2/css/pico.min.css\">")
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, "</head><body><main class=\"container\">")
		if err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		_, err = io.WriteString(w, "</main></body></html>")
		return err
	})
}

// DashboardPage renders the bucket dashboard: identity, usage bar, storage
// class histogram, upload form, and the full object inventory.
func DashboardPage(d DashboardData) templ.Component {
	return Layout("Tierboard - "+d.Bucket, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		header := fmt.Sprintf(
			"<section><header><h1>Bucket: %s</h1><p>Endpoint: <code>%s</code></p></header>",
			html.EscapeString(d.Bucket), html.EscapeString(d.Endpoint))
		_, err := io.WriteString(w, header)
		if err != nil {
			return err
		}

		if d.Notice != "" {
			level := d.NoticeLevel
			if level == "" {
				level = "info"
			}
			notice := fmt.Sprintf("<p class=\"notice notice-%s\"><mark>%s</mark></p>",
				html.EscapeString(level), html.EscapeString(d.Notice))
			if _, err = io.WriteString(w, notice); err != nil {
				return err
			}
		}

		if d.Degraded {
			_, err = io.WriteString(w, "<p><mark>The storage backend could not be listed; showing an empty view.</mark></p>")
			if err != nil {
				return err
			}
		}

		usage := fmt.Sprintf(
			"<h2>Usage</h2><p>%.2f MB of %.2f MB (%.1f%%)</p><progress value=\"%.1f\" max=\"100\"></progress>",
			d.UsedMB, d.QuotaMB, d.UsagePercent, d.UsagePercent)
		if _, err = io.WriteString(w, usage); err != nil {
			return err
		}

		if err := renderHistogram(w, d.ClassCounts); err != nil {
			return err
		}

		_, err = io.WriteString(w,
			"<h2>Upload</h2><form action=\"/upload\" method=\"post\" enctype=\"multipart/form-data\">"+
				"<input type=\"file\" name=\"file\"><button type=\"submit\">Upload</button></form>")
		if err != nil {
			return err
		}

		if err := renderObjects(w, d.Objects); err != nil {
			return err
		}

		_, err = io.WriteString(w, "</section>")
		return err
	}))
}

func renderHistogram(w io.Writer, counts map[string]int) error {
	_, err := io.WriteString(w, "<h2>Objects per storage class</h2>")
	if err != nil {
		return err
	}

	if len(counts) == 0 {
		_, err = io.WriteString(w, "<p>No objects.</p>")
		return err
	}

	classes := make([]string, 0, len(counts))
	for class := range counts {
		classes = append(classes, class)
	}
	sort.Strings(classes)

	_, err = io.WriteString(w, "<table><thead><tr><th>Storage class</th><th>Objects</th></tr></thead><tbody>")
	if err != nil {
		return err
	}
	for _, class := range classes {
		row := fmt.Sprintf("<tr><td>%s</td><td>%d</td></tr>", html.EscapeString(class), counts[class])
		if _, err = io.WriteString(w, row); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "</tbody></table>")
	return err
}

func renderObjects(w io.Writer, objects []Object) error {
	_, err := io.WriteString(w, "<h2>Inventory</h2>")
	if err != nil {
		return err
	}

	if len(objects) == 0 {
		_, err = io.WriteString(w, "<p>No objects in this bucket.</p>")
		return err
	}

	_, err = io.WriteString(w, "<table><thead><tr><th>Key</th><th>Size (bytes)</th><th>Last Modified</th><th>Storage class</th></tr></thead><tbody>")
	if err != nil {
		return err
	}
	for _, o := range objects {
		row := fmt.Sprintf("<tr><td><a href=\"/preview/%s\">%s</a></td><td>%d</td><td>%s</td><td>%s</td></tr>",
			pathEscapeKey(o.Key), html.EscapeString(o.Key), o.Size,
			html.EscapeString(o.LastModified), html.EscapeString(o.StorageClass))
		if _, err = io.WriteString(w, row); err != nil {
			return err
		}
	}
	_, err = io.WriteString(w, "</tbody></table>")
	return err
}

// pathEscapeKey escapes an object key for use in a URL path while keeping
// its slash separators intact.
func pathEscapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// ImagePreviewPage renders an image preview that references the backend's
// public URL for the object instead of inlining its bytes.
func ImagePreviewPage(key, src string) templ.Component {
	return Layout("Preview - "+key, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		page := fmt.Sprintf(
			"<section><h3>Preview: %s</h3><img src=\"%s\" alt=\"Image preview\"><p><a href=\"/\">&larr; Back</a></p></section>",
			html.EscapeString(key), html.EscapeString(src))
		_, err := io.WriteString(w, page)
		return err
	}))
}
