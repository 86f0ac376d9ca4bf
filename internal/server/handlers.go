package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"tierboard/internal/bucket"
	"tierboard/internal/history"
	"tierboard/internal/ui"
)

// notice levels carried through the post-upload redirect.
const (
	noticeSuccess = "success"
	noticeWarning = "warning"
	noticeDanger  = "danger"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	summary := s.agg.Aggregate(ctx)

	usedMB := bucket.UsedMegabytes(summary.TotalBytes)
	q := r.URL.Query()

	data := ui.DashboardData{
		Endpoint:     s.cfg.Endpoint,
		Bucket:       s.cfg.Bucket,
		Objects:      toUIObjects(summary.Objects),
		UsedMB:       usedMB,
		QuotaMB:      s.cfg.QuotaMB,
		UsagePercent: bucket.UsagePercent(usedMB, s.cfg.QuotaMB),
		ClassCounts:  summary.ClassCounts,
		Degraded:     summary.Degraded,
		Notice:       q.Get("notice"),
		NoticeLevel:  q.Get("level"),
	}

	if err := ui.DashboardPage(data).Render(ctx, w); err != nil {
		slog.Error("Render dashboard", "err", err)
	}
}

func toUIObjects(records []bucket.ObjectRecord) []ui.Object {
	objects := make([]ui.Object, 0, len(records))
	for _, rec := range records {
		objects = append(objects, ui.Object{
			Key:          rec.Key,
			Size:         rec.Size,
			LastModified: rec.LastModified.UTC().Format(time.RFC3339),
			StorageClass: rec.StorageClass,
		})
	}
	return objects
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.redirectWithNotice(w, r, "No file selected.", noticeWarning)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil || header.Filename == "" {
		s.redirectWithNotice(w, r, "No file selected.", noticeWarning)
		return
	}
	defer file.Close()

	name := sanitizeFilename(header.Filename)
	if name == "" {
		s.redirectWithNotice(w, r, "No file selected.", noticeWarning)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Read upload body", "name", name, "err", err)
		s.redirectWithNotice(w, r, fmt.Sprintf("Upload failed: %v", err), noticeDanger)
		return
	}

	key := objectKey(time.Now().UTC(), name)
	contentType := header.Header.Get("Content-Type")

	if err := s.cfg.Store.PutObject(ctx, key, data, contentType); err != nil {
		slog.Error("Upload object", "key", key, "err", err)
		s.redirectWithNotice(w, r, fmt.Sprintf("Upload failed: %v", err), noticeDanger)
		return
	}

	// The backend write already succeeded; a failed audit record is logged
	// and dropped rather than failing the upload.
	if s.cfg.History != nil {
		if err := s.cfg.History.Record(ctx, key, name, int64(len(data))); err != nil {
			slog.Error("Record upload history", "key", key, "err", err)
		}
	}

	s.redirectWithNotice(w, r, fmt.Sprintf("File '%s' uploaded successfully!", name), noticeSuccess)
}

func (s *Server) redirectWithNotice(w http.ResponseWriter, r *http.Request, message, level string) {
	target := "/?notice=" + url.QueryEscape(message) + "&level=" + url.QueryEscape(level)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// objectKey builds the storage key for an upload: a UTC timestamp prefix
// followed by the sanitized display name.
func objectKey(now time.Time, name string) string {
	return now.Format("20060102150405") + "_" + name
}

// sanitizeFilename reduces a user-supplied display name to a safe storage
// key component: directory components are stripped and anything outside
// [A-Za-z0-9._-] becomes an underscore, so the result can never contain a
// path separator or traversal sequence.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndexByte(name, '/'); i != -1 {
		name = name[i+1:]
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return strings.Trim(b.String(), "._")
}

var (
	textExtensions  = map[string]bool{".txt": true, ".log": true}
	imageExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true}
)

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := r.PathValue("key")

	contentType, data, err := s.cfg.Store.GetObjectBody(ctx, key)
	if err != nil {
		slog.Error("Preview object", "key", key, "err", err)
		http.Error(w, fmt.Sprintf("Error previewing file: %v", err), http.StatusInternalServerError)
		return
	}

	ext := strings.ToLower(path.Ext(key))
	switch {
	case strings.HasPrefix(contentType, "text") || textExtensions[ext]:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		// Lossy UTF-8 decode: invalid byte sequences become U+FFFD.
		_, _ = io.WriteString(w, strings.ToValidUTF8(string(data), "�"))

	case imageExtensions[ext]:
		if err := ui.ImagePreviewPage(key, s.cfg.Store.ObjectURL(key)).Render(ctx, w); err != nil {
			slog.Error("Render image preview", "key", key, "err", err)
		}

	default:
		http.Error(w, "Preview not available for this file type.", http.StatusBadRequest)
	}
}

// fileEntry mirrors the inventory JSON shape consumed by the table refresh
// script.
type fileEntry struct {
	Key          string `json:"Key"`
	Size         int64  `json:"Size"`
	LastModified string `json:"LastModified"`
	StorageClass string `json:"StorageClass"`
}

func (s *Server) handleFileList(w http.ResponseWriter, r *http.Request) {
	summary := s.agg.Aggregate(r.Context())

	entries := make([]fileEntry, 0, len(summary.Objects))
	for _, rec := range summary.Objects {
		entries = append(entries, fileEntry{
			Key:          rec.Key,
			Size:         rec.Size,
			LastModified: rec.LastModified.UTC().Format(time.RFC3339),
			StorageClass: rec.StorageClass,
		})
	}

	writeJSON(w, entries)
}

type summaryResponse struct {
	SCCounts        map[string]int `json:"sc_counts"`
	UsedMB          float64        `json:"used_mb"`
	BucketQuotaMB   float64        `json:"bucket_quota_mb"`
	UsagePercentage float64        `json:"usage_percentage"`
	Degraded        bool           `json:"degraded"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary := s.agg.Aggregate(r.Context())
	usedMB := bucket.UsedMegabytes(summary.TotalBytes)

	writeJSON(w, summaryResponse{
		SCCounts:        summary.ClassCounts,
		UsedMB:          usedMB,
		BucketQuotaMB:   s.cfg.QuotaMB,
		UsagePercentage: bucket.UsagePercent(usedMB, s.cfg.QuotaMB),
		Degraded:        summary.Degraded,
	})
}

func (s *Server) handleUploads(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		writeJSON(w, []history.Upload{})
		return
	}

	uploads, err := s.cfg.History.Recent(r.Context(), 50)
	if err != nil {
		slog.Error("List upload history", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, uploads)
}

// handleHealthz reports liveness only; it does not touch the backend.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "OK"})
}
