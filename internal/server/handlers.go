package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/templatehash/platform/internal/apperr"
	"github.com/templatehash/platform/internal/hash"
	"github.com/templatehash/platform/internal/imaging"
	"github.com/templatehash/platform/internal/match"
	"github.com/templatehash/platform/internal/store"
	"github.com/templatehash/platform/internal/template"
	"github.com/templatehash/platform/internal/trace"
)

// imageInfo describes a processed query image in responses.
type imageInfo struct {
	URL         string    `json:"url,omitempty"`
	Hash        string    `json:"hash"`
	ContentType string    `json:"content_type,omitempty"`
	FileSize    int       `json:"file_size"`
	Width       int       `json:"width,omitempty"`
	Height      int       `json:"height,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}

// matchResponse is the payload of the match endpoints.
type matchResponse struct {
	Success          bool              `json:"success"`
	MatchFound       bool              `json:"match_found"`
	Template         *template.Record  `json:"template,omitempty"`
	HammingDistance  *int              `json:"hamming_distance,omitempty"`
	SimilarityScore  *int              `json:"similarity_score,omitempty"`
	Confidence       string            `json:"confidence,omitempty"`
	ImageInfo        *imageInfo        `json:"image_info,omitempty"`
	SkippedTemplates int               `json:"skipped_templates,omitempty"`
	Message          string            `json:"message,omitempty"`
	Suggestions      map[string]string `json:"suggestions,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Image Hash Template API",
		"endpoints": map[string]string{
			"POST /api/hash-image":                  "compute the perceptual hash of an uploaded image",
			"POST /api/compare-hashes":              "Hamming distance between two hashes",
			"POST /api/match-template":              "find the template matching a hash",
			"POST /api/match-template-from-url":     "find the template matching an image URL",
			"POST /api/add-template":                "add a template (multipart upload)",
			"POST /api/add-template-from-url":       "add a template from an image URL",
			"GET /api/templates":                    "list all templates",
			"GET /api/templates/{id}":               "fetch one template",
			"PUT /api/templates/{id}":               "update template metadata",
			"DELETE /api/templates/{id}":            "delete a template",
			"POST /api/templates/{id}/resolve-crop": "resolve the crop region for target dimensions",
			"GET /ws":                               "WebSocket match event stream",
		},
	})
}

func (s *Server) handleHashImage(w http.ResponseWriter, r *http.Request) {
	data, header, err := s.readUpload(r)
	if err != nil {
		writeError(w, err)
		return
	}

	info, err := imaging.Analyze(data)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"hash":         string(info.Fingerprint),
		"filename":     header.Filename,
		"content_type": header.Header.Get("Content-Type"),
		"file_size":    len(data),
		"width":        info.Width,
		"height":       info.Height,
		"generated_at": time.Now().UTC(),
	})
}

func (s *Server) handleCompareHashes(w http.ResponseWriter, r *http.Request) {
	h1 := hash.Normalize(r.FormValue("hash1"))
	h2 := hash.Normalize(r.FormValue("hash2"))
	if h1 == "" || h2 == "" {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "hash1 and hash2 are required"))
		return
	}

	d, err := hash.Distance(h1, h2)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":          true,
		"hash1":            string(h1),
		"hash2":            string(h2),
		"hamming_distance": d,
		"similarity_score": match.Score(d),
		"are_similar":      d < s.cfg.MatchThreshold,
	})
}

func (s *Server) handleMatchTemplate(w http.ResponseWriter, r *http.Request) {
	query := hash.Normalize(r.FormValue("hash_value"))
	if query == "" {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "hash_value is required"))
		return
	}
	if err := query.Validate(); err != nil {
		writeError(w, err)
		return
	}
	threshold, err := formInt(r, "threshold", s.cfg.MatchThreshold)
	if err != nil {
		writeError(w, err)
		return
	}

	_, span := trace.StartSpan(r.Context(), "match_template")
	defer span.End()

	m, skipped, err := s.engine.FindBestMatch(query, threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	span.SetAttr("match_found", m != nil)

	writeJSON(w, http.StatusOK, s.matchPayload(m, skipped, threshold, string(query), nil))
	if m != nil {
		go s.broadcastMatch(m)
	}
}

func (s *Server) handleMatchTemplateFromURL(w http.ResponseWriter, r *http.Request) {
	imageURL := strings.TrimSpace(r.FormValue("image_url"))
	if imageURL == "" {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "image_url is required"))
		return
	}
	threshold, err := formInt(r, "threshold", s.cfg.MatchThreshold)
	if err != nil {
		writeError(w, err)
		return
	}

	ctx, span := trace.StartSpan(r.Context(), "match_template_from_url")
	defer span.End()
	log := trace.Logger(ctx)

	res, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := imaging.Analyze(res.Data)
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info("downloaded query image", "url", imageURL, "bytes", len(res.Data), "hash", info.Fingerprint)

	m, skipped, err := s.engine.FindBestMatch(info.Fingerprint, threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	span.SetAttr("match_found", m != nil)

	imgInfo := &imageInfo{
		URL:         imageURL,
		Hash:        string(info.Fingerprint),
		ContentType: res.ContentType,
		FileSize:    len(res.Data),
		Width:       info.Width,
		Height:      info.Height,
		ProcessedAt: time.Now().UTC(),
	}
	writeJSON(w, http.StatusOK, s.matchPayload(m, skipped, threshold, string(info.Fingerprint), imgInfo))
	if m != nil {
		go s.broadcastMatch(m)
	}
}

// matchPayload builds the shared match/no-match response body.
func (s *Server) matchPayload(m *match.Match, skipped []match.Skipped, threshold int, queryHash string, imgInfo *imageInfo) matchResponse {
	resp := matchResponse{
		Success:          true,
		ImageInfo:        imgInfo,
		SkippedTemplates: len(skipped),
	}
	if m == nil {
		resp.Message = fmt.Sprintf("no template found with a distance < %d", threshold)
		resp.Suggestions = map[string]string{
			"calculated_hash":      queryHash,
			"create_new_template":  "POST /api/add-template with this hash",
			"try_higher_threshold": "retry with a higher threshold",
		}
		return resp
	}

	rec := template.ToRecord(m.Template)
	score := match.Score(m.Distance)
	resp.MatchFound = true
	resp.Template = &rec
	resp.HammingDistance = &m.Distance
	resp.SimilarityScore = &score
	resp.Confidence = match.Confidence(m.Distance)
	return resp
}

func (s *Server) handleAddTemplate(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "name is required"))
		return
	}
	hashField := strings.TrimSpace(r.FormValue("hash_value"))
	refPath := strings.TrimSpace(r.FormValue("reference_image_path"))

	cx, cy, cw, ch, hasCrop, err := optionalCropRect(r)
	if err != nil {
		writeError(w, err)
		return
	}

	params := store.CreateParams{Name: name, ReferenceImagePath: refPath}
	if hasCrop {
		params.Crop = &template.Rect{X: cx, Y: cy, W: cw, H: ch}
	}

	data, header, uploadErr := s.readUpload(r)
	switch {
	case uploadErr == nil:
		info, err := imaging.Analyze(data)
		if err != nil {
			writeError(w, err)
			return
		}
		params.RefWidth = info.Width
		params.RefHeight = info.Height

		if hashField == "" || hashField == "auto" {
			params.Hash = info.Fingerprint
		} else {
			params.Hash = hash.Normalize(hashField)
		}
		if refPath == "" || refPath == "auto" {
			saved, err := s.uploads.Save(name, header.Filename, info.Format, data)
			if err != nil {
				writeError(w, err)
				return
			}
			params.ReferenceImagePath = saved
		}

	default:
		// No file: the hash and any dimensions must come from the form.
		if hashField == "" || hashField == "auto" {
			writeError(w, apperr.New(apperr.CodeInvalidArgument,
				"hash_value is required when no image file is uploaded"))
			return
		}
		params.Hash = hash.Normalize(hashField)
		if params.RefWidth, err = formInt(r, "image_width", 0); err != nil {
			writeError(w, err)
			return
		}
		if params.RefHeight, err = formInt(r, "image_height", 0); err != nil {
			writeError(w, err)
			return
		}
	}

	tmpl, err := s.store.Create(params)
	if err != nil {
		writeError(w, err)
		return
	}

	rec := template.ToRecord(tmpl)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("template %q created", tmpl.Name),
		"template": rec,
	})
}

func (s *Server) handleAddTemplateFromURL(w http.ResponseWriter, r *http.Request) {
	imageURL := strings.TrimSpace(r.FormValue("image_url"))
	if imageURL == "" {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "image_url is required"))
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))

	ctx, span := trace.StartSpan(r.Context(), "add_template_from_url")
	defer span.End()
	log := trace.Logger(ctx)

	res, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		writeError(w, err)
		return
	}
	info, err := imaging.Analyze(res.Data)
	if err != nil {
		writeError(w, err)
		return
	}

	// Near-duplicate guard: refuse templates whose fingerprint is almost
	// identical to an existing one.
	existing, _, err := s.engine.FindBestMatch(info.Fingerprint, s.cfg.DuplicateThreshold)
	if err != nil {
		writeError(w, err)
		return
	}
	if existing != nil {
		rec := template.ToRecord(existing.Template)
		writeJSON(w, http.StatusConflict, map[string]any{
			"success":           false,
			"error":             "template_already_exists",
			"message":           fmt.Sprintf("a similar template already exists: %q", existing.Template.Name),
			"existing_template": rec,
			"hash_distance":     existing.Distance,
		})
		return
	}

	if name == "" {
		name = s.autoName()
	}

	saved, err := s.uploads.Save(name, filenameFromURL(imageURL), info.Format, res.Data)
	if err != nil {
		writeError(w, err)
		return
	}

	tmpl, err := s.store.Create(store.CreateParams{
		Name:               name,
		Hash:               info.Fingerprint,
		ReferenceImagePath: saved,
		RefWidth:           info.Width,
		RefHeight:          info.Height,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	log.Info("template created from url", "id", tmpl.ID, "name", tmpl.Name, "url", imageURL)

	rec := template.ToRecord(tmpl)
	writeJSON(w, http.StatusCreated, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("template %q created from URL", tmpl.Name),
		"template": rec,
		"image_info": imageInfo{
			URL:         imageURL,
			Hash:        string(info.Fingerprint),
			ContentType: res.ContentType,
			FileSize:    len(res.Data),
			Width:       info.Width,
			Height:      info.Height,
			ProcessedAt: time.Now().UTC(),
		},
	})
}

// autoName picks the next free "Template Auto N" name.
func (s *Server) autoName() string {
	n := s.store.Count() + 1
	for {
		name := fmt.Sprintf("Template Auto %d", n)
		if _, exists := s.store.GetByName(name); !exists {
			return name
		}
		n++
	}
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := s.store.List()
	records := make([]template.Record, 0, len(templates))
	for _, t := range templates {
		records = append(records, template.ToRecord(t))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"count":     len(records),
		"templates": records,
	})
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	tmpl, found := s.store.GetByID(id)
	if !found {
		writeError(w, apperr.Newf(apperr.CodeNotFound, "template %d not found", id))
		return
	}
	rec := template.ToRecord(tmpl)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "template": rec})
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	name := strings.TrimSpace(r.FormValue("name"))
	refPath := strings.TrimSpace(r.FormValue("reference_image_path"))
	if name == "" && refPath == "" {
		writeError(w, apperr.New(apperr.CodeInvalidArgument,
			"provide name and/or reference_image_path to update"))
		return
	}

	tmpl, err := s.store.UpdateMetadata(id, name, refPath)
	if err != nil {
		writeError(w, err)
		return
	}

	rec := template.ToRecord(tmpl)
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"message":  fmt.Sprintf("template %d updated", id),
		"template": rec,
		"changes_made": map[string]bool{
			"name_updated": name != "",
			"path_updated": refPath != "",
		},
	})
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	deleted, err := s.store.Delete(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeError(w, apperr.Newf(apperr.CodeNotFound, "template %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("template %d deleted", id),
	})
}

func (s *Server) handleResolveCrop(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	width, err := formInt(r, "width", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	height, err := formInt(r, "height", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	if width <= 0 || height <= 0 {
		writeError(w, apperr.New(apperr.CodeInvalidArgument, "width and height must be positive"))
		return
	}

	tmpl, found := s.store.GetByID(id)
	if !found {
		writeError(w, apperr.Newf(apperr.CodeNotFound, "template %d not found", id))
		return
	}

	res := template.ResolveCrop(tmpl, width, height)
	body := map[string]any{"success": true, "mode": res.Mode}
	if res.Mode != template.ModeNoCrop {
		body["crop"] = map[string]int{
			"x": res.Rect.X, "y": res.Rect.Y, "w": res.Rect.W, "h": res.Rect.H,
		}
	}
	writeJSON(w, http.StatusOK, body)
}

// readUpload extracts the "file" multipart field, enforcing the size cap.
func (s *Server) readUpload(r *http.Request) ([]byte, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, nil, apperr.Wrap(err, apperr.CodeInvalidArgument, "expected a multipart upload")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, nil, apperr.Wrap(err, apperr.CodeInvalidArgument, "missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return nil, nil, apperr.Wrap(err, apperr.CodeInvalidArgument, "reading uploaded file")
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		return nil, nil, apperr.Newf(apperr.CodeInvalidArgument,
			"uploaded file exceeds the %d byte limit", s.cfg.MaxUploadBytes)
	}
	return data, header, nil
}

// filenameFromURL extracts a usable base filename from an image URL.
func filenameFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "template_image"
	}
	base := path.Base(parsed.Path)
	if base == "." || base == "/" || base == "" {
		return "template_image"
	}
	return filepath.Base(base)
}
