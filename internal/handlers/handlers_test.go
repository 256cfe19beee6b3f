// handlers_test.go
//
// Document and event content service built on the jam-build data service stack
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of eventsdb.
// eventsdb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// eventsdb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with eventsdb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/eventsdb/internal/access"
	"github.com/localnerve/eventsdb/internal/config"
	"github.com/localnerve/eventsdb/internal/handlers"
	"github.com/localnerve/eventsdb/internal/middleware"
	"github.com/localnerve/eventsdb/internal/models"
	"github.com/localnerve/eventsdb/internal/services"
	"github.com/localnerve/eventsdb/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventDate = time.Date(2025, 9, 13, 20, 0, 0, 0, time.UTC)

// setupApp wires the routes over a fresh service using the given access model
func setupApp(t *testing.T, accessModel string) (*fiber.App, *services.Service) {
	t.Helper()
	svc := testutil.NewTestService(t, func(cfg *config.Config) {
		cfg.AccessModel = accessModel
	})
	policy, err := access.NewPolicy(accessModel, svc.Config.LoginURL)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{ErrorHandler: handlers.ErrorHandler})
	handlers.Register(app, svc, policy, testutil.Sessions)
	return app, svc
}

func do(t *testing.T, app *fiber.App, method, target, session string, body io.Reader, contentType string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: session})
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func doJSON(t *testing.T, app *fiber.App, method, target, session string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	return do(t, app, method, target, session, body, fiber.MIMEApplicationJSON)
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestStaffAccessModel(t *testing.T) {
	app, svc := setupApp(t, config.AccessStaff)
	index := testutil.CreateIndex(t, svc, "Agenda", 10)
	testutil.CreateEvent(t, svc, index.ID, "Concert", eventDate, true)

	resp := do(t, app, http.MethodGet, "/agenda/concert/", "", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, access.StaffOnlyMessage, string(body))

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "member-session", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "staff-session", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ctx services.EventContext
	decode(t, resp, &ctx)
	assert.Equal(t, "Concert", ctx.Page.Title)
	assert.False(t, ctx.CanEdit)
	assert.Equal(t, services.EditURL(ctx.Page.ID), ctx.EditURL)

	resp = do(t, app, http.MethodGet, "/agenda/", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "the index stays public")
}

func TestStaffAccessModelKeepsViewRestrictions(t *testing.T) {
	app, svc := setupApp(t, config.AccessStaff)
	index := testutil.CreateIndex(t, svc, "Agenda", 10)
	testutil.CreateEvent(t, svc, index.ID, "Concert", eventDate, true)

	_, err := svc.SetViewRestriction(context.Background(), index.ID, services.RestrictionInput{
		RestrictionType: models.RestrictionLogin,
	})
	require.NoError(t, err)

	resp := do(t, app, http.MethodGet, "/agenda/", "", nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login/?next=%2Fagenda%2F", resp.Header.Get("Location"))

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "", nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/agenda/", "member-session", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "member-session", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "staff-session", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRestrictionAccessModel(t *testing.T) {
	app, svc := setupApp(t, config.AccessRestriction)
	index := testutil.CreateIndex(t, svc, "Agenda", 10)
	event := testutil.CreateEvent(t, svc, index.ID, "Concert", eventDate, true)

	resp := do(t, app, http.MethodGet, "/agenda/concert/", "", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode, "unrestricted pages are public")

	_, err := svc.SetViewRestriction(context.Background(), index.ID, services.RestrictionInput{
		RestrictionType: models.RestrictionLogin,
	})
	require.NoError(t, err)

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "", nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login/?next=%2Fagenda%2Fconcert%2F", resp.Header.Get("Location"))

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "member-session", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = svc.SetViewRestriction(context.Background(), event.ID, services.RestrictionInput{
		RestrictionType: models.RestrictionGroups,
		Groups:          []string{"bureau"},
	})
	require.NoError(t, err)

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "staff-session", nil, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode, "staff outside the group")

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "member-session", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "admin-session", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var ctx services.EventContext
	decode(t, resp, &ctx)
	assert.True(t, ctx.CanEdit)
}

func TestEventIndexPage(t *testing.T) {
	app, svc := setupApp(t, config.AccessRestriction)
	index := testutil.CreateIndex(t, svc, "Agenda", 3)
	for i := 0; i < 7; i++ {
		testutil.CreateEvent(t, svc, index.ID, "Soirée "+string(rune('A'+i)), eventDate.AddDate(0, 0, i), true)
	}

	for target, expected := range map[string]int{
		"/agenda/?page=1":   3,
		"/agenda/?page=2":   3,
		"/agenda/?page=3":   1,
		"/agenda/?page=abc": 3,
		"/agenda/?page=99":  1,
	} {
		resp := do(t, app, http.MethodGet, target, "", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, target)
		var listing services.EventIndexContext
		decode(t, resp, &listing)
		assert.Len(t, listing.Events, expected, target)
	}

	resp := do(t, app, http.MethodGet, "/nulle-part/", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminRequiresStaff(t *testing.T) {
	app, _ := setupApp(t, config.AccessRestriction)

	resp := do(t, app, http.MethodGet, "/admin/api/categories", "", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/admin/api/categories", "member-session", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/admin/api/categories", "staff-session", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAdminCategories(t *testing.T) {
	app, svc := setupApp(t, config.AccessRestriction)

	resp := doJSON(t, app, http.MethodPost, "/admin/api/categories", "staff-session", map[string]string{"name": "Factures"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var category models.DocumentCategory
	decode(t, resp, &category)

	resp = doJSON(t, app, http.MethodPost, "/admin/api/categories", "staff-session", map[string]string{"name": "Factures"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var verr struct {
		Errors map[string][]string `json:"errors"`
	}
	decode(t, resp, &verr)
	assert.Contains(t, verr.Errors, "name")

	testutil.CreateDocument(t, svc, "Facture 1", &category.ID, "")
	resp = do(t, app, http.MethodDelete, "/admin/api/categories/"+itoa(category.ID), "staff-session", nil, "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, app, http.MethodDelete, "/admin/api/categories/999", "staff-session", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func multipartBody(t *testing.T, fields map[string]string, fileField string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, content := range files {
		part, err := w.CreateFormFile(fileField, name)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestAdminDocumentUploadAndDownload(t *testing.T) {
	app, _ := setupApp(t, config.AccessRestriction)

	body, contentType := multipartBody(t, map[string]string{"title": "Statuts", "document_date": "2024-05-01"},
		"file", map[string]string{"Statuts 2024.txt": "article premier"})
	resp := do(t, app, http.MethodPost, "/admin/api/documents", "staff-session", body, contentType)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var doc models.Document
	decode(t, resp, &doc)
	assert.Equal(t, "documents/statuts-2024.txt", doc.File)
	require.NotNil(t, doc.Collection)
	assert.Equal(t, models.RootCollectionName, doc.Collection.Name)

	resp = do(t, app, http.MethodGet, services.DocumentURL(&doc), "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	content, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "article premier", string(content))

	resp = do(t, app, http.MethodGet, "/documents/"+itoa(doc.ID)+"/autre.txt", "", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, contentType = multipartBody(t, map[string]string{"title": "Sans fichier"}, "file", nil)
	resp = do(t, app, http.MethodPost, "/admin/api/documents", "staff-session", body, contentType)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAdminMultipleUpload(t *testing.T) {
	app, _ := setupApp(t, config.AccessRestriction)

	body, contentType := multipartBody(t, nil, "files", map[string]string{
		"releve-janvier.pdf": "a",
		"releve-fevrier.pdf": "b",
	})
	resp := do(t, app, http.MethodPost, "/admin/api/documents/multiple", "staff-session", body, contentType)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var results []services.MultiUploadResult
	decode(t, resp, &results)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Nil(t, r.Errors)
		require.NotNil(t, r.Document)
		assert.True(t, strings.HasPrefix(r.Document.Title, "releve-"))
	}
}

func TestAdminPagesAndAttachments(t *testing.T) {
	app, svc := setupApp(t, config.AccessRestriction)
	root := testutil.RootPage(t, svc)

	resp := doJSON(t, app, http.MethodPost, "/admin/api/pages/"+itoa(root.ID)+"/children", "staff-session", map[string]interface{}{
		"type":  models.PageTypeEvent,
		"title": "Orpheline",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/admin/api/pages/"+itoa(root.ID)+"/children", "staff-session", map[string]interface{}{
		"type":            models.PageTypeEventIndex,
		"title":           "Agenda",
		"live":            true,
		"events_per_page": 5,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var index services.PageDetail
	decode(t, resp, &index)

	resp = doJSON(t, app, http.MethodPost, "/admin/api/pages/"+itoa(index.Page.ID)+"/children", "staff-session", map[string]interface{}{
		"type":       models.PageTypeEvent,
		"title":      "Concert",
		"live":       true,
		"date_event": eventDate,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var event services.PageDetail
	decode(t, resp, &event)
	assert.Equal(t, "u-staff", event.Page.OwnerID)

	finances := testutil.CreateCategory(t, svc, "Finances")
	a := testutil.CreateDocument(t, svc, "Bilan", &finances.ID, "")
	b := testutil.CreateDocument(t, svc, "Budget", &finances.ID, "")

	target := "/admin/api/pages/" + itoa(event.Page.ID) + "/documents"
	resp = doJSON(t, app, http.MethodPost, target, "staff-session", map[string]interface{}{"document_id": itoa(a.ID)})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp = doJSON(t, app, http.MethodPost, target, "staff-session", []map[string]interface{}{{"document_id": b.ID, "notes": "voté"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = do(t, app, http.MethodGet, "/agenda/concert/", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ctx services.EventContext
	decode(t, resp, &ctx)
	require.Len(t, ctx.DocumentsByCategory, 1)
	assert.Equal(t, "Finances", ctx.DocumentsByCategory[0].Category)
	assert.Len(t, ctx.DocumentsByCategory[0].Documents, 2)

	resp = do(t, app, http.MethodGet, "/admin/pages/"+itoa(event.Page.ID)+"/edit/", "admin-session", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = do(t, app, http.MethodGet, "/admin/pages/"+itoa(event.Page.ID)+"/edit/", "staff-session", nil, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "staff without a page permission")

	resp = do(t, app, http.MethodDelete, "/admin/api/pages/"+itoa(index.Page.ID), "staff-session", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var deleted struct {
		AffectedRows int `json:"affectedRows"`
	}
	decode(t, resp, &deleted)
	assert.Equal(t, 2, deleted.AffectedRows)
}

func TestHealth(t *testing.T) {
	app, _ := setupApp(t, config.AccessRestriction)

	resp := do(t, app, http.MethodGet, "/health", "", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result services.HealthCheckResult
	decode(t, resp, &result)
	assert.Equal(t, "healthy", result.Status)
	assert.Equal(t, "disabled", result.Authorizer)
	assert.Equal(t, "ok", result.Search)
}
