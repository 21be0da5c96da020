package handlers

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/affiliateboard/backend/internal/models"
	"github.com/affiliateboard/backend/internal/storage"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func (s *HandlersTestSuite) login() *http.Cookie {
	w := s.request(http.MethodPost, "/api/admin/login", map[string]string{"password": testPassword})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == "admin_token" {
			return c
		}
	}
	s.FailNow("login did not set the session cookie")
	return nil
}

// Session

func (s *HandlersTestSuite) TestAdminRoutesRequireSession() {
	w := s.request(http.MethodGet, "/api/admin/programs", nil)
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodGet, "/api/admin/programs", nil, withBearer("not-a-token"))
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodGet, "/admin/programs", nil)
	s.Equal(http.StatusFound, w.Code)
	s.Contains(w.Header().Get("Location"), "/admin/login")
}

func (s *HandlersTestSuite) TestAdminLoginRejectsWrongPassword() {
	w := s.request(http.MethodPost, "/api/admin/login", map[string]string{"password": "guess"})
	s.Equal(http.StatusUnauthorized, w.Code)
	s.Empty(w.Result().Cookies())
}

func (s *HandlersTestSuite) TestAdminLoginSetsStrictCookie() {
	cookie := s.login()
	s.True(cookie.HttpOnly)
	s.True(cookie.Secure)
	s.Equal(http.SameSiteStrictMode, cookie.SameSite)
	s.Equal("/", cookie.Path)
	s.Equal(int(time.Hour/time.Second), cookie.MaxAge)

	w := s.request(http.MethodGet, "/api/admin/programs", nil, withCookie(cookie))
	s.Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodGet, "/api/admin/session", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"authenticated":true`)

	w = s.request(http.MethodGet, "/api/admin/session", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"authenticated":false`)
}

func (s *HandlersTestSuite) TestAdminBearerToken() {
	cookie := s.login()
	w := s.request(http.MethodGet, "/api/admin/programs", nil, withBearer(cookie.Value))
	s.Equal(http.StatusOK, w.Code)
}

func (s *HandlersTestSuite) TestAdminLogoutClearsCookie() {
	w := s.request(http.MethodPost, "/api/admin/logout", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	s.Require().Len(cookies, 1)
	s.Equal("admin_token", cookies[0].Name)
	s.Less(cookies[0].MaxAge, 0)
}

// Moderation

func (s *HandlersTestSuite) TestAdminListFiltersByStatus() {
	cookie := s.login()
	s.createProgram("Approved")
	pending := s.createProgram("Waiting", func(p *models.Program) { p.Status = models.ProgramStatusPending })
	s.createProgram("Rejected", func(p *models.Program) { p.Status = models.ProgramStatusRejected })

	w := s.request(http.MethodGet, "/api/admin/programs?status=PENDING", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)
	var body listBody
	s.decode(w, &body)
	s.Require().Len(body.Programs, 1)
	s.Equal(pending.ID, body.Programs[0].ID)

	w = s.request(http.MethodGet, "/api/admin/programs?status=PENDING,REJECTED", nil, withCookie(cookie))
	s.decode(w, &body)
	s.Len(body.Programs, 2)

	w = s.request(http.MethodGet, "/api/admin/programs?status=ARCHIVED", nil, withCookie(cookie))
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

func (s *HandlersTestSuite) TestApproveRejectAndFeature() {
	cookie := s.login()
	p := s.createProgram("Acme", func(p *models.Program) { p.Status = models.ProgramStatusPending })

	w := s.request(http.MethodPost, "/api/admin/programs/"+p.ID+"/reject", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal(models.ProgramStatusRejected, s.reload(p.ID).Status)
	s.Equal(http.StatusNotFound, s.request(http.MethodGet, "/api/programs/"+p.ID, nil).Code)

	w = s.request(http.MethodPost, "/api/admin/programs/"+p.ID+"/approve", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)
	reloaded := s.reload(p.ID)
	s.Equal(models.ProgramStatusApproved, reloaded.Status)
	s.NotNil(reloaded.ReviewedAt)

	w = s.request(http.MethodPost, "/api/admin/programs/"+p.ID+"/feature", map[string]int{"days": 7}, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)
	reloaded = s.reload(p.ID)
	s.True(reloaded.FeatureActive(time.Now()))
	s.WithinDuration(time.Now().Add(7*24*time.Hour), *reloaded.FeaturedExpiresAt, time.Minute)

	w = s.request(http.MethodPost, "/api/admin/programs/"+p.ID+"/unfeature", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)
	s.False(s.reload(p.ID).FeatureActive(time.Now()))
}

func (s *HandlersTestSuite) TestAdminUpdateProgram() {
	cookie := s.login()
	p := s.createProgram("Acme")
	s.createProgram("Taken")

	w := s.request(http.MethodPatch, "/api/admin/programs/"+p.ID, map[string]any{
		"name":               "Acme Cloud",
		"manual_score_boost": 12.5,
	}, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	reloaded := s.reload(p.ID)
	s.Equal("Acme Cloud", reloaded.Name)
	s.Equal(12.5, reloaded.ManualScoreBoost)

	w = s.request(http.MethodPatch, "/api/admin/programs/"+p.ID, map[string]any{"name": "taken"}, withCookie(cookie))
	s.Equal(http.StatusConflict, w.Code)

	w = s.request(http.MethodPatch, "/api/admin/programs/"+p.ID, map[string]any{}, withCookie(cookie))
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *HandlersTestSuite) TestDeleteProgramCascades() {
	cookie := s.login()
	p := s.createProgram("Acme", func(p *models.Program) { p.LogoURL = testCDN + "logos/old.png" })

	s.request(http.MethodPost, "/api/programs/"+p.ID+"/view", nil, withVisitor("fp-1"))
	w := s.request(http.MethodPost, "/api/reports", map[string]any{
		"program_id": p.ID,
		"type":       "REPORT",
		"message":    "Program closed",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.request(http.MethodDelete, "/api/admin/programs/"+p.ID, nil, withCookie(cookie))
	s.Require().Equal(http.StatusNoContent, w.Code)

	s.Equal(http.StatusNotFound, s.request(http.MethodGet, "/api/programs/"+p.ID, nil).Code)

	var events, reports int64
	s.db.Model(&models.ProgramEvent{}).Count(&events)
	s.db.Model(&models.ProgramReport{}).Count(&reports)
	s.Zero(events)
	s.Zero(reports)
	s.Equal([]string{testCDN + "logos/old.png"}, s.logos.deleted)
}

// Reports

func (s *HandlersTestSuite) TestReportEditAppliedOnResolve() {
	cookie := s.login()
	p := s.createProgram("Acme")

	w := s.request(http.MethodPost, "/api/reports", map[string]any{
		"program_id": p.ID,
		"type":       "EDIT",
		"message":    "Commission changed",
		"suggested_changes": map[string]any{
			"commission_value": "40%",
			"website_url":      "https://Acme.com/home/",
		},
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	s.decode(w, &created)
	s.Equal(models.ReportStatusPending, created.Status)

	w = s.request(http.MethodGet, "/api/admin/reports?status=PENDING", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), created.ID)

	w = s.request(http.MethodPatch, "/api/admin/reports/"+created.ID, map[string]any{
		"apply_changes": true,
		"admin_note":    "confirmed on their site",
	}, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	reloaded := s.reload(p.ID)
	s.Equal("40%", reloaded.CommissionValue)
	s.Equal("https://acme.com/home", reloaded.WebsiteURL)

	var report models.ProgramReport
	s.Require().NoError(s.db.First(&report, "id = ?", created.ID).Error)
	s.Equal(models.ReportStatusResolved, report.Status)
	s.NotNil(report.ResolvedAt)
	s.Equal("confirmed on their site", report.AdminNote)
}

func (s *HandlersTestSuite) TestReportApplyRejectedForPlainReport() {
	cookie := s.login()
	p := s.createProgram("Acme")

	w := s.request(http.MethodPost, "/api/reports", map[string]any{
		"program_id": p.ID,
		"type":       "REPORT",
		"message":    "Broken link",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	s.decode(w, &created)

	w = s.request(http.MethodPatch, "/api/admin/reports/"+created.ID, map[string]any{"apply_changes": true}, withCookie(cookie))
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.request(http.MethodPatch, "/api/admin/reports/"+created.ID, map[string]any{"status": "DISMISSED"}, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodDelete, "/api/admin/reports/"+created.ID, nil, withCookie(cookie))
	s.Equal(http.StatusNoContent, w.Code)
}

func (s *HandlersTestSuite) TestReportValidation() {
	w := s.request(http.MethodPost, "/api/reports", map[string]any{
		"program_id": "missing",
		"type":       "REPORT",
		"message":    "Who is this",
	})
	s.Equal(http.StatusNotFound, w.Code)

	p := s.createProgram("Acme")
	w = s.request(http.MethodPost, "/api/reports", map[string]any{
		"program_id":        p.ID,
		"type":              "EDIT",
		"message":           "Nothing to change",
		"suggested_changes": map[string]any{},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)

	w = s.request(http.MethodPost, "/api/reports", map[string]any{
		"program_id":        p.ID,
		"type":              "EDIT",
		"message":           "New link",
		"suggested_changes": map[string]any{"affiliate_url": "https://bit.ly/abc"},
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
}

// Cron

func (s *HandlersTestSuite) seedAged(p *models.Program) {
	now := time.Now()
	programID := p.ID
	rows := []any{
		&models.TrafficLog{Path: "/old", VisitorID: "v", CreatedAt: now.Add(-40 * 24 * time.Hour)},
		&models.TrafficLog{Path: "/new", VisitorID: "v", ProgramID: &programID, CreatedAt: now.Add(-time.Hour)},
		&models.ProgramEvent{ProgramID: p.ID, Type: models.EventTypeView, VisitorID: "v1", DateKey: "2000-01-01", CreatedAt: now.Add(-100 * 24 * time.Hour)},
		&models.ProgramEvent{ProgramID: p.ID, Type: models.EventTypeView, VisitorID: "v2", DateKey: models.DateKey(now), CreatedAt: now},
		&models.SearchLog{Query: "old", Normalized: "old", CreatedAt: now.Add(-40 * 24 * time.Hour)},
		&models.SearchLog{Query: "new", Normalized: "new", CreatedAt: now},
	}
	for _, row := range rows {
		s.Require().NoError(s.db.Create(row).Error)
	}
}

func (s *HandlersTestSuite) TestCronRequiresSecret() {
	p := s.createProgram("Acme")
	s.seedAged(p)

	w := s.request(http.MethodGet, "/api/cron/cleanup", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
	w = s.request(http.MethodGet, "/api/cron/cleanup", nil, withBearer("wrong"))
	s.Equal(http.StatusUnauthorized, w.Code)

	var traffic int64
	s.db.Model(&models.TrafficLog{}).Count(&traffic)
	s.Equal(int64(2), traffic)
}

func (s *HandlersTestSuite) TestCronCleanupDeletesOnlyExpiredRows() {
	p := s.createProgram("Acme")
	lapsed := s.createProgram("Lapsed")
	_, err := s.programs.Feature(context.Background(), lapsed.ID, time.Now().Add(-time.Hour))
	s.Require().NoError(err)
	s.seedAged(p)

	w := s.request(http.MethodGet, "/api/cron/cleanup", nil, withBearer(testCronSecret))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Job    string `json:"job"`
		OK     bool   `json:"ok"`
		Result struct {
			TrafficLogs     int64 `json:"traffic_logs"`
			ProgramEvents   int64 `json:"program_events"`
			SearchLogs      int64 `json:"search_logs"`
			ExpiredFeatures int64 `json:"expired_features"`
		} `json:"result"`
	}
	s.decode(w, &body)
	s.True(body.OK)
	s.Equal("cleanup", body.Job)
	s.Equal(int64(1), body.Result.TrafficLogs)
	s.Equal(int64(1), body.Result.ProgramEvents)
	s.Equal(int64(1), body.Result.SearchLogs)
	s.Equal(int64(1), body.Result.ExpiredFeatures)

	var traffic, events, searches int64
	s.db.Model(&models.TrafficLog{}).Count(&traffic)
	s.db.Model(&models.ProgramEvent{}).Count(&events)
	s.db.Model(&models.SearchLog{}).Count(&searches)
	s.Equal(int64(1), traffic)
	s.Equal(int64(1), events)
	s.Equal(int64(1), searches)
	s.False(s.reload(lapsed.ID).IsFeatured)
}

func (s *HandlersTestSuite) TestCronRecomputeIsIdempotent() {
	a := s.createProgram("Acme")
	b := s.createProgram("Beta")
	c := s.createProgram("Gamma")
	s.request(http.MethodPost, "/api/programs/"+a.ID+"/view", nil, withVisitor("fp-1"))
	s.request(http.MethodPost, "/api/programs/"+a.ID+"/click", nil, withVisitor("fp-1"))
	s.request(http.MethodPost, "/api/programs/"+b.ID+"/view", nil, withVisitor("fp-1"))

	w := s.request(http.MethodPost, "/api/cron/recompute-scores", nil, withBearer(testCronSecret))
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"updated":3`)

	first := map[string]float64{}
	for _, id := range []string{a.ID, b.ID, c.ID} {
		first[id] = s.reload(id).TrendingScore
	}
	s.Greater(first[a.ID], first[b.ID])
	s.Greater(first[b.ID], first[c.ID])

	w = s.request(http.MethodGet, "/api/cron/recompute-scores", nil, withBearer(testCronSecret))
	s.Require().Equal(http.StatusOK, w.Code)
	for id, score := range first {
		s.Equal(score, s.reload(id).TrendingScore, id)
	}
}

func (s *HandlersTestSuite) TestCronRotateWeights() {
	s.createProgram("Acme")
	s.createProgram("Beta")

	w := s.request(http.MethodGet, "/api/cron/rotate-weights", nil, withBearer(testCronSecret))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"job":"rotate-weights"`)
	s.Contains(w.Body.String(), `"updated":2`)
}

// Payments

func (s *HandlersTestSuite) signedWebhook(eventID string, metadata string) ([]byte, string) {
	payload := []byte(fmt.Sprintf(`{
		"id": %q,
		"object": "event",
		"type": "checkout.session.completed",
		"api_version": "2020-08-27",
		"data": {"object": {"id": "cs_test_1", "object": "checkout.session", "payment_status": "paid", "metadata": %s}}
	}`, eventID, metadata))
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func (s *HandlersTestSuite) postWebhook(payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersTestSuite) TestStripeWebhookFeaturesProgram() {
	p := s.createProgram("Acme")
	payload, signature := s.signedWebhook("evt_1", fmt.Sprintf(`{"programId": %q}`, p.ID))

	w := s.postWebhook(payload, "t=1,v1=deadbeef")
	s.Equal(http.StatusBadRequest, w.Code)
	s.False(s.reload(p.ID).IsFeatured)

	w = s.postWebhook(payload, signature)
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), `"outcome":"featured"`)
	s.True(s.reload(p.ID).FeatureActive(time.Now()))

	w = s.postWebhook(payload, signature)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"outcome":"duplicate"`)
}

func (s *HandlersTestSuite) TestCheckoutForProgram() {
	p := s.createProgram("Acme")

	w := s.request(http.MethodPost, "/api/checkout", map[string]string{"program_id": p.Slug})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Contains(w.Body.String(), "checkout.stripe.com")
	s.Require().Len(s.gateway.requests, 1)
	s.Equal(p.ID, s.gateway.requests[0].ProgramID)

	w = s.request(http.MethodPost, "/api/checkout", map[string]string{"program_id": "missing"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *HandlersTestSuite) TestCheckoutForSubmissionValidatesFirst() {
	w := s.request(http.MethodPost, "/api/checkout", map[string]any{
		"program": s.submission("Shorty", "https://bit.ly/abc", "https://shorty.com/partners"),
	})
	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Empty(s.gateway.requests)

	w = s.request(http.MethodPost, "/api/checkout", map[string]any{
		"program": s.submission("Newtool", "https://newtool.io/", "https://newtool.io/affiliates"),
	})
	s.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	s.Require().Len(s.gateway.requests, 1)
	s.NotEmpty(s.gateway.requests[0].DraftID)
}

// Uploads

func (s *HandlersTestSuite) upload(data []byte, fields map[string]string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "logo.png")
	s.Require().NoError(err)
	_, err = part.Write(data)
	s.Require().NoError(err)
	for k, v := range fields {
		s.Require().NoError(mw.WriteField(k, v))
	}
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/logo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *HandlersTestSuite) TestUploadLogo() {
	w := s.upload(append(pngHeader, make([]byte, 512)...), nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	s.decode(w, &body)
	s.Equal("logos/test-1.png", body.Key)
	s.Equal(testCDN+"logos/test-1.png", body.URL)
}

func (s *HandlersTestSuite) TestUploadLogoRejectsOversizeAndText() {
	w := s.upload(append(pngHeader, make([]byte, storage.MaxLogoSize)...), nil)
	s.Equal(http.StatusRequestEntityTooLarge, w.Code)

	w = s.upload([]byte("just some text, not an image"), nil)
	s.Equal(http.StatusUnsupportedMediaType, w.Code)
	s.Empty(s.logos.uploaded)
}

func (s *HandlersTestSuite) TestUploadLogoReplacesProgramLogo() {
	p := s.createProgram("Acme", func(p *models.Program) { p.LogoURL = testCDN + "logos/old.png" })
	data := append(pngHeader, make([]byte, 64)...)

	w := s.upload(data, map[string]string{"programId": p.ID})
	s.Equal(http.StatusUnauthorized, w.Code)

	cookie := s.login()
	w = s.upload(data, map[string]string{"programId": p.ID}, withCookie(cookie))
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal(testCDN+"logos/test-1.png", s.reload(p.ID).LogoURL)
	s.Equal([]string{testCDN + "logos/old.png"}, s.logos.deleted)
}

// Analytics

func (s *HandlersTestSuite) TestAnalyticsSummary() {
	cookie := s.login()
	p := s.createProgram("Acme")
	s.request(http.MethodPost, "/api/programs/"+p.ID+"/view", nil, withVisitor("fp-1"))
	s.request(http.MethodPost, "/api/programs/"+p.ID+"/click", nil, withVisitor("fp-2"))
	s.request(http.MethodGet, "/api/programs?q=acme", nil)

	w := s.request(http.MethodGet, "/api/admin/analytics/summary?days=7", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)

	var body struct {
		Days           int   `json:"days"`
		PageViews      int64 `json:"page_views"`
		UniqueVisitors int64 `json:"unique_visitors"`
		ProgramViews   int64 `json:"program_views"`
		ProgramClicks  int64 `json:"program_clicks"`
		Searches       int64 `json:"searches"`
		Programs       int64 `json:"programs"`
	}
	s.decode(w, &body)
	s.Equal(7, body.Days)
	s.Equal(int64(2), body.PageViews)
	s.Equal(int64(2), body.UniqueVisitors)
	s.Equal(int64(1), body.ProgramViews)
	s.Equal(int64(1), body.ProgramClicks)
	s.Equal(int64(1), body.Searches)
	s.Equal(int64(1), body.Programs)
}

func (s *HandlersTestSuite) TestAnalyticsFailureKeepsShape() {
	cookie := s.login()
	s.Require().NoError(s.db.Exec("DROP TABLE traffic_logs").Error)

	w := s.request(http.MethodGet, "/api/admin/analytics/traffic", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"days":7,"daily":[],"top_paths":[],"top_referrers":[]}`, w.Body.String())

	w = s.request(http.MethodGet, "/api/admin/analytics/summary", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"page_views":0`)
}

func (s *HandlersTestSuite) TestAnalyticsTopPrograms() {
	cookie := s.login()
	a := s.createProgram("Acme")
	b := s.createProgram("Beta")
	s.request(http.MethodPost, "/api/programs/"+b.ID+"/view", nil, withVisitor("fp-1"))
	s.request(http.MethodPost, "/api/programs/"+b.ID+"/view", nil, withVisitor("fp-2"))
	s.request(http.MethodPost, "/api/programs/"+a.ID+"/view", nil, withVisitor("fp-1"))

	w := s.request(http.MethodGet, "/api/admin/analytics/top-programs", nil, withCookie(cookie))
	s.Require().Equal(http.StatusOK, w.Code)

	var body struct {
		Programs []struct {
			ID    string `json:"id"`
			Views int64  `json:"views"`
		} `json:"programs"`
	}
	s.decode(w, &body)
	s.Require().Len(body.Programs, 2)
	s.Equal(b.ID, body.Programs[0].ID)
	s.Equal(int64(2), body.Programs[0].Views)
}
