package report

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/otebe/matrix/internal/domain/access"
	"github.com/otebe/matrix/internal/token"
	"github.com/otebe/matrix/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendReport(ctx context.Context, to, name string, pdf []byte) error {
	args := m.Called(ctx, to, name, pdf)
	return args.Error(0)
}

func intPtr(n int) *int { return &n }

type fixture struct {
	db     *gorm.DB
	grants access.Repository
	repo   Repository
	signer *token.Signer
	mailer *MockMailer
	svc    Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := utils.SetupTestDB(t, &access.Grant{}, &Download{})

	signer, err := token.NewSigner([]byte("report-test-secret-report-test!!"), "matrix")
	require.NoError(t, err)

	f := &fixture{
		db:     db,
		grants: access.NewRepository(db),
		repo:   NewRepository(db),
		signer: signer,
		mailer: &MockMailer{},
	}
	f.svc = NewService(db, f.repo, f.grants, f.mailer, signer)
	return f
}

func (f *fixture) seed(t *testing.T, g *access.Grant) {
	t.Helper()
	g.GrantedAt = time.Now().UTC()
	g.MaxDevices = 2
	require.NoError(t, f.db.Create(g).Error)
}

func (f *fixture) downloads(t *testing.T, email string) int64 {
	t.Helper()
	n, err := f.repo.CountByEmail(email)
	require.NoError(t, err)
	return n
}

func TestDownload_QuotaPlan(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &access.Grant{Email: "a@x.io", PlanType: access.PlanSingle, DownloadsLeft: intPtr(1)})

	res, err := f.svc.Download(context.Background(), DownloadRequest{
		Email:           "A@x.io ",
		CalculationData: json.RawMessage(`{"day":12}`),
	})
	require.NoError(t, err)
	require.NotNil(t, res.DownloadsLeft)
	assert.Equal(t, 0, *res.DownloadsLeft)
	assert.False(t, res.EmailSent)
	assert.Equal(t, int64(1), f.downloads(t, "a@x.io"))

	var d Download
	require.NoError(t, f.db.First(&d).Error)
	assert.Equal(t, `{"day":12}`, d.CalculationData)

	_, err = f.svc.Download(context.Background(), DownloadRequest{Email: "a@x.io"})
	assert.ErrorIs(t, err, ErrQuotaExhausted)
	assert.Equal(t, int64(1), f.downloads(t, "a@x.io"), "refused download is not recorded")
}

func TestDownload_TimeBoxedPlanIsUnmetered(t *testing.T) {
	f := newFixture(t)
	expires := time.Now().UTC().Add(24 * time.Hour)
	f.seed(t, &access.Grant{Email: "m@x.io", PlanType: access.PlanMonth, ExpiresAt: &expires})

	for i := 0; i < 3; i++ {
		res, err := f.svc.Download(context.Background(), DownloadRequest{Email: "m@x.io"})
		require.NoError(t, err)
		assert.Nil(t, res.DownloadsLeft)
	}
	assert.Equal(t, int64(3), f.downloads(t, "m@x.io"))

	var d Download
	require.NoError(t, f.db.First(&d).Error)
	assert.Equal(t, "{}", d.CalculationData)
}

func TestDownload_Denied(t *testing.T) {
	f := newFixture(t)
	past := time.Now().UTC().Add(-time.Hour)
	f.seed(t, &access.Grant{Email: "old@x.io", PlanType: access.PlanMonth, ExpiresAt: &past})

	_, err := f.svc.Download(context.Background(), DownloadRequest{})
	assert.ErrorIs(t, err, ErrEmailRequired)
	assert.False(t, IsDenied(err))

	_, err = f.svc.Download(context.Background(), DownloadRequest{Email: "nobody@x.io"})
	assert.ErrorIs(t, err, ErrAccessNotFound)
	assert.True(t, IsDenied(err))

	_, err = f.svc.Download(context.Background(), DownloadRequest{Email: "old@x.io"})
	assert.ErrorIs(t, err, ErrAccessExpired)
}

func TestDownload_SessionToken(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &access.Grant{Email: "t@x.io", PlanType: access.PlanYear})

	valid, err := f.signer.SignSession("t@x.io", "dev", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	other, err := f.signer.SignSession("else@x.io", "dev", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	_, err = f.svc.Download(context.Background(), DownloadRequest{Email: "t@x.io", SessionToken: valid})
	assert.NoError(t, err)

	_, err = f.svc.Download(context.Background(), DownloadRequest{Email: "t@x.io", SessionToken: other})
	assert.ErrorIs(t, err, ErrInvalidSessionToken)

	_, err = f.svc.Download(context.Background(), DownloadRequest{Email: "t@x.io", SessionToken: "garbage"})
	assert.ErrorIs(t, err, ErrInvalidSessionToken)
}

func TestDownload_EmailsReport(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &access.Grant{Email: "p@x.io", PlanType: access.PlanYear})

	pdf := []byte("%PDF-1.4 test")
	encoded := base64.StdEncoding.EncodeToString(pdf)

	f.mailer.On("SendReport", mock.Anything, "p@x.io", "Client", pdf).Return(nil).Once()
	res, err := f.svc.Download(context.Background(), DownloadRequest{Email: "p@x.io", PDFBase64: encoded})
	require.NoError(t, err)
	assert.True(t, res.EmailSent)

	f.mailer.On("SendReport", mock.Anything, "p@x.io", "Anna", pdf).Return(errors.New("smtp down")).Once()
	res, err = f.svc.Download(context.Background(), DownloadRequest{
		Email:     "p@x.io",
		Name:      "Anna",
		PDFBase64: "data:application/pdf;base64," + encoded,
	})
	require.NoError(t, err, "delivery failure does not fail the download")
	assert.False(t, res.EmailSent)

	res, err = f.svc.Download(context.Background(), DownloadRequest{Email: "p@x.io", PDFBase64: "%%%"})
	require.NoError(t, err)
	assert.False(t, res.EmailSent)

	f.mailer.AssertExpectations(t)
	assert.Equal(t, int64(3), f.downloads(t, "p@x.io"))
}

func TestHandler_Download(t *testing.T) {
	f := newFixture(t)
	f.seed(t, &access.Grant{Email: "h@x.io", PlanType: access.PlanSingle, DownloadsLeft: intPtr(2)})

	app := fiber.New()
	app.Post("/download-report", NewHandler(f.svc).Download)

	post := func(body string) (int, map[string]any) {
		req := httptest.NewRequest("POST", "/download-report", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		raw, _ := io.ReadAll(resp.Body)
		var out map[string]any
		require.NoError(t, json.Unmarshal(raw, &out))
		return resp.StatusCode, out
	}

	status, body := post(`{"email":"h@x.io","calculation_data":{"a":1}}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(1), body["downloads_left"])
	assert.Equal(t, false, body["email_sent"])

	status, body = post(`{"email":"nobody@x.io"}`)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, false, body["success"])

	status, _ = post(`{}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = post(`{not json`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
